// pkg/execute/execute.go

package execute

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_err"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a command when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// ErrTimeout is returned (wrapped) when a command exceeds its timeout.
var ErrTimeout = cerr.New("command timed out")

// Options describes a single command invocation. Commands never go through a shell.
type Options struct {
	Command string
	Args    []string
	Dir     string
	Timeout time.Duration
	// Capture returns combined stdout/stderr to the caller.
	Capture bool
	// DryRun logs the command without executing it.
	DryRun bool
}

// Run executes a command with structured logging and a telemetry span.
// Output is always buffered; it is returned only when Capture is set, but is
// summarised into the error on failure either way.
func Run(ctx context.Context, opts Options) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := otelzap.Ctx(ctx)
	cmdStr := buildCommandString(opts.Command, opts.Args...)

	if opts.Command == "" {
		return "", aovpn_err.NewValidationError("no command given", nil)
	}

	rc, cancel := context.WithTimeout(ctx, defaultTimeout(opts.Timeout))
	defer cancel()

	rc, span := telemetry.Start(rc, "execute.Run",
		attribute.String("command", opts.Command),
		attribute.String("args", strings.Join(opts.Args, " ")),
	)
	defer span.End()

	if opts.DryRun {
		logger.Info("Dry run mode - command not executed", zap.String("command", cmdStr))
		return "", nil
	}

	logger.Debug("Starting execution", zap.String("command", cmdStr))

	cmd := exec.CommandContext(rc, opts.Command, opts.Args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	err := cmd.Run()
	output := buf.String()

	if rc.Err() == context.DeadlineExceeded {
		span.RecordError(ErrTimeout)
		logger.Warn("Execution timed out",
			zap.String("command", cmdStr),
			zap.Duration("timeout", defaultTimeout(opts.Timeout)))
		return output, cerr.Wrapf(ErrTimeout, "%s after %s", cmdStr, defaultTimeout(opts.Timeout))
	}

	if err != nil {
		summary := aovpn_err.ExtractSummary(output, 2)
		span.RecordError(err)
		logger.Debug("Execution failed",
			zap.String("command", cmdStr),
			zap.String("summary", summary),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return output, cerr.WithHint(cerr.Wrapf(err, "%s failed", cmdStr), summary)
	}

	logger.Debug("Execution succeeded",
		zap.String("command", cmdStr),
		zap.Duration("duration", time.Since(start)))

	if opts.Capture {
		return output, nil
	}
	return "", nil
}
