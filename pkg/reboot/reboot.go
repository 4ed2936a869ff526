// pkg/reboot/reboot.go

// Package reboot issues an immediate, forced host restart.
package reboot

import (
	"context"
	"runtime"
	"sync"
	"unicode/utf8"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/execute"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ErrAlreadyIssued is returned by every ForceReboot call after the first.
var ErrAlreadyIssued = cerr.New("host reboot already issued")

// Rebooter forces a host restart at most once.
type Rebooter struct {
	// DryRun logs the reboot command instead of running it.
	DryRun bool

	goos string
	run  func(ctx context.Context, opts execute.Options) (string, error)
	once sync.Once
}

// New returns a Rebooter for the running platform.
func New(dryRun bool) *Rebooter {
	return &Rebooter{DryRun: dryRun, goos: runtime.GOOS, run: execute.Run}
}

// ForceReboot restarts the host immediately without asking running
// applications to close. On success the process is usually killed shortly after.
func (r *Rebooter) ForceReboot(ctx context.Context, reason string) error {
	err := ErrAlreadyIssued
	r.once.Do(func() {
		err = r.reboot(ctx, reason)
	})
	return err
}

func (r *Rebooter) reboot(ctx context.Context, reason string) error {
	logger := otelzap.Ctx(ctx)
	opts := Command(r.goos, reason)
	opts.DryRun = r.DryRun

	logger.Warn("Forcing host reboot",
		zap.String("reason", reason),
		zap.String("command", opts.Command),
		zap.Strings("args", opts.Args),
		zap.Bool("dry_run", r.DryRun))

	if _, err := r.run(ctx, opts); err != nil {
		logger.Error("Host reboot command failed", zap.Error(err))
		return cerr.Wrap(err, "force host reboot")
	}
	return nil
}

// Command returns the forced-reboot invocation for goos.
func Command(goos, reason string) execute.Options {
	if goos == "windows" {
		args := []string{"/r", "/f", "/t", "0", "/d", "p:4:1"}
		if reason != "" {
			reason = truncateRunes(reason, maxCommentLen)
			args = append(args, "/c", reason)
		}
		return execute.Options{Command: "shutdown.exe", Args: args}
	}
	return execute.Options{Command: "systemctl", Args: []string{"reboot", "--force"}}
}

// shutdown.exe rejects comments over 512 characters.
const maxCommentLen = 512

// truncateRunes cuts s to at most n runes without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
