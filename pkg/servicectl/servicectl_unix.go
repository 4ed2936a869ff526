//go:build !windows

// pkg/servicectl/servicectl_unix.go

package servicectl

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_err"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/execute"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// commandTimeout caps a single systemctl call; the caller's context usually
// cancels it much earlier.
const commandTimeout = 15 * time.Minute

type systemdController struct {
	run      func(ctx context.Context, opts execute.Options) (string, error)
	lookPath func(file string) (string, error)
}

// NewController returns the systemd-backed controller.
func NewController() Controller {
	return &systemdController{run: execute.Run, lookPath: exec.LookPath}
}

func (c *systemdController) Restart(ctx context.Context, name string) error {
	logger := otelzap.Ctx(ctx)

	if _, err := c.lookPath("systemctl"); err != nil {
		return aovpn_err.NewDependencyError("systemctl", "service restart")
	}

	logger.Info("Restarting systemd unit", zap.String("unit", name))
	out, err := c.run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"restart", name},
		Timeout: commandTimeout,
	})
	if err != nil {
		if permissionDenied(out) {
			return aovpn_err.NewPermissionError(name, "restart", err,
				"Run aovpn as root or grant the account polkit rights on the unit")
		}
		return cerr.Wrapf(err, "systemctl restart %s", name)
	}
	return nil
}

func (c *systemdController) Status(ctx context.Context, name string) (State, error) {
	out, err := c.run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"show", name, "-p", "ActiveState", "-p", "SubState", "-p", "LoadState"},
		Capture: true,
		Timeout: 30 * time.Second,
	})
	if err != nil {
		if permissionDenied(out) {
			return StateUnknown, aovpn_err.NewPermissionError(name, "query", err)
		}
		return StateUnknown, cerr.Wrapf(err, "systemctl show %s", name)
	}

	props := parseShowOutput(out)
	if props["LoadState"] == "not-found" {
		return StateUnknown, aovpn_err.NewValidationError("service "+name+" does not exist", nil)
	}
	return ParseSystemdState(props["ActiveState"], props["SubState"]), nil
}

// permissionDenied matches the refusals systemctl and polkit print.
func permissionDenied(output string) bool {
	lower := strings.ToLower(output)
	for _, marker := range []string{"access denied", "permission denied", "authentication is required", "interactive authentication required"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
