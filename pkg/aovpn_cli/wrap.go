// pkg/aovpn_cli/wrap.go

package aovpn_cli

import (
	"context"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_err"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_io"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/logger"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Wrap ensures panic recovery, telemetry and logging around a command.
func Wrap(fn func(rc *aovpn_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		logger.InitFallback()

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		rc := aovpn_io.NewContext(parent, cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		rc.LogRuntimeExecutionContext()
		rc.Log.Debug("Command invoked",
			zap.String("command", cmd.CommandPath()),
			zap.Strings("args", args))

		err = fn(rc, cmd, args)
		if err != nil && !aovpn_err.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}
