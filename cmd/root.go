/* cmd/root.go */

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/CodeMonkeyCybersecurity/aovpn/cmd/inspect"
	"github.com/CodeMonkeyCybersecurity/aovpn/cmd/restart"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_err"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_io"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/config"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd is the base command for aovpn.
var RootCmd = &cobra.Command{
	Use:   "aovpn",
	Short: "Keep the Always On VPN gateway serving",
	Long: `aovpn restarts the RRAS service behind an Always On VPN SSTP gateway, verifies
the listener comes back, and force-reboots the host when it does not.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       aovpn_io.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// RegisterCommands adds all subcommands to the root command.
func RegisterCommands() {
	RootCmd.PersistentFlags().String(config.KeyConfig, "", "Config file (default aovpn.yaml in /etc/aovpn, ~/.aovpn or .)")

	for _, subCmd := range []*cobra.Command{
		restart.RestartCmd,
		inspect.InspectCmd,
	} {
		RootCmd.AddCommand(subCmd)
	}
}

// Execute initializes and runs the root command, then exits with the code
// matching the error class.
func Execute() {
	log := logger.L()

	if err := telemetry.Init("aovpn"); err != nil {
		log.Warn("Telemetry disabled", zap.Error(err))
	}

	RegisterCommands()
	err := RootCmd.Execute()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if serr := telemetry.Shutdown(shutdownCtx); serr != nil {
		log.Debug("Telemetry shutdown failed", zap.Error(serr))
	}
	cancel()

	code := aovpn_err.GetExitCode(err)
	switch {
	case err == nil:
	case aovpn_err.IsExpectedUserError(err):
		log.Warn("CLI completed with user error", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
	default:
		log.Error("CLI execution error", zap.Error(err), zap.Int("exit_code", code))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	if serr := logger.Sync(); serr != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to flush logs: %v\n", serr)
	}
	os.Exit(code)
}
