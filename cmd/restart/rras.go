// cmd/restart/rras.go

package restart

import (
	"fmt"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_cli"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_err"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_io"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/config"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/netprobe"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/reboot"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/servicectl"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/supervisor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Swappable in tests.
var (
	newController = func() supervisor.ServiceController { return servicectl.NewController() }
	newProber     = func() supervisor.PortProber { return netprobe.NewProber() }
	newRebooter   = func(dryRun bool) supervisor.HostRebooter { return reboot.New(dryRun) }
)

// RRASCmd restarts the Routing and Remote Access service behind the SSTP listener.
var RRASCmd = newRRASCmd()

func newRRASCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rras",
		Aliases: []string{"sstp"},
		Short:   "Restart RemoteAccess and wait for the SSTP listener on 443",
		Long: `Restart the RemoteAccess service (or --service) and verify recovery:
the service must report running within --startup-timeout, then the port must
listen within --port-timeout. Up to --max-attempts restarts are made before the
host is force-rebooted. Use --skip-reboot to log the escalation instead.

Settings can also come from aovpn.yaml or AOVPN_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: aovpn_cli.Wrap(runRRAS),
	}
	config.AddSupervisorFlags(cmd)
	return cmd
}

func runRRAS(rc *aovpn_io.RuntimeContext, cmd *cobra.Command, _ []string) error {
	log := rc.Log

	// ASSESS
	settings, err := config.LoadSupervisorConfig(cmd)
	if err != nil {
		return err
	}
	cfg := settings.Supervisor
	rc.Attributes["service"] = cfg.ServiceName
	log.Info("Assessing restart configuration",
		zap.String("service", cfg.ServiceName),
		zap.Int("port", cfg.Port),
		zap.Int("max_attempts", cfg.MaxAttempts),
		zap.Bool("skip_reboot", settings.SkipReboot),
		zap.String("config_file", settings.ConfigFile))

	sup, err := supervisor.New(cfg, newController(), newProber(), newRebooter(settings.SkipReboot))
	if err != nil {
		return err
	}

	// INTERVENE
	result, runErr := sup.Supervise(rc.Ctx)
	if result != nil {
		rc.Attributes["run_id"] = result.RunID
		rc.Attributes["outcome"] = result.Outcome.String()
		writeReport(rc, result, settings.ReportPath)
		printSummary(cmd, result)
	}
	if runErr != nil {
		return runErr
	}

	// EVALUATE
	if result.Outcome != supervisor.OutcomeSuccess {
		return aovpn_err.NewEscalationError(cfg.ServiceName, len(result.Attempts), settings.SkipReboot, result.Err)
	}
	log.Info("Service verified healthy",
		zap.String("service", cfg.ServiceName),
		zap.Int("attempts", len(result.Attempts)),
		zap.Duration("elapsed", result.Elapsed))
	return nil
}

func writeReport(rc *aovpn_io.RuntimeContext, result *supervisor.Result, path string) {
	if path == "" {
		return
	}
	if err := result.WriteReport(path); err != nil {
		rc.Log.Warn("Failed to write run report", zap.String("path", path), zap.Error(err))
		return
	}
	rc.Log.Info("Run report written", zap.String("path", path))
}

func printSummary(cmd *cobra.Command, result *supervisor.Result) {
	out := cmd.OutOrStdout()
	for _, a := range result.Attempts {
		fmt.Fprintf(out, "  %s (%s)\n", a, a.Duration)
	}
	fmt.Fprintf(out, "%s on port %d: %s after %d attempt(s) in %s\n",
		result.ServiceName, result.Port, result.Outcome, len(result.Attempts), result.Elapsed)
}
