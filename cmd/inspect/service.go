// cmd/inspect/service.go

package inspect

import (
	"fmt"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_cli"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_err"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_io"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/servicectl"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/supervisor"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var newController = servicectl.NewController

var InspectServiceCmd = newServiceCmd()

func newServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Show the current state of a service",
		Args:  cobra.NoArgs,
		RunE:  aovpn_cli.Wrap(runService),
	}
	cmd.Flags().String("name", supervisor.DefaultServiceName, "Service name")
	return cmd
}

func runService(rc *aovpn_io.RuntimeContext, cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		return aovpn_err.NewExpectedError(cerr.New("--name must not be empty"))
	}

	state, err := newController().Status(rc.Ctx, name)
	if err != nil {
		return cerr.Wrapf(err, "query %s", name)
	}
	rc.Log.Info("Service state", zap.String("service", name), zap.String("state", state.String()))
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, state)
	return nil
}
