// cmd/inspect/listener.go

package inspect

import (
	"context"
	"fmt"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_cli"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_err"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_io"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/netprobe"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/supervisor"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type listenerLister interface {
	Listeners(ctx context.Context, port int) ([]netprobe.Listener, error)
}

var newProber = func() listenerLister { return netprobe.NewProber() }

var InspectListenerCmd = newListenerCmd()

func newListenerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listener",
		Short: "List listening TCP sockets on a port",
		Args:  cobra.NoArgs,
		RunE:  aovpn_cli.Wrap(runListener),
	}
	cmd.Flags().Int("port", supervisor.DefaultPort, "TCP port")
	return cmd
}

func runListener(rc *aovpn_io.RuntimeContext, cmd *cobra.Command, _ []string) error {
	port, _ := cmd.Flags().GetInt("port")
	if port < 1 || port > 65535 {
		return aovpn_err.NewValidationError(fmt.Sprintf("invalid port %d", port), nil,
			"Use a port between 1 and 65535")
	}

	listeners, err := newProber().Listeners(rc.Ctx, port)
	if err != nil {
		return cerr.Wrapf(err, "list listeners on port %d", port)
	}

	rc.Log.Info("Listener lookup", zap.Int("port", port), zap.Int("listeners", len(listeners)))
	out := cmd.OutOrStdout()
	if len(listeners) == 0 {
		fmt.Fprintf(out, "nothing listening on TCP port %d\n", port)
		return nil
	}
	for _, l := range listeners {
		fmt.Fprintf(out, "%s\t%s:%d\tpid %d\n", l.Family, l.Address, l.Port, l.PID)
	}
	return nil
}
