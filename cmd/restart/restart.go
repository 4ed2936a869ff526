// cmd/restart/restart.go

package restart

import (
	"github.com/spf13/cobra"
)

// RestartCmd groups the supervised restart commands.
var RestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart a service and confirm it is serving again",
	Long: `Restart a service, wait for it to report running and for its port to listen.
Failed attempts are retried; when every attempt fails the host is force-rebooted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	RestartCmd.AddCommand(RRASCmd)
}
