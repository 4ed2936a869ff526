// cmd/inspect/inspect.go

package inspect

import (
	"github.com/spf13/cobra"
)

// InspectCmd reports service and listener state without changing anything.
var InspectCmd = &cobra.Command{
	Use:     "inspect",
	Short:   "Inspect service and listener state",
	Aliases: []string{"read", "get"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	InspectCmd.AddCommand(InspectServiceCmd)
	InspectCmd.AddCommand(InspectListenerCmd)
}
