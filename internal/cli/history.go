package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <commodity>",
	Short: "Display the daily price history of a commodity per store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().History(cmd.Context(), strings.Join(args, " "))
	},
}
