package cli

import (
	"github.com/spf13/cobra"
)

var rollupCmd = &cobra.Command{
	Use:   "rollup [category]",
	Short: "Summarise tracked prices per commodity in a category",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return getApp().Categories(cmd.Context())
		}
		return getApp().Rollup(cmd.Context(), args[0])
	},
}
