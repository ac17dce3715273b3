package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"pricewatch/internal/app"
)

var searchSources []string

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search stores for an item and record the current prices",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SearchOptions{
			Term:    strings.Join(args, " "),
			Sources: searchSources,
		}
		return getApp().Search(cmd.Context(), opts)
	},
}

func init() {
	searchCmd.Flags().StringSliceVar(&searchSources, "sources", nil, "Restrict the search to named stores (default: all)")
}
