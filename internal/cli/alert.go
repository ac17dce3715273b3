package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	alertOwner  string
	alertTarget float64
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Manage price-drop alerts",
}

var alertSetCmd = &cobra.Command{
	Use:   "set <pattern>",
	Short: "Create or update an alert for items matching a pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertTarget <= 0 {
			return errors.New("--target must be greater than zero")
		}
		target := decimal.NewFromFloat(alertTarget)
		return getApp().SetAlert(cmd.Context(), alertOwner, args[0], target)
	},
}

var alertListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active alerts and their current status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListAlerts(cmd.Context(), alertOwner)
	},
}

var alertCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate active alerts and notify on triggered ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().EvaluateAlerts(cmd.Context(), alertOwner)
	},
}

func init() {
	alertCmd.PersistentFlags().StringVar(&alertOwner, "owner", "", "Owner reference to scope alerts to (default: all owners)")
	alertSetCmd.Flags().Float64Var(&alertTarget, "target", 0, "Target price that triggers the alert")

	alertCmd.AddCommand(alertSetCmd)
	alertCmd.AddCommand(alertListCmd)
	alertCmd.AddCommand(alertCheckCmd)
}
