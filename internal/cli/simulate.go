package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateTarget float64
	simulatePrice  float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert <pattern>",
	Short: "Push a fabricated price through the alert path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateTarget <= 0 || simulatePrice <= 0 {
			return errors.New("--target and --price must be greater than zero")
		}

		target := decimal.NewFromFloat(simulateTarget)
		price := decimal.NewFromFloat(simulatePrice)
		return getApp().SimulateAlert(cmd.Context(), args[0], target, price)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateTarget, "target", 0, "Alert target price")
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "Observed price to simulate")
}
