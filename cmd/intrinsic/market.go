package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newthinker/intrinsic/internal/app"
	"github.com/newthinker/intrinsic/internal/logger"
)

var marketCmd = &cobra.Command{
	Use:   "market [code]",
	Short: "Show current market data for a stock",
	Args:  cobra.ExactArgs(1),
	RunE:  runMarket,
}

func init() {
	rootCmd.AddCommand(marketCmd)
}

func runMarket(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.ForCLI(debug)
	defer log.Sync()

	a, err := app.Build(cmd.Context(), cfg, log, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	q, err := a.MarketData(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("=== %s %s ===\n", q.Code, q.Name)
	fmt.Printf("Price:      %.2f (%+.2f%%)\n", q.Price, q.ChangePercent)
	fmt.Printf("Open:       %.2f\n", q.Open)
	fmt.Printf("High/Low:   %.2f / %.2f\n", q.High, q.Low)
	fmt.Printf("Prev close: %.2f\n", q.PrevClose)
	fmt.Printf("Volume:     %.0f\n", q.Volume)
	fmt.Printf("Turnover:   %.0f\n", q.Turnover)
	fmt.Printf("PE / PB:    %.2f / %.2f\n", q.PE, q.PB)
	fmt.Printf("Source:     %s\n", q.Source)
	return nil
}
