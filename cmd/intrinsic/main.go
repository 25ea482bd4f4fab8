package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newthinker/intrinsic/internal/config"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "intrinsic",
	Short: "intrinsic - DCF valuation for A-share stocks",
	Long: `intrinsic estimates the intrinsic value of A-share stocks with a
three-stage discounted cash flow model and compares it with the market price.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

// loadConfig reads .env, then the config file (or defaults), and validates.
// --debug forces server.mode to debug.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if debug {
		cfg.Server.Mode = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
