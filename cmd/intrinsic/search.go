package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newthinker/intrinsic/internal/app"
	"github.com/newthinker/intrinsic/internal/logger"
)

var searchCmd = &cobra.Command{
	Use:   "search [code or name]",
	Short: "Resolve a stock code or company name",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	id, err := a.Search(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s\n", id.Code, id.Name)
	return nil
}
