package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/newthinker/intrinsic/internal/app"
	"github.com/newthinker/intrinsic/internal/logger"
)

var valueFlags struct {
	discountRate float64
	stage1Years  int
	stage1Growth float64
	stage2Years  int
	stage2Growth float64
	stage3Years  int
	stage3Growth float64
	showFlows    bool
}

var valueCmd = &cobra.Command{
	Use:   "value [code]",
	Short: "Run a DCF valuation for a stock",
	Long: `Run a three-stage DCF valuation. Parameters not given on the command line
come from the valuation section of the config file.`,
	Args: cobra.ExactArgs(1),
	RunE: runValue,
}

func init() {
	f := valueCmd.Flags()
	f.Float64Var(&valueFlags.discountRate, "discount-rate", 0, "discount rate, e.g. 0.10")
	f.IntVar(&valueFlags.stage1Years, "stage1-years", 0, "years of stage 1 growth")
	f.Float64Var(&valueFlags.stage1Growth, "stage1-growth", 0, "stage 1 growth rate")
	f.IntVar(&valueFlags.stage2Years, "stage2-years", 0, "years of stage 2 growth")
	f.Float64Var(&valueFlags.stage2Growth, "stage2-growth", 0, "stage 2 growth rate")
	f.IntVar(&valueFlags.stage3Years, "stage3-years", 0, "years of stage 3 growth, 0 for a perpetuity")
	f.Float64Var(&valueFlags.stage3Growth, "stage3-growth", 0, "stage 3 growth rate")
	f.BoolVar(&valueFlags.showFlows, "flows", false, "print the projected cash flows")

	rootCmd.AddCommand(valueCmd)
}

func runValue(cmd *cobra.Command, args []string) error {
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

	p := a.Defaults()
	flags := cmd.Flags()
	if flags.Changed("discount-rate") {
		p.DiscountRate = valueFlags.discountRate
	}
	if flags.Changed("stage1-years") {
		p.Stage1.Years = valueFlags.stage1Years
	}
	if flags.Changed("stage1-growth") {
		p.Stage1.Growth = valueFlags.stage1Growth
	}
	if flags.Changed("stage2-years") {
		p.Stage2.Years = valueFlags.stage2Years
	}
	if flags.Changed("stage2-growth") {
		p.Stage2.Growth = valueFlags.stage2Growth
	}
	if flags.Changed("stage3-years") {
		p.Stage3.Years = valueFlags.stage3Years
	}
	if flags.Changed("stage3-growth") {
		p.Stage3.Growth = valueFlags.stage3Growth
	}

	v, err := a.Valuate(cmd.Context(), app.ValuationRequest{Code: args[0], Parameters: p})
	if err != nil {
		return err
	}
	r := v.Result

	fmt.Printf("=== DCF Valuation %s ===\n", r.StockCode)
	if r.Caveat != "" {
		fmt.Printf("WARNING: %s\n", r.Caveat)
	}
	fmt.Printf("Discount rate:   %.2f%%\n", p.DiscountRate*100)
	fmt.Printf("Stages:          %dy @ %.2f%%, %dy @ %.2f%%, ", p.Stage1.Years, p.Stage1.Growth*100, p.Stage2.Years, p.Stage2.Growth*100)
	if p.Perpetual() {
		fmt.Printf("perpetual @ %.2f%%\n", p.Stage3.Growth*100)
	} else {
		fmt.Printf("%dy @ %.2f%%\n", p.Stage3.Years, p.Stage3.Growth*100)
	}
	fmt.Println()

	fmt.Printf("FCF history (亿): ")
	for i, fcf := range r.FCFHistory {
		if i > 0 {
			fmt.Print(", ")
		}
		fmt.Printf("%.2f", fcf/1e8)
	}
	fmt.Println()
	fmt.Printf("Average FCF:      %.2f 亿\n", r.AverageFCF/1e8)
	fmt.Printf("Enterprise value: %.2f 亿\n", r.EnterpriseValue/1e8)
	fmt.Printf("Total shares:     %.2f 亿 (%s)\n", r.TotalShares/1e8, r.SharesSource)
	fmt.Printf("Value per share:  %.2f\n", r.PricePerShare)
	price := fmt.Sprintf("%.2f", r.MarketPrice)
	if r.MarketPriceEstimated {
		price += " (placeholder)"
	}
	fmt.Printf("Market price:     %s\n", price)
	fmt.Printf("Valuation ratio:  %.2f\n", r.ValuationRatio)
	if v.ReportID != "" {
		fmt.Printf("Report:           %s\n", v.ReportID)
	}

	if valueFlags.showFlows && v.Projection != nil {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "Year\tStage\tFCF (亿)\tPV (亿)\t")
		for _, f := range v.Projection.Flows {
			fmt.Fprintf(w, "%d\t%d\t%.2f\t%.2f\t\n", f.Year, f.Stage, f.FCF/1e8, f.PV/1e8)
		}
		if p.Perpetual() {
			fmt.Fprintf(w, "TV\t3\t%.2f\t%.2f\t\n", v.Projection.TerminalValue/1e8, v.Projection.TerminalPV/1e8)
		}
		w.Flush()
	}
	return nil
}
