package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rnnvis/rnnvis/pkg/database"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	historyDataset string
	historyAll     bool
	historyBody    string
)

var historyCmd = &cobra.Command{
	Use:   "history [model]",
	Short: "Query the history of loaded configs",
	Long:  `Query the config history database for a specific model or all models`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyDataset, "dataset", "", "filter by dataset")
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "query all models")
	historyCmd.Flags().StringVar(&historyBody, "body", "", "print the stored YAML of the config with this hash")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	if !historyAll && len(args) == 0 {
		color.Red("Error: either provide a model or use --all flag")
		cmd.Help()
		os.Exit(1)
	}

	if historyAll && len(args) > 0 {
		color.Red("Error: cannot use both model and --all flag together")
		cmd.Help()
		os.Exit(1)
	}

	a := mustApp()
	defer a.Close()

	if !a.db.IsEnabled() {
		color.Red("Error: Database is not enabled. Please enable it in config.yaml")
		os.Exit(1)
	}

	if historyBody != "" {
		if len(args) == 0 {
			color.Red("Error: --body needs a model")
			os.Exit(1)
		}
		body, err := a.db.ConfigBody(args[0], historyBody)
		if err != nil {
			color.Red("Failed to query database: %v", err)
			os.Exit(1)
		}
		fmt.Print(body)
		return
	}

	model := ""
	if len(args) > 0 {
		model = args[0]
	}

	records, err := a.db.QueryHistory(model, historyDataset)
	if err != nil {
		color.Red("Failed to query database: %v", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		if model != "" {
			color.Yellow("[INF] Model %s not found in database.", model)
		} else {
			color.Yellow("[INF] No configs recorded yet.")
		}
		return
	}

	printHistory(records)
}

func printHistory(records []database.ConfigRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, color.CyanString("MODEL\tHASH\tDATASET\tCELL\tLOADS\tFIRST_LOADED\tLAST_LOADED"))
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.Model,
			r.Hash[:min(12, len(r.Hash))],
			r.Dataset,
			r.CellType,
			r.LoadCount,
			r.FirstLoaded.Format("2006-01-02 15:04:05"),
			r.LastLoaded.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	color.Green("\nTotal records: %d", len(records))
}
