package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var loadModels bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List registered models",
	Long:  `List the registered models and where their configs live. With --load every config is loaded and validated.`,
	Run:   runModels,
}

func init() {
	modelsCmd.Flags().BoolVar(&loadModels, "load", false, "load and validate every registered config")
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) {
	a := mustApp()
	defer a.Close()

	var failures map[string]error
	if loadModels {
		failures = a.models.LoadAll(context.Background())
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	header := "MODEL\tSOURCE"
	if loadModels {
		header += "\tSTATUS\tCELL\tLAYERS\tPARAMS"
	}
	fmt.Fprintln(w, color.CyanString(header))

	for _, name := range a.models.AvailableModels() {
		location, _ := a.models.ConfigFilename(name)
		if !loadModels {
			fmt.Fprintf(w, "%s\t%s\n", name, location)
			continue
		}

		if err := failures[name]; err != nil {
			fmt.Fprintf(w, "%s\t%s\t%s\t-\t-\t-\n", name, location, color.RedString("FAIL"))
			continue
		}

		cfg, err := a.models.Config(context.Background(), name)
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\t%s\t-\t-\t-\n", name, location, color.RedString("FAIL"))
			failures[name] = err
			continue
		}
		s := cfg.Summary()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			name, location, color.GreenString("OK"), s.CellType, s.Layers, s.Params)
	}
	w.Flush()

	if len(failures) > 0 {
		fmt.Println()
		for name, err := range failures {
			color.Red("[ERR] %s: %v", name, err)
		}
		os.Exit(1)
	}

	if !silent {
		color.Green("\nTotal models: %d", len(a.models.AvailableModels()))
	}
}

func formatUnits(units []int) string {
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = fmt.Sprint(u)
	}
	return strings.Join(parts, "x")
}
