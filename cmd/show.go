package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rnnvis/rnnvis/pkg/modelconfig"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	showYAML bool
	showJSON bool
)

var showCmd = &cobra.Command{
	Use:   "show <model>",
	Short: "Show the training config of a registered model",
	Args:  cobra.ExactArgs(1),
	Run:   runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showYAML, "yaml", false, "print the full config as YAML")
	showCmd.Flags().BoolVarP(&showJSON, "json", "j", false, "print the summary as JSON")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) {
	if showYAML && showJSON {
		color.Red("Error: cannot use both --yaml and --json")
		os.Exit(1)
	}

	a := mustApp()
	defer a.Close()

	cfg, err := a.models.Config(context.Background(), args[0])
	if err != nil {
		color.Red("Failed to load %s: %v", args[0], err)
		os.Exit(1)
	}

	switch {
	case showYAML:
		data, err := cfg.Marshal()
		if err != nil {
			color.Red("%v", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
	case showJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg.Summary()); err != nil {
			color.Red("%v", err)
			os.Exit(1)
		}
	default:
		printConfig(cfg)
	}
}

func printConfig(cfg *modelconfig.Config) {
	s := cfg.Summary()
	m, t := cfg.Model, cfg.Train

	color.Cyan("%s", s.Name)
	fmt.Printf("  %-18s %s\n", "dataset", m.Dataset)
	fmt.Printf("  %-18s %s %s\n", "cells", m.CellType, formatUnits(s.Units))
	fmt.Printf("  %-18s %d\n", "vocab size", m.VocabSize)
	fmt.Printf("  %-18s %d\n", "embedding size", m.EmbeddingSize)
	fmt.Printf("  %-18s %d\n", "target size", m.TargetSize)
	fmt.Printf("  %-18s %t\n", "use last output", m.UseLastOutput)
	fmt.Printf("  %-18s %s\n", "loss", m.LossFunc)
	fmt.Printf("  %-18s %s %v\n", "initializer", m.InitializerName, m.InitializerArgs)
	fmt.Printf("  %-18s %d\n", "params (est.)", s.Params)
	fmt.Println()
	color.Cyan("training")
	fmt.Printf("  %-18s %s (lr %g)\n", "optimizer", t.Optimizer, t.LearningRate)
	fmt.Printf("  %-18s %d epochs x %d steps, batch %d\n", "schedule", t.EpochNum, t.NumSteps, t.BatchSize)
	fmt.Printf("  %-18s %g\n", "keep prob", t.KeepProb)
	fmt.Printf("  %-18s %s %v\n", "gradient clip", t.GradientClip, t.GradientClipArgs)
	fmt.Printf("  %-18s %s\n", "hash", s.Hash)
}
