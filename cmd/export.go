package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rnnvis/rnnvis/pkg/elastic"
	"github.com/rnnvis/rnnvis/pkg/modelconfig"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportIndex  bool
	exportFrom   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export config summaries as JSON lines",
	Long: `Load every registered model and write one JSON summary per line.
With --index the summaries are also bulk-indexed into Elasticsearch.`,
	Example: `  rnnvis export -o summaries.jsonl
  rnnvis export --index
  rnnvis export --from summaries.jsonl --index`,
	Run: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "file to write summaries to (default: stdout)")
	exportCmd.Flags().BoolVar(&exportIndex, "index", false, "index summaries into elasticsearch")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "read summaries from an earlier export instead of loading models")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	a := mustApp()
	defer a.Close()

	ctx := context.Background()

	var summaries []modelconfig.Summary
	if exportFrom != "" {
		f, err := os.Open(exportFrom)
		if err != nil {
			color.Red("Failed to open %s: %v", exportFrom, err)
			os.Exit(1)
		}
		summaries, err = elastic.ReadSummaries(f)
		f.Close()
		if err != nil {
			color.Red("Failed to read %s: %v", exportFrom, err)
			os.Exit(1)
		}
	} else {
		var failed bool
		summaries, failed = collectSummaries(ctx, a)
		if failed {
			os.Exit(1)
		}
		if err := writeExport(summaries); err != nil {
			color.Red("Export failed: %v", err)
			os.Exit(1)
		}
	}

	if !exportIndex {
		return
	}

	if !a.cfg.Elastic.Enabled {
		color.Red("Error: Elasticsearch is not enabled. Please enable it in config.yaml")
		os.Exit(1)
	}

	client, err := elastic.New(elastic.Config{
		URL:      a.cfg.Elastic.URL,
		Username: a.cfg.Elastic.Username,
		Password: a.cfg.Elastic.Password,
		Index:    a.cfg.Elastic.Index,
	})
	if err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}

	if err := client.IndexSummaries(ctx, summaries); err != nil {
		color.Red("Indexing failed: %v", err)
		os.Exit(1)
	}
	logger.Infof("Indexed %d summaries", len(summaries))
}

func collectSummaries(ctx context.Context, a *app) ([]modelconfig.Summary, bool) {
	failures := a.models.LoadAll(ctx)
	for name, err := range failures {
		color.Red("[ERR] %s: %v", name, err)
	}

	var summaries []modelconfig.Summary
	for _, name := range a.models.AvailableModels() {
		if _, failed := failures[name]; failed {
			continue
		}
		cfg, err := a.models.Config(ctx, name)
		if err != nil {
			color.Red("[ERR] %s: %v", name, err)
			return nil, true
		}
		summaries = append(summaries, cfg.Summary())
	}
	return summaries, len(failures) > 0
}

func writeExport(summaries []modelconfig.Summary) error {
	if exportOutput == "" {
		return writeSummaries(os.Stdout, summaries)
	}

	if dir := filepath.Dir(exportOutput); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := writeSummaries(file, summaries); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(file, "\n# Exported %d configs at %s\n",
		len(summaries), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to write summary to file: %w", err)
	}

	if !silent {
		logger.Infof("Wrote %d summaries to %s", len(summaries), exportOutput)
	}
	return nil
}

func writeSummaries(w io.Writer, summaries []modelconfig.Summary) error {
	for _, s := range summaries {
		line, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		if _, err := fmt.Fprintln(w, string(line)); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}
