package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/rnnvis/rnnvis/pkg/modelconfig"
	"github.com/rnnvis/rnnvis/pkg/session"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|url>...",
	Short: "Validate model config documents",
	Long:  `Parse and validate model config files or http(s) URLs. Exits with status 1 if any document is invalid.`,
	Args:  cobra.MinimumNArgs(1),
	Run:   runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
	client := session.New(cfg).Client

	allValid := true
	for _, location := range args {
		mc, err := modelconfig.Open(context.Background(), client, location)
		if err != nil {
			allValid = false
			color.Red("[FAIL] %s", location)
			printValidationError(err)
			continue
		}
		if !silent {
			color.Green("[OK]   %s (%s, hash %s)", location, mc.Model.Name, mc.Hash())
		}
	}

	if !allValid {
		os.Exit(1)
	}
}

func printValidationError(err error) {
	var verr *modelconfig.ValidationError
	if errors.As(err, &verr) {
		for _, v := range verr.Violations {
			color.Yellow("       - %s", v)
		}
		return
	}
	color.Yellow("       - %v", err)
}
