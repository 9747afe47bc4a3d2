package cmd

import (
	"fmt"
	"os"

	"github.com/rnnvis/rnnvis/pkg/config"
	"github.com/rnnvis/rnnvis/pkg/database"
	"github.com/rnnvis/rnnvis/pkg/elastic"
	"github.com/rnnvis/rnnvis/pkg/logging"
	"github.com/rnnvis/rnnvis/pkg/manager"
	"github.com/rnnvis/rnnvis/pkg/modelconfig"
	"github.com/rnnvis/rnnvis/pkg/session"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
	silent     bool
)

var logger = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "rnnvis",
	Short: "inspect and validate recurrent model training configs",
	Long:  `rnnvis loads, validates and catalogs the training configurations of recurrent language and sentiment models`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.New(verbose, silent)
		if verbose {
			setDebugLogFunctions(logging.DebugFunc(logger))
		}
	},
}

// singleDashFlags are long flags also accepted with one dash.
var singleDashFlags = map[string]string{
	"-silent":  "--silent",
	"-json":    "--json",
	"-yaml":    "--yaml",
	"-index":   "--index",
	"-load":    "--load",
	"-config":  "--config",
	"-verbose": "--verbose",
}

func rewriteArgs(args []string) (out []string, isSilent bool) {
	out = make([]string, len(args))
	for i, arg := range args {
		if long, ok := singleDashFlags[arg]; ok {
			arg = long
		}
		if arg == "--silent" {
			isSilent = true
		}
		out[i] = arg
	}
	return out, isSilent
}

func Execute() {
	args, isSilent := rewriteArgs(os.Args[1:])
	rootCmd.SetArgs(args)

	if !isSilent {
		printBanner()
	}

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func setDebugLogFunctions(debug func(string, ...interface{})) {
	config.DebugLog = debug
	modelconfig.DebugLog = debug
	manager.DebugLog = debug
	session.DebugLog = debug
	database.DebugLog = debug
	elastic.DebugLog = debug
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "silent mode - no banner or informational output")

	rootCmd.AddCommand(versionCmd)
}

func printBanner() {
	banner := color.CyanString(`
┬─┐┌┐┌┌┐┌┬  ┬┬┌─┐
├┬┘│││││││└┐┌┘│└─┐
┴└─┘└┘┘└┘ └┘ ┴└─┘
`)
	info := color.HiBlackString("recurrent model configuration toolkit")
	fmt.Fprintln(os.Stderr, banner)
	fmt.Fprintln(os.Stderr, info)
	fmt.Fprintln(os.Stderr)
}

// app bundles what the commands share.
type app struct {
	cfg     *config.Config
	session *session.Session
	db      *database.DB
	models  *manager.Manager
}

func loadConfig() (*config.Config, error) {
	cm := config.NewManager(configFile)
	if err := cm.LoadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cm.GetConfig(), nil
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Warnf("Database initialization failed: %v", err)
	}

	s := session.New(cfg)

	opts := []manager.Option{
		manager.WithLogger(logger),
		manager.WithWorkers(cfg.DefaultSettings.Workers),
		manager.WithHTTPClient(s.Client),
		manager.WithModels(cfg.Models),
	}
	if db.IsEnabled() {
		opts = append(opts, manager.WithRecorder(db))
	}

	return &app{
		cfg:     cfg,
		session: s,
		db:      db,
		models:  manager.New(cfg.Paths.ConfigDir, opts...),
	}, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func mustApp() *app {
	a, err := newApp()
	if err != nil {
		color.Red("Failed to initialize: %v", err)
		os.Exit(1)
	}
	return a
}
