package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/SkothaSec/project-mimir/config"
	"github.com/SkothaSec/project-mimir/internal/logger"
)

var (
	Version = "dev"

	configPath     string
	sourceOverride string
	urlOverride    string
	fileOverride   string
)

// errReported marks a failure that was already shown to the user.
var errReported = errors.New("reported")

var rootCmd = &cobra.Command{
	Use:   "mimir",
	Short: "Mimir Investigator",
	Long: `Read-only dashboard for the latest Vertex assessments.

Fetches one batch of assessment records, derives severity, confidence and
log evidence for each, and presents them as a sortable list with a detail
view per alert.`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to mimir.yml")
	rootCmd.PersistentFlags().StringVar(&sourceOverride, "source", "", "Results source: http, redis or file")
	rootCmd.PersistentFlags().StringVar(&urlOverride, "url", "", "Results endpoint URL")
	rootCmd.PersistentFlags().StringVar(&fileOverride, "file", "", "Results JSON or JSONL file")

	rootCmd.AddCommand(listCmd, showCmd, tuiCmd, serveCmd, exportCmd)
}

// loadConfig resolves the config file, applies flag overrides and starts logging.
// console=false keeps log lines off the terminal for full-screen commands.
func loadConfig(console bool) (*config.Config, error) {
	path := config.FindConfigFile(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	if sourceOverride != "" {
		cfg.Mimir.Results.Source = sourceOverride
	}
	if urlOverride != "" {
		cfg.Mimir.Results.HTTP.URL = urlOverride
	}
	if fileOverride != "" {
		cfg.Mimir.Results.File.Path = fileOverride
	}

	logCfg := cfg.Mimir.Logging
	enabled := logCfg.Enabled
	if !console {
		enabled = enabled && logCfg.File != ""
	}
	if err := logger.Init(enabled, logCfg.Level, logCfg.File, logCfg.Console && console); err != nil {
		return nil, errors.Wrap(err, "init logger")
	}

	logger.Debugf("Config loaded from %s (source=%s)", path, cfg.Mimir.Results.Source)
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
