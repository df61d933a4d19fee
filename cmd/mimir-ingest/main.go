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
	"github.com/SkothaSec/project-mimir/internal/assessments"
	"github.com/SkothaSec/project-mimir/internal/ingest"
	"github.com/SkothaSec/project-mimir/internal/logger"
	"github.com/SkothaSec/project-mimir/internal/rules"
)

var (
	Version = "dev"

	configPath string
	useMemory  bool
)

var rootCmd = &cobra.Command{
	Use:   "mimir-ingest",
	Short: "Vertex assessment ingest service",
	Long: `Receives logs pushed by a Pub/Sub subscription, assesses each one and
keeps the latest assessments for the Mimir dashboard.`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to mimir.yml")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "memory", false, "Keep assessments in memory instead of Redis")

	rootCmd.AddCommand(serveCmd, seedCmd)
}

func loadConfig() (*config.Config, error) {
	path := config.FindConfigFile(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	logCfg := cfg.Mimir.Logging
	if err := logger.Init(logCfg.Enabled, logCfg.Level, logCfg.File, logCfg.Console); err != nil {
		return nil, errors.Wrap(err, "init logger")
	}
	return cfg, nil
}

// openStore returns the Redis assessment store, or an in-memory one with --memory.
// Ingest writes every push, so Redis must answer before the service starts.
func openStore(ctx context.Context, cfg *config.Config) (assessments.Store, error) {
	retention := cfg.Mimir.Ingest.Retention
	if useMemory {
		logger.Warnf("Using in-memory assessment store (retention=%d); records are lost on restart", retention)
		return assessments.NewMemoryStore(retention), nil
	}

	rc := cfg.Mimir.Results.Redis
	store := assessments.NewRedisStore(assessments.RedisConfig{
		Addr:      rc.Addr,
		Password:  rc.Password,
		DB:        rc.DB,
		KeyPrefix: rc.KeyPrefix,
		Retention: retention,
	})
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, err
	}
	logger.Infof("Assessment store: redis %s (%s, retention=%d)", rc.Addr, rc.KeyPrefix, retention)
	return store, nil
}

// newAssessor layers Sigma rules over the placeholder assessment when rules are enabled.
func newAssessor(cfg *config.Config) (ingest.Assessor, error) {
	rc := cfg.Mimir.Rules
	if !rc.Enabled || rc.Path == "" {
		logger.Infof("Assessor: placeholder")
		return ingest.PlaceholderAssessor{}, nil
	}

	engine, stats, err := rules.NewSigmaEngine(rc.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "load sigma rules from %s", rc.Path)
	}
	logger.Infof("Sigma rules loaded: files=%d loaded=%d skipped=%d invalid=%d unsupported=%v",
		stats.Files, stats.Loaded, stats.Skipped(), stats.Invalid, stats.Unsupported)
	return ingest.RuleAssessor{Engine: engine, Next: ingest.PlaceholderAssessor{}}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
