package main

import (
	"context"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/SkothaSec/project-mimir/internal/ingest"
	"github.com/SkothaSec/project-mimir/internal/logger"
	"github.com/SkothaSec/project-mimir/internal/metrics"
	"github.com/SkothaSec/project-mimir/internal/output/pushhttp"
	"github.com/SkothaSec/project-mimir/internal/server"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

var (
	listenAddr string

	seedTarget   string
	seedAttempts int
	seedStep     time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept Pub/Sub pushes and serve /api/results",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		assessor, err := newAssessor(cfg)
		if err != nil {
			return err
		}

		var opts []ingest.Option
		var m *metrics.Metrics
		if cfg.Mimir.Metrics.Enabled {
			m = metrics.Default()
			opts = append(opts, ingest.WithMetrics(m))
		}

		handler := ingest.NewHandler(store, assessor, ingest.Config{
			MaxBodyBytes: cfg.Mimir.Ingest.MaxBodyBytes,
			ResultsLimit: cfg.Mimir.Ingest.ResultsLimit,
		}, opts...)
		router := handler.Router()
		if m != nil {
			router.Handle(cfg.Mimir.Metrics.Path, m.Handler()).Methods(http.MethodGet)
		}

		addr := listenAddr
		if addr == "" {
			addr = cfg.Mimir.Ingest.Listen
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}
		logger.Infof("Mimir ingest listening on %s (max body %s)", addr, humanize.IBytes(uint64(cfg.Mimir.Ingest.MaxBodyBytes)))
		return server.Run(cmd.Context(), srv)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Send a synthetic SSH brute-force sequence",
	Long: `Generates failed SSH logins followed by a success. With --target the logs are
pushed as Pub/Sub envelopes to a running ingest service; otherwise they are
assessed and written straight to the assessment store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logs := ingest.NewGenerator(time.Now()).BruteForceSequence(seedAttempts, seedStep)

		if seedTarget != "" {
			return pushLogs(cmd.Context(), seedTarget, logs)
		}

		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		assessor, err := newAssessor(cfg)
		if err != nil {
			return err
		}

		handler := ingest.NewHandler(store, assessor, ingest.Config{})
		for _, entry := range logs {
			record, err := handler.Process(cmd.Context(), entry)
			if err != nil {
				return err
			}
			logger.Infof("Stored %s: %s (%v)", entry.LogID(), record.Verdict, record.VerdictConfidence)
		}
		logger.Infof("Seeded %d logs", len(logs))
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default ingest.listen)")

	seedCmd.Flags().StringVar(&seedTarget, "target", "", "Push endpoint URL, e.g. http://127.0.0.1:8080/")
	seedCmd.Flags().IntVar(&seedAttempts, "attempts", 5, "Failed logins before the success")
	seedCmd.Flags().DurationVar(&seedStep, "step", 2*time.Second, "Time between generated logs")
}

// pushLogs posts each log to target the way a Pub/Sub push subscription would.
func pushLogs(ctx context.Context, target string, logs []models.LogEntry) error {
	w, err := pushhttp.NewWriter(pushhttp.Config{URL: target, Timeout: 10 * time.Second})
	if err != nil {
		return err
	}
	defer w.Close()

	err = w.WriteLogs(ctx, logs)
	logger.Infof("Seeded %d of %d logs to %s", w.Sent(), len(logs), target)
	return err
}
