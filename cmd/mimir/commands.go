package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/SkothaSec/project-mimir/config"
	"github.com/SkothaSec/project-mimir/internal/logger"
	"github.com/SkothaSec/project-mimir/internal/metrics"
	"github.com/SkothaSec/project-mimir/internal/output/htmlview"
	"github.com/SkothaSec/project-mimir/internal/output/recordjson"
	"github.com/SkothaSec/project-mimir/internal/output/textview"
	"github.com/SkothaSec/project-mimir/internal/pipeline"
	"github.com/SkothaSec/project-mimir/internal/present"
	"github.com/SkothaSec/project-mimir/internal/results"
	"github.com/SkothaSec/project-mimir/internal/server"
	"github.com/SkothaSec/project-mimir/internal/tui"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

var (
	listSort     string
	listDir      string
	listPage     int
	listPageSize int

	listenAddr string
	exportPath string
	exportSort string
	exportDir  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print one page of the latest assessments",
	RunE: func(cmd *cobra.Command, args []string) error {
		column, err := present.ParseColumn(listSort)
		if err != nil {
			return err
		}
		dir, err := present.ParseDirection(listDir)
		if err != nil {
			return err
		}
		if listPage < 1 {
			return errors.Newf("invalid page %d", listPage)
		}

		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		pageSize := listPageSize
		if pageSize <= 0 {
			pageSize = cfg.Mimir.Dashboard.PageSize
		}

		state, err := loadOnce(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		r := textview.NewRenderer(os.Stdout)
		if err := r.RenderState(state, textview.ListOptions{
			Column:    column,
			Direction: dir,
			Page:      listPage - 1,
			PageSize:  pageSize,
		}); err != nil {
			return err
		}
		if state.Phase == results.Failed {
			return errReported
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <index>",
	Short: "Print every field of one assessment",
	Long:  "Print the detail view of the record at <index>, its position in the fetched batch as shown by `mimir list`.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Newf("invalid index %q", args[0])
		}

		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		engine, err := loadEngine(cfg)
		if err != nil {
			return err
		}

		state, err := loadOnce(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		r := textview.NewRenderer(os.Stdout)
		if state.Phase == results.Failed {
			if err := r.RenderState(state, textview.ListOptions{}); err != nil {
				return err
			}
			return errReported
		}

		rec, ok := present.NewList(state.Records).At(index)
		if !ok {
			return errors.Newf("no record at index %d (batch has %d)", index, len(state.Records))
		}
		return r.RenderDetail(present.NewDetailView(rec, engine))
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse the latest assessments interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		engine, err := loadEngine(cfg)
		if err != nil {
			return err
		}
		source, closeSource, err := openSource(cfg)
		if err != nil {
			return err
		}
		defer closeSource()

		ctx := cmd.Context()
		vm := results.NewViewModel(source, results.WithMetrics(metrics.Default()))
		model := tui.New(ctx, vm, engine, cfg.Mimir.Dashboard.PageSize)

		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return errors.Wrap(err, "run dashboard")
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		engine, err := loadEngine(cfg)
		if err != nil {
			return err
		}
		source, closeSource, err := openSource(cfg)
		if err != nil {
			return err
		}
		defer closeSource()

		addr := listenAddr
		if addr == "" {
			addr = cfg.Mimir.Dashboard.Listen
		}

		var m *metrics.Metrics
		metricsPath := ""
		if cfg.Mimir.Metrics.Enabled {
			m = metrics.Default()
			metricsPath = cfg.Mimir.Metrics.Path
		}
		dashboard := htmlview.NewServer(source, engine, m, htmlview.Config{
			PageSize:    cfg.Mimir.Dashboard.PageSize,
			MetricsPath: metricsPath,
		})

		srv := &http.Server{
			Addr:              addr,
			Handler:           dashboard.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		logger.Infof("Mimir dashboard listening on http://%s", addr)
		return server.Run(cmd.Context(), srv)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the derived records as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := present.ParseDirection(exportDir)
		if err != nil {
			return err
		}
		var column present.Column
		if exportSort != "" {
			if column, err = present.ParseColumn(exportSort); err != nil {
				return err
			}
		}

		cfg, err := loadConfig(exportPath != "-")
		if err != nil {
			return err
		}
		state, err := loadOnce(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if state.Phase == results.Failed {
			return errors.New(state.Message)
		}

		records := state.Records
		if column != "" {
			records = present.NewList(records).Sorted(column, dir).Records()
		}

		w, err := recordjson.NewWriter(exportPath)
		if err != nil {
			return err
		}
		if err := writeAll(w, records); err != nil {
			return err
		}
		logger.Infof("Exported %d records to %s", w.Count(), exportPath)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listSort, "sort", string(present.ColumnTimestamp), "Sort column: timestamp, alert_name, verdict, confidence, log_count, severity")
	listCmd.Flags().StringVar(&listDir, "dir", present.Descending.String(), "Sort direction: asc or desc")
	listCmd.Flags().IntVar(&listPage, "page", 1, "Page number, starting at 1")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 0, "Rows per page (default dashboard.page_size)")

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default dashboard.listen)")

	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "-", "Output path, - for stdout")
	exportCmd.Flags().StringVar(&exportSort, "sort", "", "Sort column; empty keeps fetch order")
	exportCmd.Flags().StringVar(&exportDir, "dir", present.Ascending.String(), "Sort direction: asc or desc")
}

func writeAll(w pipeline.RecordWriter, records []models.AlertRecord) error {
	if err := w.WriteRecords(records); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// loadOnce mounts a ViewModel over the configured source and waits for its fetch.
func loadOnce(ctx context.Context, cfg *config.Config) (results.State, error) {
	source, closeSource, err := openSource(cfg)
	if err != nil {
		return results.State{}, err
	}
	defer closeSource()

	vm := results.NewViewModel(source, results.WithMetrics(metrics.Default()))
	return vm.Load(ctx), nil
}
