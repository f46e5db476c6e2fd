package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/urbanmart/sales-dashboard/internal/api/handlers"
	"github.com/urbanmart/sales-dashboard/internal/api/middleware"
	"github.com/urbanmart/sales-dashboard/internal/config"
	"github.com/urbanmart/sales-dashboard/internal/dataset"
	"github.com/urbanmart/sales-dashboard/internal/export"
	"github.com/urbanmart/sales-dashboard/internal/jobs"
	"github.com/urbanmart/sales-dashboard/internal/jobs/inmemory"
	"github.com/urbanmart/sales-dashboard/internal/logger"
	"github.com/urbanmart/sales-dashboard/internal/narrative"
	"github.com/urbanmart/sales-dashboard/internal/query"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		dataPath   = flag.String("data", "", "Path to the sales CSV (overrides config)")
		listen     = flag.String("listen", "", "HTTP listen address (overrides config)")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *dataPath != "" {
		cfg.Dataset.Path = *dataPath
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	src, err := cfg.Source()
	if err != nil {
		log.Fatal().Err(err).Msg("No dataset source configured")
	}

	// Load the base table once. A malformed dataset is fatal before any
	// dashboard state exists.
	ctx := context.Background()
	loadStart := time.Now()
	table, err := dataset.Load(ctx, src, cfg.MarginTable())
	if err != nil {
		log.Fatal().Err(err).Str("source", src.Name()).Msg("Failed to load dataset")
	}
	log.Info().
		Str("source", table.Source()).
		Int("rows", table.Len()).
		Dur("duration", time.Since(loadStart)).
		Msg("Dataset loaded")

	cache := query.NewCache(table)

	// Export job infrastructure.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(16, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	exportHandler := func(ctx context.Context, job *jobs.ExportJob) error {
		rows, err := cache.Filter(job.Criteria)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}

		path := filepath.Join(cfg.ExportDir, fmt.Sprintf("export-%s.%s", job.JobID, job.Format))
		switch job.Format {
		case jobs.FormatCSV:
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			if err := export.WriteCSV(f, rows); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close export file: %w", err)
			}
		case jobs.FormatXLSX:
			summary := query.Summarize(rows, decimal.NewFromFloat(cfg.HighValueThreshold))
			if err := export.WriteXLSX(path, rows, summary); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported export format %q", job.Format)
		}

		job.OutputPath = path
		job.RowCount = len(rows)

		log.Info().
			Str("job_id", job.JobID).
			Str("path", path).
			Int("rows", len(rows)).
			Msg("Export written")
		return nil
	}

	go func() {
		log.Info().Msg("Starting export worker")
		if err := jobQueue.Start(workerCtx, exportHandler); err != nil {
			log.Error().Err(err).Msg("Export worker stopped with error")
		}
	}()

	var narrator narrative.Generator = narrative.TemplateGenerator{}
	if cfg.Narrative.UseGemini {
		narrator = narrative.NewGeminiGenerator(cfg.Narrative.Model)
	}

	dashboard := handlers.NewDashboardHandler(cache, jobQueue, jobStore, narrator, cfg.HighValueThreshold, log)

	mux := http.NewServeMux()

	get := func(pattern string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}
			fn(w, r)
		})
	}

	get("/api/summary", dashboard.Summary)
	get("/api/rankings", dashboard.Rankings)
	get("/api/trend", dashboard.Trend)
	get("/api/pivot", dashboard.Pivot)
	get("/api/pareto", dashboard.Pareto)
	get("/api/insights", dashboard.Insights)
	get("/api/filters", dashboard.Filters)
	get("/api/rows", dashboard.Rows)

	mux.HandleFunc("/api/exports", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			dashboard.ListExports(w, r)
		case http.MethodPost:
			dashboard.CreateExport(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/exports/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/exports/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Export job ID is required")
			return
		}
		dashboard.GetExport(w, r, jobID)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"rows":      table.Len(),
			"loaded_at": table.LoadedAt().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Listen).Msg("Starting dashboard server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping export queue")
	}

	log.Info().Msg("Server exited")
}
