package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/maude-cli/internal/insights"
	"github.com/sells-group/maude-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for resolution and insights requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		mux := newServeMux(ctx, st)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newServeMux(ctx context.Context, st store.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /resolve", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Dataset string `json:"dataset"`
			Output  string `json:"output"`
			Annex   string `json:"annex"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Dataset == "" {
			http.Error(w, `{"error":"dataset is required"}`, http.StatusBadRequest)
			return
		}

		output := req.Output
		if output == "" {
			ext := filepath.Ext(req.Dataset)
			output = strings.TrimSuffix(req.Dataset, ext) + "_imdrf.csv"
		}
		annexPath := req.Annex
		if annexPath == "" {
			annexPath = cfg.Annex.Path
		}

		run, err := st.CreateRun(r.Context(), store.RunKindResolve, req.Dataset)
		if err != nil {
			http.Error(w, `{"error":"failed to create run"}`, http.StatusInternalServerError)
			return
		}

		// Resolution runs in the background; clients poll GET /runs for
		// completion. The server context outlives the request.
		go func() {
			if err := st.UpdateRunStatus(ctx, run.ID, store.RunStatusRunning); err != nil {
				zap.L().Error("serve: update run status", zap.String("run_id", run.ID), zap.Error(err))
				return
			}

			m, selector, err := initMapper(annexPath)
			if err != nil {
				_ = st.FailRun(ctx, run.ID, err.Error())
				zap.L().Error("serve: resolve failed", zap.String("run_id", run.ID), zap.Error(err))
				return
			}

			rows, err := resolveDataset(ctx, req.Dataset, output, m)
			if err != nil {
				_ = st.FailRun(ctx, run.ID, err.Error())
				zap.L().Error("serve: resolve failed", zap.String("run_id", run.ID), zap.Error(err))
				return
			}

			stats := m.Stats()
			logResolveStats(req.Dataset, output, rows, stats, selector)
			if err := st.CompleteRun(ctx, run.ID, map[string]any{
				"output": output,
				"rows":   rows,
				"stats":  stats,
			}); err != nil {
				zap.L().Error("serve: complete run", zap.String("run_id", run.ID), zap.Error(err))
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"run_id": run.ID,
		})
	})

	mux.HandleFunc("GET /runs", func(w http.ResponseWriter, r *http.Request) {
		filter := store.RunFilter{
			Kind:   store.RunKind(r.URL.Query().Get("kind")),
			Status: store.RunStatus(r.URL.Query().Get("status")),
			Limit:  50,
		}
		runs, err := st.ListRuns(r.Context(), filter)
		if err != nil {
			http.Error(w, `{"error":"failed to list runs"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	mux.HandleFunc("GET /runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		run, err := st.GetRun(r.Context(), r.PathValue("id"))
		if err != nil {
			http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	mux.HandleFunc("GET /insights/meta", func(w http.ResponseWriter, r *http.Request) {
		dataset := r.URL.Query().Get("dataset")
		if dataset == "" {
			http.Error(w, `{"error":"dataset query parameter is required"}`, http.StatusBadRequest)
			return
		}
		ds, err := insights.PrepareDataset(dataset, insights.DatasetOptions{Encoding: cfg.Dataset.Encoding})
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"prefixes":      ds.Prefixes,
			"manufacturers": ds.Manufacturers,
			"total_rows":    ds.TotalRows,
			"exploded_rows": ds.ExplodedRows,
			"dated_rows":    ds.DatedRows,
		})
	})

	mux.HandleFunc("POST /insights/analyze", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Dataset       string   `json:"dataset"`
			Prefix        string   `json:"prefix"`
			Manufacturers []string `json:"manufacturers"`
			Grain         string   `json:"grain"`
			ThresholdK    float64  `json:"threshold_k"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Dataset == "" || req.Prefix == "" {
			http.Error(w, `{"error":"dataset and prefix are required"}`, http.StatusBadRequest)
			return
		}

		run, err := st.CreateRun(r.Context(), store.RunKindInsights,
			fmt.Sprintf("%s prefix=%s", req.Dataset, req.Prefix))
		if err != nil {
			http.Error(w, `{"error":"failed to create run"}`, http.StatusInternalServerError)
			return
		}
		fail := func(status int, err error) {
			_ = st.FailRun(r.Context(), run.ID, err.Error())
			writeJSON(w, status, map[string]string{"error": err.Error(), "run_id": run.ID})
		}

		ds, err := insights.PrepareDataset(req.Dataset, insights.DatasetOptions{Encoding: cfg.Dataset.Encoding})
		if err != nil {
			fail(http.StatusBadRequest, err)
			return
		}

		grainName := req.Grain
		if grainName == "" {
			grainName = cfg.Insights.Grain
		}
		grain, err := insights.ParseGrain(grainName)
		if err != nil {
			fail(http.StatusBadRequest, err)
			return
		}

		k := req.ThresholdK
		if k <= 0 {
			k = cfg.Insights.ThresholdK
		}
		manufacturers := req.Manufacturers
		if len(manufacturers) == 0 {
			manufacturers = insights.TopManufacturers(ds.Events, req.Prefix, cfg.Insights.TopManufacturers)
		}

		result, err := insights.Analyze(ds.Events, req.Prefix, manufacturers, grain, k)
		if err != nil {
			fail(http.StatusBadRequest, err)
			return
		}
		if err := st.CompleteRun(r.Context(), run.ID, result); err != nil {
			zap.L().Error("serve: complete run", zap.String("run_id", run.ID), zap.Error(err))
		}
		writeJSON(w, http.StatusOK, result)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("serve: encode response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
