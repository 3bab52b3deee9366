package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/culturefeed/curator-cli/internal/curation"
	"github.com/culturefeed/curator-cli/internal/model"
	"github.com/culturefeed/curator-cli/internal/pipeline"
	"github.com/culturefeed/curator-cli/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP enrichment server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// One shared orchestrator: its telemetry is mutex-guarded, so
		// concurrent requests are safe.
		orch := pipeline.NewOrchestrator(env.Doc, env.Provider, nil)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(orch, env.Store),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("serve: listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

// newRouter builds the HTTP surface over a shared orchestrator and store.
func newRouter(orch *pipeline.Orchestrator, st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/enrich", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Venue string      `json:"venue"`
			Event model.Event `json:"event"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.Venue == "" || body.Event == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "venue and event are required"})
			return
		}

		result, err := orch.RunEnrichment(req.Context(), body.Event, body.Venue)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, curation.ErrConfig) {
				status = http.StatusBadRequest
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}

		if _, err := st.SaveEvent(req.Context(), store.NewEventRecord(body.Venue, result.Event)); err != nil {
			zap.L().Error("serve: save event failed", zap.Error(err))
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"event":             result.Event,
			"validation_errors": result.ValidationErrors,
		})
	})

	r.Get("/api/events", func(w http.ResponseWriter, req *http.Request) {
		filter := store.EventFilter{
			Venue:  req.URL.Query().Get("venue"),
			Status: req.URL.Query().Get("status"),
			Limit:  queryInt(req, "limit"),
			Offset: queryInt(req, "offset"),
		}

		records, err := st.ListEvents(req.Context(), filter)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if records == nil {
			records = []store.EventRecord{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": records})
	})

	r.Get("/api/telemetry", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, orch.Telemetry().Snapshot())
	})

	return r
}

// queryInt parses an optional non-negative integer query parameter, treating
// junk as absent.
func queryInt(req *http.Request, key string) int {
	v := req.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
