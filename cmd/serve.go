package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evidex/trialqa/internal/model"
	"github.com/evidex/trialqa/internal/qa"
	"github.com/evidex/trialqa/internal/relevance"
	"github.com/evidex/trialqa/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for the review UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

// newRouter builds the API routes over the given store.
func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/validate", handleValidate)
	r.Post("/v1/relevance", handleRelevance)

	r.Get("/v1/batches", func(w http.ResponseWriter, r *http.Request) {
		batches, err := st.ListBatches(r.Context(), 0)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, batches)
	})

	r.Get("/v1/batches/{id}/report", func(w http.ResponseWriter, r *http.Request) {
		batch, err := st.GetBatch(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			status := http.StatusInternalServerError
			if eris.Is(err, store.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err)
			return
		}
		report, res := qa.Build(batch.SingleArm, batch.Comparative)
		writeJSON(w, http.StatusOK, map[string]any{
			"report": report,
			"result": res,
		})
	})

	return r
}

// handleValidate runs a one-shot validation on records posted by the UI.
func handleValidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SingleArm   []model.SingleArmRecord   `json:"single_arm"`
		Comparative []model.ComparativeRecord `json:"comparative"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	report, res := qa.Build(req.SingleArm, req.Comparative)
	writeJSON(w, http.StatusOK, map[string]any{
		"report": report,
		"result": res,
	})
}

// handleRelevance scores posted document text against the configured
// criteria, or against criteria supplied inline with the request.
func handleRelevance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string               `json:"filename"`
		Text     string               `json:"text"`
		Criteria *model.MatchCriteria `json:"criteria,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	criteria := cfg.Criteria
	if req.Criteria != nil {
		criteria = *req.Criteria
	}

	scorer := relevance.NewScorer(cfg.Relevance, criteria)
	writeJSON(w, http.StatusOK, scorer.Score(req.Filename, req.Text))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
