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

	"github.com/shuleranks/necta-cli/internal/model"
	"github.com/shuleranks/necta-cli/internal/scraper"
	"github.com/shuleranks/necta-cli/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve read-only ranking data over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		repo, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(repo),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("serving rankings", zap.Int("port", cfg.Server.Port))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
			return nil
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	},
}

// newRouter builds the read-only rankings API.
func newRouter(repo store.Repository) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/rankings/{exam}/{year}", func(w http.ResponseWriter, req *http.Request) {
		exam, err := model.ParseExamType(chi.URLParam(req, "exam"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		year, err := strconv.Atoi(chi.URLParam(req, "year"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid year"})
			return
		}
		results, err := repo.SchoolResults(req.Context(), exam, year)
		if err != nil {
			zap.L().Error("rankings query failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
			return
		}
		scraper.Rank(results, exam.Family())
		writeJSON(w, http.StatusOK, results)
	})

	r.Get("/api/subjects/{exam}/{year}", func(w http.ResponseWriter, req *http.Request) {
		exam, err := model.ParseExamType(chi.URLParam(req, "exam"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		year, err := strconv.Atoi(chi.URLParam(req, "year"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid year"})
			return
		}
		perfs, err := repo.SubjectPerformances(req.Context(), exam, year)
		if err != nil {
			zap.L().Error("subjects query failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
			return
		}
		writeJSON(w, http.StatusOK, scraper.RankSubjects(perfs, exam.Family()))
	})

	r.Get("/api/schools/{code}", func(w http.ResponseWriter, req *http.Request) {
		school, err := repo.GetSchool(req.Context(), chi.URLParam(req, "code"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "school not found"})
			return
		}
		writeJSON(w, http.StatusOK, school)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
