package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/census-cli/internal/metrics"
	"github.com/sells-group/census-cli/internal/pipeline"
	"github.com/sells-group/census-cli/internal/view"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve views over HTTP for the dashboard",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		h, err := initHandle(ctx, cfg, "serve", "")
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(h, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", cfg.Server.Port), zap.Int("records", h.Len()))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
		})
		return g.Wait()
	},
}

// newRouter exposes the query handle as a read-only JSON API.
func newRouter(h *pipeline.Handle, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "records": h.Len()})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/options", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, h.Options())
		})
		r.Get("/views/{view}", func(w http.ResponseWriter, req *http.Request) {
			name := chi.URLParam(req, "view")
			q := req.URL.Query()

			vr := view.Request{
				View:          name,
				Filter:        q.Get("filter"),
				Normalization: q.Get("normalization"),
				Sort:          q.Get("sort"),
			}
			if vr.Filter == "" {
				vr.Filter = defaultFilter(h, name)
			}
			if vr.Normalization == "" {
				vr.Normalization = string(view.Absolute)
			}
			if vr.Sort == "" {
				vr.Sort = string(view.ByValueDescending)
			}

			res, err := h.Query(req.Context(), vr)
			if err != nil {
				writeQueryError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})
	})

	return r
}

func writeQueryError(w http.ResponseWriter, err error) {
	var ipe *view.InvalidParameterError
	if errors.As(err, &ipe) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   ipe.Error(),
			"param":   ipe.Param,
			"allowed": ipe.Allowed,
		})
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "request canceled"})
		return
	}
	zap.L().Error("view query failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
