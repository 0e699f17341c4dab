package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bizmap/internal/model"
	"github.com/sells-group/bizmap/internal/query"
	"github.com/sells-group/bizmap/internal/store"
)

const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the map query API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env.Service, env.Store, cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		return runServer(ctx, srv, func(ctx context.Context) {
			if _, err := env.Service.Snapshot(ctx); err != nil {
				zap.L().Warn("dataset warm-up failed", zap.Error(err))
			}
		})
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// runServer serves until ctx is canceled, then shuts srv down. warm, when
// set, runs alongside the listener so the first query finds a loaded
// dataset.
func runServer(ctx context.Context, srv *http.Server, warm func(context.Context)) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "server shutdown")
		}
		return nil
	})

	if warm != nil {
		g.Go(func() error {
			warm(gctx)
			return nil
		})
	}

	return g.Wait()
}

// buildRouter wires the query API. st may be nil when the audit store is
// disabled.
func buildRouter(svc *query.Service, st store.Store, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &apiHandler{svc: svc, store: st}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", h.query)
		r.Get("/facets", h.facets)
		r.Post("/dataset/reload", h.reload)
		r.Get("/loads", h.loads)
	})

	return r
}

type apiHandler struct {
	svc   *query.Service
	store store.Store
}

// reloadResponse summarizes the snapshot produced by a reload.
type reloadResponse struct {
	Location string          `json:"location"`
	Identity string          `json:"identity"`
	Records  int             `json:"records"`
	Stats    model.LoadStats `json:"stats"`
	LoadedAt time.Time       `json:"loaded_at"`
}

func (h *apiHandler) query(w http.ResponseWriter, r *http.Request) {
	var req query.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *apiHandler) facets(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.Facets(r.Context(), r.URL.Query().Get("province"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *apiHandler) reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Reload(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{
		Location: snap.Location,
		Identity: snap.Identity,
		Records:  len(snap.Records),
		Stats:    snap.Stats,
		LoadedAt: snap.LoadedAt,
	})
}

func (h *apiHandler) loads(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs := []model.LoadRun{}
	if h.store != nil {
		listed, err := h.store.ListLoadRuns(r.Context(), store.LoadRunFilter{
			Location: h.svc.Location(),
			Limit:    limit,
		})
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if listed != nil {
			runs = listed
		}
	}
	writeJSON(w, http.StatusOK, runs)
}

// fail maps service errors to status codes.
func (h *apiHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case query.IsRequestError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case model.IsDataLoadError(err):
		zap.L().Warn("dataset unavailable",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		zap.L().Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
