// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/telekom/hoptrace/internal/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

//go:generate go tool moq -out api_moq.go . API
type API interface {
	// Run serves the api until ctx is done or the server fails
	Run(ctx context.Context) error
	// Shutdown gracefully stops the server
	Shutdown(ctx context.Context) error
}

type api struct {
	server   *http.Server
	router   chi.Router
	tls      TLSConfig
	store    *Store
	registry *prometheus.Registry
	version  string
}

// New creates the api serving the traces of store and the metrics of registry
func New(cfg Config, store *Store, registry *prometheus.Registry, version string) API {
	r := chi.NewRouter()
	return &api{
		server:   &http.Server{Addr: cfg.ListeningAddress, Handler: r, ReadHeaderTimeout: readHeaderTimeout},
		router:   r,
		tls:      cfg.Tls,
		store:    store,
		registry: registry,
		version:  version,
	}
}

// Run serves the api. It blocks until ctx is done or the server fails.
func (a *api) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	cErr := make(chan error, 1)

	if err := a.registerRoutes(ctx); err != nil {
		log.ErrorContext(ctx, "Failed to register routes", "error", err)
		return fmt.Errorf("failed to register routes: %w", err)
	}

	go func() {
		var err error
		log.InfoContext(ctx, "Serving Api", "addr", a.server.Addr, "tls", a.tls.Enabled)
		if a.tls.Enabled {
			err = a.server.ListenAndServeTLS(a.tls.CertPath, a.tls.KeyPath)
		} else {
			err = a.server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Failed to serve api", "error", err)
			cErr <- fmt.Errorf("failed serving API: %w", err)
			return
		}
		cErr <- nil
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrApiContext, ctx.Err())
	case err := <-cErr:
		return err
	}
}

// Shutdown gracefully stops the server. Requests in flight get shutdownTimeout to complete.
func (a *api) Shutdown(ctx context.Context) error {
	errC := ctx.Err()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "Failed to shutdown api server", "error", err)
		return fmt.Errorf("failed shutting down API: %w", errors.Join(errC, err))
	}
	return errC
}

func (a *api) registerRoutes(ctx context.Context) error {
	doc, err := a.openapi()
	if err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal openapi document: %w", err)
	}

	a.router.Use(logger.Middleware(ctx))
	a.router.Get("/openapi", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(body); err != nil {
			logger.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to write openapi response", "error", err)
		}
	})
	a.router.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	a.router.Route("/v1/results", func(r chi.Router) {
		r.Get("/", a.handleTraces)
		r.Get("/{destination}", a.handleTrace)
	})
	return nil
}

func (a *api) handleTraces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, a.store.Traces())
}

func (a *api) handleTrace(w http.ResponseWriter, r *http.Request) {
	dst, err := netip.ParseAddr(chi.URLParam(r, "destination"))
	if err != nil || !dst.Is4() {
		http.Error(w, "destination must be an IPv4 address", http.StatusBadRequest)
		return
	}

	t, ok := a.store.Trace(dst)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	log := logger.FromContext(r.Context())
	b, err := json.Marshal(v)
	if err != nil {
		log.ErrorContext(r.Context(), "Failed to marshal response", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		log.ErrorContext(r.Context(), "Failed to write response", "error", err)
	}
}
