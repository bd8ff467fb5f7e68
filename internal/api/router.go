// internal/api/router.go

// Package api exposes the wallet operations over a single GraphQL endpoint
// plus an operational liveness probe.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"

	"github.com/uracles/mini-wallet-application/internal/config"
)

// NewRouter assembles the HTTP surface: /graphql behind auth and rate
// limiting, /healthz open. GraphiQL is enabled outside production.
func NewRouter(cfg *config.Config, schema graphql.Schema, verify func(string) (int64, error), limiter *RateLimiter, ping func(context.Context) error) http.Handler {
	started := time.Now()

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(RequestContext)

	r.Get("/healthz", healthHandler(cfg, started, ping))

	gql := handler.New(&handler.Config{
		Schema:   &schema,
		Pretty:   !cfg.IsProduction(),
		GraphiQL: !cfg.IsProduction(),
	})

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(verify))
		r.Use(RateLimit(limiter))
		r.Handle("/graphql", gql)
	})

	return r
}

func healthHandler(cfg *config.Config, started time.Time, ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				status = "degraded"
				w.WriteHeader(http.StatusServiceUnavailable)
			}
		}
		render.JSON(w, r, map[string]interface{}{
			"status":      status,
			"environment": cfg.Environment,
			"network":     cfg.Network,
			"uptime":      time.Since(started).Round(time.Second).String(),
		})
	}
}
