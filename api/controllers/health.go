package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/promo-engine/api/responses"
	pkgerrors "github.com/angelmondragon/promo-engine/pkg/errors"
	"github.com/angelmondragon/promo-engine/pkg/logger"
)

// CachePinger is the dependency slice the readiness probe checks.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness.
func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// HealthReady reports readiness, including the cache dependency when one
// is configured.
func HealthReady(cache CachePinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
