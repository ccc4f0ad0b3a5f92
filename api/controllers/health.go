package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/casesync/casesync-backend/api/responses"
	"github.com/casesync/casesync-backend/pkg/bigquery"
	"github.com/casesync/casesync-backend/pkg/config"
	"github.com/casesync/casesync-backend/pkg/db"
	"github.com/casesync/casesync-backend/pkg/logger"
	"github.com/casesync/casesync-backend/pkg/redis"
	"github.com/casesync/casesync-backend/pkg/storage/gcs"
)

const readyCheckTimeout = 3 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CaseSync-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness by pinging each wired dependency. Nil
// dependencies are reported as skipped so partial deployments stay
// checkable.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger, gcsP gcs.Pinger, bigqueryP bigquery.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CaseSync-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		check := func(name string, dep pinger) {
			if dep == nil {
				checks[name] = "skipped"
				return
			}
			if err := dep.Ping(ctx); err != nil {
				healthy = false
				checks[name] = "unreachable"
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				return
			}
			checks[name] = "ok"
		}

		check("postgres", dbP)
		check("redis", redisP)
		check("gcs", gcsP)
		check("bigquery", bigqueryP)

		status := "ready"
		code := http.StatusOK
		if !healthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, code, map[string]any{
			"status": status,
			"checks": checks,
		})
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}
