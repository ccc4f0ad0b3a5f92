package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/casesync/casesync-backend/api/controllers"
	"github.com/casesync/casesync-backend/api/middleware"
	"github.com/casesync/casesync-backend/internal/content"
	"github.com/casesync/casesync-backend/internal/custody"
	"github.com/casesync/casesync-backend/internal/evidence"
	"github.com/casesync/casesync-backend/internal/jobs"
	"github.com/casesync/casesync-backend/internal/principals"
	"github.com/casesync/casesync-backend/pkg/bigquery"
	"github.com/casesync/casesync-backend/pkg/config"
	"github.com/casesync/casesync-backend/pkg/db"
	"github.com/casesync/casesync-backend/pkg/enums"
	"github.com/casesync/casesync-backend/pkg/logger"
	"github.com/casesync/casesync-backend/pkg/redis"
	"github.com/casesync/casesync-backend/pkg/storage/gcs"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gcsClient gcs.Pinger,
	bigqueryClient bigquery.Pinger,
	principalService principals.Service,
	contentStore content.Store,
	evidenceService evidence.Service,
	custodyService custody.Service,
	jobService jobs.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	tokenPolicy := middleware.NewAuthRateLimitPolicy(
		"token",
		cfg.AuthRateLimit.TokenWindow,
		cfg.AuthRateLimit.TokenIPLimit,
		cfg.AuthRateLimit.TokenPrincipalLimit,
	)

	// A typed nil *redis.Client must stay nil once it crosses into the
	// middleware interfaces, so wire it conditionally.
	var redisPinger redis.Pinger
	var idempotencyStore redis.IdempotencyStore
	tokenLimit := middleware.AuthRateLimit(tokenPolicy, nil, logg)
	if redisClient != nil {
		redisPinger = redisClient
		idempotencyStore = redisClient
		tokenLimit = middleware.AuthRateLimit(tokenPolicy, redisClient, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger, gcsClient, bigqueryClient))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(tokenLimit).Post("/token", controllers.AuthToken(principalService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/evidence", func(r chi.Router) {
			r.Post("/", controllers.EvidenceUpload(contentStore, evidenceService, cfg.Upload, logg))
			r.Get("/", controllers.EvidenceList(evidenceService, logg))

			r.Route("/{evidenceId}", func(r chi.Router) {
				r.Get("/", controllers.EvidenceDetail(evidenceService, logg))
				r.Get("/content", controllers.EvidenceContent(contentStore, evidenceService, logg))
				r.Patch("/tags", controllers.EvidenceUpdateTags(evidenceService, logg))
				r.Patch("/case", controllers.EvidenceRelink(evidenceService, logg))
				r.Delete("/", controllers.EvidenceRetire(evidenceService, logg))
				r.Post("/annotations", controllers.EvidenceAnnotate(evidenceService, logg))
				r.Post("/share", controllers.EvidenceShare(evidenceService, logg))

				r.Post("/jobs", controllers.JobSubmit(jobService, logg))
				r.Get("/jobs", controllers.JobStatus(jobService, logg))

				r.Get("/custody", controllers.CustodyEntries(evidenceService, custodyService, logg))
				r.Get("/custody/verify", controllers.CustodyVerify(evidenceService, custodyService, logg))
			})
		})

		r.Route("/jobs/{jobId}", func(r chi.Router) {
			r.Post("/cancel", controllers.JobCancel(jobService, logg))
			r.With(middleware.RequireRole(string(enums.PrincipalRoleEngine), logg)).
				Post("/complete", controllers.JobComplete(jobService, logg))
		})
	})

	return r
}
