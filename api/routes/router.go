package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/profilemedia-backend/api/controllers"
	"github.com/angelmondragon/profilemedia-backend/api/controllers/profilemedia"
	"github.com/angelmondragon/profilemedia-backend/api/middleware"
	"github.com/angelmondragon/profilemedia-backend/internal/profile"
	"github.com/angelmondragon/profilemedia-backend/pkg/auth"
	"github.com/angelmondragon/profilemedia-backend/pkg/config"
	"github.com/angelmondragon/profilemedia-backend/pkg/db"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	"github.com/angelmondragon/profilemedia-backend/pkg/logger"
	"github.com/angelmondragon/profilemedia-backend/pkg/redis"
)

// multipartOverhead leaves room for boundaries and form headers above the largest file limit.
const multipartOverhead = 1 << 20

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	profiles profile.Service,
	urls profilemedia.URLResolver,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	// a nil client would hide inside a non-nil interface
	var redisP controllers.Pinger
	var replays middleware.ReplayStore
	var limiter middleware.WindowLimiter
	if redisClient != nil {
		redisP = redisClient
		replays = redisClient
		limiter = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisP,
		}, logg))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	uploadLimit := middleware.UploadRateLimitPolicy(cfg.UploadRateLimit)
	tokens := auth.NewTokens(cfg.JWT)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokens, logg))

			r.Route("/profiles/{ownerId}", func(r chi.Router) {
				r.Get("/", profilemedia.Profile(profiles, urls, logg))
				r.Put("/selected-audio", profilemedia.SelectAudio(profiles, urls, logg))
				r.Put("/profile-picture", profilemedia.SetProfilePicture(profiles, urls, logg))

				r.Route("/media", func(r chi.Router) {
					r.With(
						chimiddleware.RequestSize(cfg.Media.MaxUploadBytes()+multipartOverhead),
						middleware.RateLimit(uploadLimit, limiter, logg),
						middleware.Idempotent(replays, middleware.UploadReplayTTL, logg),
					).Post("/", profilemedia.Upload(profiles, urls, logg))
					r.Get("/", profilemedia.List(profiles, urls, logg))
					r.Get("/counts", profilemedia.Counts(profiles, logg))
					r.Put("/order", profilemedia.Reorder(profiles, logg))
					r.Put("/names", profilemedia.RenameMany(profiles, logg))

					r.Route("/{mediaId}", func(r chi.Router) {
						r.Delete("/", profilemedia.Delete(profiles, logg))
						r.Put("/category", profilemedia.SetCategory(profiles, logg))
						r.Put("/name", profilemedia.Rename(profiles, logg))
						r.Get("/usage", profilemedia.Usage(profiles, logg))
						r.Post("/usage", profilemedia.RecordUsage(profiles, logg))
						r.With(middleware.Idempotent(replays, middleware.ReplaceReplayTTL, logg)).Post("/replace", profilemedia.ReplaceUsage(profiles, logg))
					})
				})
			})

			if cfg.FeatureFlags.LegacyActions {
				r.Post("/legacy/{action}", profilemedia.LegacyActions(profiles, urls, logg))
			}
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(tokens, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Get("/profiles/{ownerId}", profilemedia.Profile(profiles, urls, logg))
		r.Get("/profiles/{ownerId}/media/{mediaId}/usage", profilemedia.Usage(profiles, logg))
	})

	return r
}
