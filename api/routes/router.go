package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/contactalia/contactalia-backend/api/controllers"
	webhookcontrollers "github.com/contactalia/contactalia-backend/api/controllers/webhooks"
	"github.com/contactalia/contactalia-backend/api/middleware"
	checkoutsvc "github.com/contactalia/contactalia-backend/internal/checkout"
	"github.com/contactalia/contactalia-backend/internal/contact"
	"github.com/contactalia/contactalia-backend/internal/favorites"
	"github.com/contactalia/contactalia-backend/internal/media"
	"github.com/contactalia/contactalia-backend/internal/profiles"
	"github.com/contactalia/contactalia-backend/internal/reports"
	"github.com/contactalia/contactalia-backend/internal/roles"
	"github.com/contactalia/contactalia-backend/internal/stats"
	subscriptionsvc "github.com/contactalia/contactalia-backend/internal/subscriptions"
	stripewebhook "github.com/contactalia/contactalia-backend/internal/webhooks/stripe"
	"github.com/contactalia/contactalia-backend/pkg/config"
	"github.com/contactalia/contactalia-backend/pkg/logger"
	"github.com/contactalia/contactalia-backend/pkg/metrics"
)

// Dependencies is everything the HTTP surface needs. cmd/api builds it.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions middleware.SessionLoader
	Ready    map[string]controllers.Pinger
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics

	Profiles      profiles.Service
	Media         media.Service
	Favorites     favorites.Service
	Subscriptions subscriptionsvc.Service
	Reports       reports.Service
	Contact       contact.Service
	Roles         roles.Service
	Stats         stats.Service
	Checkout      checkoutsvc.Service

	StripeWebhook      webhookcontrollers.StripeWebhookService
	StripeWebhookGuard *stripewebhook.IdempotencyGuard
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins(), cfg.App.IsProd()),
	)
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	required := middleware.Auth(cfg.Auth, deps.Sessions, logg)
	optional := middleware.OptionalAuth(cfg.Auth, deps.Sessions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeWebhookGuard, logg))
		r.Post("/contact", controllers.ContactSubmit(deps.Contact, logg))

		r.Group(func(r chi.Router) {
			r.Use(optional)
			r.Get("/profiles", controllers.ProfileList(deps.Profiles, logg))
			r.Get("/profiles/{profileId}", controllers.ProfileDetail(deps.Profiles, logg))
			r.Post("/checkout/session", controllers.CheckoutCreate(deps.Checkout, logg))
			r.Post("/checkout/sync", controllers.CheckoutSync(deps.Checkout, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(required)

			r.Route("/profiles/me", func(r chi.Router) {
				r.Get("/", controllers.ProfileGetOwn(deps.Profiles, logg))
				r.Put("/", controllers.ProfileUpsertOwn(deps.Profiles, logg))
				r.Route("/media", func(r chi.Router) {
					r.Get("/", controllers.MediaListOwn(deps.Media, logg))
					r.Post("/", controllers.MediaUpload(deps.Media, cfg.Media.MaxUploadBytes(), logg))
					r.Put("/order", controllers.MediaReorder(deps.Media, logg))
					r.Patch("/{mediaId}", controllers.MediaChangeVisibility(deps.Media, logg))
					r.Delete("/{mediaId}", controllers.MediaDelete(deps.Media, logg))
				})
			})
			r.Post("/profiles/{profileId}/reports", controllers.ReportCreate(deps.Reports, logg))

			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", controllers.FavoritesList(deps.Favorites, logg))
				r.Get("/ids", controllers.FavoritesIDs(deps.Favorites, logg))
				r.Post("/{profileId}", controllers.FavoritesAdd(deps.Favorites, logg))
				r.Delete("/{profileId}", controllers.FavoritesRemove(deps.Favorites, logg))
			})

			r.Get("/subscription", controllers.SubscriptionCurrent(deps.Subscriptions, logg))

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireStaff(logg))

				r.Get("/profiles", controllers.AdminProfilesList(deps.Profiles, logg))
				r.Post("/profiles/{profileId}/moderation", controllers.AdminProfileModerate(deps.Profiles, logg))
				r.Post("/profiles/{profileId}/verification", controllers.AdminProfileVerification(deps.Profiles, logg))
				r.Get("/profiles/{profileId}/logs", controllers.AdminProfileLogs(deps.Profiles, logg))
				r.Delete("/media/{mediaId}", controllers.AdminMediaDelete(deps.Media, logg))

				r.Get("/reports", controllers.AdminReportsList(deps.Reports, logg))
				r.Patch("/reports/{reportId}", controllers.AdminReportReview(deps.Reports, logg))
				r.Get("/contact", controllers.AdminContactList(deps.Contact, logg))
				r.Patch("/contact/{submissionId}", controllers.AdminContactUpdate(deps.Contact, logg))
				r.Get("/stats", controllers.AdminStats(deps.Stats, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin(logg))
					r.Get("/accounting", controllers.AdminAccounting(deps.Stats, logg))
					r.Get("/roles/{userId}", controllers.AdminRolesList(deps.Roles, logg))
					r.Post("/roles", controllers.AdminRoleGrant(deps.Roles, logg))
					r.Delete("/roles/{userId}/{role}", controllers.AdminRoleRevoke(deps.Roles, logg))
					r.Get("/subscriptions", controllers.AdminSubscriptionsList(deps.Subscriptions, logg))
					r.Put("/subscriptions/{userId}", controllers.AdminSubscriptionOverride(deps.Subscriptions, logg))
				})
			})
		})
	})

	return r
}
