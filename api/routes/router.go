package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pizzeria-backend/api/controllers"
	"github.com/angelmondragon/pizzeria-backend/api/middleware"
	"github.com/angelmondragon/pizzeria-backend/internal/auth"
	"github.com/angelmondragon/pizzeria-backend/internal/franchises"
	"github.com/angelmondragon/pizzeria-backend/internal/menu"
	"github.com/angelmondragon/pizzeria-backend/internal/orders"
	"github.com/angelmondragon/pizzeria-backend/pkg/config"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/metrics"
	"github.com/angelmondragon/pizzeria-backend/pkg/redis"
)

// NewRouter mounts every HTTP route. rateStore and idempotencyStore may be
// nil when Redis is not configured; the corresponding middleware then
// passes requests through.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	rateStore middleware.RateLimitStore,
	idempotencyStore redis.IdempotencyStore,
	authService auth.Service,
	menuService menu.Service,
	franchiseService franchises.Service,
	orderService orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
		middleware.Logging(logg, httpMetrics),
		middleware.Authenticate(authService, logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	requireAuth := middleware.RequireAuth(logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg)).Post("/", controllers.AuthRegister(authService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Put("/", controllers.AuthLogin(authService, logg))
		r.With(requireAuth).Delete("/", controllers.AuthLogout(authService, logg))
	})

	r.Route("/api/user", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", controllers.UserList(authService, logg))
		r.Get("/me", controllers.UserMe(authService, logg))
		r.Put("/{userId}", controllers.UserUpdate(authService, logg))
		r.Delete("/{userId}", controllers.UserDelete(authService, logg))
	})

	r.Route("/api/order", func(r chi.Router) {
		r.Get("/menu", controllers.MenuList(menuService, logg))
		r.With(requireAuth).Put("/menu", controllers.MenuAdd(menuService, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", controllers.OrderList(orderService, logg))
			r.With(middleware.Idempotency(idempotencyStore, 0, logg)).Post("/", controllers.OrderCreate(orderService, logg))
		})
	})

	r.Route("/api/franchise", func(r chi.Router) {
		r.Get("/", controllers.FranchiseList(franchiseService, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/{userId}", controllers.FranchiseListForUser(franchiseService, logg))
			r.Post("/", controllers.FranchiseCreate(franchiseService, logg))
			r.Delete("/{franchiseId}", controllers.FranchiseDelete(franchiseService, logg))
			r.Post("/{franchiseId}/store", controllers.StoreCreate(franchiseService, logg))
			r.Delete("/{franchiseId}/store/{storeId}", controllers.StoreDelete(franchiseService, logg))
		})
	})

	return r
}
