package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shoptracker/shoptracker-backend/api/controllers"
	"github.com/shoptracker/shoptracker-backend/api/middleware"
	"github.com/shoptracker/shoptracker-backend/internal/access"
	"github.com/shoptracker/shoptracker-backend/internal/accounts"
	"github.com/shoptracker/shoptracker-backend/internal/audit"
	"github.com/shoptracker/shoptracker-backend/internal/inventory"
	"github.com/shoptracker/shoptracker-backend/pkg/config"
	"github.com/shoptracker/shoptracker-backend/pkg/db"
	"github.com/shoptracker/shoptracker-backend/pkg/logger"
	"github.com/shoptracker/shoptracker-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs. Optional backends may
// be nil; the routes degrade accordingly (no throttling without redis, no
// backend checks in readiness without a database).
type Deps struct {
	Cfg         *config.Config
	Logg        *logger.Logger
	Policy      *access.Policy
	Directory   *accounts.Directory
	Accounts    *accounts.Service
	Inventory   *inventory.Service
	Audit       *audit.Log
	DBPinger    db.Pinger
	RedisClient *redis.Client
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(d.Logg),
		middleware.RequestID(d.Logg),
		middleware.Logging(d.Logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		d.Cfg.AuthRateLimit.LoginWindow,
		d.Cfg.AuthRateLimit.LoginIPLimit,
		d.Cfg.AuthRateLimit.LoginUsernameLimit,
	)

	// A nil concrete client must stay a nil interface downstream.
	var redisP redis.Pinger
	var limiter middleware.RateLimiterStore
	if d.RedisClient != nil {
		redisP = d.RedisClient
		limiter = d.RedisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(d.Cfg))
		r.Get("/ready", controllers.HealthReady(d.Cfg, d.Logg, d.DBPinger, redisP))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, limiter, d.Logg)).
			Post("/login", controllers.AuthLogin(d.Accounts, d.Cfg.JWT, d.Logg))
		r.Post("/forgot-password", controllers.AuthForgotPassword(d.Accounts, d.Logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(d.Cfg.JWT, d.Directory, d.Logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(d.Inventory))
			r.Post("/", controllers.ProductsCreate(d.Inventory, d.Policy, d.Logg))
			r.Get("/{id}", controllers.ProductsGet(d.Inventory, d.Logg))
			r.Put("/{id}", controllers.ProductsUpdate(d.Inventory, d.Policy, d.Logg))
			r.Delete("/{id}", controllers.ProductsDelete(d.Inventory, d.Policy, d.Logg))
			r.Post("/{id}/adjust", controllers.ProductsAdjust(d.Inventory, d.Policy, d.Logg))
			r.Post("/{id}/increase", controllers.ProductsIncrease(d.Inventory, d.Policy, d.Logg))
			r.Post("/{id}/decrease", controllers.ProductsDecrease(d.Inventory, d.Policy, d.Logg))
			r.Put("/{id}/threshold", controllers.ProductsSetThreshold(d.Inventory, d.Policy, d.Logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/low-stock", controllers.InventoryLowStock(d.Inventory))
			r.Get("/history", controllers.InventoryHistory(d.Inventory, d.Policy, d.Logg))
		})

		r.Get("/audit", controllers.AuditEntries(d.Audit, d.Policy, d.Logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.UsersList(d.Accounts, d.Policy, d.Logg))
			r.Post("/", controllers.UsersCreate(d.Accounts, d.Policy, d.Logg))
			r.Delete("/{username}", controllers.UsersDelete(d.Accounts, d.Policy, d.Logg))
			r.Put("/{username}/role", controllers.UsersChangeRole(d.Accounts, d.Logg))
		})
	})

	return r
}
