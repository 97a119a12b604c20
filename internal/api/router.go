package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/decorhub/storefront/docs"
	"github.com/decorhub/storefront/internal/api/handler"
	"github.com/decorhub/storefront/internal/api/middleware"
	"github.com/decorhub/storefront/internal/apiclient"
	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/service"
	"github.com/decorhub/storefront/internal/infrastructure/http/handlers"
)

// Dependencies are the long-lived components the routes are served from.
type Dependencies struct {
	Log       zerolog.Logger
	Client    *apiclient.Client
	Registry  *service.SessionRegistry
	Roles     *service.RoleResolver
	Guard     *service.Guard
	Catalog   *service.CatalogService
	Session   middleware.SessionConfig
	PublicURL string
	// Mongo and Redis are only probed by the readiness check; either may be nil.
	Mongo *mongo.Database
	Redis *redis.Client
	// Metrics receives the HTTP metrics and backs /metrics. Nil means the
	// default prometheus registry.
	Metrics *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Metrics != nil {
		registerer, gatherer = deps.Metrics, deps.Metrics
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "storefront",
		Registerer: registerer,
	}))

	// --- Health probes, metrics and docs (no session) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Mongo, deps.Redis, deps.Client.BaseURL())

	e.GET("/health", healthHandler.Liveness)            // liveness
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Pages ---
	web := e.Group("", middleware.Session(deps.Registry, deps.Client, deps.Session, deps.Log))
	requireAuth := middleware.RequireAuth(deps.Guard)

	authHandler := handler.NewAuthHandler(deps.Log)
	catalogHandler := handler.NewCatalogHandler(deps.Catalog)
	bookingHandler := handler.NewBookingHandler(deps.Catalog)
	paymentHandler := handler.NewPaymentHandler(deps.PublicURL)
	adminHandler := handler.NewAdminHandler(deps.Roles, deps.Log)
	decoratorHandler := handler.NewDecoratorHandler()

	web.GET("/", catalogHandler.List)
	web.GET("/services/:id", catalogHandler.Get)

	web.GET("/login", authHandler.LoginPage)
	web.POST("/login", authHandler.Login)
	web.POST("/register", authHandler.Register)
	web.POST("/logout", authHandler.Logout)
	web.PATCH("/profile", authHandler.UpdateProfile, requireAuth)

	web.GET("/dashboard/bookings", bookingHandler.List, requireAuth)
	web.POST("/bookings", bookingHandler.Create, requireAuth)
	web.DELETE("/bookings/:id", bookingHandler.Cancel, requireAuth)
	web.GET("/dashboard/payments", paymentHandler.History, requireAuth)
	web.POST("/payments/checkout", paymentHandler.Checkout, requireAuth)
	web.POST("/payments/confirm", paymentHandler.Confirm, requireAuth)

	admin := web.Group("/admin", middleware.RequireRole(deps.Guard, domain.RoleAdmin))
	admin.GET("/users", adminHandler.Users)
	admin.PATCH("/users/:id/role", adminHandler.UpdateRole)
	admin.GET("/bookings", adminHandler.Bookings)
	admin.POST("/services", adminHandler.CreateService)
	admin.PATCH("/services/:id", adminHandler.UpdateService)
	admin.DELETE("/services/:id", adminHandler.DeleteService)

	decorator := web.Group("/decorator", middleware.RequireRole(deps.Guard, domain.RoleDecorator))
	decorator.GET("/projects", decoratorHandler.Projects)
	decorator.PATCH("/projects/:id/status", decoratorHandler.UpdateStatus)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
