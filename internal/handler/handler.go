package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"table_admin/internal/audit"
	"table_admin/internal/cache"
	"table_admin/internal/config"
	"table_admin/internal/middleware"
	"table_admin/internal/observability"
	"table_admin/internal/table"
	"table_admin/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const healthTimeout = 2 * time.Second

// Dependencies are the connections shared by every route. Only DB is required.
type Dependencies struct {
	DB        *sql.DB
	Redis     *redis.Client
	Publisher audit.Publisher
	Metrics   *observability.Metrics
	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
}

type controllers struct {
	user  *user.UserController
	table *table.TableController
}

// SetupHandler initializes all dependencies and routes
func SetupHandler(deps Dependencies, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(), middleware.CORSMiddleware(cfg))
	r.Use(middleware.PrometheusMiddleware(deps.Metrics, "/metrics"))

	publisher := deps.Publisher
	if publisher == nil {
		publisher = audit.NoopPublisher{}
	}

	// Initialize repositories
	userRepo := user.NewUserRepository()
	tableRepo := table.NewTableRepository(deps.Metrics)

	// Initialize services
	userService := user.NewUserService(userRepo, deps.DB)
	tableService := table.NewTableService(tableRepo, deps.DB,
		table.WithCache(cache.NewTableListCache(deps.Redis, cfg.Redis.CacheTTL, deps.Metrics)),
		table.WithPublisher(publisher),
		table.WithMetrics(deps.Metrics),
		table.WithQueryTimeout(cfg.DB.QueryTimeout),
	)

	ctrl := controllers{
		user:  user.NewUserController(userService, cfg.JWT.Secret),
		table: table.NewTableController(tableService, cfg.Table.MaxPageSize),
	}

	setupRoutes(r, ctrl, deps, cfg)

	return r
}

// setupRoutes configures all application routes
func setupRoutes(r *gin.Engine, ctrl controllers, deps Dependencies, cfg *config.Config) {
	limiter := middleware.NewLimiter(deps.Redis)
	rateLimit := func(preset *middleware.RateLimiterConfig) gin.HandlerFunc {
		if !cfg.HTTP.RateLimitEnabled {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiterMiddleware(limiter, preset, deps.Metrics)
	}

	requireAuth := middleware.AuthMiddleware(cfg.JWT.Secret)
	readAuth := requireAuth
	if cfg.Table.PublicReads {
		readAuth = middleware.OptionalAuthMiddleware(cfg.JWT.Secret)
	}

	r.GET("/health", healthCheck(deps.DB))
	r.GET("/metrics", metricsHandler(deps.Gatherer))

	api := r.Group("/api")

	// Public routes - Authentication
	strict := rateLimit(middleware.StrictRateLimiter())
	api.POST("/register", strict, ctrl.user.Register)
	api.POST("/login", strict, ctrl.user.Login)

	api.POST("/refresh-token", requireAuth, ctrl.user.RefreshToken)
	api.GET("/verify-token", requireAuth, ctrl.user.VerifyToken)

	apiLimit := rateLimit(middleware.DefaultRateLimiterConfig())

	// Row reads, optionally public
	reads := api.Group("", readAuth, apiLimit)
	{
		reads.GET("/table/:name", ctrl.table.ListRows)
		reads.GET("/tables/:name", ctrl.table.ListRows)
	}

	// Protected routes - tables and rows
	protected := api.Group("", requireAuth, apiLimit)
	{
		protected.GET("/tables", ctrl.table.ListTables)
		protected.POST("/tables", ctrl.table.CreateTable)
		protected.DELETE("/table/:name", ctrl.table.DropTable)

		protected.POST("/table/:name/add", ctrl.table.InsertRow)
		protected.POST("/tables/:name/add", ctrl.table.InsertRow)

		protected.PUT("/table/:name/update/:id", ctrl.table.UpdateRow)
		protected.POST("/table/:name/update/:id", ctrl.table.UpdateRow)
		protected.PUT("/tables/:name/update/:id", ctrl.table.UpdateRow)
		protected.POST("/table/:name/update", ctrl.table.LegacyUpdateRow)

		protected.DELETE("/table/:name/delete/:id", ctrl.table.DeleteRow)
	}
}

func healthCheck(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			logrus.WithError(err).Warn("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}

func metricsHandler(g prometheus.Gatherer) gin.HandlerFunc {
	if g == nil {
		return gin.WrapH(promhttp.Handler())
	}
	return gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
