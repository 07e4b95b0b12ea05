package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/industrieschule/vertretungsplan/internal/auth"
	"github.com/industrieschule/vertretungsplan/internal/config"
	"github.com/industrieschule/vertretungsplan/internal/controllers"
	"github.com/industrieschule/vertretungsplan/internal/database"
	"github.com/industrieschule/vertretungsplan/internal/endpoint"
	"github.com/industrieschule/vertretungsplan/internal/handlers"
	"github.com/industrieschule/vertretungsplan/internal/logging"
	"github.com/industrieschule/vertretungsplan/internal/metrics"
	"github.com/industrieschule/vertretungsplan/internal/middleware"
	"github.com/industrieschule/vertretungsplan/internal/models"
	"github.com/industrieschule/vertretungsplan/internal/ws"
)

const limiterPruneInterval = time.Minute

// Deps are the long-lived services the routes are wired to.
type Deps struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Issuer  *auth.Issuer
	Hub     *ws.PlanHub
	Site    *config.SiteSource
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

// Register installs middleware and every route on r. Background helpers stop
// with ctx.
func Register(ctx context.Context, r *gin.Engine, d Deps) ([]endpoint.Route, error) {
	prefix := d.Cfg.APIPrefix

	r.Use(logging.RequestID(), logging.Recovery(d.Log), logging.Access(d.Log))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	r.Use(middleware.CORS())

	// Preflight and readiness
	r.OPTIONS(prefix+"/*any", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	ready := prefix
	if ready == "" {
		ready = "/"
	}
	r.GET(ready, func(c *gin.Context) { c.String(http.StatusOK, "API is ready") })

	r.GET("/healthz", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := database.Ping(pingCtx, d.DB); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "live_subscribers": d.Hub.Subscribers()})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// Front-end shell and assets
	r.Static("/assets", d.Cfg.AssetsDir)
	if prefix != "" {
		siteCtrl := &controllers.SiteController{Site: d.Site, Log: d.Log}
		r.GET("/", siteCtrl.Shell)
	}

	// Controllers
	authCtrl := &controllers.AuthController{DB: d.DB, Issuer: d.Issuer, Log: d.Log}
	adminCtrl := &controllers.AdminController{DB: d.DB}
	planCtrl := &controllers.PlanController{DB: d.DB, Hub: d.Hub, Log: d.Log}
	legacyCtrl := &controllers.LegacyController{DB: d.DB, Cfg: d.Cfg, Metrics: d.Metrics, Log: d.Log}

	loginLimiter := middleware.NewIPRateLimiter(d.Cfg.RateLimitRPS, d.Cfg.RateLimitBurst)
	legacyLimiter := middleware.NewIPRateLimiter(d.Cfg.RateLimitRPS, d.Cfg.RateLimitBurst)
	go loginLimiter.PruneEvery(ctx, limiterPruneInterval)
	go legacyLimiter.PruneEvery(ctx, limiterPruneInterval)

	// Public
	pub := r.Group(prefix + "/v1")
	{
		pub.POST("/auth/login", middleware.RateLimit(loginLimiter, nil), authCtrl.Login)
		pub.POST("/auth/refresh", middleware.RateLimit(loginLimiter, nil), authCtrl.Refresh)
		pub.GET("/plan/live", ws.PlanFeed(d.Hub))
	}
	r.GET(prefix+"/legacy/vertretungsplan",
		middleware.RateLimit(legacyLimiter, legacyCtrl.RateLimited),
		legacyCtrl.Vertretungsplan)

	// Protected
	api := r.Group(prefix+"/v1", middleware.AuthMiddleware(d.DB, d.Issuer))
	{
		api.GET("/auth/me", authCtrl.Me)
		api.POST("/auth/logout", authCtrl.Logout)

		// Admin-only
		users := api.Group("/admin/users", middleware.RequireRoles(models.RoleAdmin))
		{
			users.GET("", adminCtrl.ListUsers)
			users.POST("", adminCtrl.CreateUser)
			users.GET("/:user_id", adminCtrl.GetUser)
			users.PUT("/:user_id", adminCtrl.UpdateUser)
		}

		// Editors maintain the plan
		editor := api.Group("/admin/plan", middleware.RequireRoles(models.RoleEditor))
		{
			editor.GET("/days", planCtrl.ListDays)
			editor.POST("/days", planCtrl.CreateDay)
			editor.GET("/days/:day_id", planCtrl.GetDay)
			editor.PUT("/days/:day_id", planCtrl.UpdateDay)
			editor.DELETE("/days/:day_id", planCtrl.DeleteDay)
			editor.POST("/days/:day_id/lessons", planCtrl.AddLesson)
			editor.PUT("/lessons/:lesson_id", planCtrl.UpdateLesson)
			editor.DELETE("/lessons/:lesson_id", planCtrl.DeleteLesson)
		}
	}

	// Declared endpoints: REST, GraphQL and sockets
	reg := endpoint.NewRegistry(d.Log)
	handlers.Register(reg, handlers.Deps{DB: d.DB, Site: d.Site, Log: d.Log})
	return reg.Mount(ctx, r, prefix, d.Cfg.Debug)
}
