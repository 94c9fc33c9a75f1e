package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/shopneo/console/internal/api/handlers"
	"github.com/shopneo/console/internal/api/middleware"
	"github.com/shopneo/console/internal/core/session"
)

type Router struct {
	engine         *gin.Engine
	log            zerolog.Logger
	sessionCfg     middleware.SessionCfg
	authMiddleware *middleware.AuthMiddleware
	authHandler    *handlers.AuthHandler
	consoleHandler *handlers.ConsoleHandler
}

func NewRouter(cfg middleware.SessionCfg, log zerolog.Logger) *Router {
	cfg.Log = log
	auth := middleware.NewAuthMiddleware(session.DefaultLoginPath)
	return &Router{
		log:            log,
		sessionCfg:     cfg,
		authMiddleware: auth,
		authHandler:    handlers.NewAuthHandler(cfg, auth),
		consoleHandler: handlers.NewConsoleHandler(),
	}
}

func (r *Router) Setup(mode string) *gin.Engine {
	gin.SetMode(mode)
	r.engine = gin.New()
	r.engine.Use(middleware.Recovery(r.log))
	r.engine.Use(middleware.RequestContext())
	r.engine.Use(middleware.Logger(r.log))
	r.engine.Use(middleware.SessionMiddleware(r.sessionCfg))

	r.setupRoutes()
	return r.engine
}

func (r *Router) setupRoutes() {
	api := r.engine.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Session routes (public)
	r.engine.GET("/login", r.authHandler.LoginPage)
	r.engine.POST("/login", r.authHandler.Login)

	// Gated routes
	r.engine.POST("/logout", r.authMiddleware.RequireSession(), r.authHandler.Logout)

	app := r.engine.Group("/app")
	app.Use(r.authMiddleware.RequireSession())
	{
		app.GET("/session", r.authHandler.Session)

		// Top-level entities
		app.GET("/:entity", r.consoleHandler.List)
		app.POST("/:entity", r.consoleHandler.Create)
		app.POST("/:entity/refresh", r.consoleHandler.Refresh)
		app.GET("/:entity/notices", r.consoleHandler.Notices)
		app.GET("/:entity/:id", r.consoleHandler.Get)
		app.PUT("/:entity/:id", r.consoleHandler.Update)
		app.DELETE("/:entity/:id", r.consoleHandler.Delete)

		// Sub-entities of one parent record
		nested := app.Group("/:entity/:id/:child")
		{
			nested.GET("", r.consoleHandler.List)
			nested.POST("", r.consoleHandler.Create)
			nested.POST("/refresh", r.consoleHandler.Refresh)
			nested.GET("/:childId", r.consoleHandler.Get)
			nested.PUT("/:childId", r.consoleHandler.SubmitEdit)
			nested.DELETE("/:childId", r.consoleHandler.Delete)
			nested.POST("/:childId/edit", r.consoleHandler.OpenEdit)
			nested.PATCH("/:childId/edit", r.consoleHandler.EditFields)
			nested.DELETE("/:childId/edit", r.consoleHandler.CloseEdit)
		}
	}
}
