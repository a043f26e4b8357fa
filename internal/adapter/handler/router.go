package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novelvoice-team/novelvoice/internal/infrastructure/http/middleware"
	"github.com/novelvoice-team/novelvoice/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg          *config.Config
	authMW       *middleware.AuthMiddleware
	authHandler  *Auth
	novelHandler *Novel
	audioHandler *Audio
	hlsHandler   *HLS
}

// NewRouter creates a new router with all handlers
func NewRouter(
	cfg *config.Config,
	authMW *middleware.AuthMiddleware,
	authHandler *Auth,
	novelHandler *Novel,
	audioHandler *Audio,
	hlsHandler *HLS,
) *Router {
	return &Router{
		cfg:          cfg,
		authMW:       authMW,
		authHandler:  authHandler,
		novelHandler: novelHandler,
		audioHandler: audioHandler,
		hlsHandler:   hlsHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")

	rt.setupAuthRoutes(v1)
	rt.setupNovelRoutes(v1)
	rt.setupAudioRoutes(v1)
	rt.setupHLSRoutes(v1)
}

func (rt *Router) setupAuthRoutes(g *echo.Group) {
	authGroup := g.Group("/auth")
	authGroup.POST("/login", rt.authHandler.Login)
	authGroup.POST("/refresh", rt.authHandler.Refresh)
	authGroup.GET("/me", rt.authHandler.Me, rt.authMW.Authenticate)
}

func (rt *Router) setupNovelRoutes(g *echo.Group) {
	novels := g.Group("/novels", rt.authMW.Authenticate)
	novels.POST("", rt.novelHandler.Upload)
	novels.GET("", rt.novelHandler.List)
	novels.GET("/:id/chapters", rt.novelHandler.Chapters)
	novels.PUT("/:id/llm", rt.novelHandler.UpdateLLM)
	novels.DELETE("/:id", rt.novelHandler.Delete)
}

func (rt *Router) setupAudioRoutes(g *echo.Group) {
	chapters := g.Group("/chapters", rt.authMW.Authenticate)
	chapters.GET("/:id/content", rt.novelHandler.ChapterContent)
	chapters.GET("/:id/audio", rt.audioHandler.Stream)
	chapters.POST("/:id/audio/cancel", rt.audioHandler.Cancel)
	chapters.GET("/:id/audio/status", rt.audioHandler.Status)
	chapters.POST("/:id/progress", rt.audioHandler.SaveProgress)
	chapters.GET("/:id/progress", rt.audioHandler.GetProgress)
	chapters.GET("/:id/hls", rt.hlsHandler.Playlist)
}

func (rt *Router) setupHLSRoutes(g *echo.Group) {
	hlsGroup := g.Group("/hls", rt.authMW.Authenticate)
	hlsGroup.GET("/status", rt.hlsHandler.Status)
	hlsGroup.DELETE("/cache", rt.hlsHandler.Cleanup)
	hlsGroup.GET("/:user/:file", rt.hlsHandler.Segment)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
	})
}
