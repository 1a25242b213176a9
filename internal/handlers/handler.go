package handlers

import (
	"smart_heating/internal/logger"
	"smart_heating/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Minimal WebSocket connection (HTTP upgrade) — same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerHeatingRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerHeatingRoutes(api *gin.RouterGroup) {
	heating := api.Group("/heating")
	{
		heating.GET("/state", h.getHouseState)
		heating.POST("/refresh", h.requestRefresh)
		heating.DELETE("/overrides", h.resetAllOverrides)

		rooms := heating.Group("/rooms")
		{
			rooms.GET("/:id", h.getRoomState)
			rooms.GET("/:id/learning", h.getRoomLearning)
			// Body example: {"mode":"comfort","duration_min":120}
			rooms.PUT("/:id/override", h.setOverride)
			rooms.DELETE("/:id/override", h.resetOverride)
		}
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
