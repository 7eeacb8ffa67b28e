package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lumenlms/progression-backend/internal/config"
	"github.com/lumenlms/progression-backend/internal/handler"
	"github.com/lumenlms/progression-backend/internal/middleware"
	"github.com/lumenlms/progression-backend/internal/response"
	"github.com/lumenlms/progression-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Progression *handler.ProgressionHandler
	WS          *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	limiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── Student Group (JWT) ───────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService))
	{
		studentAPI.GET("/contents/:content_id/unlock-status", handlers.Progression.GetUnlockStatus)
		studentAPI.GET("/contents/:content_id/progress", handlers.Progression.GetContentProgress)
		studentAPI.GET("/contents/:content_id/attempts/timing", handlers.Progression.GetAttemptTiming)
		studentAPI.GET("/courses/:course_id/progress", handlers.Progression.GetCourseProgress)

		// Write endpoints are throttled per student.
		throttled := studentAPI.Group("")
		throttled.Use(limiter.Middleware())
		{
			throttled.POST("/contents/:content_id/progress", handlers.Progression.UpdateProgress)
			throttled.POST("/contents/:content_id/attempts", handlers.Progression.StartAttempt)
			throttled.POST("/contents/:content_id/attempts/:attempt_number/submit", handlers.Progression.SubmitAttempt)
		}
	}

	// ─── WebSocket Group (Student WS Auth) ─────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/contents/:content_id/timer", handlers.WS.AttemptTimerStream)
	}

	return router
}
