package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/khaliqhussainn/certexam-engine/internal/config"
	"github.com/khaliqhussainn/certexam-engine/internal/handler"
	"github.com/khaliqhussainn/certexam-engine/internal/middleware"
	"github.com/khaliqhussainn/certexam-engine/internal/response"
	"github.com/khaliqhussainn/certexam-engine/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokens *service.TokenService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
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

	// Violation reports can arrive in bursts from a hostile client; cap them
	// per session without throttling the rest of the lifecycle.
	violationLimiter := middleware.NewRateLimiter(cfg.ViolationRatePerMinute, time.Minute)

	// ─── Sessions (Candidate JWT) ──────────────────────────────────────
	sessionAPI := router.Group("/api/v1/sessions")
	sessionAPI.Use(middleware.RequireCandidateJWT(tokens))
	{
		sessionAPI.POST("", handlers.Session.CreateSession)
		sessionAPI.GET("/active", handlers.Session.GetActiveSession)
		sessionAPI.GET("/:id", handlers.Session.GetSession)
		sessionAPI.POST("/:id/start", handlers.Session.StartSession)
		sessionAPI.POST("/:id/answers", handlers.Session.SubmitAnswer)
		sessionAPI.POST("/:id/heartbeat", handlers.Session.Heartbeat)
		sessionAPI.POST("/:id/violations", violationLimiter.Middleware(), handlers.Session.RecordViolation)
		sessionAPI.POST("/:id/trust", handlers.Session.VerifyTrust)
		sessionAPI.GET("/:id/seb-config", handlers.Session.GetSEBConfig)
		sessionAPI.POST("/:id/quit", handlers.Session.Quit)
		sessionAPI.POST("/:id/finalize", handlers.Session.Finalize)
		sessionAPI.GET("/:id/result", handlers.Session.GetResult)
	}

	// ─── WebSocket (Candidate WS Auth) ─────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireCandidateWSAuth(tokens))
	{
		ws.GET("/sessions/:id/stream", handlers.WS.SessionStream)
	}

	return router
}
