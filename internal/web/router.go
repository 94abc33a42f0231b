package web

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"callsight/internal/auth"
	"callsight/internal/backend"
	"callsight/internal/web/handlers"
	"callsight/internal/web/middleware"
)

// LoginPath is where unauthenticated browser navigations are sent.
const LoginPath = "/login"

// RouterConfig holds dependencies for the dashboard router
type RouterConfig struct {
	Manager *auth.Manager
	Client  *backend.Client
	Logger  *slog.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(config RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(config.Logger))
	router.Use(middleware.Logging(config.Logger))
	router.Use(middleware.ContentType())

	// Health check (no auth)
	healthHandler := handlers.NewHealthHandler()
	router.GET("/health", healthHandler.GetHealth)

	// Sign-in page placeholder; the redirect target for expired sessions
	router.GET(LoginPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "sign in required"})
	})

	// Session endpoints (no auth: they establish or tear down the session)
	sessionHandler := handlers.NewSessionHandler(config.Client, config.Manager, config.Logger)
	router.POST("/session/login", sessionHandler.Login)
	router.POST("/session/register", sessionHandler.Register)
	router.POST("/session/logout", sessionHandler.Logout)
	router.GET("/session/status", sessionHandler.Status)

	// Dashboard routes (require a live session)
	v1 := router.Group("/v1")
	v1.Use(middleware.RequireSession(config.Manager, LoginPath, config.Logger))
	{
		analyticsHandler := handlers.NewAnalyticsHandler(config.Client, config.Logger)
		v1.GET("/dashboard", analyticsHandler.GetDashboard)
		v1.GET("/call-records", analyticsHandler.ListCallRecords)
		v1.GET("/call-records/metrics", analyticsHandler.GetMetrics)
		v1.GET("/caller-insights", analyticsHandler.GetCallerInsights)
		v1.GET("/direction-analysis", analyticsHandler.GetDirectionAnalysis)
	}

	return router
}
