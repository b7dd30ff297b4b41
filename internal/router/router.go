package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Thrusbalda/auto-work-log/internal/handler"
	"github.com/Thrusbalda/auto-work-log/internal/middleware"
	"github.com/Thrusbalda/auto-work-log/internal/service"
)

type Deps struct {
	AuthService    *service.AuthService
	AuthHandler    *handler.AuthHandler
	TrackerHandler *handler.TrackerHandler
	Metrics        http.Handler
	InsightLimiter *rate.Limiter
	CORSOrigins    []string
	Logger         *zap.Logger
}

func New(deps Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestLogger(deps.Logger), gin.Recovery(), middleware.CORS(deps.CORSOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/token", deps.AuthHandler.Token)

	tracker := api.Group("/tracker")
	tracker.Use(middleware.Auth(deps.AuthService))
	tracker.GET("/state", deps.TrackerHandler.GetState)
	tracker.POST("/toggle", deps.TrackerHandler.Toggle)
	tracker.GET("/history", deps.TrackerHandler.GetHistory)
	tracker.GET("/settings", deps.TrackerHandler.GetSettings)
	tracker.PUT("/settings", deps.TrackerHandler.UpdateSettings)
	tracker.POST("/settings/work-location", deps.TrackerHandler.SetWorkLocation)
	tracker.POST("/location", deps.TrackerHandler.PushLocation)
	tracker.GET("/report", deps.TrackerHandler.GetReport)

	insight := []gin.HandlerFunc{deps.TrackerHandler.Insight}
	if deps.InsightLimiter != nil {
		insight = append([]gin.HandlerFunc{middleware.RateLimit(deps.InsightLimiter, deps.Logger)}, insight...)
	}
	tracker.POST("/insight", insight...)

	return engine
}
