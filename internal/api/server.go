package api

import (
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"pagetrust/internal/autoscan"
	"pagetrust/internal/clients"
	"pagetrust/internal/models"
	"pagetrust/internal/pipeline"
	"pagetrust/internal/qa"
	"pagetrust/internal/store"
)

// Deps carries everything the API needs; nil optional fields disable the
// matching endpoint or fall back to inline handling.
type Deps struct {
	Executor *pipeline.Executor
	Results  *store.ResultStore
	Settings *store.SettingsStore
	Client   *clients.AnalysisClient
	// Scheduler handles navigation events inline when the event bus is
	// not configured.
	Scheduler *autoscan.Scheduler
	// PublishNavigation forwards navigation events to the bus; nil
	// means handle them inline via Scheduler.
	PublishNavigation func(models.NavigationEvent) error
	// Answerer is the optional Q&A capability.
	Answerer *qa.Answerer
	Healthy  *atomic.Bool
}

type Server struct {
	deps Deps
}

func New(deps Deps) *gin.Engine {
	s := &Server{deps: deps}

	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	g.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	g.GET("/healthz", s.handleLiveness)

	v1 := g.Group("/api/v1")
	{
		v1.POST("/scan", s.handleScan)
		v1.GET("/scan/:id/progress", s.handleProgress)
		v1.GET("/analysis", s.handleGetAnalysis)
		v1.GET("/settings", s.handleGetSettings)
		v1.PUT("/settings", s.handleUpdateSettings)
		v1.POST("/test-connection", s.handleTestConnection)
		v1.POST("/navigation", s.handleNavigation)
		v1.POST("/qa", s.handleQA)
	}
	return g
}
