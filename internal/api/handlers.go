package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"pagetrust/internal/models"
	"pagetrust/internal/pipeline"
)

type scanRequest struct {
	URL   string `json:"url" binding:"required"`
	Async bool   `json:"async"`
}

func (s *Server) handleScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	if req.Async {
		runID, err := s.deps.Executor.Start(req.URL)
		if err != nil {
			scanError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"runId": runID})
		return
	}

	analysis, err := s.deps.Executor.Run(c.Request.Context(), req.URL)
	if err != nil {
		scanError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func scanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pipeline.ErrScanInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrNoURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleProgress(c *gin.Context) {
	runID := c.Param("id")
	tracker, ok := s.deps.Executor.Tracker(runID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown run id"})
		return
	}

	if websocket.IsWebSocketUpgrade(c.Request) {
		s.streamProgress(c, tracker)
		return
	}

	c.JSON(http.StatusOK, pipeline.StepUpdate{
		RunID: tracker.RunID(),
		Steps: tracker.Steps(),
		Done:  tracker.Done(),
	})
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	pageURL := c.Query("url")
	if pageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	analysis, err := s.deps.Results.Load(c.Request.Context(), pageURL)
	if err != nil {
		slog.Error("[API] Failed to load analysis",
			slog.String("url", pageURL),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load analysis"})
		return
	}
	if analysis == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis stored for this url"})
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleGetSettings(c *gin.Context) {
	settings, err := s.deps.Settings.Load(c.Request.Context())
	if err != nil {
		slog.Error("[API] Failed to load settings", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var settings models.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings payload"})
		return
	}

	if err := s.deps.Settings.Save(c.Request.Context(), settings); err != nil {
		slog.Error("[API] Failed to save settings", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handleTestConnection(c *gin.Context) {
	if s.deps.Client == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "error": "no analysis service configured"})
		return
	}
	if err := s.deps.Client.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true})
}

func (s *Server) handleNavigation(c *gin.Context) {
	var event models.NavigationEvent
	if err := c.ShouldBindJSON(&event); err != nil || event.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if s.deps.PublishNavigation != nil {
		if err := s.deps.PublishNavigation(event); err != nil {
			slog.Error("[API] Failed to publish navigation event",
				slog.String("url", event.URL),
				slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish navigation event"})
			return
		}
	} else {
		s.deps.Scheduler.HandleNavigation(c.Request.Context(), event)
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

type qaRequest struct {
	URL      string `json:"url" binding:"required"`
	Question string `json:"question" binding:"required"`
}

func (s *Server) handleQA(c *gin.Context) {
	if s.deps.Answerer == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "question answering is not configured"})
		return
	}

	var req qaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url and question are required"})
		return
	}

	analysis, err := s.deps.Results.Load(c.Request.Context(), req.URL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load analysis"})
		return
	}
	if analysis == nil || analysis.APIData == nil || analysis.APIData.Scrape == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan this page first; no scraped content stored"})
		return
	}

	answer, err := s.deps.Answerer.Answer(c.Request.Context(), analysis.APIData.Scrape, req.Question)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func (s *Server) handleLiveness(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if s.deps.Healthy != nil {
		resp["analysisService"] = s.deps.Healthy.Load()
	}
	c.JSON(http.StatusOK, resp)
}
