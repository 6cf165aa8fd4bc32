package lighthouse

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Server exposes the validation pipeline over HTTP: a liveness root, a
// password-gated dashboard feed, the validation entry point and a webhook
// echo for upstream platform callbacks.
type Server struct {
	engine   *gin.Engine
	pipeline *Pipeline
	store    *Store
	password string
	log      *slog.Logger
}

// ServerOptions wires the HTTP layer.
type ServerOptions struct {
	Pipeline          *Pipeline
	Store             *Store
	DashboardPassword string
	Logger            *slog.Logger
}

func NewServer(opts ServerOptions) *Server {
	s := &Server{
		pipeline: opts.Pipeline,
		store:    opts.Store,
		password: opts.DashboardPassword,
		log:      opts.Logger,
	}
	if s.log == nil {
		s.log = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.handleRoot)
	r.GET("/dashboard", s.handleDashboard)
	r.POST("/validate-image", s.handleValidate)
	r.POST("/webhook", s.handleWebhook)

	s.engine = r
	return s
}

// Handler returns the http.Handler for mounting into an http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Lighthouse Validator is live and ready"})
}

// handleDashboard returns the recent decision rows. Access is gated by a
// shared password supplied as a query parameter, matching the upstream
// platform's dashboard link format.
func (s *Server) handleDashboard(c *gin.Context) {
	if s.password == "" || c.Query("password") != s.password {
		c.JSON(http.StatusForbidden, gin.H{"detail": "Unauthorized"})
		return
	}

	rows, err := s.store.Recent(c.Request.Context(), 100)
	if err != nil {
		s.log.Error("dashboard query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": rows})
}

type validateBody struct {
	MediaURL     string `json:"media_url" binding:"required"`
	RespondentID string `json:"respondent_id"`
}

func (s *Server) handleValidate(c *gin.Context) {
	var body validateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "media_url is required"})
		return
	}
	if body.RespondentID == "" {
		body.RespondentID = "unknown"
	}

	result := s.pipeline.Validate(c.Request.Context(), ValidationRequest{
		MediaURL:      body.MediaURL,
		RespondentID:  body.RespondentID,
		ClientAddress: c.ClientIP(),
	})
	c.JSON(http.StatusOK, result)
}

// handleWebhook logs and acknowledges upstream platform callbacks.
func (s *Server) handleWebhook(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid JSON"})
		return
	}
	s.log.Info("webhook received", "body", body)
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
