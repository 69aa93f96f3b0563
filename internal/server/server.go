package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Server wires the matching engine to its HTTP surface.
type Server struct{}

// New creates a server instance.
func New() *Server {
	return &Server{}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	s.setupRoutes(r)
	return r
}

func (s *Server) setupRoutes(r *gin.Engine) {
	r.GET("/health", s.healthHandler)
	r.POST("/match-selection", s.matchSelectionHandler)
	r.POST("/match-selection/annotated", s.matchSelectionAnnotatedHandler)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
