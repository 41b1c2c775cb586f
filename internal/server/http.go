package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dealbreaker/internal/game"
)

// Router builds the HTTP surface: the lobby REST endpoints plus the
// WebSocket upgrade.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": s.registry.Len()})
	})

	api := r.Group("/api")
	{
		api.POST("/rooms", s.handleCreateRoom)
		api.GET("/rooms/:id", s.handleGetRoom)
	}

	r.GET("/ws", func(c *gin.Context) {
		s.HandleWS(c.Writer, c.Request)
	})

	return r
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	rm := s.registry.Create()
	s.log.WithField("room", rm.Code()).Info("room created")
	c.JSON(http.StatusCreated, gin.H{"roomId": rm.Code()})
}

func (s *Server) handleGetRoom(c *gin.Context) {
	rm, err := s.registry.Get(c.Param("id"))
	if err != nil {
		var nferr *game.NotFoundError
		if errors.As(err, &nferr) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, rm.View())
}
