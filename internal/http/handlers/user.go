package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"devpair-be/internal/graph"
	"devpair-be/internal/http/middleware"
)

type UserHandler struct {
	Graph *graph.Manager
}

func (h *UserHandler) Follow(c *gin.Context) {
	target, err := paramID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Graph.Follow(c.Request.Context(), middleware.MustUserID(c), target); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "followed"})
}

func (h *UserHandler) Unfollow(c *gin.Context) {
	target, err := paramID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Graph.Unfollow(c.Request.Context(), middleware.MustUserID(c), target); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "unfollowed"})
}

func (h *UserHandler) FollowState(c *gin.Context) {
	target, err := paramID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	ok, err := h.Graph.IsFollowing(c.Request.Context(), middleware.MustUserID(c), target)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "isFollowing": ok})
}

func (h *UserHandler) Connections(c *gin.Context) {
	conns, err := h.Graph.ListConnections(c.Request.Context(), c.Param("username"), middleware.MustUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": conns})
}
