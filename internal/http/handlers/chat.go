package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"devpair-be/internal/chat"
	"devpair-be/internal/http/middleware"
)

type ChatHandler struct {
	Recorder *chat.Recorder
}

func (h *ChatHandler) RecordMessage(c *gin.Context) {
	var req chat.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.Recorder.RecordMessage(c.Request.Context(), req, middleware.MustUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": msg})
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	var after uint
	if v := c.Query("after"); v != "" {
		x, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			badRequest(c, err)
			return
		}
		after = uint(x)
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		if x, err := strconv.Atoi(v); err == nil && x > 0 {
			limit = x
		}
	}

	page, err := h.Recorder.ListMessages(c.Request.Context(), c.Param("channelId"), after, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	out := gin.H{"success": true, "data": page.Messages}
	if page.Next != 0 {
		out["next"] = page.Next
	}
	c.JSON(http.StatusOK, out)
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	convs, err := h.Recorder.ListConversationsForUser(c.Request.Context(), middleware.MustUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": convs})
}

type openPrivateReq struct {
	UserID uint `json:"userId" binding:"required"`
}

func (h *ChatHandler) OpenPrivate(c *gin.Context) {
	var req openPrivateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	conv, err := h.Recorder.OpenPrivate(c.Request.Context(), middleware.MustUserID(c), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": conv})
}

func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Recorder.DeleteConversation(c.Request.Context(), id, middleware.MustUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ChatHandler) Token(c *gin.Context) {
	token, err := h.Recorder.AccessToken(c.Request.Context(), middleware.MustUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}
