package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"devpair-be/internal/apperr"
	"devpair-be/internal/logger"
)

// respondError writes err with the status of its kind. Partial failures
// carry the channel id the client resumes with.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	body := gin.H{
		"success": false,
		"kind":    kind,
		"message": "internal error",
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		body["message"] = e.Message
		if e.ChannelID != "" {
			body["channelId"] = e.ChannelID
		}
	}
	if status >= 500 {
		logger.Log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"kind":    apperr.KindValidation,
		"message": "invalid body",
		"error":   err.Error(),
	})
}

func paramID(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, apperr.Validation(name + " must be a positive integer")
	}
	return uint(v), nil
}
