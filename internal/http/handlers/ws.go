package handlers

import (
	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"

	"devpair-be/internal/apperr"
	"devpair-be/internal/http/middleware"
	"devpair-be/internal/ws"
)

type WSHandler struct {
	Hub                  *ws.Hub
	JWTSecret            string
	WSInsecureSkipVerify bool
}

// Handle upgrades to a push-only websocket. Browsers cannot set headers on
// websocket requests, so the session token comes in the token query param.
func (h *WSHandler) Handle(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		respondError(c, apperr.New(apperr.KindUnauthorized, "missing token"))
		return
	}

	userID, err := middleware.ParseToken(h.JWTSecret, tokenStr)
	if err != nil {
		respondError(c, apperr.New(apperr.KindUnauthorized, "invalid token"))
		return
	}

	// InsecureSkipVerify disables the origin check, for local development only.
	opts := &websocket.AcceptOptions{InsecureSkipVerify: h.WSInsecureSkipVerify}

	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		// Accept already wrote the response
		return
	}

	// Clients send nothing, but control frames still have to be read.
	ctx := conn.CloseRead(c.Request.Context())

	client := h.Hub.AddClient(userID, conn)
	defer h.Hub.RemoveClient(client)

	<-ctx.Done()
}
