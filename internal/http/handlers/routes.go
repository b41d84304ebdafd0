package handlers

import (
	"github.com/gin-gonic/gin"

	"devpair-be/internal/chat"
	"devpair-be/internal/graph"
	"devpair-be/internal/groups"
	"devpair-be/internal/http/middleware"
	"devpair-be/internal/logger"
	"devpair-be/internal/store"
	"devpair-be/internal/ws"
)

type Deps struct {
	Store    *store.Store
	Graph    *graph.Manager
	Groups   *groups.Synchronizer
	Recorder *chat.Recorder
	Hub      *ws.Hub

	JWTSecret            string
	WSInsecureSkipVerify bool
}

// NewRouter mounts every route on a fresh engine.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger())

	authH := &AuthHandler{Store: d.Store, JWTSecret: d.JWTSecret}
	r.POST("/auth/register", authH.Register)
	r.POST("/auth/login", authH.Login)

	wsH := &WSHandler{Hub: d.Hub, JWTSecret: d.JWTSecret, WSInsecureSkipVerify: d.WSInsecureSkipVerify}
	r.GET("/ws", wsH.Handle)

	authed := r.Group("/")
	authed.Use(middleware.AuthMiddleware(d.JWTSecret))

	userH := &UserHandler{Graph: d.Graph}
	user := authed.Group("/user")
	user.POST("/follow/:id", userH.Follow)
	user.POST("/unfollow/:id", userH.Unfollow)
	user.GET("/follow-state/:id", userH.FollowState)
	user.GET("/profile/:username/connections", userH.Connections)

	groupH := &GroupHandler{Groups: d.Groups}
	group := authed.Group("/group")
	group.POST("/create", groupH.Create)
	group.POST("/add-members", groupH.AddMembers)
	group.POST("/remove-members", groupH.RemoveMembers)
	group.POST("/reconcile", groupH.Reconcile)
	group.GET("/my-groups", groupH.MyGroups)

	chatH := &ChatHandler{Recorder: d.Recorder}
	authed.POST("/messages", chatH.RecordMessage)
	authed.GET("/messages/:channelId", chatH.ListMessages)
	authed.GET("/chat/conversations", chatH.ListConversations)
	authed.POST("/chat/conversations/private", chatH.OpenPrivate)
	authed.DELETE("/chat/conversations/:id", chatH.DeleteConversation)
	authed.GET("/chat/token", chatH.Token)

	return r
}
