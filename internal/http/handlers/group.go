package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"devpair-be/internal/groups"
	"devpair-be/internal/http/middleware"
)

type GroupHandler struct {
	Groups *groups.Synchronizer
}

type createGroupReq struct {
	Name      string `json:"name"`
	MemberIDs []uint `json:"memberIds"`
	ChannelID string `json:"channelId"`
}

// Create answers 201 with the group and a provider token. On a partial
// failure the response carries channelId; resending the same body with that
// channelId completes the group.
func (h *GroupHandler) Create(c *gin.Context) {
	var req createGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.Groups.CreateGroup(c.Request.Context(), groups.CreateRequest{
		Name:           req.Name,
		MemberIDs:      req.MemberIDs,
		Creator:        middleware.MustUserID(c),
		ChannelID:      req.ChannelID,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "group": res.Group, "token": res.Token})
}

type membersReq struct {
	ChannelID string `json:"channelId"`
	MemberIDs []uint `json:"memberIds"`
}

func (h *GroupHandler) AddMembers(c *gin.Context) {
	var req membersReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	g, err := h.Groups.AddMembers(c.Request.Context(), req.ChannelID, req.MemberIDs, middleware.MustUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "group": g})
}

func (h *GroupHandler) RemoveMembers(c *gin.Context) {
	var req membersReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	g, err := h.Groups.RemoveMembers(c.Request.Context(), req.ChannelID, req.MemberIDs, middleware.MustUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "group": g})
}

type reconcileReq struct {
	ChannelID string `json:"channelId"`
}

// Reconcile copies the provider's membership into the store. Only members of
// the group may trigger it.
func (h *GroupHandler) Reconcile(c *gin.Context) {
	var req reconcileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.Groups.ReconcileAs(c.Request.Context(), req.ChannelID, middleware.MustUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": res})
}

func (h *GroupHandler) MyGroups(c *gin.Context) {
	list, err := h.Groups.ListUserGroups(c.Request.Context(), middleware.MustUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "groups": list})
}
