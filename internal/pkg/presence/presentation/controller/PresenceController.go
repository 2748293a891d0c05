package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gigpulse/internal/infrastructure/httpapi"
	"gigpulse/internal/pkg/presence/application/tracker"
	"gigpulse/internal/pkg/schema"
)

type setStatusRequest struct {
	Status         schema.PresenceStatus `json:"status" binding:"required"`
	CurrentContext *string               `json:"current_context"`
}

// SetStatusController sets the caller's presence explicitly.
type SetStatusController struct {
	Tracker *tracker.Tracker
}

func NewSetStatusController(t *tracker.Tracker) *SetStatusController {
	return &SetStatusController{Tracker: t}
}

func (h *SetStatusController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := httpapi.Context(c)
		defer cancel()
		p, err := h.Tracker.SetStatus(ctx, httpapi.UserID(c), req.Status, req.CurrentContext)
		if err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// HeartbeatController refreshes last_seen for clients without a websocket.
type HeartbeatController struct {
	Tracker *tracker.Tracker
}

func NewHeartbeatController(t *tracker.Tracker) *HeartbeatController {
	return &HeartbeatController{Tracker: t}
}

func (h *HeartbeatController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := httpapi.Context(c)
		defer cancel()

		p, err := h.Tracker.Heartbeat(ctx, httpapi.UserID(c))
		if err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// SnapshotController returns the node's view of who is online.
type SnapshotController struct {
	Tracker *tracker.Tracker
}

func NewSnapshotController(t *tracker.Tracker) *SnapshotController {
	return &SnapshotController{Tracker: t}
}

func (h *SnapshotController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		users := h.Tracker.CurrentPresence()
		c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
	}
}
