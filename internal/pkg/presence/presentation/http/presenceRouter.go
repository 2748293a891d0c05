package http

import (
	"github.com/gin-gonic/gin"

	"gigpulse/internal/infrastructure/httpapi"
	"gigpulse/internal/pkg/presence/application/tracker"
	"gigpulse/internal/pkg/presence/presentation/controller"
)

// RegisterRoutes registers presence endpoints under the given router group.
func RegisterRoutes(g *gin.RouterGroup, t *tracker.Tracker) {
	setCtl := controller.NewSetStatusController(t)
	heartbeatCtl := controller.NewHeartbeatController(t)
	snapshotCtl := controller.NewSnapshotController(t)

	p := g.Group("/presence")

	// GET /api/v1/presence -> every user this node sees as not offline
	p.GET("", snapshotCtl.Handle())

	// PUT /api/v1/presence -> set the caller's status
	p.PUT("", httpapi.RequireUser(), setCtl.Handle())

	// POST /api/v1/presence/heartbeat
	p.POST("/heartbeat", httpapi.RequireUser(), heartbeatCtl.Handle())
}
