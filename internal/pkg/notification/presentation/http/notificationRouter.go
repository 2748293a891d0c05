package http

import (
	"github.com/gin-gonic/gin"

	"gigpulse/internal/infrastructure/httpapi"
	"gigpulse/internal/pkg/notification/application/usecase"
	"gigpulse/internal/pkg/notification/presentation/controller"
)

// RegisterRoutes registers notification and device token endpoints.
// queued may be nil, in which case ?async=true dispatches inline.
func RegisterRoutes(g *gin.RouterGroup, uc *usecase.UseCases, queued usecase.Dispatcher) {
	listCtl := controller.NewListNotificationsController(uc.List)
	readCtl := controller.NewMarkAsReadController(uc.MarkAsRead)
	readAllCtl := controller.NewMarkAllAsReadController(uc.MarkAllAsRead)
	dispatchCtl := controller.NewDispatchController(uc.Dispatch, queued)
	registerCtl := controller.NewRegisterTokenController(uc.RegisterToken)
	deactivateCtl := controller.NewDeactivateTokenController(uc.DeactivateToken)

	n := g.Group("/notifications")

	// POST /api/v1/notifications/dispatch -> raise a catalogued business event
	n.POST("/dispatch", dispatchCtl.Handle())

	inbox := n.Group("", httpapi.RequireUser())
	inbox.GET("", listCtl.Handle())
	inbox.POST("/read-all", readAllCtl.Handle())
	inbox.POST("/:notificationId/read", readCtl.Handle())

	tokens := g.Group("/device-tokens", httpapi.RequireUser())
	tokens.POST("", registerCtl.Handle())
	tokens.DELETE("/:token", deactivateCtl.Handle())
}
