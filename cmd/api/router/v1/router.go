package v1

import (
	"github.com/gin-gonic/gin"

	qport "gigpulse/internal/infrastructure/queue/port"
	chatUsecase "gigpulse/internal/pkg/chat/application/usecase"
	chatController "gigpulse/internal/pkg/chat/presentation/controller"
	chatHttp "gigpulse/internal/pkg/chat/presentation/http"
	notificationUsecase "gigpulse/internal/pkg/notification/application/usecase"
	notificationHttp "gigpulse/internal/pkg/notification/presentation/http"
	"gigpulse/internal/pkg/presence/application/tracker"
	presenceHttp "gigpulse/internal/pkg/presence/presentation/http"
)

// Deps carries everything the v1 handlers are built from.
type Deps struct {
	Chat          *chatUsecase.UseCases
	Socket        *chatController.SocketController
	Presence      *tracker.Tracker
	Notifications *notificationUsecase.UseCases
	// QueuedDispatch backs POST /notifications/dispatch?async=true.
	QueuedDispatch notificationUsecase.Dispatcher
	Queue          qport.Client
}

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(r *gin.Engine, d Deps) {
	v1 := r.Group("/api/v1")
	chatHttp.RegisterRoutes(v1, d.Chat, d.Queue)
	chatHttp.RegisterSocket(v1, d.Socket)
	presenceHttp.RegisterRoutes(v1, d.Presence)
	notificationHttp.RegisterRoutes(v1, d.Notifications, d.QueuedDispatch)
}
