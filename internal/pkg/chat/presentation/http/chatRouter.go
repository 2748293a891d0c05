package http

import (
	"github.com/gin-gonic/gin"

	"gigpulse/internal/infrastructure/httpapi"
	qport "gigpulse/internal/infrastructure/queue/port"
	"gigpulse/internal/pkg/chat/application/usecase"
	"gigpulse/internal/pkg/chat/presentation/controller"
)

// RegisterRoutes registers chat-related HTTP endpoints under the given router group.
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, uc *usecase.UseCases, client qport.Client) {
	createCtl := controller.NewCreateConversationController(uc.Create)
	listCtl := controller.NewListConversationsController(uc.ListConversations)
	historyCtl := controller.NewLoadHistoryController(uc.LoadHistory)
	sendCtl := controller.NewSendMessageController(uc.Send)
	enqueueCtl := controller.NewEnqueueMessageController(client)
	unreadCtl := controller.NewUnreadController(uc.ComputeUnread)
	readCtl := controller.NewMarkReadController(uc.MarkRead)
	typingCtl := controller.NewTypingController(uc.SetTyping)
	membersCtl := controller.NewListParticipantsController(uc.Join, uc.ListParticipants)

	conv := g.Group("/conversations", httpapi.RequireUser())

	// POST /api/v1/conversations -> create a conversation with the caller in it
	conv.POST("", createCtl.Handle())

	// GET /api/v1/conversations -> the caller's inbox with unread counts
	conv.GET("", listCtl.Handle())

	// GET /api/v1/conversations/:conversationId/messages?order=asc|desc
	conv.GET("/:conversationId/messages", historyCtl.Handle())

	// POST /api/v1/conversations/:conversationId/messages -> store and fan out now
	conv.POST("/:conversationId/messages", sendCtl.Handle())

	// POST /api/v1/conversations/:conversationId/messages/async -> queue for the worker
	conv.POST("/:conversationId/messages/async", enqueueCtl.Handle())

	conv.GET("/:conversationId/unread", unreadCtl.Handle())
	conv.POST("/:conversationId/read", readCtl.Handle())
	conv.POST("/:conversationId/typing", typingCtl.Handle())
	conv.GET("/:conversationId/participants", membersCtl.Handle())
}

// RegisterSocket binds the realtime websocket endpoint.
func RegisterSocket(g *gin.RouterGroup, socket *controller.SocketController) {
	// GET /api/v1/ws?user_id= -> websocket endpoint for realtime traffic
	g.GET("/ws", socket.Handle())
}
