package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gigpulse/internal/infrastructure/httpapi"
	qport "gigpulse/internal/infrastructure/queue/port"
	"gigpulse/internal/pkg/chat/application/task"
	"gigpulse/internal/pkg/chat/application/usecase"
)

// sendMessageRequest is the DTO for the HTTP request body.
type sendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageController stores a message synchronously and returns it.
type SendMessageController struct {
	UC *usecase.SendMessageUseCase
}

func NewSendMessageController(uc *usecase.SendMessageUseCase) *SendMessageController {
	return &SendMessageController{UC: uc}
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := httpapi.Context(c)
		defer cancel()
		msg, err := h.UC.Execute(ctx, usecase.SendMessageInput{
			ConversationID: c.Param("conversationId"),
			SenderID:       httpapi.UserID(c),
			Content:        req.Content,
		})
		if err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

// EnqueueMessageController hands the message to the background worker and
// answers 202 right away.
type EnqueueMessageController struct {
	Q qport.Client
}

func NewEnqueueMessageController(client qport.Client) *EnqueueMessageController {
	return &EnqueueMessageController{Q: client}
}

func (h *EnqueueMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Content == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "content must not be empty"})
			return
		}

		ctx, cancel := httpapi.Context(c)
		defer cancel()
		id, err := task.EnqueueSendMessage(ctx, h.Q, task.SendMessageTaskPayload{
			ConversationID: conversationID,
			SenderID:       httpapi.UserID(c),
			Content:        req.Content,
		})
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to enqueue message"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status":          "queued",
			"task_id":         id,
			"conversation_id": conversationID,
		})
	}
}
