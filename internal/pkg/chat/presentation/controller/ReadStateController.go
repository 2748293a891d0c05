package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gigpulse/internal/infrastructure/httpapi"
	"gigpulse/internal/pkg/chat/application/usecase"
)

// UnreadController returns the caller's unread count for one conversation.
type UnreadController struct {
	UC *usecase.ComputeUnreadUseCase
}

func NewUnreadController(uc *usecase.ComputeUnreadUseCase) *UnreadController {
	return &UnreadController{UC: uc}
}

func (h *UnreadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := httpapi.Context(c)
		defer cancel()

		conversationID := c.Param("conversationId")
		n, err := h.UC.Execute(ctx, usecase.ComputeUnreadInput{ConversationID: conversationID, UserID: httpapi.UserID(c)})
		if err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"conversation_id": conversationID, "unread": n})
	}
}

// MarkReadController moves the caller's read marker to now.
type MarkReadController struct {
	UC *usecase.MarkReadUseCase
}

func NewMarkReadController(uc *usecase.MarkReadUseCase) *MarkReadController {
	return &MarkReadController{UC: uc}
}

func (h *MarkReadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := httpapi.Context(c)
		defer cancel()

		marker, err := h.UC.Execute(ctx, usecase.MarkReadInput{ConversationID: c.Param("conversationId"), UserID: httpapi.UserID(c)})
		if err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, marker)
	}
}
