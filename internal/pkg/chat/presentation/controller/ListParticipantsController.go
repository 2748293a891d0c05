package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gigpulse/internal/infrastructure/httpapi"
	"gigpulse/internal/pkg/chat/application/usecase"
)

// ListParticipantsController lists a conversation's members for one of them.
type ListParticipantsController struct {
	Join *usecase.JoinConversationUseCase
	UC   *usecase.ListParticipantsUseCase
}

func NewListParticipantsController(join *usecase.JoinConversationUseCase, uc *usecase.ListParticipantsUseCase) *ListParticipantsController {
	return &ListParticipantsController{Join: join, UC: uc}
}

func (h *ListParticipantsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")
		ctx, cancel := httpapi.Context(c)
		defer cancel()

		if err := h.Join.Execute(ctx, usecase.JoinConversationInput{ConversationID: conversationID, UserID: httpapi.UserID(c)}); err != nil {
			httpapi.WriteError(c, err)
			return
		}
		ids, err := h.UC.Execute(ctx, usecase.ListParticipantsInput{ConversationID: conversationID})
		if err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"conversation_id": conversationID, "participant_ids": ids})
	}
}
