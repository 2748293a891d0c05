package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gigpulse/internal/infrastructure/httpapi"
	"gigpulse/internal/pkg/chat/application/usecase"
)

// CreateConversationController handles the conversation creation endpoint.
type CreateConversationController struct {
	UC *usecase.CreateConversationUseCase
}

func NewCreateConversationController(uc *usecase.CreateConversationUseCase) *CreateConversationController {
	return &CreateConversationController{UC: uc}
}

type createConversationRequest struct {
	ParticipantIDs []string `json:"participant_ids" binding:"required"`
}

// Handle creates a conversation between the caller and participant_ids.
func (h *CreateConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := httpapi.Context(c)
		defer cancel()
		ids := append([]string{httpapi.UserID(c)}, req.ParticipantIDs...)
		conv, err := h.UC.Execute(ctx, usecase.CreateConversationInput{ParticipantIDs: ids})
		if err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.JSON(http.StatusCreated, conv)
	}
}
