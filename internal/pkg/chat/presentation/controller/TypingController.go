package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gigpulse/internal/infrastructure/httpapi"
	"gigpulse/internal/pkg/chat/application/usecase"
)

type typingRequest struct {
	IsTyping *bool `json:"is_typing" binding:"required"`
}

// TypingController sets or clears the caller's typing indicator.
type TypingController struct {
	UC *usecase.SetTypingUseCase
}

func NewTypingController(uc *usecase.SetTypingUseCase) *TypingController {
	return &TypingController{UC: uc}
}

func (h *TypingController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req typingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := httpapi.Context(c)
		defer cancel()
		state, err := h.UC.Execute(ctx, usecase.SetTypingInput{
			ConversationID: c.Param("conversationId"),
			UserID:         httpapi.UserID(c),
			IsTyping:       *req.IsTyping,
		})
		if err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, state)
	}
}
