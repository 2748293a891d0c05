package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gigpulse/internal/infrastructure/httpapi"
	"gigpulse/internal/pkg/chat/application/usecase"
)

// ListConversationsController renders the caller's inbox with unread counts.
type ListConversationsController struct {
	UC *usecase.ListConversationsUseCase
}

func NewListConversationsController(uc *usecase.ListConversationsUseCase) *ListConversationsController {
	return &ListConversationsController{UC: uc}
}

func (h *ListConversationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := httpapi.Context(c)
		defer cancel()

		rows, err := h.UC.Execute(ctx, usecase.ListConversationsInput{UserID: httpapi.UserID(c)})
		if err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"conversations": rows, "count": len(rows)})
	}
}
