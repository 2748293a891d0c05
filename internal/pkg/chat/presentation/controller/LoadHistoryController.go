package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gigpulse/internal/infrastructure/httpapi"
	"gigpulse/internal/pkg/chat/application/usecase"
)

// LoadHistoryController returns a conversation's full message log.
// ?order=desc flips the default ascending order.
type LoadHistoryController struct {
	UC *usecase.LoadHistoryUseCase
}

func NewLoadHistoryController(uc *usecase.LoadHistoryUseCase) *LoadHistoryController {
	return &LoadHistoryController{UC: uc}
}

func (h *LoadHistoryController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		in := usecase.LoadHistoryInput{
			ConversationID: c.Param("conversationId"),
			UserID:         httpapi.UserID(c),
			Ascending:      c.DefaultQuery("order", "asc") != "desc",
		}

		ctx, cancel := httpapi.Context(c)
		defer cancel()
		msgs, err := h.UC.Execute(ctx, in)
		if err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs, "count": len(msgs)})
	}
}
