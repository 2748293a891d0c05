package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gigpulse/internal/infrastructure/httpapi"
	"gigpulse/internal/pkg/notification/application/usecase"
)

type dispatchRequest struct {
	TriggerKey string            `json:"trigger_key" binding:"required"`
	Payload    map[string]string `json:"payload" binding:"required"`
}

// DispatchController lets business services raise a catalogued event.
// ?async=true queues it and answers 202.
type DispatchController struct {
	UC    *usecase.DispatchUseCase
	Queue usecase.Dispatcher
}

func NewDispatchController(uc *usecase.DispatchUseCase, queued usecase.Dispatcher) *DispatchController {
	return &DispatchController{UC: uc, Queue: queued}
}

func (h *DispatchController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dispatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		in := usecase.DispatchInput{TriggerKey: req.TriggerKey, Payload: req.Payload}

		ctx, cancel := httpapi.Context(c)
		defer cancel()

		if c.Query("async") == "true" && h.Queue != nil {
			if err := h.Queue.Dispatch(ctx, in); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to enqueue dispatch"})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"status": "queued", "trigger_key": req.TriggerKey})
			return
		}

		ns, err := h.UC.Execute(ctx, in)
		if err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"notifications": ns, "count": len(ns)})
	}
}
