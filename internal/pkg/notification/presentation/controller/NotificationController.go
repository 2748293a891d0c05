package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gigpulse/internal/infrastructure/httpapi"
	"gigpulse/internal/pkg/notification/application/usecase"
	"gigpulse/internal/pkg/schema"
)

// ListNotificationsController renders the caller's inbox.
// Query: scope=client|provider|all, unread=true, limit=N.
type ListNotificationsController struct {
	UC *usecase.ListNotificationsUseCase
}

func NewListNotificationsController(uc *usecase.ListNotificationsUseCase) *ListNotificationsController {
	return &ListNotificationsController{UC: uc}
}

func (h *ListNotificationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		unread, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
		limit, _ := strconv.Atoi(c.Query("limit"))

		ctx, cancel := httpapi.Context(c)
		defer cancel()
		ns, err := h.UC.Execute(ctx, usecase.ListNotificationsInput{
			UserID:     httpapi.UserID(c),
			Scope:      schema.Audience(c.Query("scope")),
			UnreadOnly: unread,
			Limit:      limit,
		})
		if err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": ns, "count": len(ns)})
	}
}

// MarkAsReadController flips one notification of the caller to read.
type MarkAsReadController struct {
	UC *usecase.MarkAsReadUseCase
}

func NewMarkAsReadController(uc *usecase.MarkAsReadUseCase) *MarkAsReadController {
	return &MarkAsReadController{UC: uc}
}

func (h *MarkAsReadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := httpapi.Context(c)
		defer cancel()

		err := h.UC.Execute(ctx, usecase.MarkAsReadInput{
			NotificationID: c.Param("notificationId"),
			UserID:         httpapi.UserID(c),
		})
		if err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type markAllRequest struct {
	Scope schema.Audience `json:"scope"`
}

// MarkAllAsReadController flips every unread notification in one inbox.
type MarkAllAsReadController struct {
	UC *usecase.MarkAllAsReadUseCase
}

func NewMarkAllAsReadController(uc *usecase.MarkAllAsReadUseCase) *MarkAllAsReadController {
	return &MarkAllAsReadController{UC: uc}
}

func (h *MarkAllAsReadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req markAllRequest
		// an empty body means every inbox
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		ctx, cancel := httpapi.Context(c)
		defer cancel()
		n, err := h.UC.Execute(ctx, usecase.MarkAllAsReadInput{UserID: httpapi.UserID(c), Scope: req.Scope})
		if err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": n})
	}
}
