package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gigpulse/internal/infrastructure/httpapi"
	"gigpulse/internal/pkg/notification/application/usecase"
)

type registerTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}

// RegisterTokenController registers the caller's push token.
type RegisterTokenController struct {
	UC *usecase.RegisterTokenUseCase
}

func NewRegisterTokenController(uc *usecase.RegisterTokenUseCase) *RegisterTokenController {
	return &RegisterTokenController{UC: uc}
}

func (h *RegisterTokenController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := httpapi.Context(c)
		defer cancel()
		t, err := h.UC.Execute(ctx, usecase.RegisterTokenInput{
			UserID:     httpapi.UserID(c),
			Token:      req.Token,
			DeviceInfo: req.DeviceInfo,
		})
		if err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// DeactivateTokenController turns a push token off, for logout or an
// uninstalled app reported by the push gateway.
type DeactivateTokenController struct {
	UC *usecase.DeactivateTokenUseCase
}

func NewDeactivateTokenController(uc *usecase.DeactivateTokenUseCase) *DeactivateTokenController {
	return &DeactivateTokenController{UC: uc}
}

func (h *DeactivateTokenController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := httpapi.Context(c)
		defer cancel()

		if err := h.UC.Execute(ctx, usecase.DeactivateTokenInput{Token: c.Param("token")}); err != nil {
			httpapi.WriteError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
