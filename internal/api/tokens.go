package api

import (
	"net/http"

	"canteen_system/internal/service"

	"github.com/gin-gonic/gin"
)

type ResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RequestPasswordResetHandler always answers 200 so callers cannot probe which emails exist
func RequestPasswordResetHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "If the account exists, a reset code has been sent"})
	}
}

func ConfirmPasswordResetHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetConfirmRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := svc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
	}
}
