package api

import (
	"net/http" // HTTP status codes
	"time"     // Token lifetime

	"canteen_system/internal/domain"  // Importing domain models
	"canteen_system/internal/service" // Business operations
	"canteen_system/internal/utils"   // JWT helpers

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"github.com/skip2/go-qrcode" // QR image rendering
)

// LoginRequest is the body of both login endpoints
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"` // Account email
	Password string `json:"password" binding:"required"`    // Plain password
}

// AuthResponse carries the issued token
type AuthResponse struct {
	Token string       `json:"token"` // JWT token
	User  *domain.User `json:"user"`  // Authenticated account
}

// TokenIssuer signs JWTs for authenticated users
type TokenIssuer struct {
	Secret string
	TTL    time.Duration
}

func (t TokenIssuer) issue(c *gin.Context, user *domain.User) {
	token, err := utils.GenerateJWT(user.ID, user.Role, t.Secret, t.TTL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Token: token, User: user})
}

// RegisterHandler creates an account awaiting admin approval
func RegisterHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.RegisterInput
		if !bindJSON(c, &req) {
			return
		}
		user, err := svc.Register(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Registration received, awaiting approval", "user": user})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(svc *service.Service, issuer TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if !bindJSON(c, &req) {
			return
		}
		user, err := svc.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		issuer.issue(c, user)
	}
}

// AdminLoginHandler is LoginHandler restricted to admin accounts
func AdminLoginHandler(svc *service.Service, issuer TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if !bindJSON(c, &req) {
			return
		}
		user, err := svc.AuthenticateAdmin(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			logrus.WithFields(logrus.Fields{"email": req.Email, "ip": c.ClientIP()}).Warn("Admin login rejected")
			respondError(c, err)
			return
		}
		issuer.issue(c, user)
	}
}

// MeHandler returns the caller's profile and balance
func MeHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, cached, err := svc.Profile(c.Request.Context(), currentUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": profile, "cached": cached})
	}
}

// ChangePasswordRequest replaces the caller's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

func ChangePasswordHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChangePasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := svc.ChangePassword(c.Request.Context(), currentUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
	}
}

// SetPINRequest sets or replaces the caller's purchase PIN
type SetPINRequest struct {
	PIN string `json:"pin" binding:"required"`
}

func SetPINHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetPINRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := svc.SetPIN(c.Request.Context(), currentUserID(c), req.PIN); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "PIN updated"})
	}
}

// RegenerateQRHandler revokes the caller's QR code and issues a new one
func RegenerateQRHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := svc.RegenerateQR(c.Request.Context(), currentUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"qr_code": user.QRCode})
	}
}

// QRImageHandler renders a user's QR code as PNG. Users may only fetch their
// own; admins may fetch any.
func QRImageHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if id != currentUserID(c) && currentRole(c) != domain.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Cannot access another user's QR code"})
			return
		}
		user, err := svc.GetUser(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		png, err := qrcode.Encode(user.QRCode, qrcode.Medium, 256)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", png)
	}
}
