package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Date filters

	"canteen_system/internal/domain"  // Importing domain models
	"canteen_system/internal/service" // Business operations

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Money
)

// ListUsersHandler returns accounts, optionally filtered by status or role
func ListUsersHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pageParams(c)
		result, err := svc.ListUsers(c.Request.Context(), service.UserFilter{
			Status:   domain.UserStatus(c.Query("status")),
			Role:     c.Query("role"),
			Page:     page,
			PageSize: pageSize,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"users":       result.Items,      // List of users
			"page":        result.Page,       // Current page
			"page_size":   result.PageSize,   // Page size
			"total":       result.Total,      // Total number of users
			"total_pages": result.TotalPages, // Total pages
		})
	}
}

// StatusRequest changes an account's status
type StatusRequest struct {
	Status domain.UserStatus `json:"status" binding:"required"`
}

// SetUserStatusHandler approves, deactivates or blocks an account
func SetUserStatusHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req StatusRequest
		if !bindJSON(c, &req) {
			return
		}
		user, err := svc.SetStatus(c.Request.Context(), id, req.Status, currentUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// RoleRequest changes an account's role
type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func SetUserRoleHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req RoleRequest
		if !bindJSON(c, &req) {
			return
		}
		user, err := svc.SetRole(c.Request.Context(), id, req.Role, currentUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// RechargeRequest credits an account
type RechargeRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required,gt=0"` // Amount to credit
	Note   string          `json:"note"`                           // Free text, e.g. receipt number
}

// RechargeHandler credits a user's balance
func RechargeHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req RechargeRequest
		if !bindJSON(c, &req) {
			return
		}
		entry, err := svc.Recharge(c.Request.Context(), service.RechargeInput{
			UserID:      id,
			Amount:      req.Amount,
			PerformedBy: currentUserID(c),
			Note:        req.Note,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Recharge successful", "transaction": entry})
	}
}

// parseTime accepts RFC 3339 timestamps or plain dates. A plain date used as
// an upper bound covers the whole day.
func parseTime(v string, endOfDay bool) (*time.Time, bool) {
	if v == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, true
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}

// ListTransactionsHandler returns all transactions, with optional filtering by user, type, or date
func ListTransactionsHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pageParams(c)
		filter := service.TransactionFilter{
			Type:     domain.TransactionType(c.Query("type")),
			Page:     page,
			PageSize: pageSize,
		}
		if v := c.Query("user_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
				return
			}
			filter.UserID = uint(id)
		}
		var ok bool
		if filter.From, ok = parseTime(c.Query("from"), false); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from"})
			return
		}
		if filter.To, ok = parseTime(c.Query("to"), true); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to"})
			return
		}
		result, err := svc.ListTransactions(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"transactions": result.Items,      // List of transactions
			"page":         result.Page,       // Current page
			"page_size":    result.PageSize,   // Page size
			"total":        result.Total,      // Total number of transactions
			"total_pages":  result.TotalPages, // Total pages
		})
	}
}
