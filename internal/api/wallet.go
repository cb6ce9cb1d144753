package api

import (
	"net/http" // HTTP status codes

	"canteen_system/internal/service" // Business operations

	"github.com/gin-gonic/gin" // Gin web framework
)

// PurchaseRequest is a cashier sale. The buyer is identified by user_id or
// by a scanned qr_code.
type PurchaseRequest struct {
	UserID uint               `json:"user_id"`                             // Buyer account
	QRCode string             `json:"qr_code"`                             // Alternative to user_id
	PIN    string             `json:"pin"`                                 // Buyer PIN, when configured
	Items  []service.LineItem `json:"items" binding:"required,min=1,dive"` // Products and quantities
	Note   string             `json:"note"`                                // Free text
}

// SelfPurchaseRequest is a purchase the buyer makes on their own account
type SelfPurchaseRequest struct {
	PIN   string             `json:"pin"`
	Items []service.LineItem `json:"items" binding:"required,min=1,dive"`
	Note  string             `json:"note"`
}

// PurchaseHandler debits a buyer at the counter
func PurchaseHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PurchaseRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx := c.Request.Context()
		buyerID := req.UserID
		if buyerID == 0 {
			if req.QRCode == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "user_id or qr_code is required"})
				return
			}
			buyer, err := svc.ResolveQR(ctx, req.QRCode)
			if err != nil {
				respondError(c, err)
				return
			}
			buyerID = buyer.ID
		}
		entry, err := svc.Purchase(ctx, service.PurchaseInput{
			UserID:      buyerID,
			Items:       req.Items,
			PerformedBy: currentUserID(c),
			PIN:         req.PIN,
			Note:        req.Note,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Purchase successful", "transaction": entry})
	}
}

// SelfPurchaseHandler lets a user buy on their own account
func SelfPurchaseHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SelfPurchaseRequest
		if !bindJSON(c, &req) {
			return
		}
		userID := currentUserID(c)
		entry, err := svc.Purchase(c.Request.Context(), service.PurchaseInput{
			UserID:      userID,
			Items:       req.Items,
			PerformedBy: userID,
			PIN:         req.PIN,
			Note:        req.Note,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Purchase successful", "transaction": entry})
	}
}

// GetTransactionHistoryHandler returns the caller's ledger, newest first
func GetTransactionHistoryHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pageParams(c)
		result, cached, err := svc.History(c.Request.Context(), currentUserID(c), page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"transactions": result.Items,      // Ledger entries
			"page":         result.Page,       // Current page
			"page_size":    result.PageSize,   // Page size
			"total":        result.Total,      // Total entries
			"total_pages":  result.TotalPages, // Total pages
			"cached":       cached,            // Served from cache
		})
	}
}

// GetTransactionHandler returns one of the caller's ledger entries
func GetTransactionHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		entry, err := svc.GetTransaction(c.Request.Context(), id, currentUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

// ScanHandler resolves a scanned QR code to the buyer a cashier is serving
func ScanHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := svc.ResolveQR(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":      user.ID,
			"name":    user.Name,
			"status":  user.Status,
			"balance": user.Balance,
			"has_pin": user.HasPIN(),
		})
	}
}
