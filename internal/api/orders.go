package api

import (
	"net/http"

	"canteen_system/internal/domain"
	"canteen_system/internal/service"

	"github.com/gin-gonic/gin"
)

func CreateOrderHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.OrderInput
		if !bindJSON(c, &req) {
			return
		}
		order, err := svc.CreateOrder(c.Request.Context(), currentUserID(c), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

// ownerScope is 0 for admins, who see every order, and the caller otherwise
func ownerScope(c *gin.Context) uint {
	if currentRole(c) == domain.RoleAdmin {
		return 0
	}
	return currentUserID(c)
}

// ListOrdersHandler lists the caller's orders, or every order for admins
func ListOrdersHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pageParams(c)
		result, err := svc.ListOrders(c.Request.Context(), service.OrderFilter{
			RequestedBy: ownerScope(c),
			Status:      domain.OrderStatus(c.Query("status")),
			Page:        page,
			PageSize:    pageSize,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func GetOrderHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		order, err := svc.GetOrder(c.Request.Context(), id, ownerScope(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

type ReviewRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Note    string `json:"note"`
}

func ReviewOrderHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req ReviewRequest
		if !bindJSON(c, &req) {
			return
		}
		order, err := svc.ReviewOrder(c.Request.Context(), id, *req.Approve, currentUserID(c), req.Note)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

type DispatchRequest struct {
	TruckID uint `json:"truck_id" binding:"required"`
}

func DispatchOrderHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req DispatchRequest
		if !bindJSON(c, &req) {
			return
		}
		order, err := svc.DispatchOrder(c.Request.Context(), id, req.TruckID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func DeliverOrderHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		order, err := svc.DeliverOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func DashboardHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := svc.Dashboard(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}
