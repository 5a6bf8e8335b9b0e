package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"laundrylink-backend/internal/lifecycle"
	"laundrylink-backend/internal/model"
)

const orderListLimit = 100

// TrackOrder returns an order and its status history by tracking id.
func (h *Handler) TrackOrder(c *gin.Context) {
	o, err := h.store.GetOrderByTrackID(c.Request.Context(), c.Param("trackId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

// CreateOrder records a walk-in order for the authenticated staff member.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req lifecycle.NewOrder
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	res, err := h.lifecycle.CreateOrder(c.Request.Context(), staffID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	body := gin.H{
		"success":   true,
		"order":     res.Order,
		"trackUrl":  h.lifecycle.TrackURL(res.Order.TrackID),
		"emailSent": res.EmailSent,
	}
	if res.EmailError != "" {
		body["emailError"] = res.EmailError
	}
	c.JSON(http.StatusCreated, body)
}

// ListOrders returns the authenticated staff member's newest orders.
func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.store.ListOrders(c.Request.Context(), staffID(c), orderListLimit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type updateStatusRequest struct {
	OrderID string            `json:"orderId" binding:"required"`
	Status  model.OrderStatus `json:"status" binding:"required"`
	Price   *decimal.Decimal  `json:"price"`
}

// UpdateOrderStatus advances an order to its next status.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Order ID and status are required")
		return
	}
	if !req.Status.Valid() {
		badRequest(c, "Invalid status")
		return
	}

	res, err := h.lifecycle.Advance(c.Request.Context(), staffID(c), req.OrderID, req.Status, req.Price)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.evict(trackPath(res.Order.TrackID))

	body := gin.H{
		"success":   true,
		"order":     res.Order,
		"message":   "Order status updated successfully",
		"emailSent": res.EmailSent,
	}
	if res.EmailError != "" {
		body["message"] = "Order status updated successfully, but email notification failed to send"
		body["emailError"] = res.EmailError
	}
	c.JSON(http.StatusOK, body)
}
