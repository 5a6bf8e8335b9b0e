package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"laundrylink-backend/internal/intake"
	"laundrylink-backend/internal/model"
	"laundrylink-backend/internal/parse"
)

// SubmitReservation handles public reservation submissions.
func (h *Handler) SubmitReservation(c *gin.Context) {
	var req intake.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	req.IPAddress = h.clientIP(c)

	out, err := h.intake.Submit(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	if !out.Accepted() {
		body := gin.H{"error": out.Message(), "reason": out.Reason}
		if out.Conflict != nil {
			body["existingReservation"] = out.Conflict
		}
		c.JSON(statusForReason(out.Reason), body)
		return
	}

	h.evict(statsPath)
	c.JSON(statusForReason(out.Reason), gin.H{
		"success":     true,
		"reservation": out.Reservation,
		"reason":      out.Reason,
		"message":     out.Message(),
		"createdAt":   out.CreatedAt,
	})
}

// GetReservation returns one reservation by its public id.
func (h *Handler) GetReservation(c *gin.Context) {
	r, err := h.store.GetReservation(c.Request.Context(), c.Param("reservationId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservation": r})
}

// ListCustomerReservations returns a customer's open reservations by email.
func (h *Handler) ListCustomerReservations(c *gin.Context) {
	email := parse.Email(c.Query("email"))
	if email == "" {
		badRequest(c, "email is required")
		return
	}
	rs, err := h.store.ListReservationsByEmail(c.Request.Context(), email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": rs})
}

// GetShopStatus reports whether new reservations are accepted.
func (h *Handler) GetShopStatus(c *gin.Context) {
	settings, err := h.store.GetShopSettings(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	accepting := settings == nil || settings.AcceptingReservations
	message := "Shop is accepting reservations"
	if !accepting {
		message = "Shop is currently full and not accepting new reservations"
	}
	c.JSON(http.StatusOK, gin.H{"acceptingReservations": accepting, "message": message})
}

// GetReservationStats returns open reservation counts.
func (h *Handler) GetReservationStats(c *gin.Context) {
	stats, err := h.store.ReservationStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListReservations returns reservations for staff, optionally filtered by status.
func (h *Handler) ListReservations(c *gin.Context) {
	status := model.ReservationStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		badRequest(c, "invalid status")
		return
	}
	rs, err := h.store.ListReservations(c.Request.Context(), status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": rs})
}

type updateReservationRequest struct {
	Status model.ReservationStatus `json:"status" binding:"required"`
}

// UpdateReservation applies a staff status decision to a reservation.
func (h *Handler) UpdateReservation(c *gin.Context) {
	var req updateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}

	upd, err := h.lifecycle.SetReservationStatus(c.Request.Context(), staffID(c), c.Param("reservationId"), req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.evict(statsPath)
	body := gin.H{
		"success":     true,
		"reservation": upd.Reservation,
		"emailSent":   upd.EmailSent,
	}
	if upd.Order != nil {
		body["order"] = upd.Order
	}
	if upd.EmailError != "" {
		body["emailError"] = upd.EmailError
	}
	c.JSON(http.StatusOK, body)
}

type shopStatusRequest struct {
	AcceptingReservations *bool `json:"acceptingReservations" binding:"required"`
}

// UpdateShopStatus opens or closes the shop for new reservations.
func (h *Handler) UpdateShopStatus(c *gin.Context) {
	var req shopStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "acceptingReservations must be a boolean")
		return
	}
	settings, err := h.store.SetAcceptingReservations(c.Request.Context(), *req.AcceptingReservations, staffID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("shop status changed",
		zap.Bool("accepting", settings.AcceptingReservations),
		zap.String("staff_id", staffID(c)),
	)
	c.JSON(http.StatusOK, gin.H{"success": true, "acceptingReservations": settings.AcceptingReservations})
}
