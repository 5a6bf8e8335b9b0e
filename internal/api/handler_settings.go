package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundrylink-backend/internal/model"
	"laundrylink-backend/internal/parse"
)

// GetSettings returns the staff member's email settings. The API key itself is never returned.
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.store.GetUserSettings(c.Request.Context(), staffID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if settings == nil {
		settings = &model.UserSettings{StaffID: staffID(c)}
	}
	c.JSON(http.StatusOK, gin.H{
		"settings":        settings,
		"hasResendApiKey": settings.ResendAPIKey != nil && *settings.ResendAPIKey != "",
		"emailConfigured": settings.EmailConfigured(),
	})
}

type settingsRequest struct {
	ResendAPIKey              string `json:"resendApiKey"`
	EmailFromAddress          string `json:"emailFromAddress"`
	PickupEmailSubject        string `json:"pickupEmailSubject"`
	PickupEmailMessage        string `json:"pickupEmailMessage"`
	ReservationConfirmSubject string `json:"reservationConfirmSubject"`
	ReservationConfirmMessage string `json:"reservationConfirmMessage"`
}

// SaveSettings creates or replaces the staff member's email settings.
func (h *Handler) SaveSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	settings, err := h.store.UpsertUserSettings(c.Request.Context(), &model.UserSettings{
		StaffID:                   staffID(c),
		ResendAPIKey:              parse.Optional(req.ResendAPIKey),
		EmailFromAddress:          parse.Optional(req.EmailFromAddress),
		PickupEmailSubject:        req.PickupEmailSubject,
		PickupEmailMessage:        req.PickupEmailMessage,
		ReservationConfirmSubject: req.ReservationConfirmSubject,
		ReservationConfirmMessage: req.ReservationConfirmMessage,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
}
