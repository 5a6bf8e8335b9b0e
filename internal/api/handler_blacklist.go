package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundrylink-backend/internal/model"
	"laundrylink-backend/internal/parse"
)

const blacklistListLimit = 200

// ListBlacklist returns the newest blacklist entries.
func (h *Handler) ListBlacklist(c *gin.Context) {
	entries, err := h.store.ListBlacklist(c.Request.Context(), blacklistListLimit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type blacklistRequest struct {
	Type   model.BlacklistType `json:"type" binding:"required"`
	Value  string              `json:"value" binding:"required"`
	Reason string              `json:"reason"`
}

// AddBlacklistEntry blocks a contact channel, reactivating an existing entry.
func (h *Handler) AddBlacklistEntry(c *gin.Context) {
	var req blacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Type.Valid() {
		badRequest(c, "Type and value are required")
		return
	}

	value := normalizeBlacklistValue(req.Type, req.Value)
	if value == "" {
		badRequest(c, "Invalid value")
		return
	}

	entry, err := h.store.UpsertBlacklistEntry(c.Request.Context(), &model.BlacklistEntry{
		Type:      req.Type,
		Value:     value,
		Reason:    parse.Optional(req.Reason),
		CreatedBy: staffID(c),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "entry": entry})
}

type toggleBlacklistRequest struct {
	ID     string `json:"id" binding:"required"`
	Active *bool  `json:"active" binding:"required"`
}

// ToggleBlacklistEntry switches an entry on or off.
func (h *Handler) ToggleBlacklistEntry(c *gin.Context) {
	var req toggleBlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "id and active are required")
		return
	}
	entry, err := h.store.SetBlacklistActive(c.Request.Context(), req.ID, *req.Active)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "entry": entry})
}

// normalizeBlacklistValue stores values in the same form intake compares them.
func normalizeBlacklistValue(t model.BlacklistType, raw string) string {
	switch t {
	case model.BlacklistEmail:
		return parse.Email(raw)
	case model.BlacklistPhone:
		return parse.Phone(raw)
	case model.BlacklistIP:
		return parse.IP(raw)
	}
	return ""
}
