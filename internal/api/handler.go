package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"laundrylink-backend/internal/intake"
	"laundrylink-backend/internal/lifecycle"
	"laundrylink-backend/internal/model"
	"laundrylink-backend/internal/mw"
	"laundrylink-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	intake    *intake.Pipeline
	lifecycle *lifecycle.Service
	cache     *cache.Cache
	clientIP  func(*gin.Context) string
	webpush   *webpush.Options
	log       *zap.Logger
}

// Deps lists what the handlers are built from.
type Deps struct {
	Store     store.Store
	Intake    *intake.Pipeline
	Lifecycle *lifecycle.Service
	Cache     *cache.Cache
	ClientIP  func(*gin.Context) string
	WebPush   *webpush.Options
	Log       *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	clientIP := d.ClientIP
	if clientIP == nil {
		clientIP = func(c *gin.Context) string { return c.ClientIP() }
	}
	return &Handler{
		store:     d.Store,
		intake:    d.Intake,
		lifecycle: d.Lifecycle,
		cache:     d.Cache,
		clientIP:  clientIP,
		webpush:   d.WebPush,
		log:       log,
	}
}

const statsPath = "/api/reservations/stats"

func trackPath(trackID string) string {
	return "/api/track/" + trackID
}

// evict drops cached public responses made stale by a write.
func (h *Handler) evict(paths ...string) {
	if h.cache != nil {
		mw.Evict(h.cache, paths...)
	}
}

func staffID(c *gin.Context) string {
	return mw.StaffID(c)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// fail maps service and store errors onto HTTP responses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, lifecycle.ErrReservationNotFound), errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, lifecycle.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to update this order"})
	case errors.Is(err, lifecycle.ErrPriceRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid price is required when marking order ready for pickup"})
	case errors.Is(err, lifecycle.ErrInvalidTransition), errors.Is(err, lifecycle.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrAlreadyCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": "Reservation already completed"})
	default:
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// statusForReason maps an intake outcome onto an HTTP status.
func statusForReason(reason model.AttemptReason) int {
	switch reason {
	case model.ReasonOK, model.ReasonOKFlagged:
		return http.StatusCreated
	case model.ReasonMissingRequiredFields, model.ReasonInvalidFields:
		return http.StatusBadRequest
	case model.ReasonShopClosed, model.ReasonBlacklistEmail, model.ReasonBlacklistPhone, model.ReasonBlacklistIP:
		return http.StatusForbidden
	case model.ReasonRateLimit24h:
		return http.StatusTooManyRequests
	case model.ReasonDuplicateSubmission:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
