// Package lifecycle moves orders through their forward-only status sequence
// and turns confirmed reservations into orders.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"laundrylink-backend/internal/clock"
	"laundrylink-backend/internal/ids"
	"laundrylink-backend/internal/model"
	"laundrylink-backend/internal/notification"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrForbidden           = errors.New("you do not have permission to update this order")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrPriceRequired       = errors.New("valid price is required when marking order ready for pickup")
	ErrAlreadyCompleted    = errors.New("reservation already completed")
	ErrInvalidInput        = errors.New("invalid input")
)

const defaultIDAttempts = 8

// Store is the persistence the service needs.
type Store interface {
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	AdvanceOrder(ctx context.Context, id string, from, to model.OrderStatus, price *decimal.Decimal, at time.Time) (*model.Order, error)
	TrackIDExists(ctx context.Context, trackID string) (bool, error)
	CreateOrder(ctx context.Context, o *model.Order) error
	GetReservation(ctx context.Context, reservationID string) (*model.Reservation, error)
	TransitionReservation(ctx context.Context, reservationID string, from, to model.ReservationStatus) (*model.Reservation, error)
	ConvertReservation(ctx context.Context, reservationID string, o *model.Order) (*model.Reservation, error)
	GetUserSettings(ctx context.Context, staffID string) (*model.UserSettings, error)
}

// Notifier delivers customer email on behalf of a staff member.
type Notifier interface {
	SendPickup(ctx context.Context, settings *model.UserSettings, n notification.PickupNotice) error
	SendReservationConfirmed(ctx context.Context, settings *model.UserSettings, r *model.Reservation) error
	SendOrderPlaced(ctx context.Context, settings *model.UserSettings, o *model.Order, trackURL string) error
}

// Delivery reports what happened to the customer email of an operation.
// A failed delivery never undoes the operation itself.
type Delivery struct {
	EmailSent  bool   `json:"emailSent"`
	EmailError string `json:"emailError,omitempty"`
}

// Service implements the staff-side order and reservation operations.
type Service struct {
	store      Store
	notifier   Notifier
	ids        ids.Generator
	clock      clock.Clock
	log        *zap.Logger
	publicURL  string
	idAttempts int
}

// NewService creates a Service. publicURL is the customer facing site used in tracking links.
func NewService(s Store, notifier Notifier, gen ids.Generator, clk clock.Clock, log *zap.Logger, publicURL string, idAttempts int) *Service {
	if idAttempts <= 0 {
		idAttempts = defaultIDAttempts
	}
	return &Service{
		store:      s,
		notifier:   notifier,
		ids:        gen,
		clock:      clk,
		log:        log,
		publicURL:  publicURL,
		idAttempts: idAttempts,
	}
}

// TrackURL returns the public tracking page of an order.
func (s *Service) TrackURL(trackID string) string {
	return s.publicURL + "/track/" + trackID
}

// notify runs send with the staff member's email settings. Missing settings are
// a silent skip; any other failure is logged and reported on the Delivery.
func (s *Service) notify(ctx context.Context, staffID, what string, send func(*model.UserSettings) error) Delivery {
	settings, err := s.store.GetUserSettings(ctx, staffID)
	if err != nil {
		s.log.Warn("failed to load email settings", zap.String("staff_id", staffID), zap.Error(err))
		return Delivery{EmailError: err.Error()}
	}
	if !settings.EmailConfigured() {
		s.log.Debug("email settings not configured, skipping", zap.String("staff_id", staffID), zap.String("email", what))
		return Delivery{}
	}

	if err := send(settings); err != nil {
		if errors.Is(err, notification.ErrNotConfigured) {
			return Delivery{}
		}
		s.log.Warn("failed to send email", zap.String("email", what), zap.Error(err))
		return Delivery{EmailError: err.Error()}
	}
	return Delivery{EmailSent: true}
}
