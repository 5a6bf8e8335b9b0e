package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"laundrylink-backend/internal/ids"
	"laundrylink-backend/internal/model"
	"laundrylink-backend/internal/store"
)

// Complete converts a CONFIRMED reservation into a new RECEIVED order owned by
// staffID. The order, its first history entry and the reservation link are
// written together. A reservation converts at most once.
func (s *Service) Complete(ctx context.Context, staffID, reservationID string) (*model.Order, error) {
	r, err := s.store.GetReservation(ctx, reservationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load reservation %s: %w", reservationID, err)
	}
	if r.Status == model.ReservationCompleted {
		return nil, ErrAlreadyCompleted
	}
	if !r.Status.CanTransitionTo(model.ReservationCompleted) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, model.ReservationCompleted)
	}

	now := s.clock.Now()
	var created *model.Order
	_, err = ids.Allocate(ctx, s.ids, ids.PrefixOrder, s.idAttempts, s.store.TrackIDExists,
		func(ctx context.Context, trackID string) error {
			o := &model.Order{
				ID:             uuid.NewString(),
				TrackID:        trackID,
				UserID:         staffID,
				CustomerName:   r.CustomerName,
				CustomerNumber: r.CustomerNumber,
				CustomerEmail:  r.CustomerEmail,
				Price:          decimal.Zero,
				Status:         model.OrderReceived,
				Notes:          r.SpecialInstructions,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			_, err := s.store.ConvertReservation(ctx, reservationID, o)
			switch {
			case errors.Is(err, store.ErrDuplicateKey):
				return ids.ErrTaken
			case err != nil:
				return err
			}
			created = o
			return nil
		})
	if errors.Is(err, store.ErrStaleStatus) {
		return nil, s.lostConversion(ctx, reservationID)
	}
	if err != nil {
		return nil, fmt.Errorf("convert reservation %s: %w", reservationID, err)
	}

	s.log.Info("reservation converted to order",
		zap.String("reservation_id", reservationID),
		zap.String("track_id", created.TrackID),
	)
	return created, nil
}

// lostConversion explains a conversion whose reservation left CONFIRMED
// between the read and the write.
func (s *Service) lostConversion(ctx context.Context, reservationID string) error {
	r, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("reload reservation %s: %w", reservationID, err)
	}
	if r.Status == model.ReservationCompleted {
		return ErrAlreadyCompleted
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, model.ReservationCompleted)
}

// ReservationUpdate is the result of a staff status change on a reservation.
type ReservationUpdate struct {
	Reservation *model.Reservation
	Order       *model.Order // set when the change completed the reservation
	Delivery
}

// SetReservationStatus applies a staff decision to a reservation. COMPLETED
// converts it to an order. CONFIRMED emails the customer when the staff member
// has email configured.
func (s *Service) SetReservationStatus(ctx context.Context, staffID, reservationID string, status model.ReservationStatus) (*ReservationUpdate, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	if status == model.ReservationCompleted {
		order, err := s.Complete(ctx, staffID, reservationID)
		if err != nil {
			return nil, err
		}
		r, err := s.store.GetReservation(ctx, reservationID)
		if err != nil {
			return nil, fmt.Errorf("reload reservation %s: %w", reservationID, err)
		}
		return &ReservationUpdate{Reservation: r, Order: order}, nil
	}

	current, err := s.store.GetReservation(ctx, reservationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load reservation %s: %w", reservationID, err)
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
	}

	updated, err := s.store.TransitionReservation(ctx, reservationID, current.Status, status)
	if errors.Is(err, store.ErrStaleStatus) {
		return nil, fmt.Errorf("%w: reservation %s changed concurrently", ErrInvalidTransition, reservationID)
	}
	if err != nil {
		return nil, fmt.Errorf("update reservation %s: %w", reservationID, err)
	}

	s.log.Info("reservation status changed",
		zap.String("reservation_id", reservationID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(status)),
	)

	result := &ReservationUpdate{Reservation: updated}
	if status == model.ReservationConfirmed {
		result.Delivery = s.notify(ctx, staffID, "reservation confirmed", func(settings *model.UserSettings) error {
			return s.notifier.SendReservationConfirmed(ctx, settings, updated)
		})
	}
	return result, nil
}
