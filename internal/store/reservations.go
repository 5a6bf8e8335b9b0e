package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"laundrylink-backend/internal/model"
)

// CountReservationsByContactSince counts reservations created at or after since
// whose email or phone matches.
func (s *gormStore) CountReservationsByContactSince(ctx context.Context, email, phone string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("created_at >= ?", since).
		Where(s.db.Where("customer_email = ?", email).Or("customer_number = ?", phone)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count recent reservations: %w", err)
	}
	return count, nil
}

// FindRecentDuplicate returns the newest reservation with the same contact and slot
// created at or after q.Since, or nil.
func (s *gormStore) FindRecentDuplicate(ctx context.Context, q DuplicateQuery) (*model.Reservation, error) {
	var r model.Reservation
	err := s.db.WithContext(ctx).
		Where("customer_email = ? AND customer_number = ?", q.Email, q.Phone).
		Where("dropoff_date = ? AND dropoff_time = ?", q.DropoffDate, q.DropoffTime).
		Where("created_at >= ?", q.Since).
		Order("created_at DESC").
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query duplicate reservation: %w", err)
	}
	return &r, nil
}

// ReservationIDExists reports whether the external reservation id is in use.
func (s *gormStore) ReservationIDExists(ctx context.Context, reservationID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("reservation_id = ?", reservationID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check reservation id: %w", err)
	}
	return count > 0, nil
}

// CreateReservation inserts the reservation and its audit attempt atomically.
func (s *gormStore) CreateReservation(ctx context.Context, r *model.Reservation, attempt *model.ReservationAttempt) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(r).Error; err != nil {
			return fmt.Errorf("failed to create reservation %s: %w", r.ReservationID, translate(err))
		}
		if attempt != nil {
			if err := tx.Create(attempt).Error; err != nil {
				return fmt.Errorf("failed to record attempt for %s: %w", r.ReservationID, err)
			}
		}
		return nil
	})
}

// GetReservation loads a reservation by its external id.
func (s *gormStore) GetReservation(ctx context.Context, reservationID string) (*model.Reservation, error) {
	var r model.Reservation
	if err := s.db.WithContext(ctx).First(&r, "reservation_id = ?", reservationID).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// ListReservationsByEmail returns a customer's open reservations, earliest drop-off first.
func (s *gormStore) ListReservationsByEmail(ctx context.Context, email string) ([]model.Reservation, error) {
	var rs []model.Reservation
	err := s.db.WithContext(ctx).
		Where("customer_email = ?", email).
		Where("status IN ?", []model.ReservationStatus{model.ReservationPending, model.ReservationConfirmed}).
		Order("dropoff_date ASC").
		Find(&rs).Error
	if err != nil {
		return nil, fmt.Errorf("list reservations by email: %w", err)
	}
	return rs, nil
}

// ListReservations returns reservations by drop-off date, optionally filtered by status.
func (s *gormStore) ListReservations(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error) {
	q := s.db.WithContext(ctx).Order("dropoff_date ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rs []model.Reservation
	if err := q.Find(&rs).Error; err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return rs, nil
}

// TransitionReservation moves a reservation from one status to another, only if it
// is still in from.
func (s *gormStore) TransitionReservation(ctx context.Context, reservationID string, from, to model.ReservationStatus) (*model.Reservation, error) {
	res := s.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("reservation_id = ? AND status = ?", reservationID, from).
		Update("status", to)
	if res.Error != nil {
		return nil, fmt.Errorf("update reservation %s: %w", reservationID, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetReservation(ctx, reservationID); err != nil {
			return nil, err
		}
		return nil, ErrStaleStatus
	}
	return s.GetReservation(ctx, reservationID)
}

// ReservationStats counts open reservations by status.
func (s *gormStore) ReservationStats(ctx context.Context) (ReservationStats, error) {
	var stats ReservationStats
	count := func(dst *int64, query string, args ...any) error {
		return s.db.WithContext(ctx).Model(&model.Reservation{}).Where(query, args...).Count(dst).Error
	}

	if err := count(&stats.Pending, "status = ?", model.ReservationPending); err != nil {
		return stats, fmt.Errorf("count pending reservations: %w", err)
	}
	if err := count(&stats.Confirmed, "status = ?", model.ReservationConfirmed); err != nil {
		return stats, fmt.Errorf("count confirmed reservations: %w", err)
	}
	if err := count(&stats.Flagged, "status = ? AND is_flagged = ?", model.ReservationPending, true); err != nil {
		return stats, fmt.Errorf("count flagged reservations: %w", err)
	}
	stats.Active = stats.Pending + stats.Confirmed
	return stats, nil
}

// CreateAttempt appends one audit record.
func (s *gormStore) CreateAttempt(ctx context.Context, attempt *model.ReservationAttempt) error {
	if err := s.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to record reservation attempt: %w", err)
	}
	return nil
}

// CountAttemptsFromIPSince counts audit records from ip created at or after since.
func (s *gormStore) CountAttemptsFromIPSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ReservationAttempt{}).
		Where("ip_address = ? AND created_at >= ?", ip, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count attempts from %s: %w", ip, err)
	}
	return count, nil
}
