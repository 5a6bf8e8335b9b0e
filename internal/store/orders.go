package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"laundrylink-backend/internal/model"
)

func withHistory(db *gorm.DB) *gorm.DB {
	return db.Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
		return db.Order("timestamp ASC, id ASC")
	})
}

// TrackIDExists reports whether the tracking id is in use.
func (s *gormStore) TrackIDExists(ctx context.Context, trackID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Order{}).Where("track_id = ?", trackID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check track id: %w", err)
	}
	return count > 0, nil
}

// GetOrder loads an order and its history by primary key.
func (s *gormStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var o model.Order
	if err := withHistory(s.db.WithContext(ctx)).First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

// GetOrderByTrackID loads an order and its history by tracking id.
func (s *gormStore) GetOrderByTrackID(ctx context.Context, trackID string) (*model.Order, error) {
	var o model.Order
	if err := withHistory(s.db.WithContext(ctx)).First(&o, "track_id = ?", trackID).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

// ListOrders returns a staff member's newest orders.
func (s *gormStore) ListOrders(ctx context.Context, staffID string, limit int) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).
		Where("user_id = ?", staffID).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders for %s: %w", staffID, err)
	}
	return orders, nil
}

// CreateOrder inserts the order together with its initial history entry.
func (s *gormStore) CreateOrder(ctx context.Context, o *model.Order) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createOrderTx(tx, o)
	})
}

func createOrderTx(tx *gorm.DB, o *model.Order) error {
	history := o.StatusHistory
	o.StatusHistory = nil
	if err := tx.Omit("StatusHistory").Create(o).Error; err != nil {
		return fmt.Errorf("failed to create order %s: %w", o.TrackID, translate(err))
	}

	entry := model.OrderStatusHistory{OrderID: o.ID, Status: o.Status, Timestamp: o.CreatedAt}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to create initial history for order %s: %w", o.TrackID, err)
	}
	o.StatusHistory = append(history[:0:0], entry)
	return nil
}

// AdvanceOrder moves an order from one status to the next and appends the history
// entry in the same transaction. The price is written only when non-nil.
func (s *gormStore) AdvanceOrder(ctx context.Context, id string, from, to model.OrderStatus, price *decimal.Decimal, at time.Time) (*model.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"status": to, "updated_at": at}
		if price != nil {
			updates["price"] = *price
		}

		res := tx.Model(&model.Order{}).Where("id = ? AND status = ?", id, from).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update order %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}

		entry := model.OrderStatusHistory{OrderID: id, Status: to, Timestamp: at}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("append history for order %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id)
}

// ConvertReservation creates the order with its initial history and marks the
// CONFIRMED reservation COMPLETED with a link to it, all in one transaction.
func (s *gormStore) ConvertReservation(ctx context.Context, reservationID string, o *model.Order) (*model.Reservation, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createOrderTx(tx, o); err != nil {
			return err
		}

		res := tx.Model(&model.Reservation{}).
			Where("reservation_id = ? AND status = ?", reservationID, model.ReservationConfirmed).
			Updates(map[string]any{"status": model.ReservationCompleted, "order_id": o.ID})
		if res.Error != nil {
			return fmt.Errorf("complete reservation %s: %w", reservationID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetReservation(ctx, reservationID)
}
