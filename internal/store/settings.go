package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundrylink-backend/internal/model"
)

// GetShopSettings returns the singleton row, or nil when it was never written.
func (s *gormStore) GetShopSettings(ctx context.Context) (*model.ShopSettings, error) {
	var settings model.ShopSettings
	err := s.db.WithContext(ctx).First(&settings, "id = ?", model.ShopSettingsKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load shop settings: %w", err)
	}
	return &settings, nil
}

// SetAcceptingReservations upserts the singleton shop settings row.
func (s *gormStore) SetAcceptingReservations(ctx context.Context, accepting bool, staffID string) (*model.ShopSettings, error) {
	settings := model.ShopSettings{
		ID:                    model.ShopSettingsKey,
		AcceptingReservations: accepting,
		UpdatedBy:             &staffID,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"accepting_reservations", "updated_by", "updated_at"}),
	}).Create(&settings).Error
	if err != nil {
		return nil, fmt.Errorf("upsert shop settings: %w", err)
	}
	return s.GetShopSettings(ctx)
}

// GetUserSettings returns a staff member's settings, or nil when none were saved.
func (s *gormStore) GetUserSettings(ctx context.Context, staffID string) (*model.UserSettings, error) {
	var settings model.UserSettings
	err := s.db.WithContext(ctx).First(&settings, "staff_id = ?", staffID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user settings for %s: %w", staffID, err)
	}
	return &settings, nil
}

// UpsertUserSettings creates or replaces a staff member's settings.
func (s *gormStore) UpsertUserSettings(ctx context.Context, settings *model.UserSettings) (*model.UserSettings, error) {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "staff_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"resend_api_key", "email_from_address",
			"pickup_email_subject", "pickup_email_message",
			"reservation_confirm_subject", "reservation_confirm_message",
			"updated_at",
		}),
	}).Create(settings).Error
	if err != nil {
		return nil, fmt.Errorf("upsert user settings for %s: %w", settings.StaffID, err)
	}
	return s.GetUserSettings(ctx, settings.StaffID)
}
