package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"laundrylink-backend/internal/model"
)

// FindActiveBlacklistHits returns every active entry matching one of the channels.
// An empty ip is not matched.
func (s *gormStore) FindActiveBlacklistHits(ctx context.Context, email, phone, ip string) ([]model.BlacklistEntry, error) {
	channels := s.db.Where("type = ? AND value = ?", model.BlacklistEmail, email).
		Or("type = ? AND value = ?", model.BlacklistPhone, phone)
	if ip != "" {
		channels = channels.Or("type = ? AND value = ?", model.BlacklistIP, ip)
	}

	var hits []model.BlacklistEntry
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Where(channels).
		Find(&hits).Error
	if err != nil {
		return nil, fmt.Errorf("query blacklist: %w", err)
	}
	return hits, nil
}

// ListBlacklist returns the newest entries first.
func (s *gormStore) ListBlacklist(ctx context.Context, limit int) ([]model.BlacklistEntry, error) {
	var entries []model.BlacklistEntry
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list blacklist: %w", err)
	}
	return entries, nil
}

// UpsertBlacklistEntry inserts a rule or reactivates the existing (type, value) rule.
func (s *gormStore) UpsertBlacklistEntry(ctx context.Context, entry *model.BlacklistEntry) (*model.BlacklistEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Active = true

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}, {Name: "value"}},
		DoUpdates: clause.AssignmentColumns([]string{"active", "reason", "created_by", "updated_at"}),
	}).Create(entry).Error
	if err != nil {
		return nil, fmt.Errorf("upsert blacklist entry %s/%s: %w", entry.Type, entry.Value, err)
	}

	var stored model.BlacklistEntry
	if err := s.db.WithContext(ctx).First(&stored, "type = ? AND value = ?", entry.Type, entry.Value).Error; err != nil {
		return nil, translate(err)
	}
	return &stored, nil
}

// SetBlacklistActive toggles an entry by id.
func (s *gormStore) SetBlacklistActive(ctx context.Context, id string, active bool) (*model.BlacklistEntry, error) {
	res := s.db.WithContext(ctx).Model(&model.BlacklistEntry{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return nil, fmt.Errorf("update blacklist entry %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var entry model.BlacklistEntry
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}
