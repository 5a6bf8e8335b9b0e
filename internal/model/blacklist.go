package model

import "time"

// BlacklistType names the contact channel a blacklist entry blocks.
type BlacklistType string

const (
	BlacklistEmail BlacklistType = "EMAIL"
	BlacklistPhone BlacklistType = "PHONE"
	BlacklistIP    BlacklistType = "IP"
)

// Valid reports whether t is a known channel.
func (t BlacklistType) Valid() bool {
	return t == BlacklistEmail || t == BlacklistPhone || t == BlacklistIP
}

// Reason returns the intake rejection code for a hit on this channel.
func (t BlacklistType) Reason() AttemptReason {
	return AttemptReason("BLACKLIST_" + string(t))
}

// BlacklistEntry blocks new reservations from a contact channel.
type BlacklistEntry struct {
	ID        string        `gorm:"primaryKey;size:36" json:"id"`
	Type      BlacklistType `gorm:"size:16;not null;uniqueIndex:idx_blacklist_type_value" json:"type"`
	Value     string        `gorm:"size:256;not null;uniqueIndex:idx_blacklist_type_value" json:"value"`
	Active    bool          `gorm:"not null" json:"active"`
	Reason    *string       `json:"reason,omitempty"`
	CreatedBy string        `gorm:"size:128" json:"createdBy"`
	CreatedAt time.Time     `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
