package model

import "time"

// ShopSettingsKey is the primary key of the singleton shop settings row.
const ShopSettingsKey = "shop-settings"

// ShopSettings describes whether new reservations are currently accepted.
type ShopSettings struct {
	ID                    string    `gorm:"primaryKey;size:32" json:"id"`
	AcceptingReservations bool      `gorm:"not null" json:"acceptingReservations"`
	UpdatedBy             *string   `gorm:"size:128" json:"updatedBy,omitempty"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// UserSettings holds a staff member's outbound email configuration.
type UserSettings struct {
	StaffID                   string    `gorm:"primaryKey;size:128" json:"staffId"`
	ResendAPIKey              *string   `json:"-"`
	EmailFromAddress          *string   `gorm:"size:256" json:"emailFromAddress,omitempty"`
	PickupEmailSubject        string    `json:"pickupEmailSubject"`
	PickupEmailMessage        string    `json:"pickupEmailMessage"`
	ReservationConfirmSubject string    `json:"reservationConfirmSubject"`
	ReservationConfirmMessage string    `json:"reservationConfirmMessage"`
	CreatedAt                 time.Time `json:"createdAt"`
	UpdatedAt                 time.Time `json:"updatedAt"`
}

// EmailConfigured reports whether an API key and sender address are both set.
func (s *UserSettings) EmailConfigured() bool {
	return s != nil &&
		s.ResendAPIKey != nil && *s.ResendAPIKey != "" &&
		s.EmailFromAddress != nil && *s.EmailFromAddress != ""
}
