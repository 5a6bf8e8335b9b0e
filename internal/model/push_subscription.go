package model

import "time"

// PushSubscription holds a staff browser's web push subscription used for reservation alerts.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	StaffID   string    `gorm:"size:128;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}
