package model

import "time"

// ReservationStatus is the lifecycle state of a drop-off booking.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationCompleted ReservationStatus = "COMPLETED"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:   {ReservationConfirmed, ReservationCancelled},
	ReservationConfirmed: {ReservationCompleted, ReservationCancelled},
}

// Valid reports whether s is one of the known statuses.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationCancelled, ReservationCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s ReservationStatus) Terminal() bool {
	return len(reservationTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to target is legal.
func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	for _, next := range reservationTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Reservation is a customer's request to drop off laundry at a future date.
type Reservation struct {
	ID                  string            `gorm:"primaryKey;size:36" json:"id"`
	ReservationID       string            `gorm:"uniqueIndex;size:64;not null" json:"reservationId"`
	CustomerName        string            `gorm:"size:256;not null" json:"customerName"`
	CustomerNumber      string            `gorm:"size:64;not null;index" json:"customerNumber"`
	CustomerEmail       string            `gorm:"size:256;not null;index" json:"customerEmail"`
	IPAddress           *string           `gorm:"size:64" json:"ipAddress,omitempty"`
	DropoffDate         time.Time         `gorm:"not null" json:"dropoffDate"`
	DropoffTime         string            `gorm:"size:64;not null" json:"dropoffTime"`
	SpecialInstructions *string           `json:"specialInstructions,omitempty"`
	Status              ReservationStatus `gorm:"size:16;not null;index" json:"status"`
	IsFlagged           bool              `gorm:"not null;default:false" json:"isFlagged"`
	FlagReason          *string           `gorm:"size:64" json:"flagReason,omitempty"`
	OrderID             *string           `gorm:"size:36;uniqueIndex" json:"orderId,omitempty"`
	CreatedAt           time.Time         `gorm:"not null;index" json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}
