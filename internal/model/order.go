package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is a position in the forward-only order lifecycle.
type OrderStatus string

const (
	OrderReceived   OrderStatus = "RECEIVED"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderPickup     OrderStatus = "PICKUP"
	OrderComplete   OrderStatus = "COMPLETE"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderReceived, OrderInProgress, OrderPickup, OrderComplete:
		return true
	}
	return false
}

// Next returns the single legal successor of s. COMPLETE and unknown values have none.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case OrderReceived:
		return OrderInProgress, true
	case OrderInProgress:
		return OrderPickup, true
	case OrderPickup:
		return OrderComplete, true
	}
	return "", false
}

// RequiresPrice reports whether entering s needs a positive price on the order.
func (s OrderStatus) RequiresPrice() bool {
	return s == OrderPickup
}

// Order is a unit of laundry work tracked from intake to completion.
type Order struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	TrackID        string          `gorm:"uniqueIndex;size:64;not null" json:"trackId"`
	UserID         string          `gorm:"size:128;not null;index" json:"userId"`
	CustomerName   string          `gorm:"size:256;not null" json:"customerName"`
	CustomerNumber string          `gorm:"size:64;not null" json:"customerNumber"`
	CustomerEmail  string          `gorm:"size:256;not null" json:"customerEmail"`
	Price          decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Status         OrderStatus     `gorm:"size:16;not null;index" json:"status"`
	Notes          *string         `json:"notes,omitempty"`
	CreatedAt      time.Time       `gorm:"not null;index" json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`

	// Associations
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"statusHistory,omitempty"`
}

// OrderStatusHistory is one immutable entry of an order's status trail.
type OrderStatusHistory struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   string      `gorm:"size:36;not null;index" json:"orderId"`
	Status    OrderStatus `gorm:"size:16;not null" json:"status"`
	Timestamp time.Time   `gorm:"not null;index" json:"timestamp"`
}
