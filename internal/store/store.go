package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"laundrylink-backend/internal/model"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when an insert violates a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrStaleStatus is returned when a conditional status update matched no row
	// because the record moved on since it was read.
	ErrStaleStatus = errors.New("status changed concurrently")
)

// DuplicateQuery describes a submission to compare against recent reservations.
type DuplicateQuery struct {
	Email       string
	Phone       string
	DropoffDate time.Time
	DropoffTime string
	Since       time.Time
}

// ReservationStats summarizes open reservations.
type ReservationStats struct {
	Pending   int64 `json:"pendingCount"`
	Confirmed int64 `json:"confirmedCount"`
	Active    int64 `json:"activeCount"`
	Flagged   int64 `json:"flaggedCount"`
}

// Store defines the interface for all database operations.
type Store interface {
	GetShopSettings(ctx context.Context) (*model.ShopSettings, error)
	SetAcceptingReservations(ctx context.Context, accepting bool, staffID string) (*model.ShopSettings, error)
	GetUserSettings(ctx context.Context, staffID string) (*model.UserSettings, error)
	UpsertUserSettings(ctx context.Context, settings *model.UserSettings) (*model.UserSettings, error)

	FindActiveBlacklistHits(ctx context.Context, email, phone, ip string) ([]model.BlacklistEntry, error)
	ListBlacklist(ctx context.Context, limit int) ([]model.BlacklistEntry, error)
	UpsertBlacklistEntry(ctx context.Context, entry *model.BlacklistEntry) (*model.BlacklistEntry, error)
	SetBlacklistActive(ctx context.Context, id string, active bool) (*model.BlacklistEntry, error)

	CountReservationsByContactSince(ctx context.Context, email, phone string, since time.Time) (int64, error)
	FindRecentDuplicate(ctx context.Context, q DuplicateQuery) (*model.Reservation, error)
	ReservationIDExists(ctx context.Context, reservationID string) (bool, error)
	CreateReservation(ctx context.Context, r *model.Reservation, attempt *model.ReservationAttempt) error
	GetReservation(ctx context.Context, reservationID string) (*model.Reservation, error)
	ListReservationsByEmail(ctx context.Context, email string) ([]model.Reservation, error)
	ListReservations(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error)
	TransitionReservation(ctx context.Context, reservationID string, from, to model.ReservationStatus) (*model.Reservation, error)
	ReservationStats(ctx context.Context) (ReservationStats, error)

	CreateAttempt(ctx context.Context, attempt *model.ReservationAttempt) error
	CountAttemptsFromIPSince(ctx context.Context, ip string, since time.Time) (int64, error)

	TrackIDExists(ctx context.Context, trackID string) (bool, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	GetOrderByTrackID(ctx context.Context, trackID string) (*model.Order, error)
	ListOrders(ctx context.Context, staffID string, limit int) ([]model.Order, error)
	CreateOrder(ctx context.Context, o *model.Order) error
	AdvanceOrder(ctx context.Context, id string, from, to model.OrderStatus, price *decimal.Decimal, at time.Time) (*model.Order, error)
	ConvertReservation(ctx context.Context, reservationID string, o *model.Order) (*model.Reservation, error)

	UpsertPushSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeletePushSubscription(ctx context.Context, endpoint string) error
	ListPushSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// translate maps driver errors onto the store's sentinel errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return errors.Join(ErrDuplicateKey, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
