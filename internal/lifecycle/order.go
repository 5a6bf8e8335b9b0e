package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"laundrylink-backend/internal/ids"
	"laundrylink-backend/internal/model"
	"laundrylink-backend/internal/notification"
	"laundrylink-backend/internal/parse"
	"laundrylink-backend/internal/store"
)

// AdvanceResult is a committed status change plus the outcome of its email.
type AdvanceResult struct {
	Order *model.Order
	Delivery
}

// Advance moves an order owned by staffID to target, which must be the order's
// single next status. Entering PICKUP requires a positive price, rounded to two
// decimals and stored with the status. The pickup email is sent after commit;
// its failure is reported on the result and does not undo the transition.
func (s *Service) Advance(ctx context.Context, staffID, orderID string, target model.OrderStatus, price *decimal.Decimal) (*AdvanceResult, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order.UserID != staffID {
		return nil, ErrForbidden
	}

	next, ok := order.Status.Next()
	if !ok || next != target {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, target)
	}

	var newPrice *decimal.Decimal
	if target.RequiresPrice() {
		if price == nil || !price.IsPositive() {
			return nil, ErrPriceRequired
		}
		rounded := price.Round(2)
		if !rounded.IsPositive() {
			return nil, ErrPriceRequired
		}
		newPrice = &rounded
	}

	updated, err := s.store.AdvanceOrder(ctx, order.ID, order.Status, target, newPrice, s.clock.Now())
	if errors.Is(err, store.ErrStaleStatus) {
		return nil, fmt.Errorf("%w: order %s changed concurrently", ErrInvalidTransition, order.TrackID)
	}
	if err != nil {
		return nil, fmt.Errorf("advance order %s: %w", order.TrackID, err)
	}

	s.log.Info("order advanced",
		zap.String("track_id", updated.TrackID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(target)),
	)

	result := &AdvanceResult{Order: updated}
	if target == model.OrderPickup {
		result.Delivery = s.notify(ctx, staffID, "pickup", func(settings *model.UserSettings) error {
			return s.notifier.SendPickup(ctx, settings, notification.PickupNotice{
				CustomerName:  updated.CustomerName,
				CustomerEmail: updated.CustomerEmail,
				TrackID:       updated.TrackID,
				Price:         updated.Price,
				TrackURL:      s.TrackURL(updated.TrackID),
			})
		})
	}
	return result, nil
}

// NewOrder is a walk-in order entered by staff.
type NewOrder struct {
	CustomerName   string           `json:"customerName"`
	CustomerNumber string           `json:"customerNumber"`
	CustomerEmail  string           `json:"customerEmail"`
	Price          *decimal.Decimal `json:"price"`
	Notes          string           `json:"notes"`
	SendEmail      bool             `json:"sendEmail"`
}

// CreateResult is a created order plus the outcome of its optional email.
type CreateResult struct {
	Order *model.Order
	Delivery
}

// CreateOrder records a new order in RECEIVED with its initial history entry.
func (s *Service) CreateOrder(ctx context.Context, staffID string, in NewOrder) (*CreateResult, error) {
	name := parse.Text(in.CustomerName)
	phone := parse.Phone(in.CustomerNumber)
	email := parse.Email(in.CustomerEmail)
	if name == "" || phone == "" || email == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrInvalidInput)
	}
	price := decimal.Zero
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
		}
		price = in.Price.Round(2)
	}

	now := s.clock.Now()
	var created *model.Order
	_, err := ids.Allocate(ctx, s.ids, ids.PrefixOrder, s.idAttempts, s.store.TrackIDExists,
		func(ctx context.Context, trackID string) error {
			o := &model.Order{
				ID:             uuid.NewString(),
				TrackID:        trackID,
				UserID:         staffID,
				CustomerName:   name,
				CustomerNumber: phone,
				CustomerEmail:  email,
				Price:          price,
				Status:         model.OrderReceived,
				Notes:          parse.Optional(in.Notes),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := s.store.CreateOrder(ctx, o); err != nil {
				if errors.Is(err, store.ErrDuplicateKey) {
					return ids.ErrTaken
				}
				return err
			}
			created = o
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.log.Info("order created", zap.String("track_id", created.TrackID), zap.String("staff_id", staffID))

	result := &CreateResult{Order: created}
	if in.SendEmail {
		result.Delivery = s.notify(ctx, staffID, "order placed", func(settings *model.UserSettings) error {
			return s.notifier.SendOrderPlaced(ctx, settings, created, s.TrackURL(created.TrackID))
		})
	}
	return result, nil
}
