// Package intake accepts or rejects public reservation submissions and keeps
// an audit trail of every attempt.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"laundrylink-backend/internal/abuse"
	"laundrylink-backend/internal/clock"
	"laundrylink-backend/internal/ids"
	"laundrylink-backend/internal/model"
	"laundrylink-backend/internal/parse"
	"laundrylink-backend/internal/store"
)

const defaultIDAttempts = 8

// Store is the persistence the pipeline needs.
type Store interface {
	abuse.Reader
	GetShopSettings(ctx context.Context) (*model.ShopSettings, error)
	ReservationIDExists(ctx context.Context, reservationID string) (bool, error)
	CreateReservation(ctx context.Context, r *model.Reservation, attempt *model.ReservationAttempt) error
	CreateAttempt(ctx context.Context, attempt *model.ReservationAttempt) error
}

// Alerter is told about every accepted reservation. It must not block.
type Alerter interface {
	NewReservation(r *model.Reservation)
}

// Request is a raw public submission.
type Request struct {
	CustomerName        string `json:"customerName"`
	CustomerNumber      string `json:"customerNumber"`
	CustomerEmail       string `json:"customerEmail"`
	DropoffDate         string `json:"dropoffDate"`
	DropoffTime         string `json:"dropoffTime"`
	SpecialInstructions string `json:"specialInstructions"`

	// IPAddress is filled in by the transport, never from the body.
	IPAddress string `json:"-"`
}

// Outcome is the result of one submission.
type Outcome struct {
	Reason      model.AttemptReason
	Reservation *model.Reservation // set when accepted
	Conflict    *model.Reservation // set on DUPLICATE_SUBMISSION
	CreatedAt   time.Time
}

// Accepted reports whether a reservation was created.
func (o Outcome) Accepted() bool {
	return o.Reason.Accepted()
}

// Message returns the customer facing text for the outcome.
func (o Outcome) Message() string {
	return Message(o.Reason)
}

// Message returns the customer facing text for reason.
func Message(reason model.AttemptReason) string {
	switch reason {
	case model.ReasonMissingRequiredFields:
		return "Missing required fields"
	case model.ReasonInvalidFields:
		return "Invalid dropoff date"
	case model.ReasonShopClosed:
		return "Sorry, we are currently at full capacity and not accepting new reservations. Please try again later."
	case model.ReasonBlacklistEmail, model.ReasonBlacklistPhone, model.ReasonBlacklistIP:
		return "You are not allowed to create a reservation at this time."
	case model.ReasonRateLimit24h:
		return "Only one reservation per phone number or email is allowed every 24 hours."
	case model.ReasonDuplicateSubmission:
		return "Duplicate reservation detected. A similar reservation was recently submitted."
	case model.ReasonOK:
		return "Reservation created successfully"
	case model.ReasonOKFlagged:
		return "Reservation created successfully and flagged for review."
	}
	return "Internal server error"
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithIDAttempts bounds how many reservation ids are tried before giving up.
func WithIDAttempts(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.idAttempts = n
		}
	}
}

// WithAlerter registers a staff alert for accepted reservations.
func WithAlerter(a Alerter) Option {
	return func(p *Pipeline) { p.alerter = a }
}

// Pipeline validates, filters and persists reservation submissions.
type Pipeline struct {
	store      Store
	filter     *abuse.Filter
	ids        ids.Generator
	clock      clock.Clock
	log        *zap.Logger
	idAttempts int
	alerter    Alerter
}

// NewPipeline creates a Pipeline.
func NewPipeline(s Store, filter *abuse.Filter, gen ids.Generator, clk clock.Clock, log *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      s,
		filter:     filter,
		ids:        gen,
		clock:      clk,
		log:        log,
		idAttempts: defaultIDAttempts,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type normalized struct {
	name         string
	phone        string
	email        string
	ip           *string
	dropoffDate  time.Time
	dropoffTime  string
	instructions *string
}

// Submit runs a submission through validation, the shop gate, the abuse filter
// and persistence. Every call records exactly one attempt. Rejections are
// returned as an Outcome with a nil error; the error is non-nil only when the
// store failed.
func (p *Pipeline) Submit(ctx context.Context, req Request) (Outcome, error) {
	startedAt := p.clock.Now()
	n := normalize(req)

	reject := func(reason model.AttemptReason) Outcome {
		p.recordAttempt(ctx, n, false, reason, startedAt)
		return Outcome{Reason: reason, CreatedAt: startedAt}
	}
	fail := func(err error) (Outcome, error) {
		p.recordAttempt(ctx, n, false, model.ReasonInternalError, startedAt)
		return Outcome{Reason: model.ReasonInternalError, CreatedAt: startedAt}, err
	}

	if n.name == "" || n.phone == "" || n.email == "" || strings.TrimSpace(req.DropoffDate) == "" || n.dropoffTime == "" {
		return reject(model.ReasonMissingRequiredFields), nil
	}
	date, err := parse.DropoffDate(req.DropoffDate)
	if err != nil {
		return reject(model.ReasonInvalidFields), nil
	}
	n.dropoffDate = date

	settings, err := p.store.GetShopSettings(ctx)
	if err != nil {
		return fail(fmt.Errorf("read shop settings: %w", err))
	}
	if settings != nil && !settings.AcceptingReservations {
		return reject(model.ReasonShopClosed), nil
	}

	sub := abuse.Submission{
		Email:       n.email,
		Phone:       n.phone,
		DropoffDate: n.dropoffDate,
		DropoffTime: n.dropoffTime,
	}
	if n.ip != nil {
		sub.IP = *n.ip
	}
	verdict, err := p.filter.Evaluate(ctx, sub)
	if err != nil {
		return fail(err)
	}
	if verdict.Rejected() {
		out := reject(verdict.Reason)
		out.Conflict = verdict.Conflict
		return out, nil
	}

	reason := model.ReasonOK
	if verdict.Flagged {
		reason = model.ReasonOKFlagged
	}

	var created *model.Reservation
	_, err = ids.Allocate(ctx, p.ids, ids.PrefixReservation, p.idAttempts,
		p.store.ReservationIDExists,
		func(ctx context.Context, id string) error {
			r := p.newReservation(n, id, verdict, startedAt)
			attempt := newAttempt(n, true, reason, startedAt)
			if err := p.store.CreateReservation(ctx, r, attempt); err != nil {
				if errors.Is(err, store.ErrDuplicateKey) {
					return ids.ErrTaken
				}
				return err
			}
			created = r
			return nil
		})
	if err != nil {
		return fail(fmt.Errorf("persist reservation: %w", err))
	}

	p.log.Info("reservation accepted",
		zap.String("reservation_id", created.ReservationID),
		zap.String("reason", string(reason)),
	)
	if p.alerter != nil {
		p.alerter.NewReservation(created)
	}
	return Outcome{Reason: reason, Reservation: created, CreatedAt: startedAt}, nil
}

func (p *Pipeline) newReservation(n normalized, reservationID string, v abuse.Verdict, at time.Time) *model.Reservation {
	r := &model.Reservation{
		ID:                  uuid.NewString(),
		ReservationID:       reservationID,
		CustomerName:        n.name,
		CustomerNumber:      n.phone,
		CustomerEmail:       n.email,
		IPAddress:           n.ip,
		DropoffDate:         n.dropoffDate,
		DropoffTime:         n.dropoffTime,
		SpecialInstructions: n.instructions,
		Status:              model.ReservationPending,
		IsFlagged:           v.Flagged,
		CreatedAt:           at,
		UpdatedAt:           at,
	}
	if v.Flagged {
		flag := string(v.FlagReason)
		r.FlagReason = &flag
	}
	return r
}

// recordAttempt writes a rejection or failure attempt. A failed write is logged
// and does not change the outcome.
func (p *Pipeline) recordAttempt(ctx context.Context, n normalized, success bool, reason model.AttemptReason, at time.Time) {
	if err := p.store.CreateAttempt(ctx, newAttempt(n, success, reason, at)); err != nil {
		p.log.Warn("failed to record reservation attempt",
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
	}
}

func newAttempt(n normalized, success bool, reason model.AttemptReason, at time.Time) *model.ReservationAttempt {
	return &model.ReservationAttempt{
		CustomerName:   n.name,
		CustomerNumber: n.phone,
		CustomerEmail:  n.email,
		IPAddress:      n.ip,
		Success:        success,
		Reason:         reason,
		CreatedAt:      at,
	}
}

func normalize(req Request) normalized {
	n := normalized{
		name:         parse.Text(req.CustomerName),
		phone:        parse.Phone(req.CustomerNumber),
		email:        parse.Email(req.CustomerEmail),
		dropoffTime:  parse.Text(req.DropoffTime),
		instructions: parse.Optional(req.SpecialInstructions),
	}
	if ip := parse.IP(req.IPAddress); ip != "" {
		n.ip = &ip
	}
	return n
}
