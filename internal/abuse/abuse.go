// Package abuse holds the ordered checks a reservation submission must pass
// before it is persisted.
package abuse

import (
	"context"
	"fmt"
	"time"

	"laundrylink-backend/config"
	"laundrylink-backend/internal/clock"
	"laundrylink-backend/internal/model"
	"laundrylink-backend/internal/store"
)

// Reader is the read-only slice of the store the filter depends on.
type Reader interface {
	FindActiveBlacklistHits(ctx context.Context, email, phone, ip string) ([]model.BlacklistEntry, error)
	CountReservationsByContactSince(ctx context.Context, email, phone string, since time.Time) (int64, error)
	FindRecentDuplicate(ctx context.Context, q store.DuplicateQuery) (*model.Reservation, error)
	CountAttemptsFromIPSince(ctx context.Context, ip string, since time.Time) (int64, error)
}

// Policy holds the windows and thresholds of the checks.
type Policy struct {
	RateLimitWindow  time.Duration
	RateLimitMax     int
	DuplicateWindow  time.Duration
	AnomalyWindow    time.Duration
	AnomalyThreshold int
}

// DefaultPolicy returns the shop's standard thresholds.
func DefaultPolicy() Policy {
	return Policy{
		RateLimitWindow:  24 * time.Hour,
		RateLimitMax:     1,
		DuplicateWindow:  10 * time.Minute,
		AnomalyWindow:    15 * time.Minute,
		AnomalyThreshold: 5,
	}
}

// PolicyFromConfig builds a Policy from loaded configuration.
func PolicyFromConfig(cfg config.PolicyConfig) Policy {
	return Policy{
		RateLimitWindow:  cfg.RateLimitWindow,
		RateLimitMax:     cfg.RateLimitMax,
		DuplicateWindow:  cfg.DuplicateWindow,
		AnomalyWindow:    cfg.AnomalyWindow,
		AnomalyThreshold: cfg.AnomalyThreshold,
	}
}

// Submission is the normalized input the checks look at.
type Submission struct {
	Email       string
	Phone       string
	IP          string // empty when the origin is unknown
	DropoffDate time.Time
	DropoffTime string
}

// Verdict is the combined result of the checks.
// Reason is empty when the submission may be persisted.
type Verdict struct {
	Reason   model.AttemptReason
	Conflict *model.Reservation

	Flagged    bool
	FlagReason model.AttemptReason
}

// Rejected reports whether a hard check failed.
func (v Verdict) Rejected() bool {
	return v.Reason != ""
}

// Filter runs the checks against the store.
type Filter struct {
	store  Reader
	policy Policy
	clock  clock.Clock
}

// NewFilter creates a Filter.
func NewFilter(r Reader, policy Policy, clk clock.Clock) *Filter {
	return &Filter{store: r, policy: policy, clock: clk}
}

// Evaluate runs blacklist, rate limit, duplicate and anomaly checks in that order.
// The first rejection stops evaluation. The anomaly check never rejects.
func (f *Filter) Evaluate(ctx context.Context, sub Submission) (Verdict, error) {
	reason, err := f.CheckBlacklist(ctx, sub)
	if err != nil || reason != "" {
		return Verdict{Reason: reason}, err
	}

	reason, err = f.CheckRateLimit(ctx, sub)
	if err != nil || reason != "" {
		return Verdict{Reason: reason}, err
	}

	conflict, err := f.CheckDuplicate(ctx, sub)
	if err != nil {
		return Verdict{}, err
	}
	if conflict != nil {
		return Verdict{Reason: model.ReasonDuplicateSubmission, Conflict: conflict}, nil
	}

	flagged, err := f.CheckAnomaly(ctx, sub)
	if err != nil {
		return Verdict{}, err
	}
	if flagged {
		return Verdict{Flagged: true, FlagReason: model.ReasonRapidSubmissionsFromIP}, nil
	}
	return Verdict{}, nil
}

// CheckBlacklist returns BLACKLIST_<TYPE> for the first active hit, preferring
// email over phone over IP.
func (f *Filter) CheckBlacklist(ctx context.Context, sub Submission) (model.AttemptReason, error) {
	hits, err := f.store.FindActiveBlacklistHits(ctx, sub.Email, sub.Phone, sub.IP)
	if err != nil {
		return "", fmt.Errorf("blacklist check: %w", err)
	}
	if len(hits) == 0 {
		return "", nil
	}

	found := make(map[model.BlacklistType]bool, len(hits))
	for _, h := range hits {
		found[h.Type] = true
	}
	for _, t := range []model.BlacklistType{model.BlacklistEmail, model.BlacklistPhone, model.BlacklistIP} {
		if found[t] {
			return t.Reason(), nil
		}
	}
	return hits[0].Type.Reason(), nil
}

// CheckRateLimit returns RATE_LIMIT_24H when the contact already booked inside the window.
func (f *Filter) CheckRateLimit(ctx context.Context, sub Submission) (model.AttemptReason, error) {
	since := f.clock.Now().Add(-f.policy.RateLimitWindow)
	count, err := f.store.CountReservationsByContactSince(ctx, sub.Email, sub.Phone, since)
	if err != nil {
		return "", fmt.Errorf("rate limit check: %w", err)
	}
	if count >= int64(f.policy.RateLimitMax) {
		return model.ReasonRateLimit24h, nil
	}
	return "", nil
}

// CheckDuplicate returns the reservation this submission repeats, if any.
func (f *Filter) CheckDuplicate(ctx context.Context, sub Submission) (*model.Reservation, error) {
	dup, err := f.store.FindRecentDuplicate(ctx, store.DuplicateQuery{
		Email:       sub.Email,
		Phone:       sub.Phone,
		DropoffDate: sub.DropoffDate,
		DropoffTime: sub.DropoffTime,
		Since:       f.clock.Now().Add(-f.policy.DuplicateWindow),
	})
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	return dup, nil
}

// CheckAnomaly reports whether the origin address reached the attempt threshold,
// counting the current submission. Submissions without an address are never flagged.
func (f *Filter) CheckAnomaly(ctx context.Context, sub Submission) (bool, error) {
	if sub.IP == "" {
		return false, nil
	}
	since := f.clock.Now().Add(-f.policy.AnomalyWindow)
	prior, err := f.store.CountAttemptsFromIPSince(ctx, sub.IP, since)
	if err != nil {
		return false, fmt.Errorf("anomaly check: %w", err)
	}
	return prior+1 >= int64(f.policy.AnomalyThreshold), nil
}
