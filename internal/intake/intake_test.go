package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"laundrylink-backend/config"
	"laundrylink-backend/internal/abuse"
	"laundrylink-backend/internal/clock"
	"laundrylink-backend/internal/db"
	"laundrylink-backend/internal/model"
	"laundrylink-backend/internal/store"
)

var start = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	db       *gorm.DB
	store    store.Store
	clock    *clock.Manual
	pipeline *Pipeline
	alerts   []*model.Reservation
}

func (h *harness) NewReservation(r *model.Reservation) {
	h.alerts = append(h.alerts, r)
}

func newHarness(t *testing.T, policy abuse.Policy, opts ...Option) *harness {
	t.Helper()
	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		sqlDB.Close()
	})

	h := &harness{db: gormDB, store: store.NewGormStore(gormDB), clock: clock.NewManual(start)}
	gen := &sequenceGenerator{}
	opts = append([]Option{WithAlerter(h)}, opts...)
	h.pipeline = NewPipeline(h.store, abuse.NewFilter(h.store, policy, h.clock), gen, h.clock, zaptest.NewLogger(t), opts...)
	return h
}

func (h *harness) attempts(t *testing.T) []model.ReservationAttempt {
	t.Helper()
	var out []model.ReservationAttempt
	require.NoError(t, h.db.Order("id ASC").Find(&out).Error)
	return out
}

func (h *harness) reservationCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&model.Reservation{}).Count(&n).Error)
	return n
}

// sequenceGenerator hands out predictable ids, optionally repeating some first.
type sequenceGenerator struct {
	queue []string
	n     int
}

func (g *sequenceGenerator) Generate(prefix string) string {
	if len(g.queue) > 0 {
		id := g.queue[0]
		g.queue = g.queue[1:]
		return id
	}
	g.n++
	return prefix + "-TEST-" + string(rune('A'+g.n))
}

func validRequest() Request {
	return Request{
		CustomerName:   "  Jane   Doe ",
		CustomerNumber: "0917 123-4567",
		CustomerEmail:  "Jane@Example.com ",
		DropoffDate:    "2025-03-12",
		DropoffTime:    "10:00",
		IPAddress:      "203.0.113.7",
	}
}

func TestSubmit_Accepted(t *testing.T) {
	h := newHarness(t, abuse.DefaultPolicy())

	out, err := h.pipeline.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Equal(t, model.ReasonOK, out.Reason)

	r := out.Reservation
	require.NotNil(t, r)
	assert.Equal(t, model.ReservationPending, r.Status)
	assert.Equal(t, "Jane Doe", r.CustomerName)
	assert.Equal(t, "jane@example.com", r.CustomerEmail)
	assert.Equal(t, "09171234567", r.CustomerNumber)
	assert.False(t, r.IsFlagged)
	assert.Nil(t, r.SpecialInstructions)
	assert.Regexp(t, `^RES-`, r.ReservationID)

	stored, err := h.store.GetReservation(context.Background(), r.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, stored.ID)

	attempts := h.attempts(t)
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Success)
	assert.Equal(t, model.ReasonOK, attempts[0].Reason)
	assert.Len(t, h.alerts, 1)
}

func TestSubmit_Rejections(t *testing.T) {
	testCases := []struct {
		name   string
		setup  func(t *testing.T, h *harness)
		mutate func(r *Request)
		want   model.AttemptReason
	}{
		{
			name:   "missing email",
			mutate: func(r *Request) { r.CustomerEmail = "   " },
			want:   model.ReasonMissingRequiredFields,
		},
		{
			name:   "missing time",
			mutate: func(r *Request) { r.DropoffTime = "" },
			want:   model.ReasonMissingRequiredFields,
		},
		{
			name:   "unparseable date",
			mutate: func(r *Request) { r.DropoffDate = "next tuesday" },
			want:   model.ReasonInvalidFields,
		},
		{
			name: "shop closed",
			setup: func(t *testing.T, h *harness) {
				_, err := h.store.SetAcceptingReservations(context.Background(), false, "staff-1")
				require.NoError(t, err)
			},
			want: model.ReasonShopClosed,
		},
		{
			name: "blacklisted ip",
			setup: func(t *testing.T, h *harness) {
				_, err := h.store.UpsertBlacklistEntry(context.Background(), &model.BlacklistEntry{
					Type: model.BlacklistIP, Value: "203.0.113.7", CreatedBy: "staff-1",
				})
				require.NoError(t, err)
			},
			want: model.ReasonBlacklistIP,
		},
		{
			name: "blacklisted email matches case-insensitively",
			setup: func(t *testing.T, h *harness) {
				_, err := h.store.UpsertBlacklistEntry(context.Background(), &model.BlacklistEntry{
					Type: model.BlacklistEmail, Value: "jane@example.com", CreatedBy: "staff-1",
				})
				require.NoError(t, err)
			},
			want: model.ReasonBlacklistEmail,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, abuse.DefaultPolicy())
			if tc.setup != nil {
				tc.setup(t, h)
			}
			req := validRequest()
			if tc.mutate != nil {
				tc.mutate(&req)
			}

			out, err := h.pipeline.Submit(context.Background(), req)
			require.NoError(t, err)
			assert.False(t, out.Accepted())
			assert.Equal(t, tc.want, out.Reason)
			assert.Nil(t, out.Reservation)
			assert.NotEmpty(t, out.Message())

			assert.Zero(t, h.reservationCount(t))
			attempts := h.attempts(t)
			require.Len(t, attempts, 1)
			assert.False(t, attempts[0].Success)
			assert.Equal(t, tc.want, attempts[0].Reason)
			assert.Empty(t, h.alerts)
		})
	}
}

func TestSubmit_SecondBookingWithin24hIsRateLimited(t *testing.T) {
	h := newHarness(t, abuse.DefaultPolicy())
	ctx := context.Background()

	first, err := h.pipeline.Submit(ctx, validRequest())
	require.NoError(t, err)
	require.True(t, first.Accepted())

	// Same phone, different email and slot, one hour later.
	h.clock.Advance(time.Hour)
	req := validRequest()
	req.CustomerEmail = "other@example.com"
	req.DropoffTime = "14:00"
	second, err := h.pipeline.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, model.ReasonRateLimit24h, second.Reason)

	// After the window the same contact may book again.
	h.clock.Advance(24 * time.Hour)
	third, err := h.pipeline.Submit(ctx, validRequest())
	require.NoError(t, err)
	assert.True(t, third.Accepted())
	assert.EqualValues(t, 2, h.reservationCount(t))
	assert.Len(t, h.attempts(t), 3)
}

func TestSubmit_DuplicateSurfacesConflict(t *testing.T) {
	policy := abuse.DefaultPolicy()
	policy.RateLimitMax = 10
	h := newHarness(t, policy)
	ctx := context.Background()

	first, err := h.pipeline.Submit(ctx, validRequest())
	require.NoError(t, err)
	require.True(t, first.Accepted())

	h.clock.Advance(2 * time.Minute)
	dup, err := h.pipeline.Submit(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.ReasonDuplicateSubmission, dup.Reason)
	require.NotNil(t, dup.Conflict)
	assert.Equal(t, first.Reservation.ReservationID, dup.Conflict.ReservationID)

	// Outside the duplicate window it is a new booking.
	h.clock.Advance(10 * time.Minute)
	again, err := h.pipeline.Submit(ctx, validRequest())
	require.NoError(t, err)
	assert.True(t, again.Accepted())
}

func TestSubmit_RapidAttemptsFromAddressAreFlagged(t *testing.T) {
	h := newHarness(t, abuse.DefaultPolicy())
	ctx := context.Background()

	// Four rejected attempts from the same address.
	for i := 0; i < 4; i++ {
		req := validRequest()
		req.CustomerEmail = ""
		out, err := h.pipeline.Submit(ctx, req)
		require.NoError(t, err)
		require.Equal(t, model.ReasonMissingRequiredFields, out.Reason)
		h.clock.Advance(time.Minute)
	}

	out, err := h.pipeline.Submit(ctx, validRequest())
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Equal(t, model.ReasonOKFlagged, out.Reason)
	assert.True(t, out.Reservation.IsFlagged)
	require.NotNil(t, out.Reservation.FlagReason)
	assert.Equal(t, string(model.ReasonRapidSubmissionsFromIP), *out.Reservation.FlagReason)

	attempts := h.attempts(t)
	require.Len(t, attempts, 5)
	assert.Equal(t, model.ReasonOKFlagged, attempts[4].Reason)
}

func TestSubmit_RetriesTakenReservationID(t *testing.T) {
	h := newHarness(t, abuse.DefaultPolicy())
	ctx := context.Background()

	taken := newTakenReservation(t, h, "RES-TAKEN")
	gen := &sequenceGenerator{queue: []string{taken, taken, "RES-FRESH"}}
	h.pipeline.ids = gen

	out, err := h.pipeline.Submit(ctx, validRequest())
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Equal(t, "RES-FRESH", out.Reservation.ReservationID)
}

func TestSubmit_IDExhaustionIsInternalError(t *testing.T) {
	h := newHarness(t, abuse.DefaultPolicy(), WithIDAttempts(2))
	ctx := context.Background()

	taken := newTakenReservation(t, h, "RES-TAKEN")
	h.pipeline.ids = &sequenceGenerator{queue: []string{taken, taken, taken}}

	out, err := h.pipeline.Submit(ctx, validRequest())
	require.Error(t, err)
	assert.Equal(t, model.ReasonInternalError, out.Reason)

	attempts := h.attempts(t)
	require.Len(t, attempts, 1)
	assert.Equal(t, model.ReasonInternalError, attempts[0].Reason)
}

// newTakenReservation stores a reservation from an unrelated customer well
// outside every check window.
func newTakenReservation(t *testing.T, h *harness, reservationID string) string {
	t.Helper()
	err := h.store.CreateReservation(context.Background(), &model.Reservation{
		ID:             uuid.NewString(),
		ReservationID:  reservationID,
		CustomerName:   "Someone Else",
		CustomerNumber: "111",
		CustomerEmail:  "else@example.com",
		DropoffDate:    start,
		DropoffTime:    "08:00",
		Status:         model.ReservationPending,
		CreatedAt:      start.Add(-72 * time.Hour),
	}, nil)
	require.NoError(t, err)
	return reservationID
}

type failingSettingsStore struct {
	store.Store
}

func (failingSettingsStore) GetShopSettings(ctx context.Context) (*model.ShopSettings, error) {
	return nil, errors.New("connection refused")
}

func TestSubmit_StoreFailureIsInternalError(t *testing.T) {
	h := newHarness(t, abuse.DefaultPolicy())
	h.pipeline.store = failingSettingsStore{Store: h.store}

	out, err := h.pipeline.Submit(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, model.ReasonInternalError, out.Reason)
	assert.Zero(t, h.reservationCount(t))

	attempts := h.attempts(t)
	require.Len(t, attempts, 1)
	assert.Equal(t, model.ReasonInternalError, attempts[0].Reason)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Missing required fields", Message(model.ReasonMissingRequiredFields))
	assert.Equal(t, Message(model.ReasonBlacklistEmail), Message(model.ReasonBlacklistIP))
	assert.Equal(t, "Internal server error", Message(model.ReasonInternalError))
}
