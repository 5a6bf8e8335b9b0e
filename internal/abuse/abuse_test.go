package abuse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laundrylink-backend/internal/clock"
	"laundrylink-backend/internal/model"
	"laundrylink-backend/internal/store"
)

// fakeReader is a scripted Reader that records which checks ran.
type fakeReader struct {
	hits       []model.BlacklistEntry
	recent     int64
	duplicate  *model.Reservation
	attempts   int64
	err        error
	calls      []string
	lastSince  time.Time
	duplicateQ store.DuplicateQuery
}

func (f *fakeReader) FindActiveBlacklistHits(ctx context.Context, email, phone, ip string) ([]model.BlacklistEntry, error) {
	f.calls = append(f.calls, "blacklist")
	return f.hits, f.err
}

func (f *fakeReader) CountReservationsByContactSince(ctx context.Context, email, phone string, since time.Time) (int64, error) {
	f.calls = append(f.calls, "rate")
	f.lastSince = since
	return f.recent, f.err
}

func (f *fakeReader) FindRecentDuplicate(ctx context.Context, q store.DuplicateQuery) (*model.Reservation, error) {
	f.calls = append(f.calls, "duplicate")
	f.duplicateQ = q
	return f.duplicate, f.err
}

func (f *fakeReader) CountAttemptsFromIPSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	f.calls = append(f.calls, "anomaly")
	return f.attempts, f.err
}

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func submission() Submission {
	return Submission{
		Email:       "jane@example.com",
		Phone:       "5551234",
		IP:          "203.0.113.7",
		DropoffDate: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		DropoffTime: "10:00",
	}
}

func TestEvaluate(t *testing.T) {
	testCases := []struct {
		name        string
		reader      *fakeReader
		sub         func(Submission) Submission
		wantReason  model.AttemptReason
		wantFlagged bool
		wantCalls   []string
	}{
		{
			name:      "clean submission passes every check",
			reader:    &fakeReader{},
			wantCalls: []string{"blacklist", "rate", "duplicate", "anomaly"},
		},
		{
			name: "blacklisted phone short-circuits",
			reader: &fakeReader{
				hits:   []model.BlacklistEntry{{Type: model.BlacklistPhone, Active: true}},
				recent: 3,
			},
			wantReason: model.ReasonBlacklistPhone,
			wantCalls:  []string{"blacklist"},
		},
		{
			name: "email wins over ip and phone",
			reader: &fakeReader{hits: []model.BlacklistEntry{
				{Type: model.BlacklistIP}, {Type: model.BlacklistPhone}, {Type: model.BlacklistEmail},
			}},
			wantReason: model.ReasonBlacklistEmail,
			wantCalls:  []string{"blacklist"},
		},
		{
			name:       "prior booking in window is rate limited before duplicate",
			reader:     &fakeReader{recent: 1, duplicate: &model.Reservation{ReservationID: "RES-1"}},
			wantReason: model.ReasonRateLimit24h,
			wantCalls:  []string{"blacklist", "rate"},
		},
		{
			name:       "duplicate rejects",
			reader:     &fakeReader{duplicate: &model.Reservation{ReservationID: "RES-1"}},
			wantReason: model.ReasonDuplicateSubmission,
			wantCalls:  []string{"blacklist", "rate", "duplicate"},
		},
		{
			name:        "fifth attempt from an address is flagged",
			reader:      &fakeReader{attempts: 4},
			wantFlagged: true,
			wantCalls:   []string{"blacklist", "rate", "duplicate", "anomaly"},
		},
		{
			name:      "fourth attempt is not flagged",
			reader:    &fakeReader{attempts: 3},
			wantCalls: []string{"blacklist", "rate", "duplicate", "anomaly"},
		},
		{
			name:      "unknown origin is never flagged",
			reader:    &fakeReader{attempts: 50},
			sub:       func(s Submission) Submission { s.IP = ""; return s },
			wantCalls: []string{"blacklist", "rate", "duplicate"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFilter(tc.reader, DefaultPolicy(), clock.NewManual(now))
			sub := submission()
			if tc.sub != nil {
				sub = tc.sub(sub)
			}

			v, err := f.Evaluate(context.Background(), sub)
			require.NoError(t, err)

			assert.Equal(t, tc.wantReason, v.Reason)
			assert.Equal(t, tc.wantReason != "", v.Rejected())
			assert.Equal(t, tc.wantFlagged, v.Flagged)
			if tc.wantFlagged {
				assert.Equal(t, model.ReasonRapidSubmissionsFromIP, v.FlagReason)
			}
			if tc.wantReason == model.ReasonDuplicateSubmission {
				require.NotNil(t, v.Conflict)
				assert.Equal(t, "RES-1", v.Conflict.ReservationID)
			}
			assert.Equal(t, tc.wantCalls, tc.reader.calls)
		})
	}
}

func TestEvaluate_UsesPolicyWindows(t *testing.T) {
	reader := &fakeReader{}
	policy := DefaultPolicy()
	policy.RateLimitWindow = time.Hour

	_, err := NewFilter(reader, policy, clock.NewManual(now)).Evaluate(context.Background(), submission())
	require.NoError(t, err)

	assert.Equal(t, now.Add(-time.Hour), reader.lastSince)
	assert.Equal(t, now.Add(-10*time.Minute), reader.duplicateQ.Since)
	assert.Equal(t, "10:00", reader.duplicateQ.DropoffTime)
}

func TestEvaluate_RaisedRateLimit(t *testing.T) {
	policy := DefaultPolicy()
	policy.RateLimitMax = 3

	v, err := NewFilter(&fakeReader{recent: 2}, policy, clock.NewManual(now)).Evaluate(context.Background(), submission())
	require.NoError(t, err)
	assert.False(t, v.Rejected())
}

func TestEvaluate_StoreError(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := NewFilter(&fakeReader{err: boom}, DefaultPolicy(), clock.NewManual(now)).
		Evaluate(context.Background(), submission())
	assert.ErrorIs(t, err, boom)
}
