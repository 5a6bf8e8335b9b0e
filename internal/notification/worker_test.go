package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"laundrylink-backend/internal/model"
	"laundrylink-backend/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func emptyResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestWorkerPool_DispatchNeverBlocks(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, 1, store.NewGormStore(db), &webpush.Options{}, zaptest.NewLogger(t))

	wp.Dispatch(Alert{ReservationID: "RES-1"})
	wp.Dispatch(Alert{ReservationID: "RES-2"}) // queue full, dropped

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, "RES-1", job.ReservationID)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
	assert.Empty(t, wp.Jobs())
}

func TestWorkerPool_NewReservation(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, 4, store.NewGormStore(db), &webpush.Options{}, zaptest.NewLogger(t))

	wp.NewReservation(&model.Reservation{
		ReservationID: "RES-9",
		CustomerName:  "Jane Doe",
		DropoffDate:   time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		DropoffTime:   "10:00",
		IsFlagged:     true,
	})

	alert := <-wp.Jobs()
	assert.Equal(t, "RES-9", alert.ReservationID)
	assert.Equal(t, "Jane Doe - Wed, Mar 12 10:00", alert.Body)
	assert.True(t, alert.Flagged)
	assert.Equal(t, "New reservation (flagged)", alert.Title)
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	gormDB, mock := newTestDB(t)
	// Workers outlive the test body, so they must not log through t.
	wp := NewWorkerPool(1, 4, store.NewGormStore(gormDB), &webpush.Options{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Test Case: One subscription found, notification sent ---
	t.Run("sends alert to every staff subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				var alert Alert
				require.NoError(t, json.Unmarshal(payload, &alert))
				assert.Equal(t, "RES-1", alert.ReservationID)
				wg.Done()
				return emptyResponse(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions"`).
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "staff_id", "created_at"}).
				AddRow("https://example.com/push", "test_p256dh", "test_auth", "staff-1", time.Now()))

		wp.broadcast(ctx, Alert{ReservationID: "RES-1"})
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	// --- Test Case: Subscription expired, should be deleted ---
	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return emptyResponse(http.StatusGone), nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions"`).
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "staff_id", "created_at"}).
				AddRow("https://example.com/expired", "p", "a", "staff-1", time.Now()))

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = \$1`).
			WithArgs("https://example.com/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		wp.Start(ctx)
		wp.Dispatch(Alert{ReservationID: "RES-2"})

		assert.Eventually(t, func() bool {
			return mock.ExpectationsWereMet() == nil
		}, time.Second, 10*time.Millisecond)
	})
}
