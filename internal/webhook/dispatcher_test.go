package webhook_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlxsante/assistant/internal/domain"
	"github.com/tlxsante/assistant/internal/webhook"
)

func testOrder() *domain.Order {
	return &domain.Order{
		SessionID: "s1",
		Intent:    domain.IntentRent,
		Language:  domain.LangFrench,
		Summary: domain.OrderSummary{
			Name:       "Jean Dupont",
			StartDate:  "22/01/2026",
			EndDate:    "15/02/2026",
			PostalCode: "75011",
		},
		Attachments: map[domain.Slot]*domain.Attachment{
			domain.SlotPrescription: {Filename: "ordonnance.pdf", ContentType: "application/pdf"},
		},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestDispatchDelivers(t *testing.T) {
	var got atomic.Pointer[domain.Order]
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var order domain.Order
		require.NoError(t, json.NewDecoder(r.Body).Decode(&order))
		got.Store(&order)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := webhook.NewDispatcher(srv.URL, time.Second, 1)
	d.Dispatch(testOrder())

	waitFor(t, func() bool { return got.Load() != nil })
	order := got.Load()
	assert.Equal(t, "s1", order.SessionID)
	assert.Equal(t, domain.IntentRent, order.Intent)
	assert.Equal(t, "Jean Dupont", order.Summary.Name)
	assert.Len(t, order.Attachments, 1)
}

func TestDispatchRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := webhook.NewDispatcher(srv.URL, time.Second, 5)
	d.Dispatch(testOrder())

	waitFor(t, func() bool { return calls.Load() >= 3 })
}

func TestDispatchGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := webhook.NewDispatcher(srv.URL, time.Second, 2)
	d.Dispatch(testOrder())

	waitFor(t, func() bool { return calls.Load() == 2 })
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatchWithoutURLIsNoop(t *testing.T) {
	d := webhook.NewDispatcher("", time.Second, 3)
	// Must not panic or block.
	d.Dispatch(testOrder())
	time.Sleep(50 * time.Millisecond)
}
