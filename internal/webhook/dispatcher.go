// Package webhook delivers confirmed orders to the downstream automation
// endpoint. Delivery is asynchronous with bounded retries; the chat turn
// that triggered it never waits on the network.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/tlxsante/assistant/internal/domain"
)

// Dispatcher posts orders to a single configured URL.
type Dispatcher struct {
	url      string
	client   *http.Client
	attempts uint
}

// NewDispatcher creates a dispatcher. An empty url disables delivery;
// Dispatch then only logs the order.
func NewDispatcher(url string, timeout time.Duration, attempts int) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if attempts <= 0 {
		attempts = 3
	}
	return &Dispatcher{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		attempts: uint(attempts),
	}
}

// Dispatch queues the order for delivery and returns immediately.
func (d *Dispatcher) Dispatch(order *domain.Order) {
	go d.deliver(order)
}

func (d *Dispatcher) deliver(order *domain.Order) {
	if d.url == "" {
		log.Info().
			Str("session_id", order.SessionID).
			Str("intent", string(order.Intent)).
			Msg("no webhook configured, order logged only")
		return
	}

	body, err := json.Marshal(order)
	if err != nil {
		log.Error().Err(err).Str("session_id", order.SessionID).Msg("failed to encode order")
		return
	}

	err = retry.Do(
		func() error { return d.post(body) },
		retry.Attempts(d.attempts),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().
				Err(err).
				Uint("attempt", n+1).
				Str("session_id", order.SessionID).
				Msg("webhook delivery retrying")
		}),
	)
	if err != nil {
		log.Error().
			Err(err).
			Str("session_id", order.SessionID).
			Str("url", d.url).
			Msg("webhook delivery failed, order dropped")
		return
	}
	log.Info().
		Str("session_id", order.SessionID).
		Str("intent", string(order.Intent)).
		Msg("order delivered to webhook")
}

func (d *Dispatcher) post(body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
