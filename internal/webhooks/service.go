// Package webhooks delivers signed ledger events to configured HTTP
// receivers.
package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-Seng-Signature"

// MetricsRecorder is an optional callback for recording delivery outcomes.
type MetricsRecorder func(success bool)

// Service dispatches events to subscriptions.
type Service struct {
	subs       []Subscription
	httpClient *http.Client
	delays     []time.Duration
	onMetrics  MetricsRecorder
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewService creates a webhook Service for the given subscriptions.
func NewService(subs []Subscription, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		subs:       subs,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Retry with exponential backoff: 1s, 5s.
		delays: []time.Duration{0, 1 * time.Second, 5 * time.Second},
		logger: logger,
	}
}

// SetMetricsRecorder configures the metrics callback.
func (s *Service) SetMetricsRecorder(fn MetricsRecorder) {
	s.onMetrics = fn
}

// SetRetryDelays replaces the per-attempt delays; the slice length is the
// number of attempts.
func (s *Service) SetRetryDelays(delays []time.Duration) {
	if len(delays) > 0 {
		s.delays = delays
	}
}

// Dispatch fans an event out to all matching subscriptions. Deliveries run
// in the background and outlive ctx; Wait blocks until they finish.
func (s *Service) Dispatch(ctx context.Context, eventType string, payload map[string]string) {
	event := Event{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("webhook: marshal event", zap.Error(err))
		return
	}

	dctx := context.WithoutCancel(ctx)
	for _, sub := range s.subs {
		if !sub.Wants(eventType) {
			continue
		}
		s.wg.Add(1)
		go func(sub Subscription) {
			defer s.wg.Done()
			s.deliver(dctx, sub, event, body)
		}(sub)
	}
}

// Wait blocks until in-flight deliveries finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// deliver sends the event to a single subscription with retries.
func (s *Service) deliver(ctx context.Context, sub Subscription, event Event, body []byte) {
	signature := signPayload(body, sub.Secret)

	for attempt, delay := range s.delays {
		if delay > 0 {
			time.Sleep(delay)
		}

		success, errMsg := s.doDelivery(ctx, sub.URL, event.ID.String(), body, signature)
		if s.onMetrics != nil {
			s.onMetrics(success)
		}
		if success {
			s.logger.Debug("webhook: delivered",
				zap.String("url", sub.URL),
				zap.String("event", event.Type),
			)
			return
		}

		s.logger.Warn("webhook: delivery failed",
			zap.String("url", sub.URL),
			zap.String("event", event.Type),
			zap.Int("attempt", attempt+1),
			zap.String("error", errMsg),
		)
	}
}

// doDelivery performs a single HTTP POST delivery.
func (s *Service) doDelivery(ctx context.Context, url, eventID string, body []byte, signature string) (bool, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Seng-Event-ID", eventID)
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, err.Error()
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return true, ""
}

// signPayload computes an HMAC-SHA256 signature. Subscriptions without a
// secret are sent unsigned.
func signPayload(body []byte, secret string) string {
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a SignatureHeader value against body. Receivers
// written in Go can use it directly.
func VerifySignature(body []byte, secret, signature string) bool {
	want := signPayload(body, secret)
	return want != "" && hmac.Equal([]byte(want), []byte(signature))
}
