package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/telemetry"
)

const (
	queueSize = 1000

	// maxResponseBodySize limits how much of a failed response is logged.
	maxResponseBodySize = 1024

	defaultMaxRetries = 3
	defaultTimeout    = 10 * time.Second
	defaultBackoff    = time.Second
)

// Header names set on every delivery.
const (
	HeaderSignature = "X-Rules-Signature"
	HeaderEvent     = "X-Rules-Event"
	HeaderDelivery  = "X-Rules-Delivery"
)

// Dispatcher delivers events to endpoints from a single background worker.
type Dispatcher struct {
	endpoints  []Endpoint
	client     *http.Client
	logger     zerolog.Logger
	maxRetries int
	backoff    time.Duration
	queue      chan Event
	done       chan struct{}

	// ctx is cancelled when Close gives up waiting, aborting in-flight
	// deliveries and backoff.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the delivery logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMaxRetries sets how many times a failed delivery is retried.
func WithMaxRetries(n int) Option {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.maxRetries = n
		}
	}
}

// WithBackoff sets the delay before the first retry. It doubles on every
// further attempt.
func WithBackoff(base time.Duration) Option {
	return func(d *Dispatcher) { d.backoff = base }
}

// WithHTTPClient replaces the HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// NewDispatcher creates a dispatcher for endpoints. Call Start before
// dispatching and Close on shutdown.
func NewDispatcher(endpoints []Endpoint, opts ...Option) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		ctx:        ctx,
		cancel:     cancel,
		endpoints:  endpoints,
		client:     &http.Client{Timeout: defaultTimeout},
		logger:     zerolog.Nop(),
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		queue:      make(chan Event, queueSize),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start begins processing events from the queue
func (d *Dispatcher) Start() {
	go d.worker()
}

// Close stops accepting events and waits for queued deliveries to finish.
// When ctx ends first, pending deliveries are abandoned and ctx.Err() is
// returned. Calls after the first return nil.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	select {
	case <-d.done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-d.done
		return ctx.Err()
	}
}

// Dispatch queues an event without blocking. Events are dropped when the
// queue is full or the dispatcher is closed.
func (d *Dispatcher) Dispatch(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		telemetry.WebhookDeliveries.WithLabelValues("dropped").Inc()
		return
	}
	select {
	case d.queue <- event:
		d.logger.Debug().Str("event", event.Type).Int64("rule_id", event.Rule.ID).Int("queued", len(d.queue)).Msg("webhook event queued")
	default:
		telemetry.WebhookDeliveries.WithLabelValues("dropped").Inc()
		d.logger.Error().Str("event", event.Type).Int64("rule_id", event.Rule.ID).Msg("webhook queue full, dropping event")
	}
}

func (d *Dispatcher) worker() {
	defer close(d.done)

	for event := range d.queue {
		if d.ctx.Err() != nil {
			telemetry.WebhookDeliveries.WithLabelValues("dropped").Inc()
			continue
		}
		for _, ep := range d.endpoints {
			if matches(ep, event) {
				d.deliverWithRetry(d.ctx, ep, event)
			}
		}
	}
}

// matches reports whether ep subscribes to the event's type.
func matches(ep Endpoint, event Event) bool {
	return len(ep.Events) == 0 || slices.Contains(ep.Events, event.Type)
}

func (d *Dispatcher) deliverWithRetry(ctx context.Context, ep Endpoint, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		d.logger.Error().Err(err).Str("event", event.Type).Msg("webhook payload")
		telemetry.WebhookDeliveries.WithLabelValues("failed").Inc()
		return
	}
	signature := ComputeHMAC(payload, ep.Secret)
	deliveryID := uuid.NewString()
	log := d.logger.With().Str("url", ep.URL).Str("event", event.Type).Str("delivery", deliveryID).Logger()

	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		start := time.Now()
		status, body, err := d.post(ctx, ep.URL, payload, signature, event.Type, deliveryID)
		if err == nil && status >= 200 && status < 300 {
			telemetry.WebhookDeliveries.WithLabelValues("ok").Inc()
			log.Debug().Int("status", status).Dur("duration", time.Since(start)).Int("attempt", attempt+1).Msg("webhook delivered")
			return
		}

		entry := log.Warn().Int("status", status).Str("response", body).Int("attempt", attempt+1)
		if err != nil {
			entry = entry.Err(err)
		}
		if attempt == d.maxRetries {
			entry.Msg("webhook delivery failed permanently")
			break
		}
		wait := d.backoff << attempt
		entry.Dur("retry_in", wait).Msg("webhook delivery failed")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			log.Warn().Err(ctx.Err()).Msg("webhook delivery abandoned")
			telemetry.WebhookDeliveries.WithLabelValues("failed").Inc()
			return
		}
	}
	telemetry.WebhookDeliveries.WithLabelValues("failed").Inc()
}

func (d *Dispatcher) post(ctx context.Context, url string, payload []byte, signature, eventType, deliveryID string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderEvent, eventType)
	req.Header.Set(HeaderDelivery, deliveryID)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	var body string
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		body = string(b)
	}
	return resp.StatusCode, body, nil
}
