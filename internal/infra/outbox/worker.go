package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker relays claimed outbox events to a Producer as CloudEvents.
type Worker struct {
	Store       ClaimStore
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	Logger      *slog.Logger
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

// Run polls until ctx is done. Each tick drains every due event.
func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				processed, err := w.ProcessOnce(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					if w.Logger != nil {
						w.Logger.Warn("outbox relay failed", "error", err)
					}
					break
				}
				if !processed {
					break
				}
			}
		}
	}
}

// ProcessOnce delivers at most one event and reports whether one was claimed.
func (w *Worker) ProcessOnce(ctx context.Context) (bool, error) {
	ev, err := w.Store.Claim(ctx, w.workerID())
	if err != nil || ev == nil {
		return false, err
	}
	payload, headers, err := w.formatPayload(ev)
	if err != nil {
		return true, w.Store.MarkFailed(ctx, ev.ID, w.nextRetry(ev.Attempts), err.Error())
	}
	if err := w.Producer.Publish(ctx, w.topicFor(ev.Name), ev.Aggregate, payload, headers); err != nil {
		if w.Logger != nil {
			w.Logger.Warn("outbox publish failed", "event_id", ev.ID, "name", ev.Name, "attempts", ev.Attempts+1, "error", err)
		}
		return true, w.Store.MarkFailed(ctx, ev.ID, w.nextRetry(ev.Attempts), err.Error())
	}
	return true, w.Store.MarkSent(ctx, ev.ID)
}

func (w *Worker) formatPayload(ev *Event) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(ev.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              ev.ID,
		"type":            ev.Name + ".v1",
		"source":          w.source(),
		"subject":         ev.Aggregate,
		"time":            ev.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := ev.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{"content-type": "application/cloudevents+json"}
	for k, v := range ev.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// topicFor maps "stay.recorded" to "<prefix>stay.events.v1".
func (w *Worker) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return w.TopicPrefix + base + ".events.v1"
}

func (w *Worker) workerID() string {
	if w.ID != "" {
		return w.ID
	}
	return "outbox-worker"
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	switch {
	case attempts < len(w.Backoff):
		return time.Now().Add(w.Backoff[attempts])
	case len(w.Backoff) > 0:
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://stayregister"
}

// LogProducer stands in for Kafka when no brokers are configured.
type LogProducer struct {
	Logger *slog.Logger
}

func (p LogProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if p.Logger != nil {
		p.Logger.InfoContext(ctx, "event published", "topic", topic, "key", key, "bytes", len(payload))
	}
	return nil
}
