package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/wonhyungLee/hookingauto/internal/metrics"
	"github.com/wonhyungLee/hookingauto/pkg/logger"
	"github.com/wonhyungLee/hookingauto/pkg/model"
)

// Subjects for execution outcome events.
const (
	SubjectOrderExecuted = "evt.order.executed.v1"
	SubjectOrderFailed   = "evt.order.failed.v1"
	SubjectHedgeOpened   = "evt.hedge.opened.v1"
	SubjectHedgeClosed   = "evt.hedge.closed.v1"
	SubjectHedgeFailed   = "evt.hedge.failed.v1"
)

// Publisher wraps a NATS connection and publishes canonical outcome
// events. A nil Publisher is safe to call and publishes nothing, so
// the service runs without a broker configured.
type Publisher struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	service string
}

// New creates a Publisher with JetStream enabled.
func New(nc *nats.Conn, service string) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc, js: js, service: service}, nil
}

// PublishEnvelope serializes and publishes one event envelope.
func (p *Publisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	if p == nil {
		return nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		logger.S().Errorw("publisher.marshal_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg)
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		logger.S().Errorw("publisher.publish_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

// PublishOrderEvent emits an order outcome event.
func (p *Publisher) PublishOrderEvent(ctx context.Context, correlationID uuid.UUID, ev model.OrderEvent) error {
	if p == nil {
		return nil
	}
	subject := SubjectOrderExecuted
	eventType := "order.executed"
	if ev.Status != "success" {
		subject = SubjectOrderFailed
		eventType = "order.failed"
	}
	return p.publish(ctx, subject, eventType, correlationID, ev)
}

// PublishHedgeEvent emits a hedge outcome event.
func (p *Publisher) PublishHedgeEvent(ctx context.Context, correlationID uuid.UUID, ev model.HedgeEvent) error {
	if p == nil {
		return nil
	}
	var subject, eventType string
	switch {
	case ev.Status != "success":
		subject, eventType = SubjectHedgeFailed, "hedge.failed"
	case ev.Mode == string(model.HedgeOn):
		subject, eventType = SubjectHedgeOpened, "hedge.opened"
	default:
		subject, eventType = SubjectHedgeClosed, "hedge.closed"
	}
	return p.publish(ctx, subject, eventType, correlationID, ev)
}

func (p *Publisher) publish(ctx context.Context, subject, eventType string, correlationID uuid.UUID, payload any) error {
	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: correlationID,
		EventType:     eventType,
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}
	env.Payload = data
	return p.PublishEnvelope(ctx, subject, env)
}

// Healthy reports whether the underlying connection is up.
func (p *Publisher) Healthy() bool {
	return p != nil && p.nc != nil && p.nc.IsConnected()
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
