package kafka

import (
	"context"

	"github.com/turtacn/MetaboScope/internal/application/explorer"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/prometheus"
)

type messageWriter interface {
	Publish(ctx context.Context, msg *Message) error
}

// EventPublisher publishes explorer events as enveloped Kafka messages keyed
// by session, so the events of one session stay ordered.
type EventPublisher struct {
	writer  messageWriter
	prefix  string
	source  string
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

var _ explorer.Publisher = (*EventPublisher)(nil)

func NewEventPublisher(p *Producer, prefix string, logger logging.Logger) *EventPublisher {
	return newEventPublisher(p, prefix, logger)
}

func newEventPublisher(w messageWriter, prefix string, logger logging.Logger) *EventPublisher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &EventPublisher{writer: w, prefix: prefix, source: "metaboscope", logger: logger}
}

func (p *EventPublisher) WithMetrics(m *prometheus.AppMetrics) *EventPublisher {
	p.metrics = m
	return p
}

func (p *EventPublisher) Publish(ctx context.Context, ev explorer.Event) error {
	err := p.publish(ctx, ev)
	if p.metrics != nil {
		prometheus.RecordPublish(p.metrics, string(ev.Type), err)
	}
	return err
}

func (p *EventPublisher) publish(ctx context.Context, ev explorer.Event) error {
	env, err := NewEventEnvelope(string(ev.Type), p.source, ev.Payload)
	if err != nil {
		return err
	}
	env.Metadata = map[string]string{"session_id": ev.SessionID}

	msg, err := env.ToMessage(TopicName(p.prefix, ev.Type))
	if err != nil {
		return err
	}
	msg.Key = []byte(ev.SessionID)
	msg.Headers["session_id"] = ev.SessionID
	return p.writer.Publish(ctx, msg)
}
