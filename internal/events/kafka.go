// Package events publishes narration phase changes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/briangreenhill/voicept/internal/narration"
)

// PhaseEvent is the message value written for every phase change.
type PhaseEvent struct {
	SessionID  string                `json:"sessionId"`
	From       narration.Phase       `json:"from"`
	To         narration.Phase       `json:"to"`
	Generation uint64                `json:"generation"`
	Target     string                `json:"target,omitempty"`
	Failure    narration.FailureKind `json:"failure,omitempty"`
	At         time.Time             `json:"at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes PhaseEvents keyed by session id.
type Publisher struct {
	writer messageWriter
	topic  string
	logger zerolog.Logger
	now    func() time.Time
}

// NewKafkaPublisher creates an async producer. Writes never block the caller;
// delivery errors are logged.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *Publisher {
	logger = logger.With().Str("component", "events").Logger()
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.Warn().Err(err).Int("messages", len(msgs)).Msg("phase events not delivered")
			}
		},
	}

	logger.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Msg("Kafka producer initialized")

	return newPublisher(writer, topic, logger)
}

func newPublisher(w messageWriter, topic string, logger zerolog.Logger) *Publisher {
	return &Publisher{writer: w, topic: topic, logger: logger, now: time.Now}
}

// ForSession returns an observer that tags events with sessionID.
func (p *Publisher) ForSession(sessionID string) narration.Observer {
	return narration.ObserverFunc(func(prev, next narration.State) {
		p.publish(sessionID, prev, next)
	})
}

func (p *Publisher) publish(sessionID string, prev, next narration.State) {
	ev := PhaseEvent{
		SessionID:  sessionID,
		From:       prev.Phase,
		To:         next.Phase,
		Generation: next.Generation,
		Failure:    next.Failure,
		At:         p.now().UTC(),
	}
	if next.Target != nil {
		ev.Target = next.Target.Label()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to marshal phase event")
		return
	}
	msg := kafka.Message{Key: []byte(sessionID), Value: data}
	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		p.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to write phase event")
	}
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	p.logger.Info().Msg("Closing Kafka producer")
	return p.writer.Close()
}
