package repository

import (
	"context"
	"fmt"
	"time"

	"MomentumScreener/internal/domain/models"
	pkgkafka "MomentumScreener/pkg/kafka"
)

// batchPublisher is the part of pkg/kafka.Producer used here.
type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// OutcomeEvent is the message published for every evaluated symbol.
type OutcomeEvent struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	models.ScreenOutcome
}

// KafkaOutcomePublisher emits one keyed message per outcome so consumers can
// partition by symbol.
type KafkaOutcomePublisher struct {
	producer     batchPublisher
	topic        string
	onlyAccepted bool
}

func NewKafkaOutcomePublisher(producer batchPublisher, topic string, onlyAccepted bool) *KafkaOutcomePublisher {
	return &KafkaOutcomePublisher{producer: producer, topic: topic, onlyAccepted: onlyAccepted}
}

func (p *KafkaOutcomePublisher) Record(ctx context.Context, run *models.ScreenRun) error {
	if run == nil {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(run.Outcomes))
	for _, o := range run.Outcomes {
		if p.onlyAccepted && !o.Accepted() {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{
			Key: []byte(o.Symbol),
			Value: OutcomeEvent{
				RunID:         run.ID,
				StartedAt:     run.StartedAt,
				FinishedAt:    run.FinishedAt,
				ScreenOutcome: o,
			},
		})
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		return fmt.Errorf("publish outcomes: %w", err)
	}
	return nil
}
