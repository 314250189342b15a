package sink

import (
	"context"
	"fmt"

	"sregrade/internal/common/mq"
)

// Kafka publishes each run as a JSON message keyed by problem id and kind.
type Kafka struct {
	producer mq.Producer
	topic    string
}

// NewKafka creates a kafka sink.
func NewKafka(producer mq.Producer, topic string) (*Kafka, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	return &Kafka{producer: producer, topic: topic}, nil
}

func (k *Kafka) Name() string {
	return "kafka"
}

func (k *Kafka) PublishRun(ctx context.Context, rec Record) error {
	body, err := rec.encode()
	if err != nil {
		return err
	}
	return k.producer.Publish(ctx, k.topic, &mq.Message{
		ID:   rec.ProblemID + "/" + rec.Kind,
		Body: body,
		Headers: map[string]string{
			"stamp":      rec.Stamp,
			"problem_id": rec.ProblemID,
			"kind":       rec.Kind,
		},
		Timestamp: rec.FinishedAt,
	})
}
