package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// KafkaSender publishes notification requests to the owner-notifications
// topic. The delivery service consumes them; this side only publishes.
type KafkaSender struct {
	writer *kafka.Writer
}

// NewKafkaSender returns a KafkaSender over an existing writer.
func NewKafkaSender(w *kafka.Writer) *KafkaSender {
	return &KafkaSender{writer: w}
}

// Send marshals the notification to JSON and publishes one message, keyed
// by notification id.
func (s *KafkaSender) Send(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification %s: %w", n.ID, err)
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.ID),
		Value: payload,
	})
}
