package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"carbonaware/internal/metrics"

	"github.com/go-redis/redis/v8"
)

// Publisher appends payloads to a Redis stream
type Publisher struct {
	client redis.Cmdable
	stream string
}

func NewPublisher(client redis.Cmdable, stream string) *Publisher {
	return &Publisher{client: client, stream: stream}
}

// Publish serializes the payload and returns the stream entry id.
func (p *Publisher) Publish(ctx context.Context, payload Payload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.RecordStreamMessage("out", err)
		return "", fmt.Errorf("failed to serialize payload for %s: %w", payload.Location, err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{dataField: string(data)},
	}).Result()
	metrics.RecordStreamMessage("out", err)
	if err != nil {
		return "", fmt.Errorf("failed to publish to %s for %s: %w", p.stream, payload.Location, err)
	}
	return id, nil
}
