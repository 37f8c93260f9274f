package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"carbonaware/internal/metrics"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Handler processes one decoded payload. A returned error leaves the entry
// pending so it is delivered again.
type Handler func(ctx context.Context, p Payload) error

// Consumer reads a stream as a member of a consumer group
type Consumer struct {
	client   redis.Cmdable
	stream   string
	group    string
	consumer string
	count    int64
	block    time.Duration
}

func NewConsumer(client redis.Cmdable, stream, group, consumer string) *Consumer {
	return &Consumer{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
		count:    10,
		block:    5 * time.Second,
	}
}

// EnsureGroup creates the consumer group (and the stream) if missing.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", c.group, err)
	}
	return nil
}

// Run reads and handles entries until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		if _, err := c.ReadOnce(ctx, handle); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Str("stream", c.stream).Msg("Error reading from Redis")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// ReadOnce retries this consumer's pending entries, then handles one batch of
// new entries. It returns how many entries were acknowledged.
func (c *Consumer) ReadOnce(ctx context.Context, handle Handler) (int, error) {
	acked, err := c.read(ctx, "0", -1, handle)
	if err != nil {
		return acked, fmt.Errorf("failed to read pending entries: %w", err)
	}
	if ctx.Err() != nil {
		return acked, nil
	}

	n, err := c.read(ctx, ">", c.block, handle)
	return acked + n, err
}

// read handles entries from id onwards. ID "0" replays this consumer's
// pending list and ">" asks for entries never delivered to the group.
// A negative block returns immediately.
func (c *Consumer) read(ctx context.Context, id string, block time.Duration, handle Handler) (int, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, id},
		Count:    c.count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	acked := 0
	for _, s := range streams {
		for _, m := range s.Messages {
			if ctx.Err() != nil {
				return acked, nil
			}
			if c.handleMessage(ctx, m, handle) {
				if err := c.client.XAck(ctx, c.stream, c.group, m.ID).Err(); err != nil {
					log.Error().Err(err).Str("id", m.ID).Msg("Failed to acknowledge message")
					continue
				}
				acked++
			}
		}
	}
	return acked, nil
}

// handleMessage reports whether the entry should be acknowledged.
func (c *Consumer) handleMessage(ctx context.Context, m redis.XMessage, handle Handler) bool {
	payload, err := decode(m)
	if err != nil {
		// A payload that cannot be decoded will never succeed; drop it.
		metrics.RecordStreamMessage("in", err)
		log.Warn().Err(err).Str("id", m.ID).Msg("Discarding malformed message")
		return true
	}

	err = handle(ctx, payload)
	metrics.RecordStreamMessage("in", err)
	if err != nil {
		log.Error().Err(err).Str("id", m.ID).Str("location", payload.Location).Msg("Failed to handle message")
		return false
	}
	return true
}

func decode(m redis.XMessage) (Payload, error) {
	var p Payload
	raw, ok := m.Values[dataField].(string)
	if !ok {
		return p, fmt.Errorf("message has no %q field", dataField)
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if p.Location == "" {
		return p, errors.New("message has no location")
	}
	return p, nil
}
