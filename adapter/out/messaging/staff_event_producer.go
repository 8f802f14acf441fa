// Package messaging publishes domain events to Redis Streams.
package messaging

import (
	"context"
	"fmt"

	"staff_server/core/port/out"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Stream names
const (
	StreamEmployeeEvents = "employees:events"
	StreamAuditEvents    = "audit:events"
)

// defaultMaxLen caps each stream; trimming is approximate.
const defaultMaxLen = 10000

// RedisProducer implements out.EventPublisher using Redis Streams.
type RedisProducer struct {
	client *redis.Client
	maxLen int64
}

var _ out.EventPublisher = (*RedisProducer)(nil)

// NewRedisProducer creates a new RedisProducer.
func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{client: client, maxLen: defaultMaxLen}
}

// PublishEmployeeEvent appends event to the employee stream.
func (p *RedisProducer) PublishEmployeeEvent(ctx context.Context, event *out.EmployeeEvent) error {
	return p.Publish(ctx, StreamEmployeeEvents, event.Type, event)
}

// Publish appends payload to stream as JSON under the "data" field.
func (p *RedisProducer) Publish(ctx context.Context, stream, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", kind, err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type": kind,
			"data": string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}
	return nil
}
