package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/domain/event"
	"github.com/amirasaad/ledger/pkg/eventbus"

	"github.com/redis/go-redis/v9"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RedisEventBus implements the Bus interface on Redis Streams with one
// stream per event-type subject and a consumer group per process role.
// Delivery is at-least-once: redelivery after reconnect and duplicate reads
// are expected, so handlers must be idempotent.
type RedisEventBus struct {
	client    *redis.Client
	group     string
	blockTime time.Duration
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewWithRedis creates a new Redis-backed event bus from the given config.
func NewWithRedis(cfg *config.Redis, logger *slog.Logger) (*RedisEventBus, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("redis event bus: url is required")
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis event bus: invalid URL: %w", err)
	}
	opt.PoolSize = cfg.PoolSize
	opt.DialTimeout = cfg.DialTimeout
	opt.ReadTimeout = cfg.ReadTimeout
	opt.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis event bus: connection failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:    client,
		group:     cfg.Group,
		blockTime: cfg.BlockTime,
		logger:    logger.With("component", "redis-event-bus"),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Emit publishes an event to its subject's stream.
func (b *RedisEventBus) Emit(ctx context.Context, e *event.Event) error {
	if b.client == nil {
		return fmt.Errorf("redis event bus: client not initialized")
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis event bus: marshal failed: %w", err)
	}
	env := envelope{Type: e.EventType, Payload: data}
	envBytes, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("redis event bus: envelope marshal failed: %w", err)
	}

	stream := streamFor(e.EventType)
	_, err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"event": string(envBytes)},
	}).Result()
	if err != nil {
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}

	b.logger.Debug("event emitted", "type", e.EventType, "stream", stream, "event_id", e.ID)
	return nil
}

// Register starts a consumer group reader for the event type's stream,
// calling handler for each delivered event. The consumer loop runs until
// Close cancels the bus context; handler errors and panics push the raw
// message to the subject's DLQ stream and never stop the loop.
func (b *RedisEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	stream := streamFor(eventType)
	consumer := fmt.Sprintf("consumer-%s-%d", eventType, time.Now().UnixNano())

	_ = b.client.XGroupCreateMkStream(b.ctx, stream, b.group, "0")
	b.logger.Info("registering handler",
		"event_type", eventType, "stream", stream, "consumer", consumer)

	go func() {
		for {
			select {
			case <-b.ctx.Done():
				b.logger.Info("consumer stopped", "consumer", consumer)
				return
			default:
			}

			res, err := b.client.XReadGroup(b.ctx, &redis.XReadGroupArgs{
				Group:    b.group,
				Consumer: consumer,
				Streams:  []string{stream, ">"},
				Count:    1,
				Block:    b.blockTime,
			}).Result()
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				if !errors.Is(err, redis.Nil) {
					b.logger.Error("error reading from stream",
						"error", err, "consumer", consumer)
					time.Sleep(time.Second)
				}
				continue
			}

			for _, str := range res {
				for _, msg := range str.Messages {
					b.handleMessage(eventType, stream, msg, handler)
				}
			}
		}
	}()
}

func (b *RedisEventBus) handleMessage(
	eventType, stream string,
	msg redis.XMessage,
	handler eventbus.HandlerFunc,
) {
	raw, ok := msg.Values["event"].(string)
	if !ok {
		return
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		b.logger.Error("failed to unmarshal envelope", "error", err)
		return
	}
	if env.Type != eventType {
		b.logger.Debug("event type mismatch", "got", env.Type, "expected", eventType)
		return
	}

	var e event.Event
	if err := json.Unmarshal(env.Payload, &e); err != nil {
		b.logger.Error("failed to unmarshal payload", "error", err, "event_type", env.Type)
		b.pushToDLQ(eventType, msg.Values)
		return
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("handler panic recovered", "panic", r, "event_type", env.Type)
				b.pushToDLQ(eventType, msg.Values)
			}
		}()
		if err := handler(b.ctx, &e); err != nil {
			b.logger.Error("handler error", "error", err, "event_type", env.Type)
			b.pushToDLQ(eventType, msg.Values)
		}
	}()

	if err := b.client.XAck(b.ctx, stream, b.group, msg.ID).Err(); err != nil {
		b.logger.Error("failed to acknowledge message", "error", err, "msg_id", msg.ID)
	}
}

// pushToDLQ pushes the raw message to the subject's DLQ stream for
// inspection or reprocessing.
func (b *RedisEventBus) pushToDLQ(eventType string, values map[string]any) {
	dlq := dlqStreamFor(eventType)
	if _, err := b.client.XAdd(b.ctx, &redis.XAddArgs{
		Stream: dlq,
		Values: values,
	}).Result(); err != nil {
		b.logger.Error("failed to push to DLQ", "error", err, "stream", dlq)
	} else {
		b.logger.Warn("event pushed to DLQ", "stream", dlq)
	}
}

// Close cancels the consumer loops and releases the client. In-flight
// handlers drain before their loop observes the cancellation.
func (b *RedisEventBus) Close() error {
	b.cancel()
	return b.client.Close()
}

// Ensure RedisEventBus implements the Bus interface.
var _ eventbus.Bus = (*RedisEventBus)(nil)
