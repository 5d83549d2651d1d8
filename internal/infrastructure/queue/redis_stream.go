package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/invoicing/backend/internal/application/ingestion"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// payloadField is the stream entry field holding the message body
const payloadField = "payload"

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisStreamConfig configures a consumer-group reader on one stream
type RedisStreamConfig struct {
	Stream   string
	Group    string
	Consumer string
	// Block is how long one XREADGROUP waits for new entries
	Block time.Duration
	// ClaimIdle is how long an unacknowledged entry stays pending before it is redelivered
	ClaimIdle time.Duration
	// MaxDeliveries moves an entry to DeadLetterStream once it has been delivered this many times. Zero disables.
	MaxDeliveries    int64
	DeadLetterStream string
	BatchSize        int64
}

// DefaultRedisStreamConfig returns default configuration
func DefaultRedisStreamConfig() RedisStreamConfig {
	return RedisStreamConfig{
		Stream:           "invoices:requests",
		Group:            "invoice-service",
		Consumer:         "invoice-service-1",
		Block:            2 * time.Second,
		ClaimIdle:        30 * time.Second,
		MaxDeliveries:    10,
		DeadLetterStream: "invoices:requests:dead",
		BatchSize:        16,
	}
}

// RedisStreamSource reads a Redis stream through a consumer group. Acknowledged entries
// are XACKed; anything else stays in the group's pending list and is reclaimed with
// XCLAIM once idle for ClaimIdle.
type RedisStreamSource struct {
	client redis.Cmdable
	config RedisStreamConfig
	logger *zap.Logger

	mu        sync.Mutex
	buffer    []redis.XMessage
	lastClaim time.Time
}

// NewRedisStreamSource ensures the consumer group exists and returns a source
func NewRedisStreamSource(ctx context.Context, client redis.Cmdable, cfg RedisStreamConfig, logger *zap.Logger) (*RedisStreamSource, error) {
	defaults := DefaultRedisStreamConfig()
	if cfg.Block <= 0 {
		cfg.Block = defaults.Block
	}
	if cfg.ClaimIdle <= 0 {
		cfg.ClaimIdle = defaults.ClaimIdle
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.Stream == "" || cfg.Group == "" || cfg.Consumer == "" {
		return nil, errors.New("redis stream, group and consumer names are required")
	}

	err := client.XGroupCreateMkStream(ctx, cfg.Stream, cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &RedisStreamSource{
		client: client,
		config: cfg,
		logger: logger,
	}, nil
}

// Receive returns the next buffered, reclaimed or new entry
func (s *RedisStreamSource) Receive(ctx context.Context) (ingestion.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if len(s.buffer) > 0 {
			msg := s.buffer[0]
			s.buffer = s.buffer[1:]
			return &redisDelivery{source: s, msg: msg}, nil
		}

		if time.Since(s.lastClaim) >= s.config.ClaimIdle {
			s.lastClaim = time.Now()
			if err := s.reclaim(ctx); err != nil {
				return nil, err
			}
			if len(s.buffer) > 0 {
				continue
			}
		}

		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.config.Group,
			Consumer: s.config.Consumer,
			Streams:  []string{s.config.Stream, ">"},
			Count:    s.config.BatchSize,
			Block:    s.config.Block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("xreadgroup %s: %w", s.config.Stream, err)
		}
		for _, stream := range streams {
			s.buffer = append(s.buffer, stream.Messages...)
		}
	}
}

// reclaim takes over entries left pending longer than ClaimIdle and dead-letters
// those that exceeded MaxDeliveries
func (s *RedisStreamSource) reclaim(ctx context.Context) error {
	pending, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: s.config.Stream,
		Group:  s.config.Group,
		Idle:   s.config.ClaimIdle,
		Start:  "-",
		End:    "+",
		Count:  s.config.BatchSize,
	}).Result()
	if err != nil {
		return fmt.Errorf("xpending %s: %w", s.config.Stream, err)
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		if s.config.MaxDeliveries > 0 && p.RetryCount >= s.config.MaxDeliveries {
			if err := s.deadLetter(ctx, p.ID, p.RetryCount); err != nil {
				s.logger.Error("failed to dead-letter stream entry", zap.String("entry_id", p.ID), zap.Error(err))
			}
			continue
		}
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	claimed, err := s.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   s.config.Stream,
		Group:    s.config.Group,
		Consumer: s.config.Consumer,
		MinIdle:  s.config.ClaimIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return fmt.Errorf("xclaim %s: %w", s.config.Stream, err)
	}
	if len(claimed) > 0 {
		s.logger.Info("reclaimed pending stream entries", zap.Int("count", len(claimed)))
	}
	s.buffer = append(s.buffer, claimed...)
	return nil
}

func (s *RedisStreamSource) deadLetter(ctx context.Context, id string, deliveries int64) error {
	entries, err := s.client.XRange(ctx, s.config.Stream, id, id).Result()
	if err != nil {
		return err
	}
	if s.config.DeadLetterStream != "" && len(entries) > 0 {
		values := map[string]any{
			"source_id":  id,
			"deliveries": deliveries,
		}
		for k, v := range entries[0].Values {
			values[k] = v
		}
		if err := s.client.XAdd(ctx, &redis.XAddArgs{Stream: s.config.DeadLetterStream, Values: values}).Err(); err != nil {
			return err
		}
	}
	s.logger.Warn("stream entry dead-lettered",
		zap.String("entry_id", id),
		zap.Int64("deliveries", deliveries),
		zap.String("dead_letter_stream", s.config.DeadLetterStream),
	)
	return s.client.XAck(ctx, s.config.Stream, s.config.Group, id).Err()
}

// Close is a no-op; the Redis client is owned by the caller
func (s *RedisStreamSource) Close() error {
	return nil
}

type redisDelivery struct {
	source *RedisStreamSource
	msg    redis.XMessage
}

func (d *redisDelivery) ID() string { return d.msg.ID }

func (d *redisDelivery) Body() []byte {
	switch v := d.msg.Values[payloadField].(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	default:
		return nil
	}
}

func (d *redisDelivery) Ack(ctx context.Context) error {
	return d.source.client.XAck(ctx, d.source.config.Stream, d.source.config.Group, d.msg.ID).Err()
}

// Nack leaves the entry pending; it is reclaimed after ClaimIdle
func (d *redisDelivery) Nack(context.Context) error {
	return nil
}

// RedisStreamPublisher appends payloads to a stream
type RedisStreamPublisher struct {
	client redis.Cmdable
	stream string
}

// NewRedisStreamPublisher creates a new publisher
func NewRedisStreamPublisher(client redis.Cmdable, stream string) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, stream: stream}
}

// Publish appends one entry
func (p *RedisStreamPublisher) Publish(ctx context.Context, body []byte) error {
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{payloadField: string(body)},
	}).Err()
}
