package queue

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/invoicing/backend/internal/application/ingestion"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Transport bundles the source and publisher of one configured driver
type Transport struct {
	Driver    string
	Source    ingestion.Source
	Publisher ingestion.Publisher
	closers   []func() error
}

// Close releases the source and any client the transport owns
func (t *Transport) Close() error {
	var result *multierror.Error
	for i := len(t.closers) - 1; i >= 0; i-- {
		if err := t.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Factory creates ingestion transports based on configuration
type Factory struct {
	queueConfig config.QueueConfig
	redisConfig config.RedisConfig
	logger      *zap.Logger
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory and the transports it creates
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// NewFactory creates a new factory
func NewFactory(queueCfg config.QueueConfig, redisCfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		queueConfig: queueCfg,
		redisConfig: redisCfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create builds the transport named by queue.driver
func (f *Factory) Create(ctx context.Context) (*Transport, error) {
	switch f.queueConfig.Driver {
	case DriverMemory:
		q := NewMemoryQueue()
		return &Transport{Driver: DriverMemory, Source: q, Publisher: q, closers: []func() error{q.Close}}, nil
	case DriverRedis:
		return f.createRedis(ctx)
	case DriverPubSub:
		return f.createPubSub(ctx)
	default:
		return nil, fmt.Errorf("unknown queue driver %q", f.queueConfig.Driver)
	}
}

func (f *Factory) createRedis(ctx context.Context) (*Transport, error) {
	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		return nil, err
	}

	src, err := NewRedisStreamSource(ctx, client, RedisStreamConfig{
		Stream:           f.queueConfig.RedisStream,
		Group:            f.queueConfig.RedisGroup,
		Consumer:         f.queueConfig.RedisConsumer,
		Block:            f.queueConfig.RedisBlock,
		ClaimIdle:        f.queueConfig.RedisClaimIdle,
		MaxDeliveries:    f.queueConfig.RedisMaxDeliveries,
		DeadLetterStream: f.queueConfig.RedisDeadLetterStream,
	}, f.logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	f.logger.Info("Using Redis stream ingestion transport",
		zap.String("stream", f.queueConfig.RedisStream),
		zap.String("group", f.queueConfig.RedisGroup),
	)
	return &Transport{
		Driver:    DriverRedis,
		Source:    src,
		Publisher: NewRedisStreamPublisher(client, f.queueConfig.RedisStream),
		closers:   []func() error{client.Close, src.Close},
	}, nil
}

func (f *Factory) createPubSub(ctx context.Context) (*Transport, error) {
	cfg := PubSubConfig{
		ProjectID:      f.queueConfig.PubSubProjectID,
		Topic:          f.queueConfig.PubSubTopic,
		Subscription:   f.queueConfig.PubSubSubscription,
		MaxOutstanding: f.queueConfig.PubSubMaxOutstanding,
	}
	client, err := NewPubSubClient(ctx, cfg, f.logger)
	if err != nil {
		return nil, err
	}

	src := NewPubSubSource(client, cfg, f.logger)
	t := &Transport{
		Driver:  DriverPubSub,
		Source:  src,
		closers: []func() error{client.Close, src.Close},
	}
	if cfg.Topic != "" {
		pub := NewPubSubPublisher(client, cfg)
		t.Publisher = pub
		t.closers = append(t.closers, func() error { pub.Stop(); return nil })
	}

	f.logger.Info("Using Pub/Sub ingestion transport", zap.String("subscription", cfg.Subscription))
	return t, nil
}
