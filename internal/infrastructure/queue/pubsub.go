package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/invoicing/backend/internal/application/ingestion"
	"go.uber.org/zap"
)

// PubSubConfig configures the Google Cloud Pub/Sub transport
type PubSubConfig struct {
	ProjectID      string
	Topic          string
	Subscription   string
	MaxOutstanding int
}

// ErrPubSubInitialization is returned when the client cannot be created
var ErrPubSubInitialization = errors.New("pubsub initialization error")

// NewPubSubClient creates a Pub/Sub client for the configured project
func NewPubSubClient(ctx context.Context, cfg PubSubConfig, logger *zap.Logger) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error(ErrPubSubInitialization.Error(), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPubSubInitialization, err)
	}
	return client, nil
}

// PubSubSource adapts a streaming-pull subscription to a pull-style Source.
// Redelivery after Nack or ack deadline expiry is handled by Pub/Sub; dead
// lettering is configured on the subscription.
type PubSubSource struct {
	sub    *pubsub.Subscription
	logger *zap.Logger

	startOnce sync.Once
	closeOnce sync.Once
	messages  chan *pubsub.Message
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
}

// NewPubSubSource creates a source on the configured subscription
func NewPubSubSource(client *pubsub.Client, cfg PubSubConfig, logger *zap.Logger) *PubSubSource {
	sub := client.Subscription(cfg.Subscription)
	if cfg.MaxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstanding
	}
	return &PubSubSource{
		sub:      sub,
		logger:   logger,
		messages: make(chan *pubsub.Message),
		done:     make(chan struct{}),
	}
}

func (s *PubSubSource) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		defer close(s.done)
		err := s.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
			select {
			case s.messages <- msg:
			case <-ctx.Done():
				msg.Nack()
			}
		})
		if err != nil {
			s.logger.Error("pubsub receive stopped", zap.String("subscription", s.sub.ID()), zap.Error(err))
			s.err = err
		}
	}()
}

// Receive blocks until Pub/Sub hands over a message
func (s *PubSubSource) Receive(ctx context.Context) (ingestion.Delivery, error) {
	s.startOnce.Do(s.start)

	select {
	case msg := <-s.messages:
		return &pubsubDelivery{msg: msg}, nil
	case <-s.done:
		if s.err != nil {
			return nil, s.err
		}
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the streaming pull and waits for it to return
func (s *PubSubSource) Close() error {
	s.closeOnce.Do(func() {
		s.startOnce.Do(func() { close(s.done) })
		if s.cancel != nil {
			s.cancel()
		}
	})
	<-s.done
	return nil
}

type pubsubDelivery struct {
	msg *pubsub.Message
}

func (d *pubsubDelivery) ID() string   { return d.msg.ID }
func (d *pubsubDelivery) Body() []byte { return d.msg.Data }

func (d *pubsubDelivery) Ack(context.Context) error {
	d.msg.Ack()
	return nil
}

func (d *pubsubDelivery) Nack(context.Context) error {
	d.msg.Nack()
	return nil
}

// PubSubPublisher publishes payloads to a topic and waits for the server id
type PubSubPublisher struct {
	topic *pubsub.Topic
}

// NewPubSubPublisher creates a publisher for the configured topic
func NewPubSubPublisher(client *pubsub.Client, cfg PubSubConfig) *PubSubPublisher {
	return &PubSubPublisher{topic: client.Topic(cfg.Topic)}
}

// Publish sends one message
func (p *PubSubPublisher) Publish(ctx context.Context, body []byte) error {
	res := p.topic.Publish(ctx, &pubsub.Message{Data: body})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic.ID(), err)
	}
	return nil
}

// Stop flushes pending publishes
func (p *PubSubPublisher) Stop() {
	p.topic.Stop()
}
