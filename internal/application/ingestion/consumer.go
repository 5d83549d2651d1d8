package ingestion

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	appinvoice "github.com/invoicing/backend/internal/application/invoice"
	"github.com/invoicing/backend/internal/domain/invoice"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Outcome classifies how a delivery was settled
type Outcome string

const (
	// OutcomeAcked means an invoice was created and the delivery acknowledged
	OutcomeAcked Outcome = "acked"
	// OutcomeDuplicate means the booking already had an invoice; acknowledged without creating one
	OutcomeDuplicate Outcome = "acked_duplicate"
	// OutcomeMalformed means the payload could not be turned into an invoice; not acknowledged
	OutcomeMalformed Outcome = "rejected_malformed"
	// OutcomeRetry means persistence failed; not acknowledged so the transport redelivers
	OutcomeRetry Outcome = "retry"
)

// InvoiceCreator is the creation path of the lifecycle engine used by the consumer
type InvoiceCreator interface {
	CreateFromIngestion(ctx context.Context, identity invoice.Identity, details invoice.Details) appinvoice.Result
}

// Metrics observes settled deliveries
type Metrics interface {
	ObserveDelivery(outcome string, duration time.Duration)
}

// ConsumerConfig holds configuration for the consumer
type ConsumerConfig struct {
	// Concurrency bounds the number of deliveries handled at once
	Concurrency int
	// ReceiveBackoff is the pause after a failed receive
	ReceiveBackoff time.Duration
}

// DefaultConsumerConfig returns default configuration
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Concurrency:    4,
		ReceiveBackoff: time.Second,
	}
}

// ConsumerStats is a snapshot of consumer counters
type ConsumerStats struct {
	Received   int64 `json:"received"`
	Acked      int64 `json:"acked"`
	Duplicates int64 `json:"duplicates"`
	Malformed  int64 `json:"malformed"`
	Retries    int64 `json:"retries"`
}

// Consumer turns queue deliveries into invoices. A delivery is acknowledged only after
// the invoice is persisted, or when the booking already has an invoice.
type Consumer struct {
	source  Source
	creator InvoiceCreator
	config  ConsumerConfig
	logger  *zap.Logger
	metrics Metrics

	received   atomic.Int64
	acked      atomic.Int64
	duplicates atomic.Int64
	malformed  atomic.Int64
	retries    atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewConsumer creates a new consumer
func NewConsumer(source Source, creator InvoiceCreator, config ConsumerConfig, logger *zap.Logger) *Consumer {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.ReceiveBackoff <= 0 {
		config.ReceiveBackoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		source:  source,
		creator: creator,
		config:  config,
		logger:  logger,
	}
}

// WithMetrics attaches a metrics sink
func (c *Consumer) WithMetrics(m Metrics) *Consumer {
	c.metrics = m
	return c
}

// Start runs the consumer in the background until Stop is called or ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return errors.New("consumer already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		if err := c.Run(ctx); err != nil {
			c.logger.Error("ingestion consumer exited", zap.Error(err))
		}
	}(c.done)

	c.logger.Info("ingestion consumer started", zap.Int("concurrency", c.config.Concurrency))
	return nil
}

// Stop stops receiving and waits for in-flight deliveries to settle, or for ctx to expire.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		c.logger.Info("ingestion consumer stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run receives until ctx is cancelled, then waits for in-flight handlers.
// Handlers run on a context detached from ctx so a cancelled receive loop does not
// abort a create that is already persisting.
func (c *Consumer) Run(ctx context.Context) error {
	handleCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(c.config.Concurrency)

	for {
		d, err := c.source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.Warn("receive failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(c.config.ReceiveBackoff):
			}
			continue
		}

		g.Go(func() error {
			c.HandleDelivery(handleCtx, d)
			return nil
		})
	}

	return g.Wait()
}

// HandleDelivery settles a single delivery and reports how
func (c *Consumer) HandleDelivery(ctx context.Context, d Delivery) Outcome {
	start := time.Now()
	c.received.Add(1)
	logger := c.logger.With(zap.String("delivery_id", d.ID()))

	outcome := c.handle(ctx, d, logger)

	switch outcome {
	case OutcomeAcked:
		c.acked.Add(1)
	case OutcomeDuplicate:
		c.duplicates.Add(1)
	case OutcomeMalformed:
		c.malformed.Add(1)
	case OutcomeRetry:
		c.retries.Add(1)
	}
	if c.metrics != nil {
		c.metrics.ObserveDelivery(string(outcome), time.Since(start))
	}
	return outcome
}

func (c *Consumer) handle(ctx context.Context, d Delivery, logger *zap.Logger) Outcome {
	msg, err := DecodeMessage(d.Body())
	if err != nil {
		logger.Error("malformed invoice message", zap.Error(err))
		c.nack(ctx, d, logger)
		return OutcomeMalformed
	}
	logger = logger.With(zap.String("booking_id", msg.BookingID))

	details, err := msg.Details()
	if err != nil {
		logger.Error("malformed invoice message", zap.Error(err))
		c.nack(ctx, d, logger)
		return OutcomeMalformed
	}

	res := c.creator.CreateFromIngestion(ctx, msg.Identity(), details)
	switch {
	case res.Success:
		c.ack(ctx, d, logger)
		logger.Info("invoice created from message", zap.String("invoice_id", res.Invoice.ID))
		return OutcomeAcked

	case res.Status == appinvoice.StatusConflict:
		// A redelivery of a message whose invoice already exists.
		logger.Warn("invoice already exists for booking, acknowledging duplicate", zap.String("reason", res.Message))
		c.ack(ctx, d, logger)
		return OutcomeDuplicate

	case res.Status == appinvoice.StatusInvalidInput:
		logger.Error("invoice message rejected", zap.String("reason", res.Message))
		c.nack(ctx, d, logger)
		return OutcomeMalformed

	default:
		logger.Error("invoice creation failed, leaving message for redelivery",
			zap.String("status", string(res.Status)),
			zap.Error(res.Err),
		)
		c.nack(ctx, d, logger)
		return OutcomeRetry
	}
}

func (c *Consumer) ack(ctx context.Context, d Delivery, logger *zap.Logger) {
	if err := d.Ack(ctx); err != nil {
		// The invoice is persisted; a redelivery will settle as a duplicate.
		logger.Warn("failed to acknowledge delivery", zap.Error(err))
	}
}

func (c *Consumer) nack(ctx context.Context, d Delivery, logger *zap.Logger) {
	if err := d.Nack(ctx); err != nil {
		logger.Warn("failed to release delivery", zap.Error(err))
	}
}

// Stats returns a snapshot of the consumer counters
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Received:   c.received.Load(),
		Acked:      c.acked.Load(),
		Duplicates: c.duplicates.Load(),
		Malformed:  c.malformed.Load(),
		Retries:    c.retries.Load(),
	}
}
