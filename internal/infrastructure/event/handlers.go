package event

import (
	"context"
	"fmt"

	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// InvoiceEventTypes lists every event the lifecycle engine raises
var InvoiceEventTypes = []string{
	invoice.EventTypeInvoiceCreated,
	invoice.EventTypeInvoiceAdjusted,
	invoice.EventTypeInvoiceSoftDeleted,
	invoice.EventTypeInvoicePaid,
	invoice.EventTypeInvoicePurged,
}

// LoggingHandler writes one audit entry per invoice event
type LoggingHandler struct {
	logger *zap.Logger
}

func NewLoggingHandler(l *zap.Logger) *LoggingHandler {
	return &LoggingHandler{logger: l.Named("invoice-events")}
}

func (h *LoggingHandler) EventTypes() []string { return InvoiceEventTypes }

func (h *LoggingHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	logger.For(ctx, h.logger).Info("Invoice event",
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()),
		zap.String("invoice_id", ev.AggregateID()),
		zap.Time("occurred_at", ev.OccurredAt()),
	)
	return nil
}

// Sink accepts encoded events; the queue publishers satisfy it
type Sink interface {
	Publish(ctx context.Context, body []byte) error
}

// RelayHandler forwards invoice events, wrapped in an Envelope, to an outbound stream
type RelayHandler struct {
	sink Sink
}

func NewRelayHandler(sink Sink) *RelayHandler {
	return &RelayHandler{sink: sink}
}

func (h *RelayHandler) EventTypes() []string { return InvoiceEventTypes }

func (h *RelayHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	body, err := Marshal(ev)
	if err != nil {
		return err
	}
	if err := h.sink.Publish(ctx, body); err != nil {
		return fmt.Errorf("relay %s: %w", ev.EventType(), err)
	}
	return nil
}
