package telemetry

import (
	"context"
	"errors"

	appinvoice "github.com/invoicing/backend/internal/application/invoice"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a nil meter is passed to a metrics constructor.
var ErrMeterNil = errors.New("meter cannot be nil")

// InvoiceMetrics counts lifecycle operations by operation and result status.
type InvoiceMetrics struct {
	operations metric.Int64Counter
	failures   metric.Int64Counter
}

var _ appinvoice.OutcomeRecorder = (*InvoiceMetrics)(nil)

// NewInvoiceMetrics registers the invoice counters on meter.
func NewInvoiceMetrics(meter metric.Meter) (*InvoiceMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	operations, err := meter.Int64Counter(
		"invoice_operations_total",
		metric.WithDescription("Invoice lifecycle operations by operation and status"),
		metric.WithUnit("{operations}"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"invoice_operation_failures_total",
		metric.WithDescription("Invoice lifecycle operations that did not succeed"),
		metric.WithUnit("{operations}"),
	)
	if err != nil {
		return nil, err
	}
	return &InvoiceMetrics{operations: operations, failures: failures}, nil
}

// RecordOutcome implements appinvoice.OutcomeRecorder.
func (m *InvoiceMetrics) RecordOutcome(ctx context.Context, operation string, status appinvoice.Status) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", string(status)),
	)
	m.operations.Add(ctx, 1, attrs)
	if status != appinvoice.StatusOK && status != appinvoice.StatusCreated {
		m.failures.Add(ctx, 1, attrs)
	}
}
