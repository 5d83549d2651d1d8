package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/invoicing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Operation names used for logging and metrics
const (
	OpCreate          = "create"
	OpCreateIngested  = "create_ingested"
	OpUpdate          = "update"
	OpSoftDelete      = "soft_delete"
	OpHardDelete      = "hard_delete"
	OpMarkPaid        = "mark_paid"
	OpMarkPaidAsAdmin = "mark_paid_admin"
)

// OutcomeRecorder receives one observation per completed mutating operation
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, operation string, status Status)
}

// Policy holds the default rates of each creation path and the payment term
type Policy struct {
	AdminRates     invoice.Rates
	IngestionRates invoice.Rates
	PaymentTerm    time.Duration
}

// DefaultPolicy returns admin fee 5, ingestion fee 10, tax 0.25 and a 30 day term
func DefaultPolicy() Policy {
	return Policy{
		AdminRates:     invoice.AdminRates(),
		IngestionRates: invoice.IngestionRates(),
		PaymentTerm:    invoice.DefaultPaymentTerm,
	}
}

// Service is the invoice lifecycle engine. Every operation re-reads current state,
// applies one transition and persists it; no invoice state is cached between calls.
type Service struct {
	repo     invoice.Repository
	events   shared.EventPublisher
	recorder OutcomeRecorder
	logger   *zap.Logger
	policy   Policy
	now      func() time.Time
	newID    func() string
}

// Option configures a Service
type Option func(*Service)

// WithEventPublisher publishes domain events after successful persistence
func WithEventPublisher(p shared.EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithOutcomeRecorder records operation outcomes
func WithOutcomeRecorder(r OutcomeRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithPolicy overrides the default rates and payment term
func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides invoice id generation
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// NewService creates a new Service
func NewService(repo invoice.Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: zap.NewNop(),
		policy: DefaultPolicy(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the active rate policy
func (s *Service) Policy() Policy {
	return s.policy
}

// Create issues an invoice through the administrative path: admin default rates with
// optional per-request overrides.
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest) Result {
	items, err := buildLineItems(req.Items)
	if err != nil {
		return s.finish(ctx, OpCreate, "", failFromError(err))
	}
	rates := s.policy.AdminRates.Apply(req.Overrides())
	return s.issue(ctx, OpCreate, req.Identity(), req.BillingFields.details(items), rates)
}

// CreateFromIngestion issues an invoice for a queue message using the ingestion default
// rates. Messages cannot override rates.
func (s *Service) CreateFromIngestion(ctx context.Context, identity invoice.Identity, details invoice.Details) Result {
	return s.issue(ctx, OpCreateIngested, identity, details, s.policy.IngestionRates)
}

func (s *Service) issue(ctx context.Context, op string, identity invoice.Identity, details invoice.Details, rates invoice.Rates) Result {
	exists, err := s.repo.ExistsActiveForBooking(ctx, identity.BookingID)
	if err != nil {
		return s.finish(ctx, op, "", failFromError(err))
	}
	if exists {
		return s.finish(ctx, op, "", s.bookingConflict(identity.BookingID, shared.ErrConflict))
	}

	inv, err := invoice.New(s.newID(), identity, details, rates, s.term())
	if err != nil {
		return s.finish(ctx, op, "", failFromError(err))
	}

	if err := s.repo.Add(ctx, inv); err != nil {
		// The store's uniqueness constraint catches creates racing past the existence check.
		if errors.Is(err, shared.ErrConflict) {
			return s.finish(ctx, op, inv.ID, s.bookingConflict(identity.BookingID, err))
		}
		return s.finish(ctx, op, inv.ID, failFromError(err))
	}

	s.publish(ctx, inv)
	resp := ToInvoiceResponse(inv)
	return s.finish(ctx, op, inv.ID, ok(StatusCreated, "Invoice created.", &resp))
}

func (s *Service) bookingConflict(bookingID string, cause error) Result {
	return fail(StatusConflict,
		fmt.Sprintf("Invoice already exists for booking %s. Use update instead.", bookingID), cause)
}

// Update applies an administrative correction. The identity triple must match the stored
// invoice; on mismatch nothing is changed.
func (s *Service) Update(ctx context.Context, id string, req UpdateInvoiceRequest) Result {
	items, err := buildLineItems(req.Items)
	if err != nil {
		return s.finish(ctx, OpUpdate, id, failFromError(err))
	}

	inv, res, found := s.load(ctx, id, false)
	if !found {
		return s.finish(ctx, OpUpdate, id, res)
	}
	if !invoice.Verify(inv, req.Identity()) {
		return s.finish(ctx, OpUpdate, id, fail(StatusValidationMismatch,
			"Provided IDs do not match the invoice record. Update aborted to prevent data inconsistency.",
			shared.ErrValidationMismatch))
	}

	rates := s.policy.AdminRates.Apply(req.Overrides())
	if err := inv.Adjust(req.BillingFields.details(items), rates, s.term(), req.AdjustedBy, req.AdjustmentReason); err != nil {
		return s.finish(ctx, OpUpdate, id, failFromError(err))
	}
	return s.persist(ctx, OpUpdate, inv, "Invoice updated.")
}

// SoftDelete hides an invoice from default reads after verifying the identity triple.
func (s *Service) SoftDelete(ctx context.Context, id string, req SoftDeleteInvoiceRequest) Result {
	inv, res, found := s.load(ctx, id, false)
	if !found {
		return s.finish(ctx, OpSoftDelete, id, res)
	}
	if !invoice.Verify(inv, req.Identity()) {
		return s.finish(ctx, OpSoftDelete, id, fail(StatusValidationMismatch,
			"Provided IDs do not match the invoice record. Delete aborted to prevent data inconsistency.",
			shared.ErrValidationMismatch))
	}

	if err := inv.SoftDelete(req.DeletedBy, req.DeletionReason, s.now()); err != nil {
		return s.finish(ctx, OpSoftDelete, id, failFromError(err))
	}
	return s.persist(ctx, OpSoftDelete, inv, "Invoice deleted.")
}

// HardDelete permanently removes an invoice. Soft-deleted invoices can be purged.
func (s *Service) HardDelete(ctx context.Context, id string) Result {
	inv, err := s.repo.Get(ctx, id, true)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return s.finish(ctx, OpHardDelete, id, fail(StatusNotFound,
				fmt.Sprintf("Invoice with ID '%s' was not found.", id), err))
		}
		return s.finish(ctx, OpHardDelete, id, failFromError(err))
	}

	if err := s.repo.HardDelete(ctx, id); err != nil {
		return s.finish(ctx, OpHardDelete, id, failFromError(err))
	}

	inv.AddDomainEvent(invoice.NewInvoicePurgedEvent(inv, s.now()))
	s.publish(ctx, inv)
	return s.finish(ctx, OpHardDelete, id, ok(StatusOK, "Invoice permanently deleted.", nil))
}

// MarkPaid is the self-service payment path: the acting subject must own the invoice.
func (s *Service) MarkPaid(ctx context.Context, id, subjectID string) Result {
	inv, res, found := s.load(ctx, id, false)
	if !found {
		return s.finish(ctx, OpMarkPaid, id, res)
	}
	if inv.SubjectID != subjectID {
		return s.finish(ctx, OpMarkPaid, id, fail(StatusPermissionDenied,
			"You do not have permission to pay this invoice.", shared.ErrPermissionDenied))
	}
	if err := inv.MarkPaid(false, s.now()); err != nil {
		return s.finish(ctx, OpMarkPaid, id, failFromError(err))
	}
	return s.persist(ctx, OpMarkPaid, inv, "Invoice marked as paid.")
}

// MarkPaidAsAdmin marks any invoice paid without an ownership check.
func (s *Service) MarkPaidAsAdmin(ctx context.Context, id string) Result {
	inv, res, found := s.load(ctx, id, false)
	if !found {
		return s.finish(ctx, OpMarkPaidAsAdmin, id, res)
	}
	if err := inv.MarkPaid(true, s.now()); err != nil {
		return s.finish(ctx, OpMarkPaidAsAdmin, id, failFromError(err))
	}
	return s.persist(ctx, OpMarkPaidAsAdmin, inv, "Invoice marked as paid.")
}

// GetByID returns an active invoice
func (s *Service) GetByID(ctx context.Context, id string) Result {
	inv, res, found := s.load(ctx, id, false)
	if !found {
		return res
	}
	resp := ToInvoiceResponse(inv)
	return ok(StatusOK, "", &resp)
}

// GetForSubject returns an active invoice only if it belongs to subjectID
func (s *Service) GetForSubject(ctx context.Context, id, subjectID string) Result {
	inv, res, found := s.load(ctx, id, false)
	if !found {
		return res
	}
	if inv.SubjectID != subjectID {
		return fail(StatusPermissionDenied, "You do not have permission to view this invoice.", shared.ErrPermissionDenied)
	}
	resp := ToInvoiceResponse(inv)
	return ok(StatusOK, "", &resp)
}

// ListForSubject returns the subject's active invoices, newest first
func (s *Service) ListForSubject(ctx context.Context, subjectID string) ListResult {
	invoices, err := s.repo.ListBySubject(ctx, subjectID, false)
	return s.listResult(invoices, err)
}

// ListAll returns every active invoice, newest first
func (s *Service) ListAll(ctx context.Context) ListResult {
	invoices, err := s.repo.ListAll(ctx, false)
	return s.listResult(invoices, err)
}

func (s *Service) listResult(invoices []*invoice.Invoice, err error) ListResult {
	if err != nil {
		r := failFromError(err)
		return ListResult{Status: r.Status, Message: r.Message, Err: err}
	}
	return ListResult{Success: true, Status: StatusOK, Invoices: toInvoiceResponses(invoices)}
}

// load reads an invoice and converts a miss into a not-found result
func (s *Service) load(ctx context.Context, id string, includeDeleted bool) (*invoice.Invoice, Result, bool) {
	inv, err := s.repo.Get(ctx, id, includeDeleted)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fail(StatusNotFound, "Invoice not found.", err), false
		}
		return nil, failFromError(err), false
	}
	return inv, Result{}, true
}

func (s *Service) persist(ctx context.Context, op string, inv *invoice.Invoice, message string) Result {
	if err := s.repo.Update(ctx, inv); err != nil {
		return s.finish(ctx, op, inv.ID, failFromError(err))
	}
	s.publish(ctx, inv)
	resp := ToInvoiceResponse(inv)
	return s.finish(ctx, op, inv.ID, ok(StatusOK, message, &resp))
}

func (s *Service) term() invoice.Term {
	return invoice.Term{Now: s.now(), DueAfter: s.policy.PaymentTerm}
}

func (s *Service) publish(ctx context.Context, inv *invoice.Invoice) {
	events := inv.GetDomainEvents()
	inv.ClearDomainEvents()
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish invoice events",
			zap.String("invoice_id", inv.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) finish(ctx context.Context, op, invoiceID string, res Result) Result {
	if s.recorder != nil {
		s.recorder.RecordOutcome(ctx, op, res.Status)
	}

	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("status", string(res.Status)),
	}
	if invoiceID != "" {
		fields = append(fields, zap.String("invoice_id", invoiceID))
	}
	switch {
	case res.Success:
		s.logger.Info("Invoice operation succeeded", fields...)
	case res.Status == StatusPersistenceFailure:
		s.logger.Error("Invoice operation failed", append(fields, zap.Error(res.Err))...)
	default:
		s.logger.Info("Invoice operation rejected", append(fields, zap.String("reason", res.Message))...)
	}
	return res
}
