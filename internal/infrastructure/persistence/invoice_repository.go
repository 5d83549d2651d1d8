package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements invoice.Repository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

var _ invoice.Repository = (*GormInvoiceRepository)(nil)

func (r *GormInvoiceRepository) scoped(ctx context.Context, includeDeleted bool) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	return q.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// Add inserts the invoice row and its items in one transaction
func (r *GormInvoiceRepository) Add(ctx context.Context, inv *invoice.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	return translateWriteError(err)
}

// Get finds an invoice by id
func (r *GormInvoiceRepository) Get(ctx context.Context, id string, includeDeleted bool) (*invoice.Invoice, error) {
	var model models.InvoiceModel
	if err := r.scoped(ctx, includeDeleted).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListBySubject returns a subject's invoices, newest first
func (r *GormInvoiceRepository) ListBySubject(ctx context.Context, subjectID string, includeDeleted bool) ([]*invoice.Invoice, error) {
	return r.list(r.scoped(ctx, includeDeleted).Where("subject_id = ?", subjectID))
}

// ListAll returns every invoice, newest first
func (r *GormInvoiceRepository) ListAll(ctx context.Context, includeDeleted bool) ([]*invoice.Invoice, error) {
	return r.list(r.scoped(ctx, includeDeleted))
}

func (r *GormInvoiceRepository) list(q *gorm.DB) ([]*invoice.Invoice, error) {
	var rows []models.InvoiceModel
	if err := q.Order("created_at DESC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*invoice.Invoice, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// ExistsActiveForBooking reports whether a non-deleted invoice references the booking
func (r *GormInvoiceRepository) ExistsActiveForBooking(ctx context.Context, bookingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("booking_id = ? AND is_deleted = ?", bookingID, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update writes every column and replaces the item set in one transaction
func (r *GormInvoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	items := model.Items
	model.Items = nil

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.InvoiceModel{}).
			Where("id = ?", model.ID).
			Select("*").Omit("id", "created_at").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}

		if err := tx.Where("invoice_id = ?", model.ID).Delete(&models.InvoiceItemModel{}).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translateWriteError(err)
}

// HardDelete removes the invoice and its items. Unknown ids are a no-op.
func (r *GormInvoiceRepository) HardDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItemModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.InvoiceModel{}).Error
	})
}

// translateWriteError maps unique violations on the active-booking index to ErrConflict
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return shared.ErrConflict
	}
	return err
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
