package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bizdesk/internal/model"
)

type DistributorInvoiceRepository interface {
	Create(ctx context.Context, invoice *model.DistributorInvoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DistributorInvoice, error)
	ExistsReference(ctx context.Context, distributor, referenceNo string) (bool, error)
	List(ctx context.Context, distributor string, page, limit int) ([]model.DistributorInvoice, int64, error)
}

type distributorInvoiceRepository struct {
	db *gorm.DB
}

func NewDistributorInvoiceRepository(db *gorm.DB) DistributorInvoiceRepository {
	return &distributorInvoiceRepository{db: db}
}

// Create stores the invoice together with its lines
func (r *distributorInvoiceRepository) Create(ctx context.Context, invoice *model.DistributorInvoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *distributorInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DistributorInvoice, error) {
	var invoice model.DistributorInvoice
	if err := GetDB(ctx, r.db).Preload("Lines").First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *distributorInvoiceRepository) ExistsReference(ctx context.Context, distributor, referenceNo string) (bool, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.DistributorInvoice{}).
		Where("LOWER(distributor) = LOWER(?) AND reference_no = ?", distributor, referenceNo).
		Count(&n).Error
	return n > 0, err
}

func (r *distributorInvoiceRepository) List(ctx context.Context, distributor string, page, limit int) ([]model.DistributorInvoice, int64, error) {
	var invoices []model.DistributorInvoice
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if distributor != "" {
			db = db.Where("distributor ILIKE ?", ilike(distributor))
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.DistributorInvoice{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Scopes(scope, paginate(page, limit)).Order("invoice_date desc, created_at desc").Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}
