package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bizdesk/internal/model"
)

type ProductFilter struct {
	Source     string
	CategoryID *uuid.UUID
	Search     string
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter, page, limit int) ([]model.Product, int64, error)
	UpsertBySKU(ctx context.Context, product *model.Product) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Omit("Category").Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Where("sku = ?", sku).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter, page, limit int) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Source != "" {
			db = db.Where("source = ?", filter.Source)
		}
		if filter.CategoryID != nil {
			db = db.Where("category_id = ?", *filter.CategoryID)
		}
		if filter.Search != "" {
			db = db.Where("name ILIKE ? OR sku ILIKE ?", ilike(filter.Search), ilike(filter.Search))
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Product{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Scopes(scope, paginate(page, limit)).Preload("Category").Order("created_at desc").Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// UpsertBySKU inserts the product or reprices the existing row with the same SKU.
// Imported stock is added to what is already on hand.
func (r *productRepository) UpsertBySKU(ctx context.Context, product *model.Product) error {
	db := GetDB(ctx, r.db)
	err := db.Omit("Category").Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":           product.Name,
			"source":         product.Source,
			"category_id":    product.CategoryID,
			"cost_amount":    product.CostAmount,
			"cost_currency":  product.CostCurrency,
			"exchange_rate":  product.ExchangeRate,
			"tax_percent":    product.TaxPercent,
			"markup_percent": product.MarkupPercent,
			"sale_price":     product.SalePrice,
			"sale_currency":  product.SaleCurrency,
			"stock_on_hand":  gorm.Expr("products.stock_on_hand + ?", product.StockOnHand),
			"deleted_at":     nil,
			"updated_at":     gorm.Expr("NOW()"),
		}),
	}).Create(product).Error
	if err != nil {
		return err
	}
	return db.Unscoped().Where("sku = ?", product.SKU).First(product).Error
}
