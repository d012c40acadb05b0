package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"bizdesk/internal/model"
)

type StatisticsRepository interface {
	CountByStatus(ctx context.Context, kind model.EntityKind, start, end time.Time) ([]model.StatusCount, error)
	OpenTicketsByPriority(ctx context.Context) ([]model.StatusCount, error)
	InvoiceTotals(ctx context.Context, status string, start, end time.Time) (value string, count int64, err error)
	RevenueByPeriod(ctx context.Context, groupBy string, start, end time.Time) ([]model.RevenuePoint, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

// CountByStatus groups records of kind created within [start, end] by status
func (r *statisticsRepository) CountByStatus(ctx context.Context, kind model.EntityKind, start, end time.Time) ([]model.StatusCount, error) {
	rec, ok := model.NewRecord(kind)
	if !ok {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}

	var counts []model.StatusCount
	if err := GetDB(ctx, r.db).Model(rec).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("status").
		Order("status").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count %s by status: %w", kind, err)
	}
	return counts, nil
}

func (r *statisticsRepository) OpenTicketsByPriority(ctx context.Context) ([]model.StatusCount, error) {
	var counts []model.StatusCount
	if err := GetDB(ctx, r.db).Model(&model.Ticket{}).
		Select("priority as status, COUNT(*) as count").
		Where("status <> ?", model.TicketClosed).
		Group("priority").
		Order("priority").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count open tickets: %w", err)
	}
	return counts, nil
}

// InvoiceTotals sums total_amount of invoices in status. Paid invoices are bucketed by paid_at, others by created_at.
func (r *statisticsRepository) InvoiceTotals(ctx context.Context, status string, start, end time.Time) (string, int64, error) {
	var result struct {
		Value string
		Count int64
	}
	dateCol := "created_at"
	if status == model.InvoicePaid {
		dateCol = "paid_at"
	}
	if err := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Select("COALESCE(CAST(SUM(total_amount) AS TEXT), '0') as value, COUNT(*) as count").
		Where("status = ?", status).
		Where(dateCol+" >= ? AND "+dateCol+" <= ?", start, end).
		Scan(&result).Error; err != nil {
		return "", 0, fmt.Errorf("failed to sum invoices: %w", err)
	}
	return result.Value, result.Count, nil
}

// RevenueByPeriod buckets paid invoices by DATE_TRUNC(groupBy, paid_at). groupBy must already be validated.
func (r *statisticsRepository) RevenueByPeriod(ctx context.Context, groupBy string, start, end time.Time) ([]model.RevenuePoint, error) {
	query := `
		SELECT
			TO_CHAR(DATE_TRUNC(?, i.paid_at), 'YYYY-MM-DD') AS period,
			CAST(COALESCE(SUM(i.subtotal), 0) AS TEXT) AS net_revenue,
			CAST(COALESCE(SUM(i.tax_amount), 0) AS TEXT) AS tax_collected,
			CAST(COALESCE(SUM(i.total_amount), 0) AS TEXT) AS gross_revenue,
			COUNT(*) AS invoices
		FROM invoices i
		WHERE i.status = ?
		  AND i.paid_at >= ?
		  AND i.paid_at <= ?
		GROUP BY DATE_TRUNC(?, i.paid_at)
		ORDER BY period
	`

	var points []model.RevenuePoint
	if err := GetDB(ctx, r.db).Raw(query, groupBy, model.InvoicePaid, start, end, groupBy).Scan(&points).Error; err != nil {
		return nil, fmt.Errorf("failed to query revenue: %w", err)
	}
	return points, nil
}
