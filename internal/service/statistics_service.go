package service

import (
	"context"
	"fmt"
	"time"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/model"
	"bizdesk/internal/repository"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.DashboardStatistics, error)
	GetRevenue(ctx context.Context, groupBy string, startDate, endDate time.Time) ([]model.RevenuePoint, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
}

func NewStatisticsService(repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{repo: repo}
}

// GetStatistics counts every lifecycle variant by status for records created in the range,
// plus open tickets by priority and invoice money.
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.DashboardStatistics, error) {
	if endDate.Before(startDate) {
		return model.DashboardStatistics{}, fmt.Errorf("%w: end_date is before start_date", ErrValidation)
	}

	stats := model.DashboardStatistics{
		TimeRangeStart: startDate,
		TimeRangeEnd:   endDate,
	}

	buckets := map[model.EntityKind]*[]model.StatusCount{
		model.KindWorkOrder:        &stats.WorkOrders,
		model.KindTicket:           &stats.Tickets,
		model.KindTask:             &stats.Tasks,
		model.KindQuotationRequest: &stats.QuotationRequests,
		model.KindCustomerInquiry:  &stats.Inquiries,
	}
	for _, kind := range lifecycle.Kinds() {
		counts, err := s.repo.CountByStatus(ctx, kind, startDate, endDate)
		if err != nil {
			return model.DashboardStatistics{}, err
		}
		if dst, ok := buckets[kind]; ok {
			*dst = withAllStatuses(kind, counts)
		}
	}

	open, err := s.repo.OpenTicketsByPriority(ctx)
	if err != nil {
		return model.DashboardStatistics{}, err
	}
	stats.OpenTicketsByPrio = open

	paid, paidCount, err := s.repo.InvoiceTotals(ctx, model.InvoicePaid, startDate, endDate)
	if err != nil {
		return model.DashboardStatistics{}, err
	}
	outstanding, _, err := s.repo.InvoiceTotals(ctx, model.InvoicePending, startDate, endDate)
	if err != nil {
		return model.DashboardStatistics{}, err
	}
	stats.PaidRevenue = paid
	stats.PaidInvoices = paidCount
	stats.OutstandingAmount = outstanding

	return stats, nil
}

// GetRevenue buckets paid invoices by week, month, quarter or year (default month)
func (s *statisticsService) GetRevenue(ctx context.Context, groupBy string, startDate, endDate time.Time) ([]model.RevenuePoint, error) {
	switch groupBy {
	case "week", "month", "quarter", "year":
	case "":
		groupBy = "month"
	default:
		return nil, fmt.Errorf("%w: group_by must be week, month, quarter or year", ErrValidation)
	}
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("%w: end_date is before start_date", ErrValidation)
	}

	points, err := s.repo.RevenueByPeriod(ctx, groupBy, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []model.RevenuePoint{}
	}
	return points, nil
}

// withAllStatuses lists every status of the variant in graph order, zero when absent
func withAllStatuses(kind model.EntityKind, counts []model.StatusCount) []model.StatusCount {
	g, ok := lifecycle.GraphFor(kind)
	if !ok {
		return counts
	}
	byStatus := make(map[string]int64, len(counts))
	for _, c := range counts {
		byStatus[c.Status] = c.Count
	}
	statuses := g.Statuses()
	out := make([]model.StatusCount, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, model.StatusCount{Status: st, Count: byStatus[st]})
	}
	return out
}
