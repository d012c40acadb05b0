package model

import "time"

// StatusCount is one bucket of a status breakdown
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// DashboardStatistics aggregates record counts and revenue for the dashboard
type DashboardStatistics struct {
	WorkOrders        []StatusCount `json:"work_orders"`
	Tickets           []StatusCount `json:"tickets"`
	Tasks             []StatusCount `json:"tasks"`
	QuotationRequests []StatusCount `json:"quotation_requests"`
	Inquiries         []StatusCount `json:"inquiries"`
	OpenTicketsByPrio []StatusCount `json:"open_tickets_by_priority"`
	PaidRevenue       string        `json:"paid_revenue"`
	OutstandingAmount string        `json:"outstanding_amount"`
	PaidInvoices      int64         `json:"paid_invoices"`
	TimeRangeStart    time.Time     `json:"time_range_start"`
	TimeRangeEnd      time.Time     `json:"time_range_end"`
}

// RevenuePoint is paid invoice revenue for one period
type RevenuePoint struct {
	Period       string `gorm:"column:period" json:"period"`
	NetRevenue   string `gorm:"column:net_revenue" json:"net_revenue"`
	TaxCollected string `gorm:"column:tax_collected" json:"tax_collected"`
	GrossRevenue string `gorm:"column:gross_revenue" json:"gross_revenue"`
	Invoices     int64  `gorm:"column:invoices" json:"invoices"`
}
