package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/model"
)

var documentDay = time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC)

type invoiceFixture struct {
	*trackerFixture
	svc        *invoiceService
	invoices   *MockInvoiceRepository
	quotations *MockQuotationRepository
	products   *MockProductRepository
	customers  *MockCustomerRepository
}

func newInvoiceFixture(t *testing.T) *invoiceFixture {
	t.Helper()
	f := &invoiceFixture{
		trackerFixture: newTrackerFixture(t),
		invoices:       new(MockInvoiceRepository),
		quotations:     new(MockQuotationRepository),
		products:       new(MockProductRepository),
		customers:      new(MockCustomerRepository),
	}
	f.invoices.On("CountByPrefix", mock.Anything, "INV-20260504-").Return(int64(4), nil)
	f.invoices.On("Create", mock.Anything, mock.AnythingOfType("*model.Invoice")).Return(nil)

	svc := NewInvoiceService(f.invoices, f.quotations, f.products, f.customers, f.tracker, gctStub(15), f.audit, f.tx, "JMD")
	f.svc = svc.(*invoiceService)
	f.svc.now = func() time.Time { return documentDay }
	return f
}

func TestInvoiceService_CreateFromLines(t *testing.T) {
	f := newInvoiceFixture(t)
	productID := uuid.New()
	f.products.On("FindByID", mock.Anything, productID).
		Return(&model.Product{ID: productID, Name: "Laptop 14in", SalePrice: decimal.RequireFromString("2421.90")}, nil)

	res, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		Lines: []DocumentLineRequest{
			{ProductID: productID.String(), Quantity: 2},
			{Description: "Labour", Quantity: 1, UnitPrice: "1500"},
		},
		DueDate: "2026-06-03",
	}, staffActor())
	require.NoError(t, err)

	assert.Equal(t, "INV-20260504-00005", res.InvoiceNo)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, "Laptop 14in", res.Lines[0].Description)
	assert.Equal(t, "4843.80", res.Lines[0].LineTotal)
	assert.Equal(t, "6343.80", res.Subtotal)
	assert.Equal(t, "15.00", res.TaxPercent)
	assert.Equal(t, "951.57", res.TaxAmount)
	assert.Equal(t, "7295.37", res.TotalAmount)
	assert.Equal(t, model.InvoicePending, res.Status)
	require.NotNil(t, res.DueDate)
	assert.Equal(t, "2026-06-03", *res.DueDate)
	assert.Equal(t, []string{model.ActionCreateInvoice}, f.audit.actions())
	assert.Equal(t, []string{"INV-20260504-"}, f.tx.locks)
}

func TestInvoiceService_TaxExempt(t *testing.T) {
	f := newInvoiceFixture(t)

	res, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		Lines:     []DocumentLineRequest{{Description: "Consulting", Quantity: 3, UnitPrice: "100"}},
		TaxExempt: true,
	}, staffActor())
	require.NoError(t, err)
	assert.Equal(t, "0.00", res.TaxAmount)
	assert.Equal(t, "300.00", res.TotalAmount)
	assert.Nil(t, res.TaxRuleID)
}

func TestInvoiceService_CreateFromQuotationCopiesLines(t *testing.T) {
	f := newInvoiceFixture(t)
	quotationID := uuid.New()
	customerID := uuid.New()
	f.quotations.On("FindByID", mock.Anything, quotationID).Return(&model.Quotation{
		ID:         quotationID,
		CustomerID: &customerID,
		Lines: []model.QuotationLine{
			{Description: "Dock", Quantity: 1, UnitPrice: decimal.NewFromInt(200), LineTotal: decimal.NewFromInt(200)},
			{Description: "Cable", Quantity: 4, UnitPrice: decimal.NewFromInt(25), LineTotal: decimal.NewFromInt(100)},
		},
	}, nil)
	f.customers.On("FindByID", mock.Anything, customerID).Return(&model.Customer{ID: customerID, Name: "Acme"}, nil)

	res, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{QuotationID: quotationID.String()}, staffActor())
	require.NoError(t, err)

	require.Len(t, res.Lines, 2)
	assert.Equal(t, "300.00", res.Subtotal)
	assert.Equal(t, "345.00", res.TotalAmount)
	require.NotNil(t, res.CustomerID)
	assert.Equal(t, customerID.String(), *res.CustomerID)
	require.NotNil(t, res.QuotationID)
}

func TestInvoiceService_WorkOrderSuppliesCustomer(t *testing.T) {
	f := newInvoiceFixture(t)
	customerID := uuid.New()
	wo := &model.WorkOrder{OrderNo: "WO-20260501-00001", ProblemSummary: "screen", CustomerID: &customerID}
	wo.Status = model.WorkOrderReadyForPickup
	wo.Priority = model.UrgencyMedium
	woID := f.records.put(wo)
	f.customers.On("FindByID", mock.Anything, customerID).Return(&model.Customer{ID: customerID}, nil)

	res, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		WorkOrderID: woID.String(),
		Lines:       []DocumentLineRequest{{Description: "Screen replacement", Quantity: 1, UnitPrice: "12000"}},
	}, staffActor())
	require.NoError(t, err)
	require.NotNil(t, res.CustomerID)
	assert.Equal(t, customerID.String(), *res.CustomerID)
	require.NotNil(t, res.WorkOrderID)
	assert.Equal(t, woID.String(), *res.WorkOrderID)
}

func TestInvoiceService_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateInvoiceRequest
		wantErr error
	}{
		{"no lines and no quotation", CreateInvoiceRequest{}, ErrValidation},
		{"bad due date", CreateInvoiceRequest{DueDate: "tomorrow"}, ErrValidation},
		{"manual line without price", CreateInvoiceRequest{Lines: []DocumentLineRequest{{Description: "x", Quantity: 1}}}, ErrValidation},
		{"zero quantity", CreateInvoiceRequest{Lines: []DocumentLineRequest{{Description: "x", Quantity: 0, UnitPrice: "1"}}}, ErrValidation},
		{"unknown work order", CreateInvoiceRequest{WorkOrderID: uuid.NewString()}, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newInvoiceFixture(t)
			_, err := f.svc.CreateInvoice(context.Background(), tt.req, staffActor())
			assert.ErrorIs(t, err, tt.wantErr)
			f.invoices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestInvoiceService_SettleInvoice(t *testing.T) {
	id := uuid.New()
	actor := managerActor()

	t.Run("pending to paid", func(t *testing.T) {
		f := newInvoiceFixture(t)
		f.invoices.On("FindByID", mock.Anything, id).Return(&model.Invoice{
			ID: id, InvoiceNo: "INV-20260504-00001", Status: model.InvoicePending, TotalAmount: decimal.NewFromInt(115),
		}, nil)
		f.invoices.On("UpdateStatus", mock.Anything, mock.AnythingOfType("*model.Invoice")).Return(nil)

		res, err := f.svc.SettleInvoice(context.Background(), id, SettleInvoiceRequest{Status: model.InvoicePaid}, actor)
		require.NoError(t, err)
		assert.Equal(t, model.InvoicePaid, res.Status)
		require.NotNil(t, res.PaidAt)
		require.NotNil(t, res.SettledBy)
		assert.Equal(t, actor.ID.String(), *res.SettledBy)
		assert.Equal(t, []string{model.ActionSettleInvoice}, f.audit.actions())
	})

	t.Run("void leaves paid_at empty", func(t *testing.T) {
		f := newInvoiceFixture(t)
		f.invoices.On("FindByID", mock.Anything, id).Return(&model.Invoice{ID: id, Status: model.InvoicePending}, nil)
		f.invoices.On("UpdateStatus", mock.Anything, mock.Anything).Return(nil)

		res, err := f.svc.SettleInvoice(context.Background(), id, SettleInvoiceRequest{Status: model.InvoiceVoid}, actor)
		require.NoError(t, err)
		assert.Equal(t, model.InvoiceVoid, res.Status)
		assert.Nil(t, res.PaidAt)
	})

	t.Run("settled invoice is final", func(t *testing.T) {
		f := newInvoiceFixture(t)
		f.invoices.On("FindByID", mock.Anything, id).Return(&model.Invoice{ID: id, Status: model.InvoicePaid}, nil)

		_, err := f.svc.SettleInvoice(context.Background(), id, SettleInvoiceRequest{Status: model.InvoiceVoid}, actor)
		assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
		f.invoices.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
	})

	t.Run("missing invoice", func(t *testing.T) {
		f := newInvoiceFixture(t)
		f.invoices.On("FindByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)

		_, err := f.svc.SettleInvoice(context.Background(), id, SettleInvoiceRequest{Status: model.InvoicePaid}, actor)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown target status", func(t *testing.T) {
		f := newInvoiceFixture(t)
		_, err := f.svc.SettleInvoice(context.Background(), id, SettleInvoiceRequest{Status: model.InvoicePending}, actor)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestInvoiceService_ExportInvoice(t *testing.T) {
	f := newInvoiceFixture(t)
	id := uuid.New()
	f.invoices.On("FindByID", mock.Anything, id).Return(&model.Invoice{
		ID:          id,
		InvoiceNo:   "INV-20260504-00002",
		Customer:    &model.Customer{Name: "Acme", TRN: "123-456-789"},
		Lines:       []model.InvoiceLine{{Description: "Dock", Quantity: 2, UnitPrice: decimal.NewFromInt(50), LineTotal: decimal.NewFromInt(100)}},
		Subtotal:    decimal.NewFromInt(100),
		TaxPercent:  decimal.NewFromInt(15),
		TaxAmount:   decimal.NewFromInt(15),
		TotalAmount: decimal.NewFromInt(115),
		Currency:    "JMD",
		Status:      model.InvoicePending,
		CreatedAt:   documentDay,
	}, nil)

	name, data, err := f.svc.ExportInvoice(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "INV-20260504-00002.xlsx", name)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(wb.GetSheetName(0))
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "Invoice INV-20260504-00002", rows[0][0])

	var found bool
	for _, r := range rows {
		if len(r) > 1 && r[0] == "TRN" && r[1] == "123-456-789" {
			found = true
		}
	}
	assert.True(t, found, "customer TRN in header block")
}
