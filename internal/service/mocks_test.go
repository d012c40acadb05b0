package service

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"bizdesk/internal/marketplace"
	"bizdesk/internal/model"
	"bizdesk/internal/notify"
	"bizdesk/internal/repository"
)

// fakeTxManager runs fn directly; a returned error stands in for a rollback
type fakeTxManager struct {
	calls int
	locks []string
}

func (f *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

func (f *fakeTxManager) Lock(_ context.Context, key string) error {
	f.locks = append(f.locks, key)
	return nil
}

// capturePublisher records published events
type capturePublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *capturePublisher) Publish(e notify.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return true
}

func (p *capturePublisher) Events() []notify.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notify.Event(nil), p.events...)
}

// MockAuditRepository keeps every logged row so tests can inspect them
type MockAuditRepository struct {
	mock.Mock
	logged []*model.AuditLog
}

func (m *MockAuditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	m.logged = append(m.logged, entry)
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, filter repository.AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	args := m.Called(ctx, filter, page, limit)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Get(1).(int64), args.Error(2)
}

func (m *MockAuditRepository) actions() []string {
	out := make([]string, 0, len(m.logged))
	for _, l := range m.logged {
		out = append(out, l.Action)
	}
	return out
}

// memRecordRepository is an in-memory RecordRepository keyed by kind and id
type memRecordRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]model.Trackable
	history []model.StatusHistoryEntry
	saves   int
	failOn  string
	failErr error
}

func newMemRecordRepository() *memRecordRepository {
	return &memRecordRepository{records: map[uuid.UUID]model.Trackable{}}
}

func (r *memRecordRepository) fail(op string) error {
	if r.failOn == op {
		return r.failErr
	}
	return nil
}

func (r *memRecordRepository) Create(_ context.Context, rec model.Trackable) error {
	if err := r.fail("create"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	setID(rec, uuid.New())
	r.records[rec.EntityID()] = cloneRecord(rec)
	return nil
}

func (r *memRecordRepository) Save(_ context.Context, rec model.Trackable) error {
	if err := r.fail("save"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	r.records[rec.EntityID()] = cloneRecord(rec)
	return nil
}

func (r *memRecordRepository) FindByID(_ context.Context, rec model.Trackable, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[id]
	if !ok || stored.EntityKind() != rec.EntityKind() {
		return gorm.ErrRecordNotFound
	}
	copyRecord(rec, stored)
	return nil
}

func (r *memRecordRepository) List(_ context.Context, dest any, filter repository.RecordFilter, _, _ int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.EntityKind() != filter.Kind {
			continue
		}
		if filter.Status != "" && rec.LifecycleRecord().Status != filter.Status {
			continue
		}
		if wo, ok := rec.(*model.WorkOrder); ok {
			if items, ok := dest.(*[]model.WorkOrder); ok {
				*items = append(*items, *wo)
			}
		}
		n++
	}
	return n, nil
}

func (r *memRecordRepository) CountByPrefix(_ context.Context, _ model.EntityKind, _ string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.records)), nil
}

func (r *memRecordRepository) AppendHistory(_ context.Context, entry *model.StatusHistoryEntry) error {
	if err := r.fail("history"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.New()
	r.history = append(r.history, *entry)
	return nil
}

func (r *memRecordRepository) History(_ context.Context, kind model.EntityKind, id uuid.UUID) ([]model.StatusHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StatusHistoryEntry
	for _, h := range r.history {
		if h.EntityKind == kind && h.EntityID == id {
			out = append(out, h)
		}
	}
	return out, nil
}

// setID writes the primary key of a freshly created record
func setID(rec model.Trackable, id uuid.UUID) {
	reflect.ValueOf(rec).Elem().FieldByName("ID").Set(reflect.ValueOf(id))
}

func cloneRecord(rec model.Trackable) model.Trackable {
	v := reflect.New(reflect.TypeOf(rec).Elem())
	v.Elem().Set(reflect.ValueOf(rec).Elem())
	return v.Interface().(model.Trackable)
}

func copyRecord(dst, src model.Trackable) {
	reflect.ValueOf(dst).Elem().Set(reflect.ValueOf(src).Elem())
}

func (r *memRecordRepository) put(rec model.Trackable) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.EntityID() == uuid.Nil {
		setID(rec, uuid.New())
	}
	r.records[rec.EntityID()] = cloneRecord(rec)
	return rec.EntityID()
}

func (r *memRecordRepository) statusOf(id uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id].LifecycleRecord().Status
}

// MockUserRepository is a hand-written testify mock
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, role, search string, page, limit int) ([]model.User, int64, error) {
	args := m.Called(ctx, role, search, page, limit)
	users, _ := args.Get(0).([]model.User)
	return users, args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, s *model.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	args := m.Called(ctx, token)
	s, _ := args.Get(0).(*model.Session)
	return s, args.Error(1)
}

func (m *MockSessionRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteByToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) Create(ctx context.Context, role *model.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRoleRepository) Update(ctx context.Context, role *model.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRoleRepository) Delete(ctx context.Context, role *model.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRoleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*model.Role)
	return r, args.Error(1)
}

func (m *MockRoleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	args := m.Called(ctx, name)
	r, _ := args.Get(0).(*model.Role)
	return r, args.Error(1)
}

func (m *MockRoleRepository) ListAll(ctx context.Context) ([]model.Role, error) {
	args := m.Called(ctx)
	roles, _ := args.Get(0).([]model.Role)
	return roles, args.Error(1)
}

func (m *MockRoleRepository) CountUsers(ctx context.Context, roleName string) (int64, error) {
	args := m.Called(ctx, roleName)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRoleRepository) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	args := m.Called(ctx)
	perms, _ := args.Get(0).([]model.Permission)
	return perms, args.Error(1)
}

func (m *MockRoleRepository) FindPermissionsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Permission, error) {
	args := m.Called(ctx, ids)
	perms, _ := args.Get(0).([]model.Permission)
	return perms, args.Error(1)
}

func (m *MockRoleRepository) UpsertPermission(ctx context.Context, perm *model.Permission) error {
	args := m.Called(ctx, perm)
	return args.Error(0)
}

func (m *MockRoleRepository) ReplacePermissions(ctx context.Context, role *model.Role, perms []model.Permission) error {
	args := m.Called(ctx, role, perms)
	return args.Error(0)
}

func (m *MockRoleRepository) PermissionCodes(ctx context.Context, roleName string) ([]string, error) {
	args := m.Called(ctx, roleName)
	codes, _ := args.Get(0).([]string)
	return codes, args.Error(1)
}

type MockTaskActivityRepository struct {
	mock.Mock
	entries []model.TaskActivityLog
}

func (m *MockTaskActivityRepository) Create(ctx context.Context, entry *model.TaskActivityLog) error {
	m.entries = append(m.entries, *entry)
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockTaskActivityRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]model.TaskActivityLog, error) {
	args := m.Called(ctx, taskID)
	logs, _ := args.Get(0).([]model.TaskActivityLog)
	return logs, args.Error(1)
}

type MockTaxRuleRepository struct {
	mock.Mock
}

func (m *MockTaxRuleRepository) Create(ctx context.Context, rule *model.TaxRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockTaxRuleRepository) Update(ctx context.Context, rule *model.TaxRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockTaxRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaxRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRule, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*model.TaxRule)
	return r, args.Error(1)
}

func (m *MockTaxRuleRepository) List(ctx context.Context, taxType string, page, limit int) ([]model.TaxRule, int64, error) {
	args := m.Called(ctx, taxType, page, limit)
	rules, _ := args.Get(0).([]model.TaxRule)
	return rules, args.Get(1).(int64), args.Error(2)
}

func (m *MockTaxRuleRepository) FindActive(ctx context.Context, taxType string, on time.Time) (*model.TaxRule, error) {
	args := m.Called(ctx, taxType, on)
	r, _ := args.Get(0).(*model.TaxRule)
	return r, args.Error(1)
}

func (m *MockTaxRuleRepository) CountOverlapping(ctx context.Context, taxType string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error) {
	args := m.Called(ctx, taxType, from, to, excludeID)
	return args.Get(0).(int64), args.Error(1)
}

type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *model.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) Update(ctx context.Context, category *model.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*model.Category)
	return c, args.Error(1)
}

func (m *MockCategoryRepository) FindByName(ctx context.Context, name string) (*model.Category, error) {
	args := m.Called(ctx, name)
	c, _ := args.Get(0).(*model.Category)
	return c, args.Error(1)
}

func (m *MockCategoryRepository) ListAll(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	cs, _ := args.Get(0).([]model.Category)
	return cs, args.Error(1)
}

func (m *MockCategoryRepository) CountProducts(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *model.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *model.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.Product)
	return p, args.Error(1)
}

func (m *MockProductRepository) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	args := m.Called(ctx, sku)
	p, _ := args.Get(0).(*model.Product)
	return p, args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, filter repository.ProductFilter, page, limit int) ([]model.Product, int64, error) {
	args := m.Called(ctx, filter, page, limit)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) UpsertBySKU(ctx context.Context, product *model.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(ctx context.Context, customer *model.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) Update(ctx context.Context, customer *model.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*model.Customer)
	return c, args.Error(1)
}

func (m *MockCustomerRepository) List(ctx context.Context, search string, activeOnly bool, page, limit int) ([]model.Customer, int64, error) {
	args := m.Called(ctx, search, activeOnly, page, limit)
	cs, _ := args.Get(0).([]model.Customer)
	return cs, args.Get(1).(int64), args.Error(2)
}

type MockDistributorInvoiceRepository struct {
	mock.Mock
}

func (m *MockDistributorInvoiceRepository) Create(ctx context.Context, invoice *model.DistributorInvoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockDistributorInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DistributorInvoice, error) {
	args := m.Called(ctx, id)
	inv, _ := args.Get(0).(*model.DistributorInvoice)
	return inv, args.Error(1)
}

func (m *MockDistributorInvoiceRepository) ExistsReference(ctx context.Context, distributor, referenceNo string) (bool, error) {
	args := m.Called(ctx, distributor, referenceNo)
	return args.Bool(0), args.Error(1)
}

func (m *MockDistributorInvoiceRepository) List(ctx context.Context, distributor string, page, limit int) ([]model.DistributorInvoice, int64, error) {
	args := m.Called(ctx, distributor, page, limit)
	invs, _ := args.Get(0).([]model.DistributorInvoice)
	return invs, args.Get(1).(int64), args.Error(2)
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	args := m.Called(ctx, id)
	inv, _ := args.Get(0).(*model.Invoice)
	return inv, args.Error(1)
}

func (m *MockInvoiceRepository) List(ctx context.Context, filter repository.InvoiceFilter, page, limit int) ([]model.Invoice, int64, error) {
	args := m.Called(ctx, filter, page, limit)
	invs, _ := args.Get(0).([]model.Invoice)
	return invs, args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) UpdateStatus(ctx context.Context, invoice *model.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	args := m.Called(ctx, prefix)
	return args.Get(0).(int64), args.Error(1)
}

type MockQuotationRepository struct {
	mock.Mock
}

func (m *MockQuotationRepository) Create(ctx context.Context, quotation *model.Quotation) error {
	args := m.Called(ctx, quotation)
	return args.Error(0)
}

func (m *MockQuotationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Quotation, error) {
	args := m.Called(ctx, id)
	q, _ := args.Get(0).(*model.Quotation)
	return q, args.Error(1)
}

func (m *MockQuotationRepository) List(ctx context.Context, requestID *uuid.UUID, page, limit int) ([]model.Quotation, int64, error) {
	args := m.Called(ctx, requestID, page, limit)
	qs, _ := args.Get(0).([]model.Quotation)
	return qs, args.Get(1).(int64), args.Error(2)
}

func (m *MockQuotationRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	args := m.Called(ctx, prefix)
	return args.Get(0).(int64), args.Error(1)
}

type MockStatisticsRepository struct {
	mock.Mock
}

func (m *MockStatisticsRepository) CountByStatus(ctx context.Context, kind model.EntityKind, start, end time.Time) ([]model.StatusCount, error) {
	args := m.Called(ctx, kind, start, end)
	cs, _ := args.Get(0).([]model.StatusCount)
	return cs, args.Error(1)
}

func (m *MockStatisticsRepository) OpenTicketsByPriority(ctx context.Context) ([]model.StatusCount, error) {
	args := m.Called(ctx)
	cs, _ := args.Get(0).([]model.StatusCount)
	return cs, args.Error(1)
}

func (m *MockStatisticsRepository) InvoiceTotals(ctx context.Context, status string, start, end time.Time) (string, int64, error) {
	args := m.Called(ctx, status, start, end)
	return args.String(0), args.Get(1).(int64), args.Error(2)
}

func (m *MockStatisticsRepository) RevenueByPeriod(ctx context.Context, groupBy string, start, end time.Time) ([]model.RevenuePoint, error) {
	args := m.Called(ctx, groupBy, start, end)
	ps, _ := args.Get(0).([]model.RevenuePoint)
	return ps, args.Error(1)
}

// MockTaxService stubs the GCT lookup used by pricing and documents
type MockTaxService struct {
	TaxService
	mock.Mock
}

func (m *MockTaxService) ActiveGCT(ctx context.Context, on time.Time) (decimal.Decimal, *uuid.UUID, error) {
	args := m.Called(ctx, on)
	id, _ := args.Get(1).(*uuid.UUID)
	return args.Get(0).(decimal.Decimal), id, args.Error(2)
}

type MockLooker struct {
	mock.Mock
}

func (m *MockLooker) Lookup(ctx context.Context, rawURL string) (*marketplace.Product, error) {
	args := m.Called(ctx, rawURL)
	p, _ := args.Get(0).(*marketplace.Product)
	return p, args.Error(1)
}

type MockCallLogRepository struct {
	mock.Mock
}

func (m *MockCallLogRepository) Create(ctx context.Context, call *model.CallLog) error {
	args := m.Called(ctx, call)
	return args.Error(0)
}

func (m *MockCallLogRepository) Update(ctx context.Context, call *model.CallLog) error {
	args := m.Called(ctx, call)
	return args.Error(0)
}

func (m *MockCallLogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCallLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.CallLog, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*model.CallLog)
	return c, args.Error(1)
}

func (m *MockCallLogRepository) List(ctx context.Context, filter repository.CallLogFilter, page, limit int) ([]model.CallLog, int64, error) {
	args := m.Called(ctx, filter, page, limit)
	cs, _ := args.Get(0).([]model.CallLog)
	return cs, args.Get(1).(int64), args.Error(2)
}
