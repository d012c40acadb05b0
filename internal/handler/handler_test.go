package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/config"
	"bizdesk/internal/lifecycle"
	"bizdesk/internal/middleware"
	"bizdesk/internal/model"
	"bizdesk/internal/pricing"
	"bizdesk/internal/repository"
	"bizdesk/internal/service"
)

const testSecret = "handler-test-secret"

type MockPermissionLookup struct {
	mock.Mock
}

func (m *MockPermissionLookup) PermissionCodes(ctx context.Context, roleName string) ([]string, error) {
	args := m.Called(ctx, roleName)
	codes, _ := args.Get(0).([]string)
	return codes, args.Error(1)
}

type MockWorkOrderService struct {
	mock.Mock
}

func (m *MockWorkOrderService) Create(ctx context.Context, req service.CreateWorkOrderRequest, actor lifecycle.Actor) (*model.WorkOrder, error) {
	args := m.Called(ctx, req, actor)
	wo, _ := args.Get(0).(*model.WorkOrder)
	return wo, args.Error(1)
}

func (m *MockWorkOrderService) Get(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error) {
	args := m.Called(ctx, id)
	wo, _ := args.Get(0).(*model.WorkOrder)
	return wo, args.Error(1)
}

func (m *MockWorkOrderService) List(ctx context.Context, q service.RecordQuery) (service.RecordPage[model.WorkOrder], error) {
	args := m.Called(ctx, q)
	return args.Get(0).(service.RecordPage[model.WorkOrder]), args.Error(1)
}

func (m *MockWorkOrderService) Update(ctx context.Context, id uuid.UUID, req service.UpdateWorkOrderRequest, actor lifecycle.Actor) (*model.WorkOrder, error) {
	args := m.Called(ctx, id, req, actor)
	wo, _ := args.Get(0).(*model.WorkOrder)
	return wo, args.Error(1)
}

type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) Create(ctx context.Context, rec model.Trackable, actor lifecycle.Actor, setNumber func(string)) error {
	return m.Called(ctx, rec, actor).Error(0)
}

func (m *MockTracker) Get(ctx context.Context, kind model.EntityKind, id uuid.UUID) (model.Trackable, error) {
	args := m.Called(ctx, kind, id)
	rec, _ := args.Get(0).(model.Trackable)
	return rec, args.Error(1)
}

func (m *MockTracker) List(ctx context.Context, dest any, filter repository.RecordFilter, page, limit int) (int64, error) {
	args := m.Called(ctx, dest, filter, page, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTracker) Update(ctx context.Context, rec model.Trackable, actor lifecycle.Actor, changes map[string]interface{}) error {
	return m.Called(ctx, rec, actor, changes).Error(0)
}

func (m *MockTracker) Transition(ctx context.Context, kind model.EntityKind, id uuid.UUID, req service.TransitionRequest, actor lifecycle.Actor) (model.Trackable, error) {
	args := m.Called(ctx, kind, id, req, actor)
	rec, _ := args.Get(0).(model.Trackable)
	return rec, args.Error(1)
}

func (m *MockTracker) Assign(ctx context.Context, kind model.EntityKind, id uuid.UUID, req service.AssignRequest, actor lifecycle.Actor) (model.Trackable, error) {
	args := m.Called(ctx, kind, id, req, actor)
	rec, _ := args.Get(0).(model.Trackable)
	return rec, args.Error(1)
}

func (m *MockTracker) History(ctx context.Context, kind model.EntityKind, id uuid.UUID) ([]service.HistoryEntryResponse, error) {
	args := m.Called(ctx, kind, id)
	entries, _ := args.Get(0).([]service.HistoryEntryResponse)
	return entries, args.Error(1)
}

func (m *MockTracker) SetHooks(kind model.EntityKind, hooks service.TrackerHooks) {
	m.Called(kind, hooks)
}

// envelope mirrors response.Response with a raw data field
type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

type workOrderFixture struct {
	router  *gin.Engine
	svc     *MockWorkOrderService
	tracker *MockTracker
	perms   *MockPermissionLookup
	user    *model.User
}

func newWorkOrderFixture(t *testing.T, role string, codes []string) *workOrderFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &workOrderFixture{
		svc:     new(MockWorkOrderService),
		tracker: new(MockTracker),
		perms:   new(MockPermissionLookup),
		user:    &model.User{ID: uuid.New(), Role: role, Email: role + "@bizdesk.test"},
	}
	f.perms.On("PermissionCodes", mock.Anything, role).Return(codes, nil)

	auth := middleware.NewAuth(config.AuthConfig{JWTSecret: testSecret, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}, false, f.perms)
	f.router = gin.New()
	NewWorkOrderHandler(f.svc, f.tracker, auth).RegisterRoutes(f.router.Group("/api"))
	return f
}

func (f *workOrderFixture) do(t *testing.T, method, path string, body interface{}, withToken bool) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if withToken {
		token, _, err := service.IssueAccessToken([]byte(testSecret), f.user, time.Hour, time.Now())
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

var allWorkOrderPerms = []string{"work_orders.read", "work_orders.write"}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: name is required", service.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: negative cost", pricing.ErrInvalidInput), http.StatusBadRequest},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("%w: staff may not cancel", lifecycle.ErrPermissionDenied), http.StatusForbidden},
		{fmt.Errorf("work order %w", service.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: received -> completed", lifecycle.ErrInvalidTransition), http.StatusConflict},
		{fmt.Errorf("sku %w", service.ErrConflict), http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestWorkOrderHandler_RequiresToken(t *testing.T) {
	f := newWorkOrderFixture(t, "staff", allWorkOrderPerms)

	w, env := f.do(t, http.MethodGet, "/api/work-orders", nil, false)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "error", env.Status)
	f.svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestWorkOrderHandler_MissingPermission(t *testing.T) {
	f := newWorkOrderFixture(t, "staff", []string{"work_orders.read"})

	w, env := f.do(t, http.MethodPost, "/api/work-orders", map[string]string{"problem_summary": "No power"}, true)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, env.Error, "work_orders.write")
}

func TestWorkOrderHandler_Create(t *testing.T) {
	f := newWorkOrderFixture(t, "staff", allWorkOrderPerms)
	created := &model.WorkOrder{ID: uuid.New(), OrderNo: "WO-20260314-00001", ProblemSummary: "No power"}
	created.Status = model.WorkOrderReceived
	f.svc.On("Create", mock.Anything,
		service.CreateWorkOrderRequest{ProblemSummary: "No power", DeviceType: "laptop"},
		mock.MatchedBy(func(a lifecycle.Actor) bool { return a.ID == f.user.ID && a.Role == "staff" }),
	).Return(created, nil)

	w, env := f.do(t, http.MethodPost, "/api/work-orders", map[string]string{"problem_summary": "No power", "device_type": "laptop"}, true)

	require.Equal(t, http.StatusCreated, w.Code)
	var got model.WorkOrder
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "WO-20260314-00001", got.OrderNo)
	assert.Equal(t, model.WorkOrderReceived, got.Status)
}

func TestWorkOrderHandler_CreateRejectsMissingSummary(t *testing.T) {
	f := newWorkOrderFixture(t, "staff", allWorkOrderPerms)

	w, _ := f.do(t, http.MethodPost, "/api/work-orders", map[string]string{"device_type": "laptop"}, true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestWorkOrderHandler_List(t *testing.T) {
	f := newWorkOrderFixture(t, "staff", allWorkOrderPerms)
	f.svc.On("List", mock.Anything, service.RecordQuery{Status: "testing", Page: 2, Limit: 5}).Return(service.RecordPage[model.WorkOrder]{
		Items: []model.WorkOrder{{OrderNo: "WO-20260314-00006"}},
		Total: 6,
		Page:  2,
		Limit: 5,
	}, nil)

	w, env := f.do(t, http.MethodGet, "/api/work-orders?status=testing&page=2&limit=5", nil, true)

	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Items []model.WorkOrder `json:"items"`
		Total int64             `json:"total"`
		Page  int               `json:"page"`
		Limit int               `json:"limit"`
		Pages int               `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Len(t, got.Items, 1)
	assert.Equal(t, int64(6), got.Total)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 2, got.Pages)
}

func TestWorkOrderHandler_TransitionErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not declared", fmt.Errorf("%w: completed -> received", lifecycle.ErrInvalidTransition), http.StatusConflict},
		{"policy", fmt.Errorf("%w: staff may not cancel", lifecycle.ErrPermissionDenied), http.StatusForbidden},
		{"missing", fmt.Errorf("work order %w", service.ErrNotFound), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newWorkOrderFixture(t, "staff", allWorkOrderPerms)
			id := uuid.New()
			f.tracker.On("Transition", mock.Anything, model.KindWorkOrder, id, service.TransitionRequest{Status: "received"}, mock.Anything).
				Return(nil, tc.err)

			w, env := f.do(t, http.MethodPut, "/api/work-orders/"+id.String()+"/status", map[string]string{"status": "received"}, true)

			assert.Equal(t, tc.want, w.Code)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestWorkOrderHandler_TransitionBadID(t *testing.T) {
	f := newWorkOrderFixture(t, "staff", allWorkOrderPerms)

	w, _ := f.do(t, http.MethodPut, "/api/work-orders/not-a-uuid/status", map[string]string{"status": "in_progress"}, true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.tracker.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWorkOrderHandler_History(t *testing.T) {
	f := newWorkOrderFixture(t, "staff", allWorkOrderPerms)
	id := uuid.New()
	from := model.WorkOrderReceived
	f.tracker.On("History", mock.Anything, model.KindWorkOrder, id).Return([]service.HistoryEntryResponse{
		{ToStatus: model.WorkOrderReceived, Notes: "created"},
		{FromStatus: &from, ToStatus: model.WorkOrderInProgress},
	}, nil)

	w, env := f.do(t, http.MethodGet, "/api/work-orders/"+id.String()+"/history", nil, true)

	require.Equal(t, http.StatusOK, w.Code)
	var got []service.HistoryEntryResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 2)
	assert.Nil(t, got[0].FromStatus)
	assert.Equal(t, model.WorkOrderInProgress, got[1].ToStatus)
}

func TestWorkOrderHandler_Workflow(t *testing.T) {
	f := newWorkOrderFixture(t, "staff", allWorkOrderPerms)

	w, env := f.do(t, http.MethodGet, "/api/work-orders/workflow", nil, true)

	require.Equal(t, http.StatusOK, w.Code)
	var got WorkflowResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, model.WorkOrderReceived, got.Initial)
	assert.ElementsMatch(t, []string{model.WorkOrderCompleted, model.WorkOrderCancelled}, got.Terminal)
	assert.Contains(t, got.Next[model.WorkOrderReceived], model.WorkOrderInProgress)
	assert.Empty(t, got.Next[model.WorkOrderCompleted])
}

func TestHelpHandler_UnknownContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	perms := new(MockPermissionLookup)
	auth := middleware.NewAuth(config.AuthConfig{JWTSecret: testSecret, AccessTTL: time.Hour}, false, perms)
	router := gin.New()
	NewHelpHandler(auth).RegisterRoutes(router.Group("/api"))

	user := &model.User{ID: uuid.New(), Role: "staff"}
	token, _, err := service.IssueAccessToken([]byte(testSecret), user, time.Hour, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/help?context=totally-unknown-context-xyz", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var got struct {
		Explanation string `json:"explanation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Contains(t, got.Explanation, "totally-unknown-context-xyz")
}
