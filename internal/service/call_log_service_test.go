package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bizdesk/internal/model"
	"bizdesk/internal/repository"
)

func TestCallLogService_CreateDefaultsCallerToCustomer(t *testing.T) {
	repo := new(MockCallLogRepository)
	customers := new(MockCustomerRepository)
	audit := new(MockAuditRepository)
	customerID := uuid.New()
	customers.On("FindByID", mock.Anything, customerID).Return(&model.Customer{ID: customerID, Name: "Acme Ltd"}, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*model.CallLog")).Return(nil)
	audit.On("Log", mock.Anything, mock.Anything).Return(nil)

	svc := NewCallLogService(repo, customers, audit, &fakeTxManager{})
	call, err := svc.Create(context.Background(), CreateCallLogRequest{
		CustomerID:  customerID.String(),
		PhoneNumber: " 876-555-0100 ",
		Direction:   model.CallInbound,
		CalledAt:    "2026-03-02T10:15:00-05:00",
		FollowUpAt:  "2026-03-03T09:00:00-05:00",
	}, staffActor())
	require.NoError(t, err)

	assert.Equal(t, "Acme Ltd", call.CallerName)
	assert.Equal(t, "876-555-0100", call.PhoneNumber)
	assert.Equal(t, 2026, call.CalledAt.Year())
	require.NotNil(t, call.FollowUpAt)
	assert.Equal(t, []string{model.ActionCreateCallLog}, audit.actions())
}

func TestCallLogService_CreateValidation(t *testing.T) {
	svc := NewCallLogService(new(MockCallLogRepository), new(MockCustomerRepository), new(MockAuditRepository), &fakeTxManager{})

	_, err := svc.Create(context.Background(), CreateCallLogRequest{PhoneNumber: "1", Direction: "sideways"}, staffActor())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), CreateCallLogRequest{PhoneNumber: "1", Direction: model.CallOutbound, CalledAt: "yesterday"}, staffActor())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCallLogService_ListDateRangeIsInclusive(t *testing.T) {
	repo := new(MockCallLogRepository)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	nextDay := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	repo.On("List", mock.Anything, mock.MatchedBy(func(f repository.CallLogFilter) bool {
		return f.From != nil && f.From.Equal(from) && f.To != nil && f.To.Equal(nextDay)
	}), 1, 20).Return([]model.CallLog{}, int64(0), nil)

	svc := NewCallLogService(repo, nil, nil, &fakeTxManager{})
	_, _, err := svc.List(context.Background(), CallLogQuery{From: "2026-03-01", To: "2026-03-07"})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCallLogService_CreateUnknownCustomer(t *testing.T) {
	customers := new(MockCustomerRepository)
	id := uuid.New()
	customers.On("FindByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)

	svc := NewCallLogService(new(MockCallLogRepository), customers, new(MockAuditRepository), &fakeTxManager{})
	_, err := svc.Create(context.Background(), CreateCallLogRequest{
		CustomerID:  id.String(),
		PhoneNumber: "876-555-0100",
		Direction:   model.CallOutbound,
	}, staffActor())
	assert.ErrorIs(t, err, ErrNotFound)
}
