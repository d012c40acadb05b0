package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/model"
)

func TestGraphs_TerminalStatesHaveNoExits(t *testing.T) {
	for _, kind := range Kinds() {
		g, ok := GraphFor(kind)
		require.True(t, ok, kind)
		for status := range g.terminal {
			assert.Empty(t, g.Next(status), "%s/%s", kind, status)
			assert.True(t, g.HasStatus(status))
		}
		assert.True(t, g.HasStatus(g.Initial))
		assert.False(t, g.IsTerminal(g.Initial))
		assert.Len(t, g.Priorities, 4)
	}
}

func TestGraphs_CancelReachability(t *testing.T) {
	wo, _ := GraphFor(model.KindWorkOrder)
	for _, s := range []string{model.WorkOrderReceived, model.WorkOrderInProgress, model.WorkOrderTesting, model.WorkOrderReadyForPickup} {
		assert.True(t, wo.CanTransition(s, model.WorkOrderCancelled), s)
	}
	assert.False(t, wo.CanTransition(model.WorkOrderCompleted, model.WorkOrderCancelled))

	qr, _ := GraphFor(model.KindQuotationRequest)
	assert.True(t, qr.CanTransition(model.QuoteRequestQuoted, model.QuoteRequestCancelled))
	assert.False(t, qr.CanTransition(model.QuoteRequestAccepted, model.QuoteRequestCancelled))
	assert.Equal(t, []string{model.QuoteRequestAccepted, model.QuoteRequestCancelled, model.QuoteRequestRejected}, qr.Next(model.QuoteRequestQuoted))

	inq, _ := GraphFor(model.KindCustomerInquiry)
	assert.True(t, inq.CanTransition(model.InquiryNew, model.InquiryClosed))
	assert.False(t, inq.CanTransition(model.InquiryNew, model.InquiryResolved))
	assert.False(t, inq.IsCancel(model.InquiryClosed))
}

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed(model.RoleAdmin, ActionAssign, model.KindCustomerInquiry))
	assert.False(t, Allowed(model.RoleManager, ActionAssign, model.KindCustomerInquiry))
	assert.False(t, Allowed("contractor", ActionAssign, model.KindCustomerInquiry))
	assert.False(t, Allowed(model.RoleStaff, ActionCancel, model.KindWorkOrder))
	assert.True(t, Allowed(model.RoleStaff, ActionCancel, model.KindTask))
	assert.True(t, Allowed(model.RoleStaff, ActionTransition, model.KindWorkOrder))
}

func TestGraph_Statuses(t *testing.T) {
	wo, _ := GraphFor(model.KindWorkOrder)
	assert.Equal(t, []string{
		model.WorkOrderReceived,
		model.WorkOrderCancelled,
		model.WorkOrderInProgress,
		model.WorkOrderTesting,
		model.WorkOrderReadyForPickup,
		model.WorkOrderCompleted,
	}, wo.Statuses())

	for _, kind := range Kinds() {
		g, _ := GraphFor(kind)
		for _, s := range g.Statuses() {
			assert.True(t, g.HasStatus(s), "%s/%s", kind, s)
		}
		for s := range g.terminal {
			assert.Contains(t, g.Statuses(), s)
		}
	}
}
