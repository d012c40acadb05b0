package lifecycle

import (
	"sort"

	"bizdesk/internal/model"
)

// Graph is the declared state machine of one record kind
type Graph struct {
	Kind       model.EntityKind
	Initial    string
	Priorities []string
	edges      map[string]map[string]bool
	terminal   map[string]bool
	cancel     string
}

func newGraph(kind model.EntityKind, initial string, priorities []string, terminal []string, edges map[string][]string) Graph {
	g := Graph{
		Kind:       kind,
		Initial:    initial,
		Priorities: priorities,
		edges:      make(map[string]map[string]bool, len(edges)),
		terminal:   make(map[string]bool, len(terminal)),
	}
	for _, s := range terminal {
		g.terminal[s] = true
	}
	for from, tos := range edges {
		set := make(map[string]bool, len(tos))
		for _, to := range tos {
			set[to] = true
		}
		g.edges[from] = set
	}
	return g
}

// withCancel makes cancelled reachable from every non-terminal state in from
func (g Graph) withCancel(cancelled string, from ...string) Graph {
	g.cancel = cancelled
	for _, s := range from {
		if g.edges[s] == nil {
			g.edges[s] = map[string]bool{}
		}
		g.edges[s][cancelled] = true
	}
	return g
}

// CanTransition reports whether to is directly reachable from from
func (g Graph) CanTransition(from, to string) bool {
	return g.edges[from][to]
}

func (g Graph) IsTerminal(status string) bool {
	return g.terminal[status]
}

// IsCancel reports whether moving to status counts as cancelling the record
func (g Graph) IsCancel(status string) bool {
	return g.cancel != "" && status == g.cancel
}

// Next lists the statuses reachable from status, sorted
func (g Graph) Next(status string) []string {
	out := make([]string, 0, len(g.edges[status]))
	for to := range g.edges[status] {
		out = append(out, to)
	}
	sort.Strings(out)
	return out
}

// Statuses lists every status breadth-first from the initial one
func (g Graph) Statuses() []string {
	seen := map[string]bool{g.Initial: true}
	out := []string{g.Initial}
	for i := 0; i < len(out); i++ {
		for _, to := range g.Next(out[i]) {
			if !seen[to] {
				seen[to] = true
				out = append(out, to)
			}
		}
	}
	return out
}

// HasStatus reports whether status appears anywhere in the graph
func (g Graph) HasStatus(status string) bool {
	if status == g.Initial || g.terminal[status] {
		return true
	}
	if _, ok := g.edges[status]; ok {
		return true
	}
	for _, tos := range g.edges {
		if tos[status] {
			return true
		}
	}
	return false
}

func (g Graph) ValidPriority(p string) bool {
	for _, v := range g.Priorities {
		if v == p {
			return true
		}
	}
	return false
}

// DefaultPriority is the second lowest level (medium or normal)
func (g Graph) DefaultPriority() string {
	return g.Priorities[1]
}

var urgencies = []string{model.UrgencyLow, model.UrgencyMedium, model.UrgencyHigh, model.UrgencyUrgent}
var ticketPriorities = []string{model.PriorityLow, model.PriorityNormal, model.PriorityHigh, model.PriorityCritical}

var graphs = map[model.EntityKind]Graph{
	model.KindWorkOrder: newGraph(model.KindWorkOrder, model.WorkOrderReceived, urgencies,
		[]string{model.WorkOrderCompleted, model.WorkOrderCancelled},
		map[string][]string{
			model.WorkOrderReceived:       {model.WorkOrderInProgress},
			model.WorkOrderInProgress:     {model.WorkOrderTesting},
			model.WorkOrderTesting:        {model.WorkOrderReadyForPickup},
			model.WorkOrderReadyForPickup: {model.WorkOrderCompleted},
		}).withCancel(model.WorkOrderCancelled,
		model.WorkOrderReceived, model.WorkOrderInProgress, model.WorkOrderTesting, model.WorkOrderReadyForPickup),

	model.KindTicket: newGraph(model.KindTicket, model.TicketOpen, ticketPriorities,
		[]string{model.TicketClosed},
		map[string][]string{
			model.TicketOpen:            {model.TicketInProgress, model.TicketClosed},
			model.TicketInProgress:      {model.TicketWaitingCustomer, model.TicketResolved},
			model.TicketWaitingCustomer: {model.TicketInProgress},
			model.TicketResolved:        {model.TicketClosed},
		}),

	model.KindTask: newGraph(model.KindTask, model.TaskTodo, urgencies,
		[]string{model.TaskDone, model.TaskCancelled},
		map[string][]string{
			model.TaskTodo:       {model.TaskInProgress},
			model.TaskInProgress: {model.TaskReview, model.TaskBlocked},
			model.TaskBlocked:    {model.TaskInProgress},
			model.TaskReview:     {model.TaskDone, model.TaskInProgress},
		}).withCancel(model.TaskCancelled,
		model.TaskTodo, model.TaskInProgress, model.TaskBlocked, model.TaskReview),

	model.KindQuotationRequest: newGraph(model.KindQuotationRequest, model.QuoteRequestPending, urgencies,
		[]string{model.QuoteRequestAccepted, model.QuoteRequestRejected, model.QuoteRequestCancelled},
		map[string][]string{
			model.QuoteRequestPending:   {model.QuoteRequestReviewing},
			model.QuoteRequestReviewing: {model.QuoteRequestQuoted},
			model.QuoteRequestQuoted:    {model.QuoteRequestAccepted, model.QuoteRequestRejected},
		}).withCancel(model.QuoteRequestCancelled,
		model.QuoteRequestPending, model.QuoteRequestReviewing, model.QuoteRequestQuoted),

	model.KindCustomerInquiry: newGraph(model.KindCustomerInquiry, model.InquiryNew, urgencies,
		[]string{model.InquiryClosed},
		map[string][]string{
			model.InquiryNew:        {model.InquiryContacted, model.InquiryClosed},
			model.InquiryContacted:  {model.InquiryInProgress, model.InquiryClosed},
			model.InquiryInProgress: {model.InquiryResolved, model.InquiryClosed},
			model.InquiryResolved:   {model.InquiryClosed},
		}),
}

// GraphFor returns the state machine of kind
func GraphFor(kind model.EntityKind) (Graph, bool) {
	g, ok := graphs[kind]
	return g, ok
}

// Kinds lists every tracked record kind
func Kinds() []model.EntityKind {
	return []model.EntityKind{
		model.KindWorkOrder,
		model.KindTicket,
		model.KindTask,
		model.KindQuotationRequest,
		model.KindCustomerInquiry,
	}
}
