package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/middleware"
	"bizdesk/internal/model"
	"bizdesk/internal/service"
	"bizdesk/pkg/pagination"
	"bizdesk/pkg/response"
)

// WorkflowResponse describes the state machine of one record kind
type WorkflowResponse struct {
	Kind            string              `json:"kind"`
	Initial         string              `json:"initial"`
	Statuses        []string            `json:"statuses"`
	Next            map[string][]string `json:"next"`
	Terminal        []string            `json:"terminal"`
	Priorities      []string            `json:"priorities"`
	DefaultPriority string              `json:"default_priority"`
}

// lifecycleRoutes serves the status, assignment and history endpoints that
// every tracked record kind shares
type lifecycleRoutes struct {
	tracker service.Tracker
	kind    model.EntityKind
}

func (l lifecycleRoutes) register(group *gin.RouterGroup, read, write gin.HandlerFunc) {
	group.GET("/workflow", read, l.Workflow)
	group.PUT("/:id/status", write, l.Transition)
	group.PUT("/:id/assign", write, l.Assign)
	group.GET("/:id/history", read, l.History)
}

// Transition moves a record along its state machine
// @Summary      Change status
// @Description  Rejects moves the kind's state machine does not declare (409) and moves the caller's role may not make (403)
// @Tags         records
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        kind     path      string                     true  "work-orders, tickets, tasks, quotation-requests or inquiries"
// @Param        id       path      string                     true  "Record ID"
// @Param        payload  body      service.TransitionRequest  true  "Target status"
// @Success      200      {object}  response.Response{data=object}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/{kind}/{id}/status [put]
func (l lifecycleRoutes) Transition(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.TransitionRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := l.tracker.Transition(c.Request.Context(), l.kind, id, req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// Assign sets or clears the record's assignee
// @Summary      Assign record
// @Tags         records
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        kind     path      string                 true  "work-orders, tickets, tasks, quotation-requests or inquiries"
// @Param        id       path      string                 true  "Record ID"
// @Param        payload  body      service.AssignRequest  true  "Assignee, empty to clear"
// @Success      200      {object}  response.Response{data=object}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/{kind}/{id}/assign [put]
func (l lifecycleRoutes) Assign(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.AssignRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := l.tracker.Assign(c.Request.Context(), l.kind, id, req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// History lists the status history oldest first
// @Summary      Status history
// @Tags         records
// @Security     BearerAuth
// @Produce      json
// @Param        kind  path      string  true  "work-orders, tickets, tasks, quotation-requests or inquiries"
// @Param        id    path      string  true  "Record ID"
// @Success      200   {object}  response.Response{data=[]service.HistoryEntryResponse}
// @Failure      404   {object}  response.Response
// @Router       /api/{kind}/{id}/history [get]
func (l lifecycleRoutes) History(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entries, err := l.tracker.History(c.Request.Context(), l.kind, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}

// Workflow describes the kind's statuses and allowed moves
// @Summary      Workflow
// @Tags         records
// @Security     BearerAuth
// @Produce      json
// @Param        kind  path      string  true  "work-orders, tickets, tasks, quotation-requests or inquiries"
// @Success      200   {object}  response.Response{data=WorkflowResponse}
// @Router       /api/{kind}/workflow [get]
func (l lifecycleRoutes) Workflow(c *gin.Context) {
	g, _ := lifecycle.GraphFor(l.kind)
	statuses := g.Statuses()
	res := WorkflowResponse{
		Kind:            string(l.kind),
		Initial:         g.Initial,
		Statuses:        statuses,
		Next:            make(map[string][]string, len(statuses)),
		Terminal:        []string{},
		Priorities:      g.Priorities,
		DefaultPriority: g.DefaultPriority(),
	}
	for _, s := range statuses {
		next := g.Next(s)
		if next == nil {
			next = []string{}
		}
		res.Next[s] = next
		if g.IsTerminal(s) {
			res.Terminal = append(res.Terminal, s)
		}
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// recordQuery reads the list filters shared by every tracked record kind
func recordQuery(c *gin.Context) service.RecordQuery {
	p := pagination.Parse(c)
	return service.RecordQuery{
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		AssigneeID: c.Query("assignee_id"),
		CustomerID: c.Query("customer_id"),
		Search:     c.Query("search"),
		Page:       p.Page,
		Limit:      p.Limit,
	}
}

func pagedRecords[T any](p service.RecordPage[T]) response.Response {
	return response.Paged(http.StatusOK, p.Items, p.Total, p.Page, p.Limit)
}
