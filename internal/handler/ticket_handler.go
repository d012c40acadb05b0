package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/middleware"
	"bizdesk/internal/model"
	"bizdesk/internal/service"
	"bizdesk/pkg/response"
)

type TicketHandler struct {
	ticketService service.TicketService
	lifecycle     lifecycleRoutes
	auth          *middleware.Auth
}

func NewTicketHandler(ticketService service.TicketService, tracker service.Tracker, auth *middleware.Auth) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		lifecycle:     lifecycleRoutes{tracker: tracker, kind: model.KindTicket},
		auth:          auth,
	}
}

func (h *TicketHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := h.auth.RequirePermission("tickets.read")
	write := h.auth.RequirePermission("tickets.write")

	group := router.Group("/tickets")
	{
		group.GET("", read, h.List)
		group.GET("/:id", read, h.Get)
		group.POST("", write, h.Create)
		group.PUT("/:id", write, h.Update)
	}
	h.lifecycle.register(group, read, write)
}

// Create opens a new ticket
// @Summary      Create ticket
// @Description  Numbered TKT-YYYYMMDD-NNNNN and opened in status open
// @Tags         tickets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTicketRequest  true  "Ticket"
// @Success      201      {object}  response.Response{data=model.Ticket}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/tickets [post]
func (h *TicketHandler) Create(c *gin.Context) {
	var req service.CreateTicketRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.ticketService.Create(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rec))
}

// List returns tickets, newest first
// @Summary      List tickets
// @Tags         tickets
// @Security     BearerAuth
// @Produce      json
// @Param        status       query     string  false  "Status"
// @Param        priority     query     string  false  "Priority"
// @Param        assignee_id  query     string  false  "Assigned user ID"
// @Param        customer_id  query     string  false  "Customer ID"
// @Param        search       query     string  false  "Free-text search"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Failure      400          {object}  response.Response
// @Router       /api/tickets [get]
func (h *TicketHandler) List(c *gin.Context) {
	page, err := h.ticketService.List(c.Request.Context(), recordQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagedRecords(page))
}

// Get returns one ticket
// @Summary      Get ticket
// @Tags         tickets
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Ticket ID"
// @Success      200  {object}  response.Response{data=model.Ticket}
// @Failure      404  {object}  response.Response
// @Router       /api/tickets/{id} [get]
func (h *TicketHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := h.ticketService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// Update edits the ticket's details. Status changes go through PUT /tickets/:id/status.
// @Summary      Update ticket
// @Tags         tickets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string  true  "Ticket ID"
// @Param        payload  body      service.UpdateTicketRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Ticket}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/tickets/{id} [put]
func (h *TicketHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateTicketRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.ticketService.Update(c.Request.Context(), id, req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}
