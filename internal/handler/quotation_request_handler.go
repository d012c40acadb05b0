package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/middleware"
	"bizdesk/internal/model"
	"bizdesk/internal/service"
	"bizdesk/pkg/response"
)

type QuotationRequestHandler struct {
	requestService service.QuotationRequestService
	lifecycle      lifecycleRoutes
	auth           *middleware.Auth
}

func NewQuotationRequestHandler(requestService service.QuotationRequestService, tracker service.Tracker, auth *middleware.Auth) *QuotationRequestHandler {
	return &QuotationRequestHandler{
		requestService: requestService,
		lifecycle:      lifecycleRoutes{tracker: tracker, kind: model.KindQuotationRequest},
		auth:           auth,
	}
}

func (h *QuotationRequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := h.auth.RequirePermission("quotations.read")
	write := h.auth.RequirePermission("quotations.write")

	group := router.Group("/quotation-requests")
	{
		group.GET("", read, h.List)
		group.GET("/:id", read, h.Get)
		group.POST("", write, h.Create)
		group.PUT("/:id", write, h.Update)
	}
	h.lifecycle.register(group, read, write)
}

// Create opens a new quotation request
// @Summary      Create quotation request
// @Description  Numbered QR-YYYYMMDD-NNNNN and opened in status pending
// @Tags         quotation-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateQuotationRequestRequest  true  "Quotation request"
// @Success      201      {object}  response.Response{data=model.QuotationRequest}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/quotation-requests [post]
func (h *QuotationRequestHandler) Create(c *gin.Context) {
	var req service.CreateQuotationRequestRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.requestService.Create(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rec))
}

// List returns quotation requests, newest first
// @Summary      List quotation requests
// @Tags         quotation-requests
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
// @Router       /api/quotation-requests [get]
func (h *QuotationRequestHandler) List(c *gin.Context) {
	page, err := h.requestService.List(c.Request.Context(), recordQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagedRecords(page))
}

// Get returns one quotation request
// @Summary      Get quotation request
// @Tags         quotation-requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quotation request ID"
// @Success      200  {object}  response.Response{data=model.QuotationRequest}
// @Failure      404  {object}  response.Response
// @Router       /api/quotation-requests/{id} [get]
func (h *QuotationRequestHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := h.requestService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// Update edits the quotation request's details. Status changes go through PUT /quotation-requests/:id/status.
// @Summary      Update quotation request
// @Tags         quotation-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string  true  "Quotation request ID"
// @Param        payload  body      service.UpdateQuotationRequestRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.QuotationRequest}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/quotation-requests/{id} [put]
func (h *QuotationRequestHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateQuotationRequestRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.requestService.Update(c.Request.Context(), id, req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}
