package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/middleware"
	"bizdesk/internal/model"
	"bizdesk/internal/service"
	"bizdesk/pkg/response"
)

type InquiryHandler struct {
	inquiryService service.InquiryService
	lifecycle      lifecycleRoutes
	auth           *middleware.Auth
}

func NewInquiryHandler(inquiryService service.InquiryService, tracker service.Tracker, auth *middleware.Auth) *InquiryHandler {
	return &InquiryHandler{
		inquiryService: inquiryService,
		lifecycle:      lifecycleRoutes{tracker: tracker, kind: model.KindCustomerInquiry},
		auth:           auth,
	}
}

func (h *InquiryHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := h.auth.RequirePermission("inquiries.read")
	write := h.auth.RequirePermission("inquiries.write")

	group := router.Group("/inquiries")
	{
		group.GET("", read, h.List)
		group.GET("/:id", read, h.Get)
		group.POST("", write, h.Create)
		group.PUT("/:id", write, h.Update)
	}
	h.lifecycle.register(group, read, write)
}

// Create opens a new customer inquiry
// @Summary      Create customer inquiry
// @Description  Numbered INQ-YYYYMMDD-NNNNN. Only admins may set an assignee.
// @Tags         inquiries
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInquiryRequest  true  "Customer inquiry"
// @Success      201      {object}  response.Response{data=model.CustomerInquiry}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/inquiries [post]
func (h *InquiryHandler) Create(c *gin.Context) {
	var req service.CreateInquiryRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.inquiryService.Create(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rec))
}

// List returns customer inquiries, newest first
// @Summary      List customer inquiries
// @Tags         inquiries
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
// @Router       /api/inquiries [get]
func (h *InquiryHandler) List(c *gin.Context) {
	page, err := h.inquiryService.List(c.Request.Context(), recordQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagedRecords(page))
}

// Get returns one customer inquiry
// @Summary      Get customer inquiry
// @Tags         inquiries
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Customer inquiry ID"
// @Success      200  {object}  response.Response{data=model.CustomerInquiry}
// @Failure      404  {object}  response.Response
// @Router       /api/inquiries/{id} [get]
func (h *InquiryHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := h.inquiryService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// Update edits the customer inquiry's details. Status changes go through PUT /inquiries/:id/status.
// @Summary      Update customer inquiry
// @Tags         inquiries
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string  true  "Customer inquiry ID"
// @Param        payload  body      service.UpdateInquiryRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.CustomerInquiry}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/inquiries/{id} [put]
func (h *InquiryHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateInquiryRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.inquiryService.Update(c.Request.Context(), id, req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}
