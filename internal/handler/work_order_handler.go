package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/middleware"
	"bizdesk/internal/model"
	"bizdesk/internal/service"
	"bizdesk/pkg/response"
)

type WorkOrderHandler struct {
	workOrderService service.WorkOrderService
	lifecycle        lifecycleRoutes
	auth             *middleware.Auth
}

func NewWorkOrderHandler(workOrderService service.WorkOrderService, tracker service.Tracker, auth *middleware.Auth) *WorkOrderHandler {
	return &WorkOrderHandler{
		workOrderService: workOrderService,
		lifecycle:        lifecycleRoutes{tracker: tracker, kind: model.KindWorkOrder},
		auth:             auth,
	}
}

func (h *WorkOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := h.auth.RequirePermission("work_orders.read")
	write := h.auth.RequirePermission("work_orders.write")

	group := router.Group("/work-orders")
	{
		group.GET("", read, h.List)
		group.GET("/:id", read, h.Get)
		group.POST("", write, h.Create)
		group.PUT("/:id", write, h.Update)
	}
	h.lifecycle.register(group, read, write)
}

// Create opens a new work order
// @Summary      Create work order
// @Description  Numbered WO-YYYYMMDD-NNNNN and opened in status received
// @Tags         work-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateWorkOrderRequest  true  "Work order"
// @Success      201      {object}  response.Response{data=model.WorkOrder}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/work-orders [post]
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req service.CreateWorkOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.workOrderService.Create(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rec))
}

// List returns work orders, newest first
// @Summary      List work orders
// @Tags         work-orders
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
// @Router       /api/work-orders [get]
func (h *WorkOrderHandler) List(c *gin.Context) {
	page, err := h.workOrderService.List(c.Request.Context(), recordQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagedRecords(page))
}

// Get returns one work order
// @Summary      Get work order
// @Tags         work-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work order ID"
// @Success      200  {object}  response.Response{data=model.WorkOrder}
// @Failure      404  {object}  response.Response
// @Router       /api/work-orders/{id} [get]
func (h *WorkOrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := h.workOrderService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// Update edits the work order's details. Status changes go through PUT /work-orders/:id/status.
// @Summary      Update work order
// @Tags         work-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string  true  "Work order ID"
// @Param        payload  body      service.UpdateWorkOrderRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.WorkOrder}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/work-orders/{id} [put]
func (h *WorkOrderHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateWorkOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.workOrderService.Update(c.Request.Context(), id, req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}
