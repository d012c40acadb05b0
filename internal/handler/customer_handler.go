package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/middleware"
	"bizdesk/internal/service"
	"bizdesk/pkg/pagination"
	"bizdesk/pkg/response"
)

type CustomerHandler struct {
	customerService service.CustomerService
	callLogService  service.CallLogService
	auth            *middleware.Auth
}

func NewCustomerHandler(customerService service.CustomerService, callLogService service.CallLogService, auth *middleware.Auth) *CustomerHandler {
	return &CustomerHandler{customerService: customerService, callLogService: callLogService, auth: auth}
}

func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	customers := router.Group("/customers")
	{
		customers.GET("", h.auth.RequirePermission("customers.read"), h.ListCustomers)
		customers.GET("/:id", h.auth.RequirePermission("customers.read"), h.GetCustomer)
		customers.POST("", h.auth.RequirePermission("customers.write"), h.CreateCustomer)
		customers.PUT("/:id", h.auth.RequirePermission("customers.write"), h.UpdateCustomer)
		customers.DELETE("/:id", h.auth.RequirePermission("customers.write"), h.DeleteCustomer)
	}

	calls := router.Group("/call-logs")
	{
		calls.GET("", h.auth.RequirePermission("call_logs.read"), h.ListCallLogs)
		calls.GET("/:id", h.auth.RequirePermission("call_logs.read"), h.GetCallLog)
		calls.POST("", h.auth.RequirePermission("call_logs.write"), h.CreateCallLog)
		calls.PUT("/:id", h.auth.RequirePermission("call_logs.write"), h.UpdateCallLog)
		calls.DELETE("/:id", h.auth.RequirePermission("call_logs.write"), h.DeleteCallLog)
	}
}

// ListCustomers handles retrieving paginated customers
// @Summary      List customers
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        search       query     string  false  "Search by name, company, phone or email"
// @Param        active_only  query     bool    false  "Only active customers"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Router       /api/customers [get]
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	p := pagination.Parse(c)
	activeOnly := c.Query("active_only") == "true"

	customers, total, err := h.customerService.GetCustomers(c.Request.Context(), c.Query("search"), activeOnly, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, customers, total, p.Page, p.Limit))
}

// GetCustomer returns one customer
// @Summary      Get customer
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response{data=service.CustomerResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/customers/{id} [get]
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	customer, err := h.customerService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

// CreateCustomer handles creating a customer
// @Summary      Create customer
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateCustomerRequest  true  "Customer"
// @Success      201      {object}  response.Response{data=service.CustomerResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req service.CreateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.customerService.CreateCustomer(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, customer))
}

// UpdateCustomer handles updating a customer
// @Summary      Update customer
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Customer ID"
// @Param        payload  body      service.UpdateCustomerRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.CustomerResponse}
// @Router       /api/customers/{id} [put]
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), id, req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

// DeleteCustomer handles soft-deleting a customer
// @Summary      Delete customer
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response
// @Router       /api/customers/{id} [delete]
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.customerService.DeleteCustomer(c.Request.Context(), id, middleware.CurrentActor(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Customer deleted successfully"}))
}

// ListCallLogs lists recorded calls, newest first
// @Summary      List call logs
// @Tags         call-logs
// @Security     BearerAuth
// @Produce      json
// @Param        customer_id  query     string  false  "Customer ID"
// @Param        direction    query     string  false  "inbound or outbound"
// @Param        from         query     string  false  "From day (YYYY-MM-DD)"
// @Param        to           query     string  false  "To day, inclusive (YYYY-MM-DD)"
// @Param        search       query     string  false  "Search caller, phone or purpose"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Router       /api/call-logs [get]
func (h *CustomerHandler) ListCallLogs(c *gin.Context) {
	p := pagination.Parse(c)
	calls, total, err := h.callLogService.List(c.Request.Context(), service.CallLogQuery{
		CustomerID: c.Query("customer_id"),
		Direction:  c.Query("direction"),
		From:       c.Query("from"),
		To:         c.Query("to"),
		Search:     c.Query("search"),
		Page:       p.Page,
		Limit:      p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, calls, total, p.Page, p.Limit))
}

// GetCallLog returns one call record
// @Summary      Get call log
// @Tags         call-logs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Call log ID"
// @Success      200  {object}  response.Response{data=model.CallLog}
// @Failure      404  {object}  response.Response
// @Router       /api/call-logs/{id} [get]
func (h *CustomerHandler) GetCallLog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	call, err := h.callLogService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, call))
}

// CreateCallLog records a call
// @Summary      Create call log
// @Tags         call-logs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateCallLogRequest  true  "Call"
// @Success      201      {object}  response.Response{data=model.CallLog}
// @Failure      400      {object}  response.Response
// @Router       /api/call-logs [post]
func (h *CustomerHandler) CreateCallLog(c *gin.Context) {
	var req service.CreateCallLogRequest
	if !bindJSON(c, &req) {
		return
	}
	call, err := h.callLogService.Create(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, call))
}

// UpdateCallLog edits notes, purpose, duration or follow-up
// @Summary      Update call log
// @Tags         call-logs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Call log ID"
// @Param        payload  body      service.UpdateCallLogRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.CallLog}
// @Router       /api/call-logs/{id} [put]
func (h *CustomerHandler) UpdateCallLog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateCallLogRequest
	if !bindJSON(c, &req) {
		return
	}
	call, err := h.callLogService.Update(c.Request.Context(), id, req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, call))
}

// DeleteCallLog removes a call record
// @Summary      Delete call log
// @Tags         call-logs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Call log ID"
// @Success      200  {object}  response.Response
// @Router       /api/call-logs/{id} [delete]
func (h *CustomerHandler) DeleteCallLog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.callLogService.Delete(c.Request.Context(), id, middleware.CurrentActor(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Call log deleted successfully"}))
}
