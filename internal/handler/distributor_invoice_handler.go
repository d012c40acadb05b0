package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/middleware"
	"bizdesk/internal/service"
	"bizdesk/pkg/pagination"
	"bizdesk/pkg/response"
)

type DistributorInvoiceHandler struct {
	importService service.DistributorInvoiceService
	auth          *middleware.Auth
}

func NewDistributorInvoiceHandler(importService service.DistributorInvoiceService, auth *middleware.Auth) *DistributorInvoiceHandler {
	return &DistributorInvoiceHandler{importService: importService, auth: auth}
}

func (h *DistributorInvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/distributor-invoices")
	{
		group.POST("", h.auth.RequirePermission("distributor_invoices.write"), h.ImportInvoice)
		group.GET("", h.auth.RequirePermission("products.read"), h.ListInvoices)
		group.GET("/:id", h.auth.RequirePermission("products.read"), h.GetInvoice)
	}
}

// ImportInvoice prices every line of a supplier invoice and upserts the products
// @Summary      Import distributor invoice
// @Description  All-or-nothing: one bad line rejects the whole invoice
// @Tags         distributor-invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ImportDistributorInvoiceRequest  true  "Invoice"
// @Success      201      {object}  response.Response{data=service.DistributorInvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response  "Reference already imported"
// @Router       /api/distributor-invoices [post]
func (h *DistributorInvoiceHandler) ImportInvoice(c *gin.Context) {
	var req service.ImportDistributorInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}
	invoice, err := h.importService.Import(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices lists imported supplier invoices
// @Summary      List distributor invoices
// @Tags         distributor-invoices
// @Security     BearerAuth
// @Produce      json
// @Param        distributor  query     string  false  "Distributor name"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Router       /api/distributor-invoices [get]
func (h *DistributorInvoiceHandler) ListInvoices(c *gin.Context) {
	p := pagination.Parse(c)
	invoices, total, err := h.importService.List(c.Request.Context(), c.Query("distributor"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, invoices, total, p.Page, p.Limit))
}

// GetInvoice returns one imported invoice with its priced lines
// @Summary      Get distributor invoice
// @Tags         distributor-invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Distributor invoice ID"
// @Success      200  {object}  response.Response{data=service.DistributorInvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/distributor-invoices/{id} [get]
func (h *DistributorInvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	invoice, err := h.importService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}
