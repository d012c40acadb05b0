package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/middleware"
	"bizdesk/internal/service"
	"bizdesk/pkg/pagination"
	"bizdesk/pkg/response"
)

type QuotationHandler struct {
	quotationService service.QuotationService
	auth             *middleware.Auth
}

func NewQuotationHandler(quotationService service.QuotationService, auth *middleware.Auth) *QuotationHandler {
	return &QuotationHandler{quotationService: quotationService, auth: auth}
}

func (h *QuotationHandler) RegisterRoutes(router *gin.RouterGroup) {
	quotations := router.Group("/quotations")
	{
		quotations.POST("", h.auth.RequirePermission("quotations.write"), h.CreateQuotation)
		quotations.GET("", h.auth.RequirePermission("quotations.read"), h.ListQuotations)
		quotations.GET("/:id", h.auth.RequirePermission("quotations.read"), h.GetQuotation)
		quotations.GET("/:id/export", h.auth.RequirePermission("quotations.read"), h.ExportQuotation)
	}
}

// CreateQuotation prices lines, optionally answering a quotation request
// @Summary      Create quotation
// @Description  Numbered QUO-YYYYMMDD-NNNNN. With mark_quoted the answered request moves to "quoted".
// @Tags         quotations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateQuotationRequest  true  "Quotation"
// @Success      201      {object}  response.Response{data=service.QuotationResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/quotations [post]
func (h *QuotationHandler) CreateQuotation(c *gin.Context) {
	var req service.CreateQuotationRequest
	if !bindJSON(c, &req) {
		return
	}
	quotation, err := h.quotationService.Create(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, quotation))
}

// ListQuotations lists quotations, newest first
// @Summary      List quotations
// @Tags         quotations
// @Security     BearerAuth
// @Produce      json
// @Param        request_id  query     string  false  "Quotation request ID"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200         {object}  response.Response{data=object}
// @Router       /api/quotations [get]
func (h *QuotationHandler) ListQuotations(c *gin.Context) {
	p := pagination.Parse(c)
	quotations, total, err := h.quotationService.List(c.Request.Context(), c.Query("request_id"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, quotations, total, p.Page, p.Limit))
}

// GetQuotation returns one quotation
// @Summary      Get quotation
// @Tags         quotations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quotation ID"
// @Success      200  {object}  response.Response{data=service.QuotationResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/quotations/{id} [get]
func (h *QuotationHandler) GetQuotation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	quotation, err := h.quotationService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quotation))
}

// ExportQuotation downloads the quotation as a spreadsheet
// @Summary      Export quotation
// @Tags         quotations
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id   path  string  true  "Quotation ID"
// @Success      200  {file}  binary
// @Router       /api/quotations/{id}/export [get]
func (h *QuotationHandler) ExportQuotation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	name, data, err := h.quotationService.Export(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	sendSpreadsheet(c, name, data)
}
