package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/middleware"
	"bizdesk/internal/service"
	"bizdesk/pkg/response"
)

type PricingHandler struct {
	pricingService service.PricingService
	auth           *middleware.Auth
}

func NewPricingHandler(pricingService service.PricingService, auth *middleware.Auth) *PricingHandler {
	return &PricingHandler{pricingService: pricingService, auth: auth}
}

func (h *PricingHandler) RegisterRoutes(router *gin.RouterGroup) {
	pricing := router.Group("/pricing")
	pricing.Use(h.auth.RequirePermission("pricing.use"))
	{
		pricing.POST("/calculate", h.Calculate)
		pricing.POST("/local", h.Local)
		pricing.POST("/marketplace", h.Marketplace)
	}
}

// Calculate runs the price computation on explicit inputs
// @Summary      Calculate a price
// @Description  cost * exchange_rate, then tax and markup in the given order (default tax_then_markup)
// @Tags         pricing
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CalculatePriceRequest  true  "Inputs"
// @Success      200      {object}  response.Response{data=service.PriceQuote}
// @Failure      400      {object}  response.Response
// @Router       /api/pricing/calculate [post]
func (h *PricingHandler) Calculate(c *gin.Context) {
	var req service.CalculatePriceRequest
	if !bindJSON(c, &req) {
		return
	}
	quote, err := h.pricingService.Calculate(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// Local prices a distributor cost with the category markup and the active GCT
// @Summary      Local distributor price
// @Tags         pricing
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LocalPriceRequest  true  "Inputs"
// @Success      200      {object}  response.Response{data=service.PriceQuote}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response  "Unknown category"
// @Router       /api/pricing/local [post]
func (h *PricingHandler) Local(c *gin.Context) {
	var req service.LocalPriceRequest
	if !bindJSON(c, &req) {
		return
	}
	quote, err := h.pricingService.Local(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// Marketplace prices a marketplace listing by list price or product URL
// @Summary      Marketplace price
// @Tags         pricing
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.MarketplacePriceRequest  true  "Inputs"
// @Success      200      {object}  response.Response{data=service.MarketplaceQuote}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response  "No price found at the URL"
// @Router       /api/pricing/marketplace [post]
func (h *PricingHandler) Marketplace(c *gin.Context) {
	var req service.MarketplacePriceRequest
	if !bindJSON(c, &req) {
		return
	}
	quote, err := h.pricingService.Marketplace(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}
