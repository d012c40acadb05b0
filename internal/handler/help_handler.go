package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/help"
	"bizdesk/internal/middleware"
	"bizdesk/pkg/response"
)

type HelpHandler struct {
	auth *middleware.Auth
}

func NewHelpHandler(auth *middleware.Auth) *HelpHandler {
	return &HelpHandler{auth: auth}
}

func (h *HelpHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/help", h.auth.RequireAuth(), h.GetHelp)
}

// GetHelp returns contextual help for a screen element
// @Summary      Contextual help
// @Description  Always answers; unknown contexts get a generic explanation
// @Tags         help
// @Security     BearerAuth
// @Produce      json
// @Param        context  query     string  false  "Screen or feature, e.g. work-orders or form:customer"
// @Param        element  query     string  false  "Element within the context (default general)"
// @Success      200      {object}  response.Response{data=help.Response}
// @Router       /api/help [get]
func (h *HelpHandler) GetHelp(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, help.GetHelp(c.Query("context"), c.Query("element"))))
}
