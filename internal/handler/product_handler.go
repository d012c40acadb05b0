package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/middleware"
	"bizdesk/internal/service"
	"bizdesk/pkg/pagination"
	"bizdesk/pkg/response"
)

type ProductHandler struct {
	productService  service.ProductService
	categoryService service.CategoryService
	auth            *middleware.Auth
}

func NewProductHandler(productService service.ProductService, categoryService service.CategoryService, auth *middleware.Auth) *ProductHandler {
	return &ProductHandler{productService: productService, categoryService: categoryService, auth: auth}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/products")
	{
		products.GET("", h.auth.RequirePermission("products.read"), h.GetProducts)
		products.GET("/:id", h.auth.RequirePermission("products.read"), h.GetProduct)
		products.POST("/local", h.auth.RequirePermission("products.write"), h.CreateLocalProduct)
		products.POST("/marketplace", h.auth.RequirePermission("products.write"), h.CreateMarketplaceProduct)
		products.PUT("/:id", h.auth.RequirePermission("products.write"), h.UpdateProduct)
		products.DELETE("/:id", h.auth.RequirePermission("products.write"), h.DeleteProduct)
	}

	categories := router.Group("/categories")
	{
		categories.GET("", h.auth.RequirePermission("products.read"), h.GetCategories)
		categories.POST("", h.auth.RequirePermission("categories.write"), h.CreateCategory)
		categories.PUT("/:id", h.auth.RequirePermission("categories.write"), h.UpdateCategory)
		categories.DELETE("/:id", h.auth.RequirePermission("categories.write"), h.DeleteCategory)
	}
}

// GetProducts lists the priced catalog
// @Summary      Get products
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        source       query     string  false  "local_distributor or marketplace"
// @Param        category_id  query     string  false  "Category ID"
// @Param        search       query     string  false  "Search by SKU or name"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Router       /api/products [get]
func (h *ProductHandler) GetProducts(c *gin.Context) {
	p := pagination.Parse(c)

	products, total, err := h.productService.List(c.Request.Context(), service.ProductQuery{
		Source:     c.Query("source"),
		CategoryID: c.Query("category_id"),
		Search:     c.Query("search"),
		Page:       p.Page,
		Limit:      p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, products, total, p.Page, p.Limit))
}

// GetProduct returns one product
// @Summary      Get product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=model.Product}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	product, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// CreateLocalProduct prices a distributor item and adds it to the catalog
// @Summary      Create product from a distributor cost
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LocalProductRequest  true  "Product"
// @Success      201      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response  "SKU already exists"
// @Router       /api/products/local [post]
func (h *ProductHandler) CreateLocalProduct(c *gin.Context) {
	var req service.LocalProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.productService.CreateFromLocal(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// CreateMarketplaceProduct prices a marketplace listing and adds it to the catalog
// @Summary      Create product from a marketplace listing
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.MarketplaceProductRequest  true  "Product"
// @Success      201      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response  "No price found at the URL"
// @Router       /api/products/marketplace [post]
func (h *ProductHandler) CreateMarketplaceProduct(c *gin.Context) {
	var req service.MarketplaceProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.productService.CreateFromMarketplace(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// UpdateProduct edits name, category or stock
// @Summary      Update product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Product ID"
// @Param        payload  body      service.UpdateProductRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Product}
// @Router       /api/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.productService.Update(c.Request.Context(), id, req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct soft-deletes a product
// @Summary      Delete product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.productService.Delete(c.Request.Context(), id, middleware.CurrentActor(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Product deleted successfully"}))
}

// GetCategories lists the markup table
// @Summary      List categories
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Category}
// @Router       /api/categories [get]
func (h *ProductHandler) GetCategories(c *gin.Context) {
	categories, err := h.categoryService.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, categories))
}

// CreateCategory adds a markup category
// @Summary      Create category
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CategoryRequest  true  "Category"
// @Success      201      {object}  response.Response{data=model.Category}
// @Failure      409      {object}  response.Response
// @Router       /api/categories [post]
func (h *ProductHandler) CreateCategory(c *gin.Context) {
	var req service.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.categoryService.Create(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, category))
}

// UpdateCategory changes a category's name or markup
// @Summary      Update category
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Category ID"
// @Param        payload  body      service.CategoryRequest  true  "Category"
// @Success      200      {object}  response.Response{data=model.Category}
// @Router       /api/categories/{id} [put]
func (h *ProductHandler) UpdateCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.categoryService.Update(c.Request.Context(), id, req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, category))
}

// DeleteCategory removes a category
// @Summary      Delete category
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Category ID"
// @Success      200  {object}  response.Response
// @Router       /api/categories/{id} [delete]
func (h *ProductHandler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.categoryService.Delete(c.Request.Context(), id, middleware.CurrentActor(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Category deleted successfully"}))
}
