package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"procurement-backend/models"
	"procurement-backend/repository"
)

// ProductHandler handles HTTP requests for line-item products. Every route
// accepts an optional project_id query parameter; without it the lookup
// spans all projects.
type ProductHandler struct {
	products *repository.ProductRepository
}

// NewProductHandler creates a new product handler.
func NewProductHandler(products *repository.ProductRepository) *ProductHandler {
	return &ProductHandler{products: products}
}

// List handles GET /api/products.
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.products.List(c.Query("project_id"))
	if err != nil {
		internalError(c, "PRODUCT_LIST_FAILED", err.Error())
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, products)
}

// Get handles GET /api/products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.products.Get(c.Param("id"), c.Query("project_id"))
	if err != nil {
		h.respondError(c, "PRODUCT_GET_FAILED", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// Update handles PUT /api/products/:id.
func (h *ProductHandler) Update(c *gin.Context) {
	var req models.ProductUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	product, err := h.products.Update(c.Param("id"), c.Query("project_id"), req)
	if err != nil {
		h.respondError(c, "PRODUCT_UPDATE_FAILED", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// UpdateSpecsAndSuppliers handles PUT /api/products/:id/specs-suppliers.
func (h *ProductHandler) UpdateSpecsAndSuppliers(c *gin.Context) {
	var req models.SpecsAndSuppliersUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	product, err := h.products.UpdateSpecsAndSuppliers(c.Param("id"), c.Query("project_id"), req)
	if err != nil {
		h.respondError(c, "PRODUCT_UPDATE_FAILED", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// CompleteInquiry handles POST /api/products/:id/complete.
func (h *ProductHandler) CompleteInquiry(c *gin.Context) {
	product, err := h.products.CompleteInquiry(c.Param("id"), c.Query("project_id"))
	if err != nil {
		h.respondError(c, "PRODUCT_UPDATE_FAILED", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// Delete handles DELETE /api/products/:id.
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.products.Delete(c.Param("id"), c.Query("project_id")); err != nil {
		h.respondError(c, "PRODUCT_DELETE_FAILED", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ProductHandler) respondError(c *gin.Context, code string, err error) {
	if errors.Is(err, repository.ErrProductNotFound) {
		notFound(c, "PRODUCT_NOT_FOUND", "产品不存在")
		return
	}
	internalError(c, code, err.Error())
}
