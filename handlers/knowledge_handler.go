package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"procurement-backend/models"
	"procurement-backend/service"
)

// KnowledgeHandler handles HTTP requests for knowledge base search, Q&A
// and certificate personnel lookups.
type KnowledgeHandler struct {
	knowledge *service.KnowledgeService
}

// NewKnowledgeHandler creates a new knowledge handler.
func NewKnowledgeHandler(knowledge *service.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge}
}

// Search handles POST /api/knowledge/search. Specs are summarized first,
// then suppliers are extracted; each half degrades independently so a
// failure in one never hides the other.
func (h *KnowledgeHandler) Search(c *gin.Context) {
	var req models.KnowledgeSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	ctx := c.Request.Context()

	summary := h.knowledge.SummarizeSpecs(ctx, req.ProductName, req.ProductFeatures)

	suppliers, err := h.knowledge.SearchSuppliers(ctx, req.ProductName, req.ProductFeatures)
	if err != nil {
		log.Printf("[API] 供应商搜索失败: %v", err)
		suppliers = []models.Supplier{}
	}
	if suppliers == nil {
		suppliers = []models.Supplier{}
	}

	c.JSON(http.StatusOK, models.KnowledgeSearchResponse{
		Specs:       summary.References,
		Suppliers:   suppliers,
		SpecSummary: summary.Summary,
	})
}

// SearchSpecs handles POST /api/knowledge/search-specs.
func (h *KnowledgeHandler) SearchSpecs(c *gin.Context) {
	var req models.KnowledgeSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	summary := h.knowledge.SummarizeSpecs(c.Request.Context(), req.ProductName, req.ProductFeatures)

	c.JSON(http.StatusOK, models.SpecSearchResponse{
		Specs:       summary.References,
		SpecSummary: summary.Summary,
	})
}

// SearchSuppliers handles POST /api/knowledge/search-suppliers.
func (h *KnowledgeHandler) SearchSuppliers(c *gin.Context) {
	var req models.KnowledgeSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	suppliers, err := h.knowledge.SearchSuppliers(c.Request.Context(), req.ProductName, req.ProductFeatures)
	if err != nil {
		log.Printf("[API] 供应商搜索失败: %v", err)
		suppliers = []models.Supplier{}
	}
	if suppliers == nil {
		suppliers = []models.Supplier{}
	}

	c.JSON(http.StatusOK, models.SupplierSearchResponse{Suppliers: suppliers})
}

// QA handles POST /api/knowledge/qa.
func (h *KnowledgeHandler) QA(c *gin.Context) {
	var req models.QARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	resp, err := h.knowledge.AnswerQuestion(c.Request.Context(), req.Question)
	if err != nil {
		internalError(c, "QA_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CertificatePersonnel handles POST /api/knowledge/certificate-personnel.
func (h *KnowledgeHandler) CertificatePersonnel(c *gin.Context) {
	var req models.CertificatePersonnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	resp, err := h.knowledge.SearchCertificatePersonnel(c.Request.Context(), req.Query)
	if err != nil {
		internalError(c, "PERSONNEL_SEARCH_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RefreshImageLink handles POST /api/knowledge/refresh-image-link.
func (h *KnowledgeHandler) RefreshImageLink(c *gin.Context) {
	var req models.RefreshImageLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	imageURL, err := h.knowledge.RefreshImageLink(c.Request.Context(), req.SliceID)
	if err != nil {
		internalError(c, "REFRESH_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, models.RefreshImageLinkResponse{ImageURL: imageURL})
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func notFound(c *gin.Context, code, message string) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func internalError(c *gin.Context, code, message string) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
