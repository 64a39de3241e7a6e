package handlers

import (
	"bytes"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"procurement-backend/excel"
	"procurement-backend/repository"
	"procurement-backend/storage"
)

// 50 MB covers the largest bills of quantities seen in practice.
const maxUploadBytes = 50 << 20

// UploadHandler handles spreadsheet uploads. The parsed line items replace
// the project's products and the raw file is archived for traceability.
type UploadHandler struct {
	products *repository.ProductRepository
	projects *repository.ProjectRepository
	store    storage.Storage
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(products *repository.ProductRepository, projects *repository.ProjectRepository, store storage.Storage) *UploadHandler {
	return &UploadHandler{products: products, projects: projects, store: store}
}

// Upload handles POST /api/upload. Expects a multipart form with a "file"
// part and a "project_id" field.
func (h *UploadHandler) Upload(c *gin.Context) {
	projectID := c.PostForm("project_id")
	if projectID == "" {
		badRequest(c, "INVALID_REQUEST", "缺少 project_id")
		return
	}

	if _, err := h.projects.Get(projectID); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			notFound(c, "PROJECT_NOT_FOUND", "项目不存在")
			return
		}
		internalError(c, "UPLOAD_FAILED", err.Error())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "INVALID_REQUEST", "缺少上传文件")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		badRequest(c, "FILE_TOO_LARGE", "文件超过大小限制")
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		badRequest(c, "UNSUPPORTED_FILE_TYPE", "仅支持 Excel 文件 (.xlsx/.xls)")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		internalError(c, "UPLOAD_FAILED", err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		internalError(c, "UPLOAD_FAILED", err.Error())
		return
	}

	items, err := excel.ParseLineItems(bytes.NewReader(data))
	if err != nil {
		badRequest(c, "PARSE_FAILED", err.Error())
		return
	}

	products, err := h.products.ReplaceAll(projectID, items)
	if err != nil {
		internalError(c, "UPLOAD_FAILED", err.Error())
		return
	}

	// Archiving is best effort; a storage hiccup must not lose the parse.
	storagePath, err := h.store.Archive(c.Request.Context(), projectID, fileHeader.Filename, bytes.NewReader(data))
	if err != nil {
		log.Printf("[上传] 文件归档失败: %v", err)
		storagePath = ""
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"count":        len(products),
		"products":     products,
		"storage_path": storagePath,
	})
}
