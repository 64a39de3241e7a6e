package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"procurement-backend/models"
	"procurement-backend/repository"
)

// ProjectHandler handles HTTP requests for project management.
type ProjectHandler struct {
	projects *repository.ProjectRepository
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(projects *repository.ProjectRepository) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req models.ProjectCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	project, err := h.projects.Create(req)
	if err != nil {
		internalError(c, "PROJECT_CREATE_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, project)
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.List()
	if err != nil {
		internalError(c, "PROJECT_LIST_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, projects)
}

// Get handles GET /api/projects/:id.
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projects.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			notFound(c, "PROJECT_NOT_FOUND", "项目不存在")
			return
		}
		internalError(c, "PROJECT_GET_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, project)
}

// Delete handles DELETE /api/projects/:id.
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projects.Delete(c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			notFound(c, "PROJECT_NOT_FOUND", "项目不存在")
			return
		}
		internalError(c, "PROJECT_DELETE_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
