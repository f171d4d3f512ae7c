package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sophie-Muchiri12/rentmg/internal/middleware"
	"github.com/Sophie-Muchiri12/rentmg/internal/models"
	"github.com/Sophie-Muchiri12/rentmg/internal/repository"
)

type IssueHandler struct {
	issues repository.IssueRepository
	logger *zap.Logger
}

func NewIssueHandler(issues repository.IssueRepository, logger *zap.Logger) *IssueHandler {
	return &IssueHandler{issues: issues, logger: logger}
}

type createIssueRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	PropertyID  *int64 `json:"property_id"`
	UnitID      *int64 `json:"unit_id"`
}

// Create handles POST /v1/issues. The reporter is always the caller.
func (h *IssueHandler) Create(c *gin.Context) {
	var req createIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	priority := models.IssuePriority(req.Priority)
	if req.Priority == "" {
		priority = models.PriorityNormal
	}
	if !priority.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be low, normal or high"})
		return
	}

	ident := middleware.GetIdentity(c)
	issue, err := h.issues.Create(c.Request.Context(), repository.NewIssue{
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		ReporterID:  ident.UserID,
		PropertyID:  req.PropertyID,
		UnitID:      req.UnitID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, issue)
}

// List handles GET /v1/issues.
func (h *IssueHandler) List(c *gin.Context) {
	ident := middleware.GetIdentity(c)

	issues, err := h.issues.List(c.Request.Context(), ident)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, issues)
}

// GetByID handles GET /v1/issues/:id.
func (h *IssueHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ident := middleware.GetIdentity(c)

	issue, err := h.issues.GetByID(c.Request.Context(), ident, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if issue == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "issue not found"})
		return
	}

	c.JSON(http.StatusOK, issue)
}

// updateIssueRequest is the explicit allow-list of patchable fields.
// Anything not named here cannot be mass-assigned.
type updateIssueRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	AssigneeID  *int64  `json:"assignee_id"`
}

// Update handles PATCH /v1/issues/:id. Out-of-scope issues answer
// NOT_FOUND, identical to absent ones.
func (h *IssueHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := repository.IssueUpdate{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
	}
	if req.Status != nil {
		status := models.IssueStatus(*req.Status)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be open, in_progress, resolved or closed"})
			return
		}
		patch.Status = &status
	}
	if req.Priority != nil {
		priority := models.IssuePriority(*req.Priority)
		if !priority.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be low, normal or high"})
			return
		}
		patch.Priority = &priority
	}

	ident := middleware.GetIdentity(c)
	issue, err := h.issues.Update(c.Request.Context(), ident, id, patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if issue == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "issue not found"})
		return
	}

	c.JSON(http.StatusOK, issue)
}
