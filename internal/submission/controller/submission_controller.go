package controller

import (
	"runpad/internal/submission/service"
	"runpad/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// SubmissionController handles submission HTTP endpoints.
type SubmissionController struct {
	submissionService *service.SubmissionService
}

// NewSubmissionController creates a new SubmissionController.
func NewSubmissionController(submissionService *service.SubmissionService) *SubmissionController {
	return &SubmissionController{submissionService: submissionService}
}

// RegisterRoutes mounts the submission routes on the given router group.
func (h *SubmissionController) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("", h.List)
	api.GET("/:id", h.Get)
	api.POST("", h.Create)
	api.DELETE("/:id", h.Delete)
}

// List returns all submissions, refreshing pending ones first.
func (h *SubmissionController) List(c *gin.Context) {
	submissions, err := h.submissionService.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, submissions)
}

// Get returns one submission by id.
func (h *SubmissionController) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}
	submission, err := h.submissionService.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, submission)
}

// Create submits code to the judge and persists the submission.
func (h *SubmissionController) Create(c *gin.Context) {
	var req CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	submission, err := h.submissionService.Create(c.Request.Context(), service.CreateInput{
		Username:   req.Username,
		LanguageID: req.LanguageID,
		SourceCode: req.SourceCode,
		Stdin:      req.Stdin,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, submission)
}

// Delete removes one submission by id.
func (h *SubmissionController) Delete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}
	if err := h.submissionService.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, struct{}{})
}

// CreateSubmissionRequest defines the submission payload.
// source_code and stdin are base64-encoded text.
type CreateSubmissionRequest struct {
	Username   string `json:"username" binding:"required,min=2,max=30"`
	LanguageID int    `json:"language_id" binding:"required"`
	SourceCode string `json:"source_code" binding:"required"`
	Stdin      string `json:"stdin"`
}
