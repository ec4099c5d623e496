package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edutech-api/internal/service"
	"github.com/noah-isme/edutech-api/pkg/response"
)

// ProgressHandler exposes lesson progress endpoints.
type ProgressHandler struct {
	progress *service.ProgressService
}

// NewProgressHandler constructs ProgressHandler.
func NewProgressHandler(progress *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// List godoc
// @Summary List progress of an enrollment
// @Tags Progress
// @Produce json
// @Param enrollment_id query string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /progress [get]
func (h *ProgressHandler) List(c *gin.Context) {
	enrollmentID, ok := requiredQuery(c, "enrollment_id")
	if !ok {
		return
	}
	items, err := h.progress.ListByEnrollment(c.Request.Context(), enrollmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Get godoc
// @Summary Get progress row
// @Tags Progress
// @Produce json
// @Param id path string true "Progress ID"
// @Success 200 {object} response.Envelope
// @Router /progress/{id} [get]
func (h *ProgressHandler) Get(c *gin.Context) {
	item, err := h.progress.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Create godoc
// @Summary Record lesson progress
// @Tags Progress
// @Accept json
// @Produce json
// @Param payload body service.CreateProgressRequest true "Progress payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /progress [post]
func (h *ProgressHandler) Create(c *gin.Context) {
	var req service.CreateProgressRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.progress.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update lesson progress
// @Tags Progress
// @Accept json
// @Produce json
// @Param id path string true "Progress ID"
// @Param payload body service.UpdateProgressRequest true "Progress payload"
// @Success 200 {object} response.Envelope
// @Router /progress/{id} [put]
func (h *ProgressHandler) Update(c *gin.Context) {
	var req service.UpdateProgressRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.progress.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Delete godoc
// @Summary Delete progress row
// @Tags Progress
// @Param id path string true "Progress ID"
// @Success 204
// @Router /progress/{id} [delete]
func (h *ProgressHandler) Delete(c *gin.Context) {
	if err := h.progress.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
