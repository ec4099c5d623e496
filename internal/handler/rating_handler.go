package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edutech-api/internal/service"
	"github.com/noah-isme/edutech-api/pkg/response"
)

// RatingHandler exposes rating endpoints.
type RatingHandler struct {
	ratings *service.RatingService
}

// NewRatingHandler constructs RatingHandler.
func NewRatingHandler(ratings *service.RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

// List godoc
// @Summary List ratings
// @Tags Ratings
// @Produce json
// @Param course_id query string false "Filter by course"
// @Success 200 {object} response.Envelope
// @Router /ratings [get]
func (h *RatingHandler) List(c *gin.Context) {
	items, err := h.ratings.List(c.Request.Context(), strings.TrimSpace(c.Query("course_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Get godoc
// @Summary Get rating
// @Tags Ratings
// @Produce json
// @Param id path string true "Rating ID"
// @Success 200 {object} response.Envelope
// @Router /ratings/{id} [get]
func (h *RatingHandler) Get(c *gin.Context) {
	item, err := h.ratings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Create godoc
// @Summary Rate an enrolled course
// @Tags Ratings
// @Accept json
// @Produce json
// @Param payload body service.CreateRatingRequest true "Rating payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /ratings [post]
func (h *RatingHandler) Create(c *gin.Context) {
	var req service.CreateRatingRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.ratings.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update rating
// @Tags Ratings
// @Accept json
// @Produce json
// @Param id path string true "Rating ID"
// @Param payload body service.UpdateRatingRequest true "Rating payload"
// @Success 200 {object} response.Envelope
// @Router /ratings/{id} [put]
func (h *RatingHandler) Update(c *gin.Context) {
	var req service.UpdateRatingRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.ratings.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Delete godoc
// @Summary Delete rating
// @Tags Ratings
// @Param id path string true "Rating ID"
// @Success 204
// @Router /ratings/{id} [delete]
func (h *RatingHandler) Delete(c *gin.Context) {
	if err := h.ratings.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
