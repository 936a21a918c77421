package tag

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kosh/internal/logger"
	"kosh/pkg/errors"
)

type Handler struct {
	service Service
	log     logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		tags := v1.Group("/tags")
		{
			tags.GET("", h.ListTags)
			tags.POST("", h.CreateTag)
			tags.GET("/:id", h.GetTag)
			tags.PUT("/:id", h.UpdateTag)
			tags.DELETE("/:id", h.DeleteTag)
		}
	}
}

// ListTags godoc
// @Summary      List tags
// @Description  List all tags, optionally filtered by type or name search
// @Tags         tags
// @Produce      json
// @Param        type  query  string  false  "Tag type (payee, category, payment_method, status)"
// @Param        q     query  string  false  "Name substring to search for (requires type)"
// @Success      200  {array}   Tag
// @Failure      400  {object}  map[string]interface{}
// @Router       /tags [get]
func (h *Handler) ListTags(c *gin.Context) {
	tagType := Type(c.Query("type"))
	query := c.Query("q")

	var (
		tags []Tag
		err  error
	)
	switch {
	case query != "":
		tags, err = h.service.Search(c.Request.Context(), query, tagType)
	case tagType != "":
		tags, err = h.service.ListByType(c.Request.Context(), tagType)
	default:
		tags, err = h.service.List(c.Request.Context())
	}

	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// CreateTag godoc
// @Summary      Create a tag
// @Tags         tags
// @Accept       json
// @Produce      json
// @Param        tag  body  CreateTagRequest  true  "Tag data"
// @Success      201  {object}  Tag
// @Failure      400  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]interface{}
// @Router       /tags [post]
func (h *Handler) CreateTag(c *gin.Context) {
	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	t, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// GetTag godoc
// @Summary      Get a tag by ID
// @Tags         tags
// @Produce      json
// @Param        id  path  string  true  "Tag ID"
// @Success      200  {object}  Tag
// @Failure      404  {object}  map[string]interface{}
// @Router       /tags/{id} [get]
func (h *Handler) GetTag(c *gin.Context) {
	t, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// UpdateTag godoc
// @Summary      Update a tag
// @Tags         tags
// @Accept       json
// @Produce      json
// @Param        id   path  string           true  "Tag ID"
// @Param        tag  body  UpdateTagRequest true  "Updated fields"
// @Success      200  {object}  Tag
// @Failure      404  {object}  map[string]interface{}
// @Router       /tags/{id} [put]
func (h *Handler) UpdateTag(c *gin.Context) {
	var req UpdateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	t, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// DeleteTag godoc
// @Summary      Delete a tag
// @Tags         tags
// @Param        id  path  string  true  "Tag ID"
// @Success      204  "No Content"
// @Failure      404  {object}  map[string]interface{}
// @Router       /tags/{id} [delete]
func (h *Handler) DeleteTag(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.log.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}
