package ingest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"kosh/internal/constants"
	"kosh/internal/logger"
	"kosh/pkg/errors"
	"kosh/pkg/models"
)

type Handler struct {
	service *Service
	log     logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		ingest := v1.Group("/ingest")
		{
			ingest.POST("/messages", h.IngestMessage)
			ingest.POST("/scan", h.Scan)
			ingest.GET("/stats", h.Stats)

			drafts := ingest.Group("/drafts")
			{
				drafts.GET("", h.GetDrafts)
				drafts.DELETE("", h.ClearDrafts)
				drafts.POST("/commit", h.CommitDrafts)
				drafts.POST("/select-all", h.SelectAll)
				drafts.POST("/deselect-all", h.DeselectAll)
				drafts.POST("/:index/toggle", h.ToggleDraft)
			}
		}
	}
}

// IngestMessage godoc
// @Summary      Ingest a single SMS
// @Description  Run one SMS through the ingestion pipeline, bypassing the broker
// @Tags         ingest
// @Accept       json
// @Produce      json
// @Param        message  body  IngestMessageRequest  true  "SMS payload"
// @Success      202  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Router       /ingest/messages [post]
func (h *Handler) IngestMessage(c *gin.Context) {
	var req IngestMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	msg := models.NewInboundSMS(req.Sender, req.Body, timestamp, constants.SourceAPI)
	if err := h.service.HandleInbound(c.Request.Context(), msg); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": msg.ID})
}

// Scan godoc
// @Summary      Scan the inbox
// @Description  Replay stored messages over the lookback window and build a draft session
// @Tags         ingest
// @Produce      json
// @Success      200  {object}  ScanResult
// @Router       /ingest/scan [post]
func (h *Handler) Scan(c *gin.Context) {
	result, err := h.service.Scan(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetDrafts godoc
// @Summary      Get the current draft session
// @Tags         ingest
// @Produce      json
// @Success      200  {object}  ScanResult
// @Failure      404  {object}  map[string]interface{}
// @Router       /ingest/drafts [get]
func (h *Handler) GetDrafts(c *gin.Context) {
	result, err := h.service.Session()
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ToggleDraft godoc
// @Summary      Toggle draft selection
// @Tags         ingest
// @Param        index  path  int  true  "Draft index"
// @Success      204  "No Content"
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /ingest/drafts/{index}/toggle [post]
func (h *Handler) ToggleDraft(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.handleError(c, errors.ErrValidation.WithDetail("field", "index").
			WithDetail("reason", "index must be an integer"))
		return
	}

	if err := h.service.Toggle(index); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SelectAll godoc
// @Summary      Select every draft
// @Tags         ingest
// @Success      204  "No Content"
// @Failure      404  {object}  map[string]interface{}
// @Router       /ingest/drafts/select-all [post]
func (h *Handler) SelectAll(c *gin.Context) {
	if err := h.service.SelectAll(); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeselectAll godoc
// @Summary      Deselect every draft
// @Tags         ingest
// @Success      204  "No Content"
// @Failure      404  {object}  map[string]interface{}
// @Router       /ingest/drafts/deselect-all [post]
func (h *Handler) DeselectAll(c *gin.Context) {
	if err := h.service.DeselectAll(); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CommitDrafts godoc
// @Summary      Commit selected drafts
// @Description  Store every selected draft as a transaction; duplicates are skipped
// @Tags         ingest
// @Produce      json
// @Success      200  {object}  CommitResult
// @Failure      404  {object}  map[string]interface{}
// @Router       /ingest/drafts/commit [post]
func (h *Handler) CommitDrafts(c *gin.Context) {
	result, err := h.service.CommitSelected(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ClearDrafts godoc
// @Summary      Discard the current draft session
// @Tags         ingest
// @Success      204  "No Content"
// @Router       /ingest/drafts [delete]
func (h *Handler) ClearDrafts(c *gin.Context) {
	h.service.Clear()
	c.Status(http.StatusNoContent)
}

// Stats godoc
// @Summary      Ingest statistics
// @Description  Count of bank messages in the lookback window
// @Tags         ingest
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /ingest/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	count, err := h.service.CountFinancial(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"financial_messages": count})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.log.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}
