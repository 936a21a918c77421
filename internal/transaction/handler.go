package transaction

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kosh/internal/logger"
	"kosh/pkg/errors"
	"kosh/pkg/metrics"
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
		transactions := v1.Group("/transactions")
		{
			transactions.GET("", h.ListTransactions)
			transactions.POST("", h.CreateTransaction)
			transactions.GET("/summary", h.GetSummary)
			transactions.GET("/stream", h.StreamTransactions)
			transactions.GET("/:id", h.GetTransaction)
			transactions.PUT("/:id", h.UpdateTransaction)
			transactions.DELETE("/:id", h.DeleteTransaction)
		}
	}
}

// ListTransactions godoc
// @Summary      List transactions
// @Description  List transactions newest first, optionally filtered by direction, date range, or tag references
// @Tags         transactions
// @Produce      json
// @Param        direction          query  string  false  "Direction (expense, income)"
// @Param        from               query  string  false  "Start of date range (RFC3339)"
// @Param        to                 query  string  false  "End of date range (RFC3339)"
// @Param        payee_id           query  string  false  "Payee tag ID"
// @Param        category_id        query  string  false  "Category tag ID"
// @Param        payment_method_id  query  string  false  "Payment method tag ID"
// @Param        status_id          query  string  false  "Status tag ID"
// @Success      200  {array}   WithTags
// @Failure      400  {object}  map[string]interface{}
// @Router       /transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	transactions, err := h.service.ListWithTags(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}

// CreateTransaction godoc
// @Summary      Create a transaction
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        transaction  body  CreateTransactionRequest  true  "Transaction data"
// @Success      201  {object}  Transaction
// @Failure      400  {object}  map[string]interface{}
// @Router       /transactions [post]
func (h *Handler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	t, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// GetTransaction godoc
// @Summary      Get a transaction
// @Tags         transactions
// @Produce      json
// @Param        id  path  string  true  "Transaction ID"
// @Success      200  {object}  WithTags
// @Failure      404  {object}  map[string]interface{}
// @Router       /transactions/{id} [get]
func (h *Handler) GetTransaction(c *gin.Context) {
	t, err := h.service.GetWithTags(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// UpdateTransaction godoc
// @Summary      Update a transaction
// @Description  Partially update a transaction; only provided fields change
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        id           path  string                    true  "Transaction ID"
// @Param        transaction  body  UpdateTransactionRequest  true  "Fields to update"
// @Success      200  {object}  Transaction
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /transactions/{id} [put]
func (h *Handler) UpdateTransaction(c *gin.Context) {
	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	t, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// DeleteTransaction godoc
// @Summary      Delete a transaction
// @Tags         transactions
// @Param        id  path  string  true  "Transaction ID"
// @Success      204  "No Content"
// @Failure      404  {object}  map[string]interface{}
// @Router       /transactions/{id} [delete]
func (h *Handler) DeleteTransaction(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSummary godoc
// @Summary      Get spending summary
// @Description  Totals by direction plus expense breakdown by category, optionally restricted to a date range
// @Tags         transactions
// @Produce      json
// @Param        from  query  string  false  "Start of date range (RFC3339)"
// @Param        to    query  string  false  "End of date range (RFC3339)"
// @Success      200  {object}  Summary
// @Failure      400  {object}  map[string]interface{}
// @Router       /transactions/summary [get]
func (h *Handler) GetSummary(c *gin.Context) {
	from, err := parseTimeParam(c, "from")
	if err != nil {
		h.handleError(c, err)
		return
	}
	to, err := parseTimeParam(c, "to")
	if err != nil {
		h.handleError(c, err)
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), from, to)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// StreamTransactions godoc
// @Summary      Stream transaction updates
// @Description  Server-sent events stream; emits the full transaction list immediately and again after every change
// @Tags         transactions
// @Produce      text/event-stream
// @Success      200  {array}  WithTags
// @Router       /transactions/stream [get]
func (h *Handler) StreamTransactions(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ctx := c.Request.Context()
	updates := h.service.Subscribe(ctx)

	metrics.StreamSubscribersActive.Inc()
	defer metrics.StreamSubscribersActive.Dec()

	c.Stream(func(w io.Writer) bool {
		select {
		case transactions, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("transactions", transactions)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.log.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

func parseFilter(c *gin.Context) (Filter, error) {
	var filter Filter

	if raw := c.Query("direction"); raw != "" {
		direction := Direction(raw)
		if !direction.Valid() {
			return filter, errors.ErrValidation.WithDetail("field", "direction").
				WithDetail("reason", "direction must be expense or income")
		}
		filter.Direction = &direction
	}

	from, err := parseTimeParam(c, "from")
	if err != nil {
		return filter, err
	}
	to, err := parseTimeParam(c, "to")
	if err != nil {
		return filter, err
	}
	filter.From = from
	filter.To = to

	if id := c.Query("payee_id"); id != "" {
		filter.PayeeID = &id
	}
	if id := c.Query("category_id"); id != "" {
		filter.CategoryID = &id
	}
	if id := c.Query("payment_method_id"); id != "" {
		filter.PaymentMethodID = &id
	}
	if id := c.Query("status_id"); id != "" {
		filter.StatusID = &id
	}

	return filter, nil
}

func parseTimeParam(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.ErrValidation.WithDetail("field", name).
			WithDetail("reason", "must be an RFC3339 timestamp")
	}
	return &parsed, nil
}
