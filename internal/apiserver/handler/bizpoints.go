package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/waplatform/console/internal/apiserver/database"
	"github.com/waplatform/console/internal/apiserver/middleware"
	"github.com/waplatform/console/internal/bizpoints"
	"github.com/waplatform/console/internal/common/dto"
)

// PostTransaction applies a ledger transaction against a target account.
func (h *Handler) PostTransaction(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)

	var req bizpoints.PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	tx, err := h.engine.Post(c.Request.Context(), identity, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// ListTransactions returns the ledger entries whose owner falls inside the
// actor's scope, newest first.
func (h *Handler) ListTransactions(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)

	page, pageSize := pageParams(c)
	txs, total, err := h.engine.List(c.Request.Context(), identity, page, pageSize)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PageResponse[*database.PointsTransaction]{
		Items:    txs,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// TransactionSummary aggregates balances and ledger totals over the actor's
// scope.
func (h *Handler) TransactionSummary(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)

	summary, err := h.engine.Summary(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
