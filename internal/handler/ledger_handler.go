package handler

import (
	"strconv"

	"rewardpoints/internal/service"
	"rewardpoints/pkg/response"

	"github.com/gin-gonic/gin"
)

// ListTransactions
// GET /api/score-transactions?child=&page=1&page_size=20
func (h *Handler) ListTransactions(c *gin.Context) {
	var childID int64
	if v := c.Query("child"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.ParamError(c, "child must be an integer")
			return
		}
		childID = id
	}

	result, err := h.ledgerService.ListTransactions(c.Request.Context(), currentIdentity(c), childID,
		queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}

// GetTransaction
// GET /api/score-transactions/:no
func (h *Handler) GetTransaction(c *gin.Context) {
	trans, err := h.ledgerService.GetTransaction(c.Request.Context(), currentIdentity(c), c.Param("no"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, trans)
}

// CreateTransaction adjusts a child's points.
// POST /api/score-transactions
func (h *Handler) CreateTransaction(c *gin.Context) {
	var req service.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid body: "+err.Error())
		return
	}

	result, err := h.ledgerService.ApplyTransaction(c.Request.Context(), currentIdentity(c), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, result)
}
