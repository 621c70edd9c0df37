package handler

import (
	"rewardpoints/pkg/response"

	"github.com/gin-gonic/gin"
)

// ListRewards
// GET /api/rewards
func (h *Handler) ListRewards(c *gin.Context) {
	rewards, err := h.catalogService.ListRewards(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, rewards)
}

// RedeemReward spends points immediately, without parent approval.
// POST /api/rewards/:id/redeem
func (h *Handler) RedeemReward(c *gin.Context) {
	rewardID, err := pathID(c, "id")
	if err != nil {
		response.Fail(c, err)
		return
	}

	result, err := h.requestService.Redeem(c.Request.Context(), currentIdentity(c), rewardID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}

// ListRequests
// GET /api/reward-requests?status=pending&page=1&page_size=20
func (h *Handler) ListRequests(c *gin.Context) {
	result, err := h.requestService.ListRequests(c.Request.Context(), currentIdentity(c), c.Query("status"),
		queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}

type createRequestBody struct {
	Reward int64 `json:"reward"`
}

// CreateRequest
// POST /api/reward-requests
func (h *Handler) CreateRequest(c *gin.Context) {
	var req createRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid body: "+err.Error())
		return
	}

	result, err := h.requestService.CreateRequest(c.Request.Context(), currentIdentity(c), req.Reward)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, result)
}

// ApproveRequest
// POST /api/reward-requests/:id/approve
func (h *Handler) ApproveRequest(c *gin.Context) {
	requestID, err := pathID(c, "id")
	if err != nil {
		response.Fail(c, err)
		return
	}

	result, err := h.requestService.ApproveRequest(c.Request.Context(), currentIdentity(c), requestID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}
