package handler

import (
	"rewardpoints/pkg/response"

	"github.com/gin-gonic/gin"
)

// ListChildren
// GET /api/children
func (h *Handler) ListChildren(c *gin.Context) {
	children, err := h.familyService.ListChildren(c.Request.Context(), currentIdentity(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, children)
}

type linkChildRequest struct {
	Username string `json:"username" binding:"required"`
}

// LinkChild
// POST /api/children
func (h *Handler) LinkChild(c *gin.Context) {
	var req linkChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "username is required")
		return
	}

	child, err := h.familyService.LinkChild(c.Request.Context(), currentIdentity(c), req.Username)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, child)
}

// ListParents
// GET /api/parents
func (h *Handler) ListParents(c *gin.Context) {
	parents, err := h.familyService.ListParents(c.Request.Context(), currentIdentity(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, parents)
}
