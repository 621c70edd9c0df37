package handler

import (
	"rewardpoints/internal/service"
	"rewardpoints/pkg/response"

	"github.com/gin-gonic/gin"
)

// Register
// POST /api/register
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid body: "+err.Error())
		return
	}

	id, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, id)
}

// ObtainToken exchanges credentials for an access/refresh pair.
// POST /api/token
func (h *Handler) ObtainToken(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid body: "+err.Error())
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, pair)
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// RefreshToken
// POST /api/token/refresh
func (h *Handler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "refresh is required")
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, pair)
}

// Logout revokes the refresh token. Always succeeds for malformed tokens so
// clients can clear local state regardless.
// POST /api/logout
func (h *Handler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "refresh is required")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.Refresh); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, nil)
}

// Me
// GET /api/me
func (h *Handler) Me(c *gin.Context) {
	response.Success(c, currentIdentity(c))
}
