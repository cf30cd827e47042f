package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/repodoc-backend/internal/http/response"
	"github.com/yungbote/repodoc-backend/internal/services"
)

type UserHandler struct {
	users services.UserService
}

func NewUserHandler(users services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type registerTokenRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
}

// POST /api/v1/users/token
// Registers the caller by their GitHub access token and returns an API
// token for subsequent requests. The GitHub token itself is stored sealed
// and never echoed back.
func (h *UserHandler) RegisterToken(c *gin.Context) {
	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	user, apiToken, err := h.users.RegisterToken(c.Request.Context(), req.AccessToken)
	if err != nil {
		response.RespondAppError(c, "register_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"user": user, "token": apiToken})
}
