package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/service"
	appErrors "github.com/noah-isme/edu-admin-api/pkg/errors"
	"github.com/noah-isme/edu-admin-api/pkg/response"
)

type tokenIssuer interface {
	Issue(req service.IssueTokenRequest) (string, time.Time, error)
}

// TokenHandler mints access tokens for local environments.
type TokenHandler struct {
	tokens         tokenIssuer
	allowSuperUser bool
}

// NewTokenHandler constructs TokenHandler. SUPERUSER tokens are refused
// unless allowSuperUser is set.
func NewTokenHandler(tokens tokenIssuer, allowSuperUser bool) *TokenHandler {
	return &TokenHandler{tokens: tokens, allowSuperUser: allowSuperUser}
}

// Issue godoc
// @Summary Issue a development token
// @Description Only mounted outside production when ENABLE_DEV_TOKENS is set.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body service.IssueTokenRequest true "Token identity"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/dev-token [post]
func (h *TokenHandler) Issue(c *gin.Context) {
	var req service.IssueTokenRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	if req.Role == models.RoleSuperUser && !h.allowSuperUser {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "dev tokens cannot carry the SUPERUSER role"))
		return
	}
	token, expiresAt, err := h.tokens.Issue(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_at":   expiresAt,
	}, nil)
}
