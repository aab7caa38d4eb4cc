package auth

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/response"
	"github.com/aura-events/backend/pkg/utils"
	"github.com/aura-events/backend/pkg/validation"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Credentials is the account storage the handler needs; *Repository implements it.
type Credentials interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Register(ctx context.Context, name, email, passwordHash, role string) (*models.User, error)
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo        Credentials
	jwt         *JWTService
	defaultRole string
	logger      *zap.Logger
}

// NewHandler creates an auth handler. Self-registered accounts get defaultRole.
func NewHandler(repo Credentials, jwt *JWTService, defaultRole string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, defaultRole: defaultRole, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBinding(err))
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Register(c.Request.Context(), req.Name, req.Email, hash, h.defaultRole)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	h.logger.Info("account registered", zap.String("user_id", user.ID.String()))
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBinding(err))
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !apperr.IsNotFound(err) {
			response.Error(c, err)
			return
		}
		response.Unauthorized(c, "invalid email or password")
		return
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}
