package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/orbitcommerce/auth-core/internal/pkg/apperrors"
	"github.com/orbitcommerce/auth-core/internal/pkg/response"
	"go.uber.org/zap"
)

type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, loginRateMW gin.HandlerFunc) {
	g := rg.Group("/auth")

	login := g.Group("", loginRateMW)
	login.POST("/login", h.login)

	g.POST("/register", h.register)
	g.POST("/refresh", h.refresh)
	g.POST("/logout", h.logout)
	g.POST("/validate", h.validate)
	g.GET("/activate", h.activate)

	g.POST("/reset-password/init", h.resetInit)
	g.GET("/reset-password/verify", h.resetVerify)
	g.POST("/reset-password/finish", h.resetFinish)
}

// POST /api/auth/login
func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ValidationError(c, map[string]string{"body": err.Error()})
		return
	}

	result, err := h.svc.Login(c.Request.Context(), dto, requestMeta(c))
	if err != nil {
		h.logFailure("login failed", err)
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

// POST /api/auth/register
func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ValidationError(c, map[string]string{"body": err.Error()})
		return
	}

	if err := h.svc.Register(c.Request.Context(), dto); err != nil {
		h.logFailure("registration failed", err)
		response.FromError(c, err)
		return
	}
	response.Created(c, gin.H{"username": dto.Username})
}

// POST /api/auth/refresh
func (h *Handler) refresh(c *gin.Context) {
	var dto RefreshDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ValidationError(c, map[string]string{"body": err.Error()})
		return
	}

	result, err := h.svc.RefreshSession(c.Request.Context(), dto.RefreshToken)
	if err != nil {
		h.logFailure("token refresh failed", err)
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

// POST /api/auth/logout
func (h *Handler) logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), c.GetHeader("Authorization")); err != nil {
		h.logFailure("logout failed", err)
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "logged out"})
}

// POST /api/auth/validate
func (h *Handler) validate(c *gin.Context) {
	if !h.svc.ValidateToken(c.GetHeader("Authorization")) {
		response.Unauthorized(c, "invalid or expired session")
		return
	}
	response.OK(c, gin.H{"valid": true})
}

// GET /api/auth/activate?key=
func (h *Handler) activate(c *gin.Context) {
	if err := h.svc.Activate(c.Request.Context(), c.Query("key")); err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "account activated"})
}

// POST /api/auth/reset-password/init?email=
func (h *Handler) resetInit(c *gin.Context) {
	if err := h.svc.RequestPasswordReset(c.Request.Context(), c.Query("email")); err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "password reset email sent"})
}

// GET /api/auth/reset-password/verify?key=
func (h *Handler) resetVerify(c *gin.Context) {
	if err := h.svc.VerifyResetKey(c.Request.Context(), c.Query("key")); err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "reset key valid"})
}

// POST /api/auth/reset-password/finish
func (h *Handler) resetFinish(c *gin.Context) {
	var dto ResetFinishDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ValidationError(c, map[string]string{"body": err.Error()})
		return
	}

	if err := h.svc.FinishPasswordReset(c.Request.Context(), dto); err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "password reset"})
}

// logFailure logs expected rejections at info and everything else, with
// full detail, at error. The response body itself stays generic.
func (h *Handler) logFailure(msg string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrAuthenticationFailure),
		errors.Is(err, apperrors.ErrAccountNotActivated),
		errors.Is(err, apperrors.ErrTokenNotFound),
		errors.Is(err, apperrors.ErrExpiredToken),
		errors.Is(err, apperrors.ErrTokenRevoked),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrAccountResource):
		h.logger.Info(msg, zap.Error(err))
	default:
		h.logger.Error(msg, zap.Error(err))
	}
}

func requestMeta(c *gin.Context) RequestMeta {
	return RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}
