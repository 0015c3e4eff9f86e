package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/orbitcommerce/auth-core/internal/middleware"
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

// RegisterRoutes wires the login-history endpoints. Both require an
// authenticated caller resolved from the gateway-injected headers.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/auth/history", middleware.Identity())
	g.GET("", h.ownHistory)
	g.GET("/:userId", h.userHistory)
}

// GET /api/auth/history
func (h *Handler) ownHistory(c *gin.Context) {
	caller, ok := middleware.CurrentCaller(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	h.respondHistory(c, caller.UserID)
}

// GET /api/auth/history/:userId
func (h *Handler) userHistory(c *gin.Context) {
	target, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || target <= 0 {
		response.Error(c, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	if !middleware.CanAccessUser(c, target) {
		response.Forbidden(c, "insufficient permissions")
		return
	}
	h.respondHistory(c, target)
}

func (h *Handler) respondHistory(c *gin.Context, userID int64) {
	entries, err := h.svc.Recent(c.Request.Context(), userID, 0)
	if err != nil {
		h.logger.Error("login history lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		response.FromError(c, err)
		return
	}
	response.OK(c, entries)
}
