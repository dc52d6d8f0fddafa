package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/impostor_bot/pkg/logger"
)

const errUnauthorized = "UNAUTHORIZED"

// Cleaner runs one cleanup sweep.
type Cleaner interface {
	RunOnce(ctx context.Context) (rooms, sessions int, err error)
}

// AdminHandler serves maintenance routes guarded by a shared bearer token.
type AdminHandler struct {
	cleaner Cleaner
	token   string
}

func NewAdminHandler(cleaner Cleaner, token string) *AdminHandler {
	return &AdminHandler{cleaner: cleaner, token: token}
}

// Register mounts the admin routes under /api/admin. Nothing is mounted
// without a token.
func (h *AdminHandler) Register(r gin.IRouter) {
	if h.token == "" {
		return
	}
	admin := r.Group("/api/admin", h.requireToken)
	admin.POST("/cleanup", h.Cleanup)
}

func (h *AdminHandler) requireToken(ctx *gin.Context) {
	given := strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(given), []byte(h.token)) != 1 {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized, "detail": "Invalid admin token"})
		return
	}
	ctx.Next()
}

// Cleanup runs the expired room sweep now instead of waiting for the next tick.
func (h *AdminHandler) Cleanup(ctx *gin.Context) {
	rooms, sessions, err := h.cleaner.RunOnce(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}

	logger.Info("Manual cleanup finished", "rooms_deleted", rooms, "sessions_deleted", sessions)
	ctx.JSON(http.StatusOK, gin.H{"rooms_deleted": rooms, "sessions_deleted": sessions})
}
