package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mroshb/impostor_bot/internal/game"
	"github.com/mroshb/impostor_bot/internal/models"
	"github.com/mroshb/impostor_bot/internal/security"
	"github.com/mroshb/impostor_bot/pkg/errors"
	"github.com/mroshb/impostor_bot/pkg/logger"
)

const (
	errInvalidRequest = "INVALID_REQUEST"
	errSecretNotFound = "SECRET_NOT_FOUND"
	errInvalidToken   = "INVALID_TOKEN"
)

// GameService is the part of the game engine the HTTP API drives.
type GameService interface {
	CreateRoom(ctx context.Context, p game.CreatePlayer) (string, error)
	JoinRoom(ctx context.Context, code string, p game.JoinPlayer) error
	GetRoomStatus(ctx context.Context, code string) (*game.RoomView, bool, error)
	StartGame(ctx context.Context, code, callerID string) (map[string]models.Secret, error)
	RestartGame(ctx context.Context, code, callerID string) error
	SetAdmission(ctx context.Context, code, callerID string, open bool) error
	GetPlayerSecret(ctx context.Context, code, userID string) (*models.Secret, bool, error)
	MarkPlayerSeen(ctx context.Context, code, userID string) error
	RandomWord() string
}

type Handler struct {
	game         GameService
	revealSecret string
}

// NewHandler creates the room handlers. Reveal links are rejected when
// revealSecret is empty.
func NewHandler(svc GameService, revealSecret string) *Handler {
	return &Handler{game: svc, revealSecret: revealSecret}
}

// Register mounts every route under /api.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")

	rooms := api.Group("/rooms")
	rooms.POST("", h.CreateRoom)
	rooms.GET("/:code", h.GetRoom)
	rooms.POST("/:code/join", h.JoinRoom)
	rooms.POST("/:code/start", h.StartGame)
	rooms.POST("/:code/restart", h.RestartGame)
	rooms.POST("/:code/admission", h.SetAdmission)
	rooms.GET("/:code/secret/:user_id", h.GetSecret)
	rooms.POST("/:code/players/:user_id/seen", h.MarkSeen)

	api.GET("/reveal", h.Reveal)
	api.GET("/words/random", h.RandomWord)
}

type playerRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Source   string `json:"source"`
}

func (r *playerRequest) normalize() {
	if r.UserID == "" {
		r.UserID = uuid.NewString()
	}
	if r.Source == "" {
		r.Source = models.SourceWeb
	}
	r.Username = security.SanitizeName(r.Username)
}

type hostRequest struct {
	HostUID string `json:"host_uid" binding:"required"`
}

type admissionRequest struct {
	HostUID   string `json:"host_uid" binding:"required"`
	AllowJoin *bool  `json:"allow_join" binding:"required"`
}

func (h *Handler) CreateRoom(ctx *gin.Context) {
	var req playerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	req.normalize()

	code, err := h.game.CreateRoom(ctx.Request.Context(), game.CreatePlayer{
		UserID: req.UserID,
		Name:   req.Username,
		Source: req.Source,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"room_id": code,
		"user_id": req.UserID,
		"message": "Room created successfully",
	})
}

func (h *Handler) JoinRoom(ctx *gin.Context) {
	var req playerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	req.normalize()
	code := game.NormalizeCode(ctx.Param("code"))

	err := h.game.JoinRoom(ctx.Request.Context(), code, game.JoinPlayer{
		UserID: req.UserID,
		Name:   req.Username,
		Source: req.Source,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"room_id": code,
		"user_id": req.UserID,
		"message": "Joined room successfully",
	})
}

func (h *Handler) GetRoom(ctx *gin.Context) {
	view, found, err := h.game.GetRoomStatus(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !found {
		ctx.JSON(http.StatusNotFound, gin.H{"error": errors.ErrCodeRoomNotFound, "detail": "Room not found"})
		return
	}
	ctx.JSON(http.StatusOK, view)
}

func (h *Handler) StartGame(ctx *gin.Context) {
	var req hostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	code := game.NormalizeCode(ctx.Param("code"))

	secrets, err := h.game.StartGame(ctx.Request.Context(), code, req.HostUID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	count := len(secrets)
	if secrets == nil {
		if view, found, err := h.game.GetRoomStatus(ctx.Request.Context(), code); err == nil && found {
			count = len(view.Players)
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"room_id":      code,
		"message":      "Game started successfully",
		"player_count": count,
	})
}

func (h *Handler) RestartGame(ctx *gin.Context) {
	var req hostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	code := game.NormalizeCode(ctx.Param("code"))

	if err := h.game.RestartGame(ctx.Request.Context(), code, req.HostUID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"room_id": code, "message": "Game restarted successfully"})
}

func (h *Handler) SetAdmission(ctx *gin.Context) {
	var req admissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	code := game.NormalizeCode(ctx.Param("code"))

	if err := h.game.SetAdmission(ctx.Request.Context(), code, req.HostUID, *req.AllowJoin); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"room_id": code, "allow_join": *req.AllowJoin})
}

func (h *Handler) GetSecret(ctx *gin.Context) {
	secret, found, err := h.game.GetPlayerSecret(ctx.Request.Context(), ctx.Param("code"), ctx.Param("user_id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !found {
		ctx.JSON(http.StatusNotFound, gin.H{"error": errSecretNotFound, "detail": "Secret not found"})
		return
	}
	ctx.JSON(http.StatusOK, secret)
}

func (h *Handler) MarkSeen(ctx *gin.Context) {
	if err := h.game.MarkPlayerSeen(ctx.Request.Context(), ctx.Param("code"), ctx.Param("user_id")); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Marked as seen"})
}

// Reveal serves a secret addressed by a signed reveal link and marks it seen.
func (h *Handler) Reveal(ctx *gin.Context) {
	token := ctx.Query("token")
	if h.revealSecret == "" || token == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidToken, "detail": "Invalid reveal link"})
		return
	}

	claims, err := security.ValidateRevealToken(token, h.revealSecret)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidToken, "detail": "Invalid reveal link"})
		return
	}

	secret, found, err := h.game.GetPlayerSecret(ctx.Request.Context(), claims.RoomCode, claims.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !found {
		ctx.JSON(http.StatusNotFound, gin.H{"error": errSecretNotFound, "detail": "Secret not found"})
		return
	}

	if err := h.game.MarkPlayerSeen(ctx.Request.Context(), claims.RoomCode, claims.UserID); err != nil {
		logger.Warn("Failed to mark secret seen", "code", claims.RoomCode, "user", claims.UserID, "error", err)
	}
	ctx.JSON(http.StatusOK, secret)
}

func (h *Handler) RandomWord(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"word": h.game.RandomWord()})
}

func badRequest(ctx *gin.Context) {
	ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest, "detail": "Invalid request body"})
}

// respondError maps domain errors to 4xx with their message and hides
// everything else behind a generic 500.
func respondError(ctx *gin.Context, err error) {
	if errors.IsDomain(err) {
		status := http.StatusBadRequest
		if errors.Is(err, errors.ErrCodeRoomNotFound) {
			status = http.StatusNotFound
		}
		ctx.JSON(status, gin.H{"error": errors.CodeOf(err), "detail": errors.MessageOf(err)})
		return
	}

	logger.Error("Request failed", "method", ctx.Request.Method, "path", ctx.FullPath(), "error", err)
	ctx.JSON(http.StatusInternalServerError, gin.H{
		"error":  errors.ErrCodeInternalError,
		"detail": errors.MessageOf(err),
	})
}
