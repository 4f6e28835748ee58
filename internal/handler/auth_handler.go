package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/jwtutil"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/logger"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/prometheus"
)

type AuthHandler struct {
	DB         *gorm.DB
	Workspaces *workspace.Service
}

func NewAuthHandler(db *gorm.DB, ws *workspace.Service) *AuthHandler {
	return &AuthHandler{DB: db, Workspaces: ws}
}

// Register creates a new user and their personal workspace.
func (h *AuthHandler) Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	// Parse request
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse register request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	// Hash password
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		prometheus.RecordAuthError("hash_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	user := model.User{
		Email:    req.Email,
		Name:     strings.TrimSpace(req.Name),
		Password: string(hashed),
	}
	if err := h.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			prometheus.RecordAuthError("duplicate_email")
			return c.JSON(http.StatusConflict, echo.Map{"error": "email is already registered"})
		}
		log.Error("Failed to create user", zap.Error(err))
		prometheus.RecordAuthError("user_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	// Resolve creates the personal workspace on first call
	ctx, err := h.Workspaces.Resolve(user.ID)
	if err != nil {
		log.Error("Failed to resolve workspace for new user", zap.Error(err))
		return writeError(c, err)
	}

	token, err := jwtutil.GenerateTokenWithWorkspace(user.Email, user.ID, &ctx.WorkspaceID, ctx.WorkspaceName, ctx.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.IncreaseActiveTokens()

	log.Info("User registered",
		zap.String("email", user.Email),
		zap.Uint("user_id", user.ID),
		zap.Uint("workspace_id", ctx.WorkspaceID))

	return c.JSON(http.StatusCreated, echo.Map{
		"token": token,
		"user": echo.Map{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
		"workspace": echo.Map{
			"id":   ctx.WorkspaceID,
			"name": ctx.WorkspaceName,
			"role": ctx.Role,
		},
	})
}

// Login verifies credentials and issues a JWT carrying the user's
// active workspace context.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	// Parse request
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		WorkspaceID *uint  `json:"workspace_id,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if err := h.DB.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		log.Error("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Error("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	// Resolve the workspace context, honoring an explicit selection
	ctx, err := h.Workspaces.Resolve(user.ID)
	if err != nil {
		log.Error("Failed to resolve workspace", zap.Error(err))
		return writeError(c, err)
	}
	if req.WorkspaceID != nil && *req.WorkspaceID != ctx.WorkspaceID {
		ctx, err = h.Workspaces.Switch(ctx, *req.WorkspaceID)
		if err != nil {
			prometheus.RecordAuthError("workspace_access_denied")
			return writeError(c, err)
		}
	}

	token, err := jwtutil.GenerateTokenWithWorkspace(user.Email, user.ID, &ctx.WorkspaceID, ctx.WorkspaceName, ctx.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.IncreaseActiveTokens()

	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.Uint("workspace_id", ctx.WorkspaceID),
		zap.String("workspace_name", ctx.WorkspaceName),
		zap.String("role", string(ctx.Role)))

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user": echo.Map{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
		"workspace": echo.Map{
			"id":   ctx.WorkspaceID,
			"name": ctx.WorkspaceName,
			"role": ctx.Role,
		},
	})
}

// Me returns the authenticated user's profile and workspace context.
func (h *AuthHandler) Me(c echo.Context) error {
	log := logger.FromContext(c)

	userID, _, ok := currentUser(c)
	if !ok {
		prometheus.RecordAuthError("unauthorized_profile_access")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var user model.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		log.Error("Failed to load user", zap.Error(err))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user": echo.Map{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
		"workspace": echo.Map{
			"id":   ctx.WorkspaceID,
			"name": ctx.WorkspaceName,
			"role": ctx.Role,
		},
	})
}

// Logout decrements the active-token gauge. Tokens are stateless, so
// the client discards the token itself.
func (h *AuthHandler) Logout(c echo.Context) error {
	prometheus.DecreaseActiveTokens()
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}
