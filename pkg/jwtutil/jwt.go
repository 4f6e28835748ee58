package jwtutil

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/config"
)

var (
	secret     []byte
	expiration = time.Hour * 24
)

// Initialize configures the signing key and token lifetime.
func Initialize(cfg *config.JWTConfig) {
	secret = []byte(cfg.SigningKey)
	if cfg.ExpirationHours > 0 {
		expiration = time.Duration(cfg.ExpirationHours) * time.Hour
	}
}

// UserClaims represents the JWT claims for user authentication. The active
// workspace context travels in the token so request handling does not need
// an extra lookup for the common path.
type UserClaims struct {
	Email         string     `json:"email"`
	UserID        uint       `json:"user_id"`
	WorkspaceID   *uint      `json:"workspace_id,omitempty"`
	WorkspaceName string     `json:"workspace_name,omitempty"`
	Role          model.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken creates a JWT token without workspace context.
func GenerateToken(email string, userID uint) (string, error) {
	return GenerateTokenWithWorkspace(email, userID, nil, "", "")
}

// GenerateTokenWithWorkspace creates a JWT token carrying the user's active
// workspace id, name and role.
func GenerateTokenWithWorkspace(email string, userID uint, workspaceID *uint, workspaceName string, role model.Role) (string, error) {
	claims := UserClaims{
		Email:         email,
		UserID:        userID,
		WorkspaceID:   workspaceID,
		WorkspaceName: workspaceName,
		Role:          role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
