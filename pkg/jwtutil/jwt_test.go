package jwtutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/config"
)

func TestTokenRoundTrip(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-secret", ExpirationHours: 1})

	wsID := uint(7)
	token, err := GenerateTokenWithWorkspace("alice@example.com", 3, &wsID, "Team HQ", model.RoleOwner)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, uint(3), claims.UserID)
	require.NotNil(t, claims.WorkspaceID)
	assert.Equal(t, wsID, *claims.WorkspaceID)
	assert.Equal(t, "Team HQ", claims.WorkspaceName)
	assert.Equal(t, model.RoleOwner, claims.Role)
}

func TestTokenWithoutWorkspace(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-secret", ExpirationHours: 1})

	token, err := GenerateToken("bob@example.com", 9)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Nil(t, claims.WorkspaceID)
	assert.Empty(t, claims.WorkspaceName)
}

func TestTokenRejectsWrongKey(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "first-secret", ExpirationHours: 1})
	token, err := GenerateToken("alice@example.com", 1)
	require.NoError(t, err)

	Initialize(&config.JWTConfig{SigningKey: "other-secret", ExpirationHours: 1})
	_, err = ValidateToken(token)
	assert.Error(t, err)
}
