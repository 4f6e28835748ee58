package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/aiusage"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/breakdown"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/middleware"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/task"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/config"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/jwtutil"
)

// testServer wires the full HTTP surface against an in-memory store.
func testServer(t *testing.T) *echo.Echo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Workspace{},
		&model.WorkspaceMembership{},
		&model.WorkspaceInvite{},
		&model.Task{},
		&model.TaskActivity{},
		&model.AIUsage{},
	))

	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-secret", ExpirationHours: 1})

	log := zap.NewNop()
	workspaces := workspace.NewService(db, log, config.InviteConfig{})
	tasks := task.NewService(db, log)
	usage := aiusage.NewService(db, config.AIConfig{
		DailyLimit:  1,
		AllowEmails: []string{"alice@example.com"},
	})

	authH := NewAuthHandler(db, workspaces)
	workspaceH := NewWorkspaceHandler(workspaces)
	inviteH := NewInviteHandler(workspaces)
	taskH := NewTaskHandler(tasks, workspaces)
	breakdownH := NewBreakdownHandler(breakdown.HeuristicGenerator{}, usage, tasks, workspaces)

	e := echo.New()
	e.POST("/auth/register", authH.Register)
	e.POST("/auth/login", authH.Login)

	api := e.Group("/api", middleware.AuthMiddleware)
	api.GET("/me", authH.Me)
	api.PATCH("/workspace", workspaceH.RenameWorkspace)
	api.PATCH("/workspace/members/:userId", workspaceH.UpdateMemberRole)
	api.DELETE("/workspace/members/:userId", workspaceH.RemoveMember)
	api.POST("/invites", inviteH.CreateInvite)
	api.POST("/invites/redeem", inviteH.RedeemInvite)
	api.POST("/tasks", taskH.CreateTask)
	api.POST("/tasks/:taskId/toggle", taskH.ToggleTask)
	api.POST("/breakdown", breakdownH.Breakdown)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func registerUser(t *testing.T, e *echo.Echo, email string) string {
	t.Helper()
	rec, body := doJSON(t, e, http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "name": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterAndLogin(t *testing.T) {
	e := testServer(t)

	registerUser(t, e, "alice@example.com")

	// Duplicate email is a conflict.
	rec, _ := doJSON(t, e, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "alice@example.com", "name": "x", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body := doJSON(t, e, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	ws, _ := body["workspace"].(map[string]interface{})
	require.NotNil(t, ws)
	assert.Equal(t, workspace.DefaultWorkspaceName, ws["name"])
	assert.Equal(t, string(model.RoleOwner), ws["role"])

	rec, _ = doJSON(t, e, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestsRequireToken(t *testing.T) {
	e := testServer(t)

	rec, _ := doJSON(t, e, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(t, e, http.MethodGet, "/api/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	e := testServer(t)
	token := registerUser(t, e, "alice@example.com")

	rec, body := doJSON(t, e, http.MethodPost, "/api/tasks", token, map[string]string{
		"title": "Write the report",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := int(body["id"].(float64))

	rec, body = doJSON(t, e, http.MethodPost, fmt.Sprintf("/api/tasks/%d/toggle", id), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(model.TaskStatusDone), body["status"])

	rec, _ = doJSON(t, e, http.MethodPost, "/api/tasks", token, map[string]string{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInviteFlowOverHTTP(t *testing.T) {
	e := testServer(t)
	ownerToken := registerUser(t, e, "owner@example.com")
	joinerToken := registerUser(t, e, "joiner@example.com")

	rec, body := doJSON(t, e, http.MethodPost, "/api/invites", ownerToken, map[string]interface{}{
		"role": "member", "max_uses": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inviteToken, _ := body["token"].(string)
	require.NotEmpty(t, inviteToken)

	rec, body = doJSON(t, e, http.MethodPost, "/api/invites/redeem", joinerToken, map[string]string{
		"token": inviteToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(workspace.RedeemAccepted), body["status"])
	assert.NotEmpty(t, body["token"]) // reissued with the joined workspace

	// The invite was single-use; a third party sees used_up, still as 200.
	thirdToken := registerUser(t, e, "third@example.com")
	rec, body = doJSON(t, e, http.MethodPost, "/api/invites/redeem", thirdToken, map[string]string{
		"token": inviteToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(workspace.RedeemUsedUp), body["status"])
}

func userIDOf(t *testing.T, e *echo.Echo, token string) int {
	t.Helper()
	rec, body := doJSON(t, e, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	user, _ := body["user"].(map[string]interface{})
	require.NotNil(t, user)
	return int(user["id"].(float64))
}

func joinWorkspace(t *testing.T, e *echo.Echo, ownerToken, joinerToken, role string) string {
	t.Helper()
	rec, body := doJSON(t, e, http.MethodPost, "/api/invites", ownerToken, map[string]interface{}{
		"role": role, "max_uses": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inviteToken, _ := body["token"].(string)

	rec, body = doJSON(t, e, http.MethodPost, "/api/invites/redeem", joinerToken, map[string]string{
		"token": inviteToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(workspace.RedeemAccepted), body["status"])
	joined, _ := body["token"].(string)
	require.NotEmpty(t, joined)
	return joined
}

func TestRemovedMemberTokenLosesAccess(t *testing.T) {
	e := testServer(t)
	ownerToken := registerUser(t, e, "owner@example.com")
	joinerToken := registerUser(t, e, "joiner@example.com")
	memberToken := joinWorkspace(t, e, ownerToken, joinerToken, "member")
	memberID := userIDOf(t, e, memberToken)

	rec, body := doJSON(t, e, http.MethodPost, "/api/tasks", memberToken, map[string]string{
		"title": "Draft the rollout plan",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	taskID := int(body["id"].(float64))

	rec, _ = doJSON(t, e, http.MethodDelete, fmt.Sprintf("/api/workspace/members/%d", memberID), ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The old token still claims the shared workspace, but the
	// membership is gone, so the task is out of scope now.
	rec, _ = doJSON(t, e, http.MethodPost, fmt.Sprintf("/api/tasks/%d/toggle", taskID), memberToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDemotedOwnerTokenLosesOwnerRights(t *testing.T) {
	e := testServer(t)
	ownerToken := registerUser(t, e, "owner@example.com")
	joinerToken := registerUser(t, e, "second@example.com")
	coOwnerToken := joinWorkspace(t, e, ownerToken, joinerToken, "owner")
	coOwnerID := userIDOf(t, e, coOwnerToken)

	rec, _ := doJSON(t, e, http.MethodPatch, "/api/workspace", coOwnerToken, map[string]string{
		"name": "Shared HQ",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = doJSON(t, e, http.MethodPatch, fmt.Sprintf("/api/workspace/members/%d", coOwnerID), ownerToken, map[string]string{
		"role": "member",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The demotion applies immediately, not at token expiry.
	rec, _ = doJSON(t, e, http.MethodPatch, "/api/workspace", coOwnerToken, map[string]string{
		"name": "Hijacked",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBreakdownEmptyGoalKeepsQuota(t *testing.T) {
	e := testServer(t)
	token := registerUser(t, e, "alice@example.com")

	rec, _ := doJSON(t, e, http.MethodPost, "/api/breakdown", token, map[string]string{"goal": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The rejected request did not consume the single daily use.
	rec, body := doJSON(t, e, http.MethodPost, "/api/breakdown", token, map[string]string{
		"goal": "plan the launch",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(0), body["usage_remaining"])

	rec, _ = doJSON(t, e, http.MethodPost, "/api/breakdown", token, map[string]string{
		"goal": "another goal",
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestBreakdownRequiresAllowlist(t *testing.T) {
	e := testServer(t)
	token := registerUser(t, e, "stranger@example.com")

	rec, _ := doJSON(t, e, http.MethodPost, "/api/breakdown", token, map[string]string{
		"goal": "plan the launch",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMemberCannotRenameWorkspace(t *testing.T) {
	e := testServer(t)
	ownerToken := registerUser(t, e, "owner@example.com")
	joinerToken := registerUser(t, e, "joiner@example.com")

	_, body := doJSON(t, e, http.MethodPost, "/api/invites", ownerToken, map[string]interface{}{
		"max_uses": 1,
	})
	inviteToken, _ := body["token"].(string)

	rec, body := doJSON(t, e, http.MethodPost, "/api/invites/redeem", joinerToken, map[string]string{
		"token": inviteToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	memberToken, _ := body["token"].(string)
	require.NotEmpty(t, memberToken)

	rec, _ = doJSON(t, e, http.MethodPatch, "/api/workspace", memberToken, map[string]string{
		"name": "Hijacked",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = doJSON(t, e, http.MethodPatch, "/api/workspace", ownerToken, map[string]string{
		"name": "Team HQ",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}
