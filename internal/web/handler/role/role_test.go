package role

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ai-job-readiness/jobready/internal/auth"
	"github.com/ai-job-readiness/jobready/internal/config"
	"github.com/ai-job-readiness/jobready/internal/db/models"
	"github.com/ai-job-readiness/jobready/internal/rbac"
	"github.com/ai-job-readiness/jobready/internal/tokens"
)

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	auth  *auth.Service
	admin *models.Account
	token string
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.Account{}, &models.Role{}, &models.Assignment{}))

	cfg := &config.Config{Title: "test"}
	cfg.Auth.JWT = config.JWT{
		Secret:        "test-secret-at-least-32-characters",
		Issuer:        "test",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
	}

	authService := auth.NewService(
		db,
		rbac.NewService(db),
		auth.NewTokenManager(cfg.Auth.JWT),
		tokens.New(memory.New()),
	)

	app := fiber.New()

	h := Service{}
	h.Init(app, cfg, db, authService)

	admin := &models.Account{
		Active:    true,
		Superuser: true,
		Email:     "root@example.com",
		Password:  "not-a-real-hash",
	}
	require.NoError(t, db.Create(admin).Error)

	pair, err := authService.JWT.GeneratePair(admin)
	require.NoError(t, err)

	return &testEnv{
		app:   app,
		db:    db,
		auth:  authService,
		admin: admin,
		token: pair.AccessToken,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func TestCreateRoleEndpoint(t *testing.T) {
	env := setupEnv(t)

	resp := env.request(t, fiber.MethodPost, "/roles/", fiber.Map{
		"name":        "editor",
		"description": "can edit",
		"permissions": []string{"doc:read", "doc:write"},
	}, env.token)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])

	// duplicate name conflicts
	resp = env.request(t, fiber.MethodPost, "/roles/", fiber.Map{"name": "editor"}, env.token)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCreateRoleValidation(t *testing.T) {
	env := setupEnv(t)

	resp := env.request(t, fiber.MethodPost, "/roles/", fiber.Map{"description": "no name"}, env.token)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRoleEndpointsRequireAuth(t *testing.T) {
	env := setupEnv(t)

	resp := env.request(t, fiber.MethodGet, "/roles/", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRoleMutationsRequirePermission(t *testing.T) {
	env := setupEnv(t)

	member := &models.Account{Active: true, Email: "member@example.com", Password: "x"}
	require.NoError(t, env.db.Create(member).Error)

	pair, err := env.auth.JWT.GeneratePair(member)
	require.NoError(t, err)

	// reads are open to any authenticated account
	resp := env.request(t, fiber.MethodGet, "/roles/", nil, pair.AccessToken)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.request(t, fiber.MethodGet, "/roles/statistics", nil, pair.AccessToken)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// mutations are not
	resp = env.request(t, fiber.MethodPost, "/roles/", fiber.Map{"name": "sneaky"}, pair.AccessToken)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestGetRoleNotFound(t *testing.T) {
	env := setupEnv(t)

	resp := env.request(t, fiber.MethodGet, "/roles/999", nil, env.token)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUpdateAndDeleteRole(t *testing.T) {
	env := setupEnv(t)

	role, err := env.auth.RBAC().CreateRole("temp", "", []string{"doc:read"})
	require.NoError(t, err)

	resp := env.request(t, fiber.MethodPut, "/roles/1", fiber.Map{
		"description": "updated",
		"permissions": []string{"doc:write"},
	}, env.token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	got, err := env.auth.RBAC().GetRole(role.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Description)
	assert.Equal(t, models.PermissionList{"doc:write"}, got.Permissions)

	resp = env.request(t, fiber.MethodDelete, "/roles/1", nil, env.token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.request(t, fiber.MethodDelete, "/roles/1", nil, env.token)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAssignUnassignEndpoints(t *testing.T) {
	env := setupEnv(t)

	role, err := env.auth.RBAC().CreateRole("editor", "", []string{"doc:read"})
	require.NoError(t, err)

	member := &models.Account{Active: true, Email: "member@example.com", Password: "x"}
	require.NoError(t, env.db.Create(member).Error)

	resp := env.request(t, fiber.MethodPost, "/roles/1/assign",
		fiber.Map{"user_id": member.ID}, env.token)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// assigning twice conflicts
	resp = env.request(t, fiber.MethodPost, "/roles/1/assign",
		fiber.Map{"user_id": member.ID}, env.token)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// deleting a role with assignment history is refused
	resp = env.request(t, fiber.MethodDelete, "/roles/1", nil, env.token)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = env.request(t, fiber.MethodDelete, "/roles/1/unassign",
		fiber.Map{"user_id": member.ID}, env.token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// unassigning again is a 404, the active grant is gone
	resp = env.request(t, fiber.MethodDelete, "/roles/1/unassign",
		fiber.Map{"user_id": member.ID}, env.token)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	has, err := env.auth.RBAC().HasRole(member.ID, role.Name)
	require.NoError(t, err)
	assert.False(t, has)

	// the pair can be granted again despite the historical row
	resp = env.request(t, fiber.MethodPost, "/roles/1/assign",
		fiber.Map{"user_id": member.ID}, env.token)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestAssignUnknownAccount(t *testing.T) {
	env := setupEnv(t)

	_, err := env.auth.RBAC().CreateRole("editor", "", nil)
	require.NoError(t, err)

	resp := env.request(t, fiber.MethodPost, "/roles/1/assign",
		fiber.Map{"user_id": uuid.New()}, env.token)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStatisticsRouteWinsOverID(t *testing.T) {
	env := setupEnv(t)

	_, err := env.auth.RBAC().CreateRole("editor", "", nil)
	require.NoError(t, err)

	resp := env.request(t, fiber.MethodGet, "/roles/statistics", nil, env.token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.NotNil(t, body["data"])
}

func TestListUserRolesSelfAccess(t *testing.T) {
	env := setupEnv(t)

	role, err := env.auth.RBAC().CreateRole("editor", "", nil)
	require.NoError(t, err)

	member := &models.Account{Active: true, Email: "member@example.com", Password: "x"}
	require.NoError(t, env.db.Create(member).Error)

	_, err = env.auth.RBAC().Assign(member.ID, role.ID, &env.admin.ID)
	require.NoError(t, err)

	pair, err := env.auth.JWT.GeneratePair(member)
	require.NoError(t, err)

	// own roles are always readable
	resp := env.request(t, fiber.MethodGet, "/roles/user/"+member.ID.String(), nil, pair.AccessToken)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// someone else's are not without user:read
	resp = env.request(t, fiber.MethodGet, "/roles/user/"+env.admin.ID.String(), nil, pair.AccessToken)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
