package account

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
	app  *fiber.App
	db   *gorm.DB
	auth *auth.Service
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

	return &testEnv{app: app, db: db, auth: authService}
}

func (e *testEnv) createAccount(t *testing.T, email, password string, superuser bool) (*models.Account, string) {
	t.Helper()

	account := &models.Account{
		Active:     true,
		Superuser:  superuser,
		Email:      email,
		Password:   models.HashPassword(password),
		AuthSource: models.AuthSourceLocal,
	}
	require.NoError(t, e.db.Create(account).Error)

	pair, err := e.auth.JWT.GeneratePair(account)
	require.NoError(t, err)

	return account, pair.AccessToken
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

func decodeData(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body.Data
}

func TestMe(t *testing.T) {
	env := setupEnv(t)

	_, token := env.createAccount(t, "me@example.com", "s3cret-password", false)

	resp := env.request(t, fiber.MethodGet, "/users/me", nil, token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	data := decodeData(t, resp)
	assert.Equal(t, "me@example.com", data["email"])

	// credential material never leaves the API
	_, leaked := data["password"]
	assert.False(t, leaked)
}

func TestUpdateMe(t *testing.T) {
	env := setupEnv(t)

	account, token := env.createAccount(t, "update@example.com", "s3cret-password", false)

	resp := env.request(t, fiber.MethodPut, "/users/me", fiber.Map{
		"first_name": "Ada",
		"bio":        "hello",
	}, token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got models.Account
	require.NoError(t, env.db.First(&got, "id = ?", account.ID).Error)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Equal(t, "hello", got.Bio)
	// untouched fields survive
	assert.Equal(t, "update@example.com", got.Email)
}

func TestChangePasswordEndpoint(t *testing.T) {
	env := setupEnv(t)

	_, token := env.createAccount(t, "pw@example.com", "old-password", false)

	resp := env.request(t, fiber.MethodPost, "/users/change-password", fiber.Map{
		"old_password": "wrong-password",
		"new_password": "new-password",
	}, token)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp = env.request(t, fiber.MethodPost, "/users/change-password", fiber.Map{
		"old_password": "old-password",
		"new_password": "new-password",
	}, token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	local := auth.NewLocalProvider(env.db)

	_, err := local.Authenticate("pw@example.com", "new-password", "")
	assert.NoError(t, err)
}

func TestAdminListRequiresPermission(t *testing.T) {
	env := setupEnv(t)

	_, memberToken := env.createAccount(t, "member@example.com", "s3cret-password", false)
	_, adminToken := env.createAccount(t, "root@example.com", "s3cret-password", true)

	resp := env.request(t, fiber.MethodGet, "/users/", nil, memberToken)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = env.request(t, fiber.MethodGet, "/users/", nil, adminToken)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestActivateDeactivate(t *testing.T) {
	env := setupEnv(t)

	member, _ := env.createAccount(t, "member@example.com", "s3cret-password", false)
	admin, adminToken := env.createAccount(t, "root@example.com", "s3cret-password", true)

	resp := env.request(t, fiber.MethodPatch, "/users/"+member.ID.String()+"/deactivate", nil, adminToken)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got models.Account
	require.NoError(t, env.db.First(&got, "id = ?", member.ID).Error)
	assert.False(t, got.Active)

	resp = env.request(t, fiber.MethodPatch, "/users/"+member.ID.String()+"/activate", nil, adminToken)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// admins cannot lock themselves out
	resp = env.request(t, fiber.MethodPatch, "/users/"+admin.ID.String()+"/deactivate", nil, adminToken)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestDeleteAccount(t *testing.T) {
	env := setupEnv(t)

	member, _ := env.createAccount(t, "member@example.com", "s3cret-password", false)
	admin, adminToken := env.createAccount(t, "root@example.com", "s3cret-password", true)

	resp := env.request(t, fiber.MethodDelete, "/users/"+member.ID.String(), nil, adminToken)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got models.Account
	require.NoError(t, env.db.First(&got, "id = ?", member.ID).Error)
	assert.False(t, got.Active)

	// self deletion is refused
	resp = env.request(t, fiber.MethodDelete, "/users/"+admin.ID.String(), nil, adminToken)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestTOTPEnrollActivate(t *testing.T) {
	env := setupEnv(t)

	account, token := env.createAccount(t, "2fa@example.com", "s3cret-password", false)

	resp := env.request(t, fiber.MethodPost, "/users/2fa/enroll", nil, token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	data := decodeData(t, resp)
	secret, _ := data["secret"].(string)
	require.NotEmpty(t, secret)
	assert.Contains(t, data["url"], "otpauth://")

	// a wrong code does not activate
	resp = env.request(t, fiber.MethodPost, "/users/2fa/activate", fiber.Map{"code": "000000"}, token)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var got models.Account
	require.NoError(t, env.db.First(&got, "id = ?", account.ID).Error)
	assert.Empty(t, got.TOTPSecret)
}
