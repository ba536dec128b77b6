package resume

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

	require.NoError(t, db.AutoMigrate(
		&models.Account{}, &models.Role{}, &models.Assignment{},
		&models.Resume{}, &models.Score{},
	))

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

func (e *testEnv) createAccount(t *testing.T, email string) (*models.Account, string) {
	t.Helper()

	account := &models.Account{Active: true, Email: email, Password: "x"}
	require.NoError(t, e.db.Create(account).Error)

	pair, err := e.auth.JWT.GeneratePair(account)
	require.NoError(t, err)

	return account, pair.AccessToken
}

func (e *testEnv) grantReviewer(t *testing.T, account *models.Account) {
	t.Helper()

	role, err := e.auth.RBAC().CreateRole("reviewer", "", []string{string(auth.PermResumeReview)})
	require.NoError(t, err)

	_, err = e.auth.RBAC().Assign(account.ID, role.ID, nil)
	require.NoError(t, err)
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
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

func TestSubmitAndGetResume(t *testing.T) {
	env := setupEnv(t)

	owner, token := env.createAccount(t, "owner@example.com")

	resp := env.request(t, fiber.MethodPost, "/resumes/", fiber.Map{
		"title":   "Backend engineer",
		"content": "ten years of Go",
	}, token)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var stored models.Resume
	require.NoError(t, env.db.First(&stored, "account_id = ?", owner.ID).Error)
	assert.Equal(t, models.ResumeStatusUploaded, stored.Status)

	resp = env.request(t, fiber.MethodGet, "/resumes/1", nil, token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestResumeOwnerScoping(t *testing.T) {
	env := setupEnv(t)

	_, ownerToken := env.createAccount(t, "owner@example.com")
	other, otherToken := env.createAccount(t, "other@example.com")

	resp := env.request(t, fiber.MethodPost, "/resumes/", fiber.Map{
		"title":   "Mine",
		"content": "private",
	}, ownerToken)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// strangers cannot read it
	resp = env.request(t, fiber.MethodGet, "/resumes/1", nil, otherToken)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// reviewers can
	env.grantReviewer(t, other)

	resp = env.request(t, fiber.MethodGet, "/resumes/1", nil, otherToken)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// but even reviewers cannot edit someone else's resume
	resp = env.request(t, fiber.MethodPut, "/resumes/1", fiber.Map{
		"title":   "Defaced",
		"content": "oops",
	}, otherToken)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestListResumes(t *testing.T) {
	env := setupEnv(t)

	_, ownerToken := env.createAccount(t, "owner@example.com")
	_, otherToken := env.createAccount(t, "other@example.com")

	for _, title := range []string{"One", "Two"} {
		resp := env.request(t, fiber.MethodPost, "/resumes/", fiber.Map{
			"title":   title,
			"content": "text",
		}, ownerToken)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	var body struct {
		Data struct {
			Total int64 `json:"total"`
		} `json:"data"`
	}

	resp := env.request(t, fiber.MethodGet, "/resumes/", nil, ownerToken)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(2), body.Data.Total)

	// other accounts see an empty list, not an error
	resp = env.request(t, fiber.MethodGet, "/resumes/", nil, otherToken)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(0), body.Data.Total)

	// all=true needs the review permission
	resp = env.request(t, fiber.MethodGet, "/resumes/?all=true", nil, otherToken)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestDeleteResume(t *testing.T) {
	env := setupEnv(t)

	_, token := env.createAccount(t, "owner@example.com")

	resp := env.request(t, fiber.MethodPost, "/resumes/", fiber.Map{
		"title":   "Gone soon",
		"content": "text",
	}, token)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = env.request(t, fiber.MethodDelete, "/resumes/1", nil, token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.request(t, fiber.MethodGet, "/resumes/1", nil, token)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
