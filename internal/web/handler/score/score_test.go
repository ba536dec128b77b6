package score

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

func (e *testEnv) createAccount(t *testing.T, email string, reviewer bool) (*models.Account, string) {
	t.Helper()

	account := &models.Account{Active: true, Email: email, Password: "x"}
	require.NoError(t, e.db.Create(account).Error)

	if reviewer {
		role, err := e.auth.RBAC().GetRoleByName("reviewer")
		if err != nil {
			role, err = e.auth.RBAC().CreateRole("reviewer", "", []string{string(auth.PermResumeReview)})
			require.NoError(t, err)
		}

		_, err = e.auth.RBAC().Assign(account.ID, role.ID, nil)
		require.NoError(t, err)
	}

	pair, err := e.auth.JWT.GeneratePair(account)
	require.NoError(t, err)

	return account, pair.AccessToken
}

func (e *testEnv) createResume(t *testing.T, owner *models.Account) *models.Resume {
	t.Helper()

	resume := &models.Resume{
		AccountID: owner.ID,
		Title:     "Backend engineer",
		Content:   "ten years of Go",
		Status:    models.ResumeStatusUploaded,
	}
	require.NoError(t, e.db.Create(resume).Error)

	return resume
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

func TestRecordAndListScores(t *testing.T) {
	env := setupEnv(t)

	owner, ownerToken := env.createAccount(t, "owner@example.com", false)
	_, reviewerToken := env.createAccount(t, "reviewer@example.com", true)
	env.createResume(t, owner)

	resp := env.request(t, fiber.MethodPost, "/scores/resume/1", fiber.Map{
		"overall": 72.5,
		"details": fiber.Map{"clarity": 80, "impact": 65},
	}, reviewerToken)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// the owner reads the score back
	resp = env.request(t, fiber.MethodGet, "/scores/resume/1", nil, ownerToken)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data []models.Score `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, 72.5, body.Data[0].Overall)
	assert.Equal(t, owner.ID, body.Data[0].AccountID)
}

func TestRecordScoreRequiresReviewPermission(t *testing.T) {
	env := setupEnv(t)

	owner, ownerToken := env.createAccount(t, "owner@example.com", false)
	env.createResume(t, owner)

	// not even the owner may score their own resume
	resp := env.request(t, fiber.MethodPost, "/scores/resume/1", fiber.Map{
		"overall": 100,
	}, ownerToken)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestScoreValidation(t *testing.T) {
	env := setupEnv(t)

	owner, _ := env.createAccount(t, "owner@example.com", false)
	_, reviewerToken := env.createAccount(t, "reviewer@example.com", true)
	env.createResume(t, owner)

	resp := env.request(t, fiber.MethodPost, "/scores/resume/1", fiber.Map{
		"overall": 120,
	}, reviewerToken)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestScoresUnknownResume(t *testing.T) {
	env := setupEnv(t)

	_, token := env.createAccount(t, "owner@example.com", false)

	resp := env.request(t, fiber.MethodGet, "/scores/resume/42", nil, token)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
