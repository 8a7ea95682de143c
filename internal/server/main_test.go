package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inmomarket/internal/config"
	"inmomarket/internal/models"
	"inmomarket/internal/storage"
	"inmomarket/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-with-at-least-32-characters"

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	owner  *models.User
	other  *models.User
	admin  *models.User
}

func newTestEnv(t *testing.T, flags string) *testEnv {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:            testSecret,
		Env:                  "test",
		AllowedOrigins:       "*",
		FeatureFlags:         flags,
		ImageStore:           storage.BackendLocal,
		ImageUploadDir:       t.TempDir(),
		ImagePublicBaseURL:   "/media",
		ImageMaxUploadSizeMB: 2,
		ReportRateLimit:      2,
	}
	db := testutil.NewTestDB(t)

	s, err := NewServerWithDeps(cfg, db, nil, storage.NewLocalStore(cfg))
	require.NoError(t, err)

	return &testEnv{
		server: s,
		app:    s.NewApp(),
		db:     db,
		owner:  testutil.CreateUser(t, db, "owner@example.com", models.RoleUser),
		other:  testutil.CreateUser(t, db, "other@example.com", models.RoleUser),
		admin:  testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin),
	}
}

func tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := IssueToken(testSecret, u, time.Hour)
	require.NoError(t, err)
	return token
}

// do sends a request and returns the response with its body fully read.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, req, token)
}

func (e *testEnv) send(t *testing.T, req *http.Request, token string) (*http.Response, []byte) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func publicationBody() map[string]any {
	return map[string]any{
		"type_name":    "Casa",
		"department":   "Antioquia",
		"municipality": "Medellín",
		"neighborhood": "Laureles",
		"address":      "Cra 70 # 44-10",
		"title":        "Casa con patio",
		"description":  "Tres alcobas",
		"longitude":    "-75.5900",
		"latitude":     "6.2450",
		"size":         "140",
		"bedrooms":     3,
		"floors":       2,
		"parking":      1,
		"furnished":    false,
		"price":        "520000000",
		"available_times": []map[string]string{
			{"day_of_week": "monday", "start_time": "09:00", "end_time": "12:00"},
		},
	}
}
