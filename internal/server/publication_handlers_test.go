package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inmomarket/internal/models"
	"inmomarket/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicationHandlers_CreateGetUpdate(t *testing.T) {
	env := newTestEnv(t, "")
	ownerToken := tokenFor(t, env.owner)

	resp, body := env.do(t, http.MethodPost, "/api/publications", "", publicationBody())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/publications", ownerToken, publicationBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	created := decode[models.Publication](t, body)
	assert.Equal(t, env.owner.ID, created.UserID)
	assert.Equal(t, models.PublicationStatusActive, created.Status)
	require.NotNil(t, created.Location)
	assert.Equal(t, "Laureles", created.Location.Neighborhood)
	require.Len(t, created.AvailableTimes, 1)
	assert.Equal(t, models.Monday, created.AvailableTimes[0].DayOfWeek)

	path := fmt.Sprintf("/api/publications/%d", created.ID)
	resp, body = env.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "Casa con patio", decode[models.Publication](t, body).Title)

	// Partial update touches only the given fields.
	resp, body = env.do(t, http.MethodPatch, path, ownerToken, map[string]any{
		"title":       "Casa remodelada",
		"description": nil,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	updated := decode[models.Publication](t, body)
	assert.Equal(t, "Casa remodelada", updated.Title)
	assert.Empty(t, updated.Description)
	assert.Equal(t, created.Address, updated.Address)
	assert.True(t, created.Price.Equal(updated.Price))
	assert.Len(t, updated.AvailableTimes, 1)

	resp, _ = env.do(t, http.MethodPatch, path, tokenFor(t, env.other), map[string]any{"title": "Mine now"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = env.do(t, http.MethodPatch, path, ownerToken, map[string]any{"title": nil})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[models.ErrorResponse](t, body).Fields, "title")

	resp, _ = env.do(t, http.MethodGet, "/api/publications/999", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/publications/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPublicationHandlers_CreateValidation(t *testing.T) {
	env := newTestEnv(t, "")
	body := publicationBody()
	body["title"] = "  "
	body["size"] = "0"

	resp, raw := env.do(t, http.MethodPost, "/api/publications", tokenFor(t, env.owner), body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))
	errResp := decode[models.ErrorResponse](t, raw)
	assert.Equal(t, models.CodeValidation, errResp.Code)
	assert.Contains(t, errResp.Fields, "title")
	assert.Contains(t, errResp.Fields, "size")

	req := httptest.NewRequest(http.MethodPost, "/api/publications", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = env.send(t, req, tokenFor(t, env.owner))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPublicationHandlers_Multipart(t *testing.T) {
	env := newTestEnv(t, "")

	data, err := json.Marshal(publicationBody())
	require.NoError(t, err)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("data", string(data)))
	part, err := w.CreateFormFile("images", "front.png")
	require.NoError(t, err)
	_, err = part.Write(testutil.TinyPNG(t, 16, 12))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/publications", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, body := env.send(t, req, tokenFor(t, env.owner))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	pub := decode[models.Publication](t, body)
	require.Len(t, pub.Images, 1)
	assert.True(t, strings.HasPrefix(pub.Images[0].URL, "/media/"), pub.Images[0].URL)

	// The local store is served under the public base URL.
	resp, _ = env.do(t, http.MethodGet, pub.Images[0].URL, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get(fiber.HeaderContentType))
}

func TestPublicationHandlers_MultipartRejectsBadImage(t *testing.T) {
	env := newTestEnv(t, "")
	data, err := json.Marshal(publicationBody())
	require.NoError(t, err)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("data", string(data)))
	part, err := w.CreateFormFile("images", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("plain text is not an image"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/publications", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, body := env.send(t, req, tokenFor(t, env.owner))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
	assert.Contains(t, decode[models.ErrorResponse](t, body).Fields, "images[0]")

	var n int64
	require.NoError(t, env.db.Model(&models.Publication{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestPublicationHandlers_Listings(t *testing.T) {
	env := newTestEnv(t, "")
	antioquia := testutil.CreatePublication(t, env.db, env.owner.ID, func(p *models.Publication) {
		p.Bedrooms = 3
	})
	testutil.CreatePublication(t, env.db, env.owner.ID, func(p *models.Publication) {
		p.Bedrooms = 2
	})
	testutil.CreatePublication(t, env.db, env.other.ID, func(p *models.Publication) {
		p.Bedrooms = 3
		p.Status = models.PublicationStatusInactive
	})

	tests := []struct {
		name   string
		query  string
		status int
		count  int
	}{
		{name: "all active", query: "", status: http.StatusOK, count: 2},
		{name: "department", query: "?department=Antioquia", status: http.StatusOK, count: 2},
		{name: "department differently cased", query: "?department=ANTIOQUIA", status: http.StatusOK, count: 0},
		{name: "bedrooms", query: "?bedrooms=3", status: http.StatusOK, count: 1},
		{name: "price range", query: "?minPrice=1&maxPrice=500000000", status: http.StatusOK, count: 2},
		{name: "type", query: "?typeName=Casa", status: http.StatusOK, count: 2},
		{name: "furnished", query: "?furnished=true", status: http.StatusOK, count: 0},
		{name: "two filters", query: "?bedrooms=3&floors=2", status: http.StatusBadRequest},
		{name: "half range", query: "?minPrice=10", status: http.StatusBadRequest},
		{name: "inverted range", query: "?minSize=500&maxSize=10", status: http.StatusBadRequest},
		{name: "bad integer", query: "?parking=many", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodGet, "/api/publications"+tt.query, "", nil)
			require.Equal(t, tt.status, resp.StatusCode, string(body))
			if tt.status == http.StatusOK {
				assert.Len(t, decode[[]models.Publication](t, body), tt.count)
			}
		})
	}

	resp, body := env.do(t, http.MethodGet, "/api/publications/mine", tokenFor(t, env.other), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Publication](t, body), 1, "owner listings include inactive ones")

	resp, body = env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/publications", env.owner.ID), tokenFor(t, env.other), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Publication](t, body), 2)

	resp, body = env.do(t, http.MethodGet, "/api/publications/recent", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Publication](t, body), 2)

	resp, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/favorites/%d/toggle", antioquia.ID), tokenFor(t, env.other), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = env.do(t, http.MethodGet, "/api/publications/popular", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	popular := decode[[]models.Publication](t, body)
	require.NotEmpty(t, popular)
	assert.Equal(t, antioquia.ID, popular[0].ID)
}

func TestCatalogHandlers(t *testing.T) {
	env := newTestEnv(t, "")
	testutil.CreatePublication(t, env.db, env.owner.ID)

	resp, body := env.do(t, http.MethodGet, "/api/property-types", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	types := decode[[]models.PropertyType](t, body)
	require.Len(t, types, 1)
	assert.Equal(t, "Casa", types[0].Name)

	resp, body = env.do(t, http.MethodGet, "/api/locations", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Location](t, body), 1)
}
