package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"inmomarket/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param string
		want  string
	}{
		{"id", "ID"},
		{"publicationId", "publication ID"},
		{"reportFeedbackId", "report feedback ID"},
		{"slug", "slug"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.want, humanizeParam(tt.param))
		})
	}
}

func TestParsePage(t *testing.T) {
	app := fiber.New()
	var got models.PageRequest
	app.Get("/", func(c *fiber.Ctx) error {
		got = parsePage(c)
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		query string
		want  models.PageRequest
	}{
		{"", models.PageRequest{Page: 0, Size: models.DefaultPageSize}},
		{"?page=2&size=25", models.PageRequest{Page: 2, Size: 25}},
		{"?page=-1&size=0", models.PageRequest{Page: 0, Size: models.DefaultPageSize}},
		{"?size=1000", models.PageRequest{Page: 0, Size: models.MaxPageSize}},
		{"?page=abc", models.PageRequest{Page: 0, Size: models.DefaultPageSize}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePublicationFilter(t *testing.T) {
	app := fiber.New()
	var (
		got    models.PublicationFilter
		gotErr error
	)
	app.Get("/", func(c *fiber.Ctx) error {
		got, gotErr = parsePublicationFilter(c)
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		query   string
		want    models.PublicationFilter
		wantErr bool
	}{
		{query: "", want: nil},
		{query: "?department=Antioquia", want: models.DepartmentFilter{Department: "Antioquia"}},
		{query: "?typeName=Casa", want: models.TypeNameFilter{Name: "Casa"}},
		{query: "?bedrooms=3", want: models.BedroomsFilter{Count: 3}},
		{query: "?floors=2", want: models.FloorsFilter{Count: 2}},
		{query: "?parking=1", want: models.ParkingFilter{Count: 1}},
		{query: "?furnished=false", want: models.FurnishedFilter{Furnished: false}},
		{query: "?page=1&size=3", want: nil},
		{query: "?bedrooms=two", wantErr: true},
		{query: "?furnished=maybe", wantErr: true},
		{query: "?maxSize=20", wantErr: true},
		{query: "?minPrice=abc&maxPrice=10", wantErr: true},
		{query: "?department=Antioquia&typeName=Casa", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
			require.NoError(t, err)
			_ = resp.Body.Close()
			if tt.wantErr {
				assert.True(t, models.IsCode(gotErr, models.CodeValidation), "got %v", gotErr)
				return
			}
			require.NoError(t, gotErr)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("ranges", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/?minPrice=100.5&maxPrice=2000", nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.NoError(t, gotErr)
		price, ok := got.(models.PriceRangeFilter)
		require.True(t, ok, "got %T", got)
		assert.True(t, decimal.RequireFromString("100.5").Equal(price.Min))
		assert.True(t, decimal.RequireFromString("2000").Equal(price.Max))

		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/?minSize=40&maxSize=90", nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.NoError(t, gotErr)
		assert.Equal(t, models.FilterSizeRange, got.Kind())
	})
}
