package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"inmomarket/internal/middleware"
	"inmomarket/internal/models"
	"inmomarket/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const maxImagesPerRequest = 10

// respondError answers with the status the error maps to. Causes behind
// storage, image store and internal errors are logged, never returned.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed", slog.String("error", err.Error()))
	}
	return models.RespondWithAppError(c, err)
}

// parsePage reads the 0-based page and size query parameters.
func parsePage(c *fiber.Ctx) models.PageRequest {
	return models.PageRequest{
		Page: c.QueryInt("page", 0),
		Size: c.QueryInt("size", models.DefaultPageSize),
	}.Normalize()
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "publicationId" -> "publication ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// parsePublicationFilter reads at most one filter dimension from the query
// string. It returns nil when no filter is present.
func parsePublicationFilter(c *fiber.Ctx) (models.PublicationFilter, error) {
	var (
		found  []models.PublicationFilter
		fields = map[string]string{}
	)
	has := func(key string) bool { return strings.TrimSpace(c.Query(key)) != "" }

	if has("department") {
		found = append(found, models.DepartmentFilter{Department: c.Query("department")})
	}
	if has("typeName") {
		found = append(found, models.TypeNameFilter{Name: c.Query("typeName")})
	}
	if has("minPrice") || has("maxPrice") {
		lo, hi, ok := decimalRange(c, "minPrice", "maxPrice", fields)
		if ok {
			found = append(found, models.PriceRangeFilter{Min: lo, Max: hi})
		}
	}
	if has("minSize") || has("maxSize") {
		lo, hi, ok := decimalRange(c, "minSize", "maxSize", fields)
		if ok {
			found = append(found, models.SizeRangeFilter{Min: lo, Max: hi})
		}
	}
	for _, key := range []string{"bedrooms", "floors", "parking"} {
		if !has(key) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
		if err != nil {
			fields[key] = "must be an integer"
			continue
		}
		switch key {
		case "bedrooms":
			found = append(found, models.BedroomsFilter{Count: n})
		case "floors":
			found = append(found, models.FloorsFilter{Count: n})
		case "parking":
			found = append(found, models.ParkingFilter{Count: n})
		}
	}
	if has("furnished") {
		b, err := strconv.ParseBool(strings.TrimSpace(c.Query("furnished")))
		if err != nil {
			fields["furnished"] = "must be true or false"
		} else {
			found = append(found, models.FurnishedFilter{Furnished: b})
		}
	}

	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}
	if len(found) > 1 {
		return nil, models.NewValidationError("Only one filter can be applied at a time")
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func decimalRange(c *fiber.Ctx, minKey, maxKey string, fields map[string]string) (lo, hi decimal.Decimal, ok bool) {
	ok = true
	for _, key := range []string{minKey, maxKey} {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			fields[key] = fmt.Sprintf("is required together with %s", otherKey(key, minKey, maxKey))
			ok = false
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			fields[key] = "must be a number"
			ok = false
			continue
		}
		if key == minKey {
			lo = d
		} else {
			hi = d
		}
	}
	return lo, hi, ok
}

func otherKey(key, a, b string) string {
	if key == a {
		return b
	}
	return a
}

// bindPublication decodes a publication payload sent either as a JSON body or
// as multipart/form-data with a "data" JSON part and "images" file parts.
func bindPublication(c *fiber.Ctx, dest any) ([]storage.ImageUpload, error) {
	return bindPayload(c, dest, "images", maxImagesPerRequest)
}

// bindProfile decodes a profile payload the same way, with at most one
// "profile_picture" file part.
func bindProfile(c *fiber.Ctx, dest any) (*storage.ImageUpload, error) {
	uploads, err := bindPayload(c, dest, "profile_picture", 1)
	if err != nil || len(uploads) == 0 {
		return nil, err
	}
	return &uploads[0], nil
}

func bindPayload(c *fiber.Ctx, dest any, filePart string, maxFiles int) ([]storage.ImageUpload, error) {
	if !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		if err := json.Unmarshal(c.Body(), dest); err != nil {
			return nil, models.NewValidationError("Invalid request body")
		}
		return nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, models.NewValidationError("Invalid multipart form")
	}
	data := form.Value["data"]
	if len(data) != 1 {
		return nil, models.NewFieldValidationError(map[string]string{"data": "is required"})
	}
	if err := json.Unmarshal([]byte(data[0]), dest); err != nil {
		return nil, models.NewFieldValidationError(map[string]string{"data": "must be valid JSON"})
	}

	files := form.File[filePart]
	if len(files) > maxFiles {
		return nil, models.NewFieldValidationError(map[string]string{
			filePart: fmt.Sprintf("at most %d files per request", maxFiles),
		})
	}
	uploads := make([]storage.ImageUpload, 0, len(files))
	for i, fh := range files {
		field := fmt.Sprintf("%s[%d]", filePart, i)
		f, err := fh.Open()
		if err != nil {
			return nil, models.NewFieldValidationError(map[string]string{field: "unable to read uploaded file"})
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, models.NewFieldValidationError(map[string]string{field: "unable to read uploaded file"})
		}
		uploads = append(uploads, storage.ImageUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Content:     content,
		})
	}
	return uploads, nil
}
