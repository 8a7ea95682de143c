package service

import (
	"strings"

	"inmomarket/internal/models"
	"inmomarket/internal/validation"

	"github.com/shopspring/decimal"
)

const maxDescriptionLen = 5000

// PublicationInput is a complete listing submission.
type PublicationInput struct {
	TypeName       string              `json:"type_name" validate:"notblank,max=100"`
	Department     string              `json:"department" validate:"notblank,max=100"`
	Municipality   string              `json:"municipality" validate:"notblank,max=100"`
	Neighborhood   string              `json:"neighborhood" validate:"notblank,max=100"`
	Address        string              `json:"address" validate:"notblank,max=255"`
	Title          string              `json:"title" validate:"notblank,max=150"`
	Description    string              `json:"description" validate:"max=5000"`
	Longitude      decimal.Decimal     `json:"longitude"`
	Latitude       decimal.Decimal     `json:"latitude"`
	Size           decimal.Decimal     `json:"size"`
	Bedrooms       int                 `json:"bedrooms" validate:"gte=0"`
	Floors         int                 `json:"floors" validate:"gte=0"`
	Parking        int                 `json:"parking" validate:"gte=0"`
	Furnished      bool                `json:"furnished"`
	Price          decimal.Decimal     `json:"price"`
	AvailableTimes []AvailabilityInput `json:"available_times"`
}

func (in *PublicationInput) normalize() {
	in.TypeName = strings.TrimSpace(in.TypeName)
	in.Department = strings.TrimSpace(in.Department)
	in.Municipality = strings.TrimSpace(in.Municipality)
	in.Neighborhood = strings.TrimSpace(in.Neighborhood)
	in.Address = strings.TrimSpace(in.Address)
	in.Title = strings.TrimSpace(in.Title)
}

func (in PublicationInput) validate() error {
	fields := fieldErrors{}
	if err := fields.merge(validation.Struct(in)); err != nil {
		return err
	}
	checkCoordinates(fields, "longitude", in.Longitude, 180)
	checkCoordinates(fields, "latitude", in.Latitude, 90)
	checkPositive(fields, "size", in.Size)
	checkNonNegative(fields, "price", in.Price)
	if err := checkAvailability(fields, in.AvailableTimes); err != nil {
		return err
	}
	return fields.err()
}

// PublicationPatch is a partial update. Absent fields are left untouched;
// an explicit null clears optional fields and is rejected for required ones.
type PublicationPatch struct {
	TypeName       models.Optional[string]                   `json:"type_name"`
	Department     models.Optional[string]                   `json:"department"`
	Municipality   models.Optional[string]                   `json:"municipality"`
	Neighborhood   models.Optional[string]                   `json:"neighborhood"`
	Address        models.Optional[string]                   `json:"address"`
	Title          models.Optional[string]                   `json:"title"`
	Description    models.Optional[string]                   `json:"description"`
	Longitude      models.Optional[decimal.Decimal]          `json:"longitude"`
	Latitude       models.Optional[decimal.Decimal]          `json:"latitude"`
	Size           models.Optional[decimal.Decimal]          `json:"size"`
	Bedrooms       models.Optional[int]                      `json:"bedrooms"`
	Floors         models.Optional[int]                      `json:"floors"`
	Parking        models.Optional[int]                      `json:"parking"`
	Furnished      models.Optional[bool]                     `json:"furnished"`
	Price          models.Optional[decimal.Decimal]          `json:"price"`
	Status         models.Optional[models.PublicationStatus] `json:"status"`
	AvailableTimes models.Optional[[]AvailabilityInput]      `json:"available_times"`
}

// touchesLocation reports whether any part of the location tuple is being changed.
func (p PublicationPatch) touchesLocation() bool {
	return p.Department.Set || p.Municipality.Set || p.Neighborhood.Set
}

// replacesAvailability reports whether the availability set is replaced. An empty list keeps it.
func (p PublicationPatch) replacesAvailability() bool {
	return p.AvailableTimes.Present() && len(p.AvailableTimes.Value) > 0
}

func (p *PublicationPatch) normalize() {
	for _, o := range []*models.Optional[string]{
		&p.TypeName, &p.Department, &p.Municipality, &p.Neighborhood, &p.Address, &p.Title,
	} {
		if o.Present() {
			o.Value = strings.TrimSpace(o.Value)
		}
	}
	if p.Status.Present() {
		p.Status.Value = models.PublicationStatus(strings.ToUpper(strings.TrimSpace(string(p.Status.Value))))
	}
}

func (p PublicationPatch) validate() error {
	fields := fieldErrors{}

	text := []struct {
		name string
		val  models.Optional[string]
		max  int
	}{
		{"type_name", p.TypeName, 100},
		{"department", p.Department, 100},
		{"municipality", p.Municipality, 100},
		{"neighborhood", p.Neighborhood, 100},
		{"address", p.Address, 255},
		{"title", p.Title, 150},
	}
	for _, f := range text {
		switch {
		case !f.val.Set:
		case f.val.Null:
			fields.add(f.name, "cannot be null")
		case f.val.Value == "":
			fields.add(f.name, "is required")
		case len([]rune(f.val.Value)) > f.max:
			fields.add(f.name, "is too long")
		}
	}
	if p.Description.Present() && len([]rune(p.Description.Value)) > maxDescriptionLen {
		fields.add("description", "is too long")
	}

	counts := []struct {
		name string
		val  models.Optional[int]
	}{
		{"bedrooms", p.Bedrooms}, {"floors", p.Floors}, {"parking", p.Parking},
	}
	for _, f := range counts {
		if f.val.Set && f.val.Null {
			fields.add(f.name, "cannot be null")
		} else if f.val.Present() && f.val.Value < 0 {
			fields.add(f.name, "must be greater than or equal to 0")
		}
	}

	for name, d := range map[string]models.Optional[decimal.Decimal]{
		"longitude": p.Longitude, "latitude": p.Latitude, "size": p.Size, "price": p.Price,
	} {
		if d.Set && d.Null {
			fields.add(name, "cannot be null")
		}
	}
	if p.Longitude.Present() {
		checkCoordinates(fields, "longitude", p.Longitude.Value, 180)
	}
	if p.Latitude.Present() {
		checkCoordinates(fields, "latitude", p.Latitude.Value, 90)
	}
	if p.Size.Present() {
		checkPositive(fields, "size", p.Size.Value)
	}
	if p.Price.Present() {
		checkNonNegative(fields, "price", p.Price.Value)
	}

	if p.Furnished.Set && p.Furnished.Null {
		fields.add("furnished", "cannot be null")
	}
	if p.Status.Set && (p.Status.Null || !p.Status.Value.Valid()) {
		fields.add("status", "must be one of: ACTIVE INACTIVE")
	}
	if p.AvailableTimes.Present() {
		if err := checkAvailability(fields, p.AvailableTimes.Value); err != nil {
			return err
		}
	}
	return fields.err()
}

func checkCoordinates(fields fieldErrors, name string, v decimal.Decimal, limit int64) {
	if v.Abs().GreaterThan(decimal.NewFromInt(limit)) {
		fields.add(name, "is out of range")
	}
}

func checkPositive(fields fieldErrors, name string, v decimal.Decimal) {
	if !v.IsPositive() {
		fields.add(name, "must be greater than 0")
	}
}

func checkNonNegative(fields fieldErrors, name string, v decimal.Decimal) {
	if v.IsNegative() {
		fields.add(name, "must be greater than or equal to 0")
	}
}
