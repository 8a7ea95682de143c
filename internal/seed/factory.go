// Package seed creates demo marketplace data. It is intended for development
// and testing only.
package seed

import (
	"context"
	"fmt"
	"strings"

	"inmomarket/internal/models"
	"inmomarket/internal/repository"
	"inmomarket/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is set on every seeded account.
const DefaultPassword = "password123"

type place struct {
	department    string
	municipality  string
	neighborhoods []string
	lat, lng      float64
}

var places = []place{
	{"Antioquia", "Medellín", []string{"El Poblado", "Laureles", "Belén", "Envigado Centro"}, 6.2442, -75.5812},
	{"Cundinamarca", "Bogotá", []string{"Chapinero", "Usaquén", "Teusaquillo", "Suba"}, 4.7110, -74.0721},
	{"Valle del Cauca", "Cali", []string{"San Fernando", "Granada", "Ciudad Jardín"}, 3.4516, -76.5320},
	{"Atlántico", "Barranquilla", []string{"El Prado", "Alto Prado", "Riomar"}, 10.9685, -74.7813},
	{"Bolívar", "Cartagena", []string{"Bocagrande", "Manga", "Getsemaní"}, 10.3910, -75.4794},
}

var propertyTypes = []string{"Casa", "Apartamento", "Apartaestudio", "Finca", "Local", "Lote"}

var reportReasons = []string{"Precio engañoso", "Fotos falsas", "Inmueble ya vendido", "Información incorrecta", "Posible fraude"}

// Factory builds domain entities and persists them through the service layer,
// so seeded rows pass the same validation as API traffic.
type Factory struct {
	store        repository.Store
	faker        *gofakeit.Faker
	publications *service.PublicationService
	reports      *service.ReportService
	password     string
}

// NewFactory creates a Factory. A zero seed picks a random one.
func NewFactory(store repository.Store, seed int64) (*Factory, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &Factory{
		store:        store,
		faker:        gofakeit.New(seed),
		publications: service.NewPublicationService(store, nil, nil),
		reports:      service.NewReportService(store),
		password:     string(hashed),
	}, nil
}

// CreateUser persists an account with a unique fake email.
func (f *Factory) CreateUser(ctx context.Context, role models.Role) (*models.User, error) {
	first, last := f.faker.FirstName(), f.faker.LastName()
	phone := fmt.Sprintf("+57%d", f.faker.Number(3000000000, 3509999999))
	user := &models.User{
		Email: strings.ToLower(fmt.Sprintf("%s.%s.%d@%s",
			first, last, f.faker.Number(1000, 999999), f.faker.DomainName())),
		DisplayName: first + " " + last,
		Password:    f.password,
		Role:        role,
		PhoneNumber: &phone,
	}
	if err := f.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// PublicationInput returns a valid listing submission.
func (f *Factory) PublicationInput() service.PublicationInput {
	p := places[f.faker.Number(0, len(places)-1)]
	typeName := f.faker.RandomString(propertyTypes)
	bedrooms := f.faker.Number(0, 5)

	windows := make([]service.AvailabilityInput, 0, 2)
	for _, day := range pickDays(f.faker, f.faker.Number(1, 2)) {
		start := f.faker.Number(8, 15)
		windows = append(windows, service.AvailabilityInput{
			DayOfWeek: day,
			StartTime: fmt.Sprintf("%02d:00", start),
			EndTime:   fmt.Sprintf("%02d:30", start+f.faker.Number(1, 3)),
		})
	}

	return service.PublicationInput{
		TypeName:       typeName,
		Department:     p.department,
		Municipality:   p.municipality,
		Neighborhood:   f.faker.RandomString(p.neighborhoods),
		Address:        fmt.Sprintf("Calle %d # %d-%d", f.faker.Number(1, 120), f.faker.Number(1, 99), f.faker.Number(1, 99)),
		Title:          fmt.Sprintf("%s en %s, %d habitaciones", typeName, p.municipality, bedrooms),
		Description:    f.faker.Paragraph(1, 3, 12, " "),
		Latitude:       jitter(f.faker, p.lat),
		Longitude:      jitter(f.faker, p.lng),
		Size:           decimal.NewFromInt(int64(f.faker.Number(30, 400))),
		Bedrooms:       bedrooms,
		Floors:         f.faker.Number(1, 3),
		Parking:        f.faker.Number(0, 3),
		Furnished:      f.faker.Bool(),
		Price:          decimal.NewFromInt(int64(f.faker.Number(80, 2500)) * 1_000_000),
		AvailableTimes: windows,
	}
}

// CreatePublication persists a listing owned by owner.
func (f *Factory) CreatePublication(ctx context.Context, owner *models.User) (*models.Publication, error) {
	identity := models.Identity{ID: owner.ID, Email: owner.Email, Role: owner.Role}
	return f.publications.Create(ctx, identity, f.PublicationInput(), nil)
}

// Favorite saves pub for user. Existing favorites are left as they are.
func (f *Factory) Favorite(ctx context.Context, user *models.User, pub *models.Publication) error {
	_, err := f.store.Favorites().Add(ctx, user.ID, pub.ID)
	return err
}

// CreateReport files a report by reporter against pub.
func (f *Factory) CreateReport(ctx context.Context, reporter *models.User, pub *models.Publication) (*models.Report, error) {
	return f.reports.Create(ctx, reporter.ID, service.ReportInput{
		PublicationID: pub.ID,
		Reason:        f.faker.RandomString(reportReasons),
		Description:   f.faker.Sentence(12),
	})
}

// ResolveReport applies a random admin decision with feedback.
func (f *Factory) ResolveReport(ctx context.Context, admin *models.User, report *models.Report) (*models.Report, error) {
	action := string(models.ReportActionDismiss)
	if f.faker.Bool() {
		action = string(models.ReportActionApprove)
	}
	feedback := f.faker.Sentence(10)
	identity := models.Identity{ID: admin.ID, Email: admin.Email, Role: admin.Role}
	return f.reports.Resolve(ctx, report.ID, identity, action, &feedback)
}

func pickDays(faker *gofakeit.Faker, n int) []string {
	days := []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"}
	faker.ShuffleStrings(days)
	return days[:n]
}

// jitter spreads listings a few kilometers around a city center.
func jitter(faker *gofakeit.Faker, center float64) decimal.Decimal {
	return decimal.NewFromFloat(center + faker.Float64Range(-0.05, 0.05)).Round(7)
}
