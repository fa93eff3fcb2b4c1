package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/agrocampo/internal/access"
	"github.com/xelth-com/agrocampo/internal/apierror"
	"github.com/xelth-com/agrocampo/internal/database/dbtest"
	"github.com/xelth-com/agrocampo/internal/models"
	"gorm.io/gorm"
)

var (
	admin      = access.Identity{UserID: 1, Role: access.RoleAdmin}
	supervisor = access.Identity{UserID: 2, Role: access.RoleSupervisor}
	operator   = access.Identity{UserID: 3, Role: access.RoleOperator}
	unlinked   = access.Identity{UserID: 4, Role: access.RoleOperator}

	now = time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
)

func ptr[T any](v T) *T { return &v }

func cost(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func at(day, hour int) time.Time {
	return time.Date(2024, 5, day, hour, 0, 0, 0, time.UTC)
}

func seed(t *testing.T) *gorm.DB {
	t.Helper()
	db := dbtest.Open(t)
	dbtest.Seed(t, db,
		&models.User{ID: 1, RoleID: 1, Username: "admin", Email: "admin@finca.test", PasswordHash: "x", Active: true},
		&models.User{ID: 2, RoleID: 2, Username: "super", Email: "super@finca.test", PasswordHash: "x", Active: true},
		&models.User{ID: 3, RoleID: 3, Username: "ana", Email: "ana@finca.test", PasswordHash: "x", Active: true},
		&models.Crop{ID: 2, Name: "Café"},
		&models.Crop{ID: 4, Name: "Plátano"},
		&models.Plot{ID: 1, Name: "Lote Norte"},
		&models.Plot{ID: 9, Name: "Lote Sur"},
		&models.LaborType{ID: 3, Name: "Cosecha"},
		&models.LaborType{ID: 8, Name: "Poda"},
		&models.Worker{ID: 5, FullName: "Ana Pérez", Active: true, UserID: ptr(uint(3))},
		&models.Worker{ID: 6, FullName: "Bruno Díaz", Active: true},
		&models.Worker{ID: 7, FullName: "Carla Ruiz", Active: true},
		&models.SupervisorWorker{SupervisorID: 2, WorkerID: 5, Active: true},
		&models.SupervisorWorker{SupervisorID: 2, WorkerID: 6, Active: true},
		&models.LaborEvent{ID: 1, PlotID: 1, CropID: 2, WorkerID: 5, LaborTypeID: 3, RegisteredBy: 1,
			PerformedAt: at(3, 8), Quantity: ptr(10.0), WeightKg: ptr(100.0), ApproxCost: cost("20.50")},
		&models.LaborEvent{ID: 2, PlotID: 1, CropID: 2, WorkerID: 6, LaborTypeID: 3, RegisteredBy: 1,
			PerformedAt: at(3, 9), Quantity: ptr(5.0), WeightKg: ptr(60.0), ApproxCost: cost("10")},
		&models.LaborEvent{ID: 3, PlotID: 9, CropID: 4, WorkerID: 7, LaborTypeID: 8, RegisteredBy: 1,
			PerformedAt: at(2, 10)},
		&models.LaborEvent{ID: 4, PlotID: 9, CropID: 2, WorkerID: 5, LaborTypeID: 3, RegisteredBy: 1,
			PerformedAt: at(1, 10), Quantity: ptr(2.0), WeightKg: ptr(30.0), ApproxCost: cost("5")},
	)
	return db
}

func newService(t *testing.T, db *gorm.DB, loc *time.Location) *Service {
	t.Helper()
	gate := access.NewGate(access.NewScopeCalculator(access.NewGormLinks(db)), access.EditWindow{Duration: 2 * time.Hour}).
		WithClock(func() time.Time { return now })
	return NewService(db, gate, loc)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(url.Values{
		"fechaInicio":  {"2024-05-01"},
		"fechaFin":     {"2024-05-02"},
		"cultivoId":    {"2"},
		"trabajadorId": {"5"},
	}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, at(1, 0), *f.From)
	// A date-only end includes the whole day
	assert.Equal(t, at(3, 0), *f.To)
	assert.Equal(t, uint(2), *f.CropID)
	assert.Equal(t, uint(5), *f.WorkerID)
	assert.Nil(t, f.LaborTypeID)

	f, err = ParseFilter(url.Values{"fechaFin": {"2024-05-02T15:30:00Z"}}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 15, 30, 0, 0, time.UTC), *f.To)

	for name, q := range map[string]url.Values{
		"bad id":      {"cultivoId": {"abc"}},
		"zero id":     {"laborId": {"0"}},
		"bad date":    {"fechaInicio": {"ayer"}},
		"inverted":    {"fechaInicio": {"2024-05-03"}, "fechaFin": {"2024-05-01"}},
		"negative id": {"trabajadorId": {"-1"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFilter(q, time.UTC)
			assert.True(t, apierror.Is(err, apierror.KindBadRequest), "got %v", err)
		})
	}
}

func TestParseFilterEndOfDayAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 2024-03-10 is 23 hours long in New York
	f, err := ParseFilter(url.Values{"fechaFin": {"2024-03-10"}}, loc)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 3, 11, 0, 0, 0, 0, loc).Equal(*f.To), "got %v", f.To.In(loc))
}

func TestDailyProductionIsScoped(t *testing.T) {
	s := newService(t, seed(t), time.UTC)
	ctx := context.Background()

	rows, err := s.DailyProduction(ctx, admin, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []DailyProduction{
		{Date: "2024-05-03", Crop: "Café", Quantity: 15, WeightKg: 160, Events: 2},
		{Date: "2024-05-02", Crop: "Plátano", Events: 1},
		{Date: "2024-05-01", Crop: "Café", Quantity: 2, WeightKg: 30, Events: 1},
	}, rows)

	rows, err = s.DailyProduction(ctx, supervisor, Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Events)

	rows, err = s.DailyProduction(ctx, operator, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []DailyProduction{
		{Date: "2024-05-03", Crop: "Café", Quantity: 10, WeightKg: 100, Events: 1},
		{Date: "2024-05-01", Crop: "Café", Quantity: 2, WeightKg: 30, Events: 1},
	}, rows)

	rows, err = s.DailyProduction(ctx, unlinked, Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDailyProductionUsesConfiguredTimezone(t *testing.T) {
	db := seed(t)
	// 02:00 UTC on May 3rd is still May 2nd five hours west
	dbtest.Seed(t, db, &models.LaborEvent{PlotID: 1, CropID: 2, WorkerID: 6, LaborTypeID: 3, RegisteredBy: 1,
		PerformedAt: at(3, 2), WeightKg: ptr(1.0)})

	utc, err := newService(t, db, time.UTC).DailyProduction(context.Background(), admin, Filter{CropID: ptr(uint(2))})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-03", utc[0].Date)
	assert.Equal(t, 3, utc[0].Events)

	west := time.FixedZone("UTC-5", -5*3600)
	local, err := newService(t, db, west).DailyProduction(context.Background(), admin, Filter{CropID: ptr(uint(2))})
	require.NoError(t, err)
	require.Len(t, local, 3)
	assert.Equal(t, DailyProduction{Date: "2024-05-02", Crop: "Café", WeightKg: 1, Events: 1}, local[1])
}

func TestPlotYield(t *testing.T) {
	s := newService(t, seed(t), time.UTC)

	rows, err := s.PlotYield(context.Background(), admin, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []PlotYield{
		{Plot: "Lote Norte", Crop: "Café", Quantity: 15, WeightKg: 160, AvgQuantity: 7.5, Events: 2},
		{Plot: "Lote Sur", Crop: "Café", Quantity: 2, WeightKg: 30, AvgQuantity: 2, Events: 1},
		{Plot: "Lote Sur", Crop: "Plátano", Events: 1},
	}, rows)

	rows, err = s.PlotYield(context.Background(), unlinked, Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWorkerEfficiency(t *testing.T) {
	s := newService(t, seed(t), time.UTC)

	rows, err := s.WorkerEfficiency(context.Background(), admin, Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Ana Pérez", rows[0].Worker)
	assert.Equal(t, int64(2), rows[0].Events)
	assert.Equal(t, 12.0, rows[0].Quantity)
	assert.Equal(t, 130.0, rows[0].WeightKg)
	assert.Equal(t, 6.0, rows[0].AvgQuantity)
	assert.True(t, decimal.RequireFromString("25.5").Equal(rows[0].TotalCost), "got %s", rows[0].TotalCost)
	assert.Equal(t, "Bruno Díaz", rows[1].Worker)
	assert.Equal(t, "Carla Ruiz", rows[2].Worker)
	assert.True(t, rows[2].TotalCost.IsZero())

	rows, err = s.WorkerEfficiency(context.Background(), admin, Filter{WorkerID: ptr(uint(6))})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bruno Díaz", rows[0].Worker)
}

func TestLaborHistory(t *testing.T) {
	s := newService(t, seed(t), time.UTC)

	f, err := ParseFilter(url.Values{"fechaInicio": {"2024-05-02"}}, time.UTC)
	require.NoError(t, err)
	rows, err := s.LaborHistory(context.Background(), admin, f)
	require.NoError(t, err)
	assert.Equal(t, []LaborHistory{
		{Date: "2024-05-02", Labor: "Poda", Events: 1},
		{Date: "2024-05-03", Labor: "Cosecha", Events: 2, Quantity: 15, WeightKg: 160},
	}, rows)
}

func TestDetails(t *testing.T) {
	s := newService(t, seed(t), time.UTC)
	ctx := context.Background()

	page, err := s.Details(ctx, admin, Filter{}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 1, Limit: 2, Total: 4, Pages: 2}, page.Pagination)
	require.Len(t, page.Data, 2)
	assert.Equal(t, uint(2), page.Data[0].ID)
	assert.Equal(t, "Bruno Díaz", page.Data[0].Worker)
	assert.Equal(t, "admin", page.Data[0].RegisteredBy)
	assert.Equal(t, at(3, 9), page.Data[0].PerformedAt.UTC())
	assert.Equal(t, uint(1), page.Data[1].ID)

	page, err = s.Details(ctx, admin, Filter{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, uint(3), page.Data[0].ID)
	assert.True(t, page.Data[0].Cost.IsZero())

	page, err = s.Details(ctx, operator, Filter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Pagination.Total)
	assert.Equal(t, defaultDetailLimit, page.Pagination.Limit)
	for _, d := range page.Data {
		assert.Equal(t, "Ana Pérez", d.Worker)
	}

	page, err = s.Details(ctx, unlinked, Filter{}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Zero(t, page.Pagination.Total)
}

func TestDashboard(t *testing.T) {
	s := newService(t, seed(t), time.UTC)
	ctx := context.Background()

	today, err := s.DashboardToday(ctx, admin)
	require.NoError(t, err)
	require.Len(t, today, 1)
	row := today[0]
	assert.Equal(t, "2024-05-03", row.Date)
	assert.Equal(t, "Lote Norte", row.Plot)
	assert.Equal(t, 160.0, row.TotalWeightKg)
	assert.Equal(t, 2, row.Workers)
	assert.Equal(t, 80.0, row.PerWorkerKg)
	assert.True(t, decimal.RequireFromString("30.5").Equal(row.TotalCost), "got %s", row.TotalCost)

	history, err := s.DashboardHistory(ctx, admin, Filter{})
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []string{"2024-05-03", "2024-05-02", "2024-05-01"},
		[]string{history[0].Date, history[1].Date, history[2].Date})

	history, err = s.DashboardHistory(ctx, supervisor, Filter{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2024-05-01", history[1].Date)
	assert.Equal(t, 1, history[1].Workers)
}

func TestWriteCSV(t *testing.T) {
	s := newService(t, seed(t), time.UTC)

	var buf bytes.Buffer
	require.NoError(t, s.WriteCSV(context.Background(), admin, Filter{}, &buf))
	require.True(t, strings.HasPrefix(buf.String(), "\ufeff"))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, exportHeaders, records[0])
	assert.Equal(t, []string{"2024-05-03 09:00", "Cosecha", "Café", "Lote Norte", "Bruno Díaz", "5", "60.00", "10.00", "admin"}, records[1])

	buf.Reset()
	require.NoError(t, s.WriteCSV(context.Background(), operator, Filter{}, &buf))
	records, err = csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), "\ufeff"))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestPDF(t *testing.T) {
	s := newService(t, seed(t), time.UTC)

	out, err := s.PDF(context.Background(), supervisor, Filter{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	out, err = s.PDF(context.Background(), unlinked, Filter{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
