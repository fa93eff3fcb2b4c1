package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/agrocampo/internal/access"
	"github.com/xelth-com/agrocampo/internal/config"
	"github.com/xelth-com/agrocampo/internal/database/dbtest"
	"github.com/xelth-com/agrocampo/internal/middleware"
	"github.com/xelth-com/agrocampo/internal/models"
	"github.com/xelth-com/agrocampo/internal/notify"
	"github.com/xelth-com/agrocampo/internal/services/alerts"
	"github.com/xelth-com/agrocampo/internal/services/labor"
	"github.com/xelth-com/agrocampo/internal/services/reports"
	"github.com/xelth-com/agrocampo/internal/utils"
	"github.com/xelth-com/agrocampo/internal/websocket"
	"gorm.io/gorm"
)

const (
	testSecret   = "test-secret"
	testPassword = "secreto1"
)

type fixture struct {
	db     *gorm.DB
	h      http.Handler
	tokens map[access.Role]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)

	hash, err := utils.HashPassword(testPassword)
	require.NoError(t, err)

	anaUser := uint(3)
	rows := []interface{}{}
	for _, role := range models.DefaultRoles() {
		role := role
		rows = append(rows, &role)
	}
	rows = append(rows,
		&models.User{ID: 1, RoleID: 1, Username: "admin", Email: "admin@finca.co", PasswordHash: hash, Active: true},
		&models.User{ID: 2, RoleID: 2, Username: "super", Email: "super@finca.co", PasswordHash: hash, Active: true},
		&models.User{ID: 3, RoleID: 3, Username: "ana", Email: "ana@finca.co", PasswordHash: hash, Active: true},
		&models.User{ID: 4, RoleID: 3, Username: "baja", Email: "baja@finca.co", PasswordHash: hash, Active: false},
		&models.Crop{ID: 2, Name: "Café"},
		&models.Plot{ID: 1, Name: "Lote Norte"},
		&models.Plot{ID: 9, Name: "Lote Sur"},
		&models.LaborType{ID: 3, Name: "Cosecha", RequiresWeight: true},
		&models.Worker{ID: 5, FullName: "Ana Pérez", Active: true, UserID: &anaUser},
		&models.Worker{ID: 6, FullName: "Bruno Díaz", Active: true},
		&models.Worker{ID: 7, FullName: "Carla Ruiz", Active: true},
		&models.SupervisorWorker{SupervisorID: 2, WorkerID: 5, Active: true},
		&models.SupervisorWorker{SupervisorID: 2, WorkerID: 6, Active: true},
		&models.SupervisorWorker{SupervisorID: 2, WorkerID: 7, Active: false},
		&models.LaborEvent{ID: 1, PlotID: 1, CropID: 2, WorkerID: 6, LaborTypeID: 3, RegisteredBy: 2,
			PerformedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), WeightKg: ptr(40.0)},
	)
	dbtest.Seed(t, db, rows...)

	cfg := &config.Config{
		JWTSecret:          testSecret,
		JWTExpirationHours: 1,
		CORSOrigin:         "http://localhost:5173",
		EditWindow:         2 * time.Hour,
	}
	gate := access.NewGate(access.NewScopeCalculator(access.NewGormLinks(db)), access.EditWindow{Duration: cfg.EditWindow})
	engine := alerts.NewEngine(db, notify.Discard{}, alerts.TemplateDescriber{}, alerts.Config{Location: time.UTC})

	router := NewRouter(Deps{
		DB:      db,
		Config:  cfg,
		Labor:   labor.NewService(labor.NewStore(db), gate, notify.Discard{}, time.UTC),
		Alerts:  alerts.NewService(db, notify.Discard{}, time.UTC),
		Engine:  engine,
		Reports: reports.NewService(db, gate, time.UTC),
		Hub:     websocket.NewHub(),
		Limiter: middleware.NewMemoryLimiter(3, time.Minute),
	})

	f := &fixture{db: db, h: router.Handler(), tokens: map[access.Role]string{}}
	for _, u := range []models.User{
		{ID: 1, RoleID: 1, Email: "admin@finca.co"},
		{ID: 2, RoleID: 2, Email: "super@finca.co"},
		{ID: 3, RoleID: 3, Email: "ana@finca.co"},
	} {
		u := u
		token, err := utils.GenerateToken(&u, testSecret, time.Hour)
		require.NoError(t, err)
		f.tokens[access.Role(u.RoleID)] = token
	}
	return f
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) do(t *testing.T, method, path string, role access.Role, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := f.tokens[role]; ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

const anonymous access.Role = 0

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", anonymous, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "redis")
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/login", anonymous, `{"email":"ADMIN@finca.co","password":"secreto1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decode(t, rec, &body)
	require.NotEmpty(t, body.Token)
	assert.Equal(t, uint(1), body.User.ID)
	assert.NotNil(t, body.User.LastLogin)

	claims, err := utils.ValidateToken(body.Token, testSecret)
	require.NoError(t, err)
	id, err := utils.IdentityFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, access.RoleAdmin, id.Role)

	rec = f.do(t, http.MethodPost, "/api/auth/login", anonymous, `{"email":"ana","password":"secreto1"}`)
	assert.Equal(t, http.StatusOK, rec.Code, "username login")
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/login", anonymous, `{"email":"admin@finca.co","password":"otra"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", anonymous, `{"email":"baja@finca.co","password":"secreto1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", anonymous, `{"email":"","password":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", anonymous, `{"email":"admin@finca.co","password":"secreto1"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/register", anonymous,
		`{"username":"luis","email":"luis@finca.co","password":"clave123","nombre":"Luis"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user models.User
	require.NoError(t, f.db.First(&user, "nombre_usuario = ?", "luis").Error)
	assert.Equal(t, uint(access.RoleOperator), user.RoleID)
	assert.True(t, user.Active)
	assert.True(t, utils.CheckPasswordHash("clave123", user.PasswordHash))

	rec = f.do(t, http.MethodPost, "/api/auth/register", anonymous,
		`{"username":"otro","email":"admin@finca.co","password":"clave123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/register", anonymous,
		`{"username":"corto","email":"corto@finca.co","password":"123"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyTokenAcceptsAuthTokenHeader(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify-token", nil)
	req.Header.Set("x-auth-token", f.tokens[access.RoleSupervisor])
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "supervisor", body["rol"])

	rec = f.do(t, http.MethodGet, "/api/auth/verify-token", anonymous, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/cultivos", anonymous, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/no-existe", access.RoleAdmin, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/labores-agricolas", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOperatorLaborIsPinnedToOwnWorker(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/labores-agricolas", access.RoleOperator,
		`{"id_lote":1,"id_cultivo":2,"id_labor_tipo":3,"fecha_labor":"2024-05-02","peso_kg":12.5}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view models.LaborEventView
	decode(t, rec, &view)
	assert.Equal(t, uint(5), view.WorkerID)
	assert.Equal(t, uint(3), view.RegisteredBy)

	rec = f.do(t, http.MethodPost, "/api/labores-agricolas", access.RoleOperator,
		`{"id_lote":1,"id_cultivo":2,"id_labor_tipo":3,"id_trabajador":6,"fecha_labor":"2024-05-02"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The operator only sees their own event, not the seeded one for Bruno
	rec = f.do(t, http.MethodGet, "/api/labores-agricolas/1", access.RoleOperator, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSupervisorLaborScope(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/labores-agricolas", access.RoleSupervisor,
		`{"id_lote":1,"id_cultivo":2,"id_labor_tipo":3,"id_trabajador":7,"fecha_labor":"2024-05-02"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/labores-agricolas/1", access.RoleSupervisor, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/labores-agricolas/999", access.RoleSupervisor, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/labores-agricolas/1", access.RoleSupervisor, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/labores-agricolas/1", access.RoleAdmin, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAlertPermissions(t *testing.T) {
	f := newFixture(t)
	body := `{"tipo_alerta":"MANUAL","descripcion":"Revisar báscula","nivel_severidad":"MEDIA"}`

	rec := f.do(t, http.MethodPost, "/api/alertas", access.RoleOperator, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/alertas", access.RoleSupervisor, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, "/api/alertas", access.RoleSupervisor, body)
	assert.Equal(t, http.StatusConflict, rec.Code, "second open MANUAL alert today")

	rec = f.do(t, http.MethodPost, "/api/alertas/evaluar", access.RoleSupervisor, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/alertas/evaluar", access.RoleAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report map[string]interface{}
	decode(t, rec, &report)
	assert.Contains(t, report, "creadas")

	rec = f.do(t, http.MethodGet, "/api/alertas", access.RoleOperator, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCropConflicts(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/cultivos", access.RoleSupervisor, `{"nombre_cultivo":"Café"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/cultivos", access.RoleSupervisor, `{"nombre_cultivo":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/cultivos/2", access.RoleAdmin, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/cultivos/2", access.RoleSupervisor, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCropUpdate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/cultivos/2", access.RoleSupervisor, `{"descripcion_cultivo":"Arábica"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var crop models.Crop
	decode(t, rec, &crop)
	assert.Equal(t, "Café", crop.Name)
	assert.Equal(t, "Arábica", crop.Description)

	rec = f.do(t, http.MethodPut, "/api/cultivos/77", access.RoleSupervisor, `{"descripcion_cultivo":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuiltInRolesCannotBeDeleted(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodDelete, "/api/roles/2", access.RoleAdmin, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWorkerLinkMustBeOperator(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/trabajadores", access.RoleSupervisor, `{"nombre_completo":"Dario","id_usuario":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/trabajadores", access.RoleSupervisor, `{"nombre_completo":"Dario","codigo_trabajador":"T-10"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/trabajadores", access.RoleSupervisor, `{"nombre_completo":"Otro","codigo_trabajador":"T-10"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/trabajadores/6", access.RoleAdmin, "")
	assert.Equal(t, http.StatusConflict, rec.Code, "worker has labor events")

	rec = f.do(t, http.MethodGet, "/api/trabajadores?activo=true", access.RoleOperator, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var workers []models.Worker
	decode(t, rec, &workers)
	assert.Len(t, workers, 4)
}

func TestAssignments(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/supervisores/2/trabajadores?activo=true", access.RoleSupervisor, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rows []map[string]interface{}
	decode(t, rec, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ana Pérez", rows[0]["nombre_completo"])

	rec = f.do(t, http.MethodGet, "/api/supervisores/1/trabajadores", access.RoleSupervisor, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/supervisores/2/trabajadores", access.RoleSupervisor, `{"id_trabajador":7}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/supervisores/3/trabajadores", access.RoleAdmin, `{"id_trabajador":7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "target is not a supervisor")

	rec = f.do(t, http.MethodPost, "/api/supervisores/2/trabajadores", access.RoleAdmin, `{"id_trabajador":7}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var link models.SupervisorWorker
	decode(t, rec, &link)
	assert.True(t, link.Active)

	var count int64
	f.db.Model(&models.SupervisorWorker{}).Where("id_supervisor = ? AND id_trabajador = ?", 2, 7).Count(&count)
	assert.Equal(t, int64(1), count, "reactivated, not duplicated")

	rec = f.do(t, http.MethodDelete, "/api/supervisores/2/trabajadores/5", access.RoleAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var deactivated models.SupervisorWorker
	require.NoError(t, f.db.Where("id_supervisor = ? AND id_trabajador = ?", 2, 5).First(&deactivated).Error)
	assert.False(t, deactivated.Active)

	rec = f.do(t, http.MethodPut, "/api/supervisores/2/trabajadores/99", access.RoleAdmin, `{"activo":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlots(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/lotes", access.RoleSupervisor,
		`{"nombre_lote":"Lote Este","id_cultivo":2,"ubicacion_gps_poligono":"{no json"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/lotes", access.RoleSupervisor,
		`{"nombre_lote":"Lote Este","id_cultivo":2,"area_hectareas":2.5,"ubicacion_gps_poligono":[[4.6,-74.1],[4.7,-74.1],[4.7,-74.0]]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var plot models.Plot
	decode(t, rec, &plot)
	require.NotNil(t, plot.Crop)
	assert.Equal(t, "Café", plot.Crop.Name)

	rec = f.do(t, http.MethodPut, "/api/lotes/1/supervisor", access.RoleAdmin, `{"id_supervisor":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/lotes/1/supervisor", access.RoleAdmin, `{"id_supervisor":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &plot)
	require.NotNil(t, plot.SupervisorID)
	assert.Equal(t, uint(2), *plot.SupervisorID)

	rec = f.do(t, http.MethodDelete, "/api/lotes/1", access.RoleAdmin, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPlotLabels(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/lotes/etiquetas?ids=1,9", access.RoleSupervisor, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = f.do(t, http.MethodGet, "/api/lotes/etiquetas?ids=1,x", access.RoleSupervisor, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/lotes/etiquetas?ids=404", access.RoleSupervisor, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/lotes/etiquetas", access.RoleOperator, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUsersAreAdminOnly(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/usuarios", access.RoleSupervisor, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/usuarios", access.RoleAdmin,
		`{"nombre_usuario":"jefe2","email":"jefe2@finca.co","password":"clave123","id_rol":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password_hash")

	rec = f.do(t, http.MethodPost, "/api/usuarios", access.RoleAdmin,
		`{"nombre_usuario":"x","email":"x@finca.co","password":"clave123","id_rol":42}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/usuarios/1", access.RoleAdmin, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/usuarios/3", access.RoleAdmin, "")
	assert.Equal(t, http.StatusConflict, rec.Code, "linked to a worker")
}

func TestReportsCSV(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/reportes/labores/csv?fechaInicio=2024-05-01&fechaFin=2024-05-01", access.RoleAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), reports.CSVFilename)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "\ufeff"))
	assert.Contains(t, body, "Lote Norte")
	assert.Contains(t, body, "Bruno Díaz")

	// Ana's operator scope excludes Bruno's event
	rec = f.do(t, http.MethodGet, "/api/reportes/labores/csv", access.RoleOperator, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Bruno Díaz")

	rec = f.do(t, http.MethodGet, "/api/reportes/labores/csv?fechaInicio=2024-05-02&fechaFin=2024-05-01", access.RoleAdmin, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportsJSON(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/reportes/labores-detallado?limit=5", access.RoleSupervisor, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page reports.DetailPage
	decode(t, rec, &page)
	assert.Equal(t, int64(1), page.Pagination.Total)
	assert.Equal(t, 5, page.Pagination.Limit)

	rec = f.do(t, http.MethodGet, "/api/reportes/rendimiento-lote?cultivoId=abc", access.RoleAdmin, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/dashboard-produccion-diaria/historico?fechaInicio=2024-05-01&fechaFin=2024-05-01", access.RoleAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []reports.DashboardRow
	decode(t, rec, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, 40.0, rows[0].TotalWeightKg)

	rec = f.do(t, http.MethodGet, "/api/reportes/labores/pdf", access.RoleAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
}
