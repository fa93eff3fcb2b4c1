package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	gorillaws "github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/xelth-com/agrocampo/internal/access"
	"github.com/xelth-com/agrocampo/internal/apierror"
	"github.com/xelth-com/agrocampo/internal/buildinfo"
	"github.com/xelth-com/agrocampo/internal/config"
	"github.com/xelth-com/agrocampo/internal/middleware"
	"github.com/xelth-com/agrocampo/internal/services/alerts"
	"github.com/xelth-com/agrocampo/internal/services/labor"
	"github.com/xelth-com/agrocampo/internal/services/reports"
	"github.com/xelth-com/agrocampo/internal/websocket"
	"gorm.io/gorm"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators the HTTP layer is built from
type Deps struct {
	DB      *gorm.DB
	Config  *config.Config
	Labor   *labor.Service
	Alerts  *alerts.Service
	Engine  *alerts.Engine
	Reports *reports.Service
	Hub     *websocket.Hub
	// Limiter throttles login attempts. Nil disables throttling
	Limiter middleware.Limiter
	// Redis is optional and only reported by /health
	Redis *redis.Client
}

// Router wraps the mux router and the services behind it
type Router struct {
	*mux.Router
	db       *gorm.DB
	cfg      *config.Config
	labor    *labor.Service
	alerts   *alerts.Service
	engine   *alerts.Engine
	reports  *reports.Service
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
	redis    *redis.Client
	now      func() time.Time
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(d Deps) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		db:       d.DB,
		cfg:      d.Config,
		labor:    d.Labor,
		alerts:   d.Alerts,
		engine:   d.Engine,
		reports:  d.Reports,
		hub:      d.Hub,
		upgrader: websocket.Upgrader(d.Config.CORSOrigin),
		redis:    d.Redis,
		now:      time.Now,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	authn := middleware.Auth(d.Config.JWTSecret)
	admin := middleware.RequireRole(access.RoleAdmin)
	managers := middleware.RequireRole(access.RoleAdmin, access.RoleSupervisor)

	// Auth routes
	auth := r.PathPrefix("/api/auth").Subrouter()
	login := http.Handler(http.HandlerFunc(r.login))
	if d.Limiter != nil {
		login = middleware.RateLimit(d.Limiter, "Demasiados intentos de inicio de sesión. Intente más tarde")(login)
	}
	auth.Handle("/login", login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")
	auth.Handle("/verify-token", authn(http.HandlerFunc(r.verifyToken))).Methods("GET")

	// Realtime notifications
	r.Handle("/ws", authn(http.HandlerFunc(r.serveWs))).Methods("GET")

	// Everything else under /api requires a valid token
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authn)

	// Labor events: per-action permissions are decided by the labor service
	la := api.PathPrefix("/labores-agricolas").Subrouter()
	la.HandleFunc("", r.listLabor).Methods("GET")
	la.HandleFunc("", r.createLabor).Methods("POST")
	la.HandleFunc("/{id:[0-9]+}", r.getLabor).Methods("GET")
	la.HandleFunc("/{id:[0-9]+}", r.updateLabor).Methods("PUT")
	la.HandleFunc("/{id:[0-9]+}", r.deleteLabor).Methods("DELETE")

	al := api.PathPrefix("/alertas").Subrouter()
	al.HandleFunc("", r.listAlerts).Methods("GET")
	al.Handle("", managers(http.HandlerFunc(r.createAlert))).Methods("POST")
	al.Handle("/evaluar", admin(http.HandlerFunc(r.evaluateAlerts))).Methods("POST")
	al.HandleFunc("/{id:[0-9]+}", r.getAlert).Methods("GET")
	al.Handle("/{id:[0-9]+}", managers(http.HandlerFunc(r.updateAlert))).Methods("PUT")
	al.Handle("/{id:[0-9]+}", admin(http.HandlerFunc(r.deleteAlert))).Methods("DELETE")

	crops := api.PathPrefix("/cultivos").Subrouter()
	crops.HandleFunc("", r.listCrops).Methods("GET")
	crops.Handle("", managers(http.HandlerFunc(r.createCrop))).Methods("POST")
	crops.HandleFunc("/{id:[0-9]+}", r.getCrop).Methods("GET")
	crops.Handle("/{id:[0-9]+}", managers(http.HandlerFunc(r.updateCrop))).Methods("PUT")
	crops.Handle("/{id:[0-9]+}", admin(http.HandlerFunc(r.deleteCrop))).Methods("DELETE")

	types := api.PathPrefix("/labores-tipos").Subrouter()
	types.HandleFunc("", r.listLaborTypes).Methods("GET")
	types.Handle("", managers(http.HandlerFunc(r.createLaborType))).Methods("POST")
	types.HandleFunc("/{id:[0-9]+}", r.getLaborType).Methods("GET")
	types.Handle("/{id:[0-9]+}", managers(http.HandlerFunc(r.updateLaborType))).Methods("PUT")
	types.Handle("/{id:[0-9]+}", admin(http.HandlerFunc(r.deleteLaborType))).Methods("DELETE")

	workers := api.PathPrefix("/trabajadores").Subrouter()
	workers.HandleFunc("", r.listWorkers).Methods("GET")
	workers.Handle("", managers(http.HandlerFunc(r.createWorker))).Methods("POST")
	workers.HandleFunc("/{id:[0-9]+}", r.getWorker).Methods("GET")
	workers.Handle("/{id:[0-9]+}", managers(http.HandlerFunc(r.updateWorker))).Methods("PUT")
	workers.Handle("/{id:[0-9]+}", admin(http.HandlerFunc(r.deleteWorker))).Methods("DELETE")

	plots := api.PathPrefix("/lotes").Subrouter()
	plots.HandleFunc("", r.listPlots).Methods("GET")
	plots.Handle("", managers(http.HandlerFunc(r.createPlot))).Methods("POST")
	plots.Handle("/etiquetas", managers(http.HandlerFunc(r.plotLabels))).Methods("GET")
	plots.HandleFunc("/{id:[0-9]+}", r.getPlot).Methods("GET")
	plots.Handle("/{id:[0-9]+}", managers(http.HandlerFunc(r.updatePlot))).Methods("PUT")
	plots.Handle("/{id:[0-9]+}", admin(http.HandlerFunc(r.deletePlot))).Methods("DELETE")
	plots.Handle("/{id:[0-9]+}/supervisor", managers(http.HandlerFunc(r.assignPlotSupervisor))).Methods("PUT")

	roles := api.PathPrefix("/roles").Subrouter()
	roles.HandleFunc("", r.listRoles).Methods("GET")
	roles.Handle("", admin(http.HandlerFunc(r.createRole))).Methods("POST")
	roles.HandleFunc("/{id:[0-9]+}", r.getRole).Methods("GET")
	roles.Handle("/{id:[0-9]+}", admin(http.HandlerFunc(r.updateRole))).Methods("PUT")
	roles.Handle("/{id:[0-9]+}", admin(http.HandlerFunc(r.deleteRole))).Methods("DELETE")

	users := api.PathPrefix("/usuarios").Subrouter()
	users.Use(admin)
	users.HandleFunc("", r.listUsers).Methods("GET")
	users.HandleFunc("", r.createUser).Methods("POST")
	users.HandleFunc("/{id:[0-9]+}", r.getUser).Methods("GET")
	users.HandleFunc("/{id:[0-9]+}", r.updateUser).Methods("PUT")
	users.HandleFunc("/{id:[0-9]+}", r.deleteUser).Methods("DELETE")

	sup := api.PathPrefix("/supervisores/{id:[0-9]+}/trabajadores").Subrouter()
	sup.Handle("", managers(http.HandlerFunc(r.listAssignments))).Methods("GET")
	sup.Handle("", admin(http.HandlerFunc(r.createAssignment))).Methods("POST")
	sup.Handle("/{trabajadorId:[0-9]+}", admin(http.HandlerFunc(r.updateAssignment))).Methods("PUT")
	sup.Handle("/{trabajadorId:[0-9]+}", admin(http.HandlerFunc(r.deleteAssignment))).Methods("DELETE")

	api.HandleFunc("/dashboard-produccion-diaria", r.dashboardToday).Methods("GET")
	api.HandleFunc("/dashboard-produccion-diaria/historico", r.dashboardHistory).Methods("GET")

	rep := api.PathPrefix("/reportes").Subrouter()
	rep.HandleFunc("/produccion-diaria", r.reportDailyProduction).Methods("GET")
	rep.HandleFunc("/rendimiento-lote", r.reportPlotYield).Methods("GET")
	rep.HandleFunc("/eficiencia-trabajador", r.reportWorkerEfficiency).Methods("GET")
	rep.HandleFunc("/historico-labores", r.reportLaborHistory).Methods("GET")
	rep.HandleFunc("/labores-detallado", r.reportDetails).Methods("GET")
	rep.HandleFunc("/labores/pdf", r.reportPDF).Methods("GET")
	rep.HandleFunc("/labores/csv", r.reportCSV).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, http.StatusNotFound, "Ruta no encontrada")
	})

	return r
}

// Handler returns the router wrapped in the request-wide middleware. CORS
// runs outside the mux so preflight requests never need a route
func (r *Router) Handler() http.Handler {
	return middleware.RequestLogger(middleware.CORS(r.cfg.CORSOrigin)(r.Router))
}

// healthCheck reports database and, when configured, redis connectivity
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]string{
		"status":  "ok",
		"db":      "ok",
		"commit":  buildinfo.Commit(),
		"started": buildinfo.StartTime,
	}

	sqlDB, err := r.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["db"] = "error"
	}
	if r.redis != nil {
		body["redis"] = "ok"
		if err := r.redis.Ping(ctx).Err(); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["redis"] = "error"
		}
	}
	respondJSON(w, status, body)
}

func (r *Router) serveWs(w http.ResponseWriter, req *http.Request) {
	id, _ := middleware.IdentityFrom(req.Context())
	websocket.ServeWs(r.hub, r.upgrader, id.UserID, w, req)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, apierror.Body{Message: message})
}

// respondErr maps any error to its status and JSON envelope. Internal
// failures are logged with the request id
func respondErr(w http.ResponseWriter, req *http.Request, err error) {
	apiErr := toAPIError(err)
	if apiErr.Kind == apierror.KindInternal {
		zerolog.Ctx(req.Context()).Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
	}
	respondJSON(w, apiErr.Status(), apiErr.ToBody())
}

func toAPIError(err error) *apierror.Error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) && apiErr.Kind != apierror.KindInternal {
		return apiErr
	}
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apierror.Conflict("Ya existe un registro con esos datos")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apierror.Conflict("El registro está referenciado por otros datos")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apierror.NotFound("Registro no encontrado")
	}
	return apierror.From(err)
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, req *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("El cuerpo de la petición está vacío")
		}
		return apierror.BadRequest("JSON inválido")
	}
	return nil
}

// pathID parses a numeric route variable
func pathID(req *http.Request, name string) (uint, error) {
	n, err := strconv.ParseUint(mux.Vars(req)[name], 10, 32)
	if err != nil || n == 0 {
		return 0, apierror.BadRequest("Identificador inválido")
	}
	return uint(n), nil
}

// queryInt reads a positive integer query parameter, 0 when absent
func queryInt(req *http.Request, name string) (int, error) {
	v := req.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apierror.BadRequest(name + " debe ser un número positivo")
	}
	return n, nil
}

// queryID reads an optional numeric id query parameter
func queryID(req *http.Request, name string) (*uint, error) {
	v := req.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil || n == 0 {
		return nil, apierror.BadRequest(name + " debe ser un identificador numérico")
	}
	id := uint(n)
	return &id, nil
}

// queryBool reads an optional boolean query parameter
func queryBool(req *http.Request, name string) (*bool, error) {
	v := req.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apierror.BadRequest(name + " debe ser true o false")
	}
	return &b, nil
}

// caller returns the identity placed in the context by middleware.Auth
func caller(req *http.Request) access.Identity {
	id, _ := middleware.IdentityFrom(req.Context())
	return id
}
