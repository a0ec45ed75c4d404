package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/estatekit/estate-access-api/access"
	"github.com/estatekit/estate-access-api/api"
	"github.com/estatekit/estate-access-api/api/scheduler"
	"github.com/estatekit/estate-access-api/config"
	"github.com/estatekit/estate-access-api/databases"
	"github.com/estatekit/estate-access-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	DB        databases.CollectionHelper
	Config    config.Config
	Scheduler *scheduler.Scheduler
	dbHelper  databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	acDB := databases.NewAccessCodeDatabase(a.dbHelper)
	alDB := databases.NewAccessLogDatabase(a.dbHelper)
	pvDB := databases.NewPendingVerificationDatabase(a.dbHelper)
	eDB := databases.NewEstateDatabase(a.dbHelper)
	uDB := databases.NewUserDatabase(a.dbHelper)
	lockDB := databases.NewSchedulerLockDatabase(a.dbHelper)

	policy := access.NewResolver(eDB)
	events := access.NewDispatcher()
	service := access.NewService(acDB, alDB, pvDB, policy, events)

	hub := NewNotificationHub()
	events.Subscribe(hub)
	events.Subscribe(EmailNotifier{UDB: uDB})

	a.Scheduler = scheduler.NewScheduler(acDB, pvDB, eDB, policy, lockDB)

	ac := AccessCode{Service: service}
	v := Verification{Service: service}
	e := Estate{Policy: policy, EDB: eDB, ACDB: acDB, ALDB: alDB, PVDB: pvDB}
	auth := Auth{UDB: uDB}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(30 * time.Second))

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")
	apiCreate.Handle("/auth/staff-login", http.HandlerFunc(auth.StaffLoginHandler)).Methods("POST")

	apiCreate.Handle("/access-code", api.Middleware(http.HandlerFunc(ac.CreateAccessCodeHandler))).Methods("POST")
	apiCreate.Handle("/access-code/{code_id}", api.Middleware(http.HandlerFunc(ac.AccessCodeByIDHandler))).Methods("GET")
	apiCreate.Handle("/access-code/{code_id}/revoke", api.Middleware(http.HandlerFunc(ac.RevokeAccessCodeHandler))).Methods("POST")
	apiCreate.Handle("/access-code/{code_id}/logs", api.Middleware(http.HandlerFunc(ac.AccessCodeLogsHandler))).Methods("GET")
	apiCreate.Handle("/access-codes/resident/{resident_id}/active", api.Middleware(http.HandlerFunc(ac.ActiveAccessCodesHandler))).Methods("GET")
	apiCreate.Handle("/access-codes/resident/{resident_id}/history", api.Middleware(http.HandlerFunc(ac.AccessCodeHistoryHandler))).Methods("GET")

	apiCreate.Handle("/verify", api.Middleware(http.HandlerFunc(v.VerifyAccessCodeHandler))).Methods("POST")
	apiCreate.Handle("/verify/{pending_id}/confirm", api.Middleware(http.HandlerFunc(v.ConfirmVerificationHandler))).Methods("POST")

	apiCreate.Handle("/estate/{estate_id}/settings", api.Middleware(http.HandlerFunc(e.EstateSettingsHandler))).Methods("GET")
	apiCreate.Handle("/estate/{estate_id}/settings", api.Middleware(http.HandlerFunc(e.UpdateEstateSettingsHandler))).Methods("PUT")
	apiCreate.Handle("/estate/{estate_id}/access-logs", api.Middleware(http.HandlerFunc(e.EstateAccessLogsHandler))).Methods("GET")
	apiCreate.Handle("/estate/{estate_id}", api.Middleware(http.HandlerFunc(e.DeleteEstateHandler))).Methods("DELETE")

	r.HandleFunc("/ws/access", hub.HandleAccessWebSocket)

	// swagger docs hosted at "/"
	r.PathPrefix("/").Handler(http.StripPrefix("/", http.FileServer(http.Dir("./docs/"))))
	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("estate-access-api has connected to the database")

	// initialize api router
	a.initializeRoutes()

	// start background jobs once the router wiring built the scheduler
	a.Scheduler.Start()
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
