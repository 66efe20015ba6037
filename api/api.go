// Package api exposes the audit surface of the payroll node over HTTP: view
// key issuance, revocation and report generation, plus the exported
// verification key material the ledger-side verifier is initialized with.
// The prover-side operations are deliberately not exposed; salaries and
// blinding factors never cross this boundary.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/veilpay/payroll-node/audit"
	"github.com/veilpay/payroll-node/log"
	"github.com/veilpay/payroll-node/prover"
	stg "github.com/veilpay/payroll-node/storage"
)

// APIConfig represents the configuration for the API HTTP server.
type APIConfig struct {
	Host    string
	Port    int
	Storage *stg.Storage
	Prover  *prover.Service
}

// API is the HTTP server of the payroll node audit surface.
type API struct {
	router     *chi.Mux
	storage    *stg.Storage
	viewKeys   *audit.ViewKeyManager
	aggregator *audit.Aggregator
	prover     *prover.Service
}

// New creates a new API instance and starts the HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	viewKeys := audit.NewViewKeyManager(conf.Storage)
	a := &API{
		storage:    conf.Storage,
		viewKeys:   viewKeys,
		aggregator: audit.NewAggregator(viewKeys),
		prover:     conf.Prover,
	}
	a.initRouter()
	go func() {
		log.Infow("starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes.
func (a *API) Router() *chi.Mux {
	return a.router
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.Timeout(45 * time.Second))

	a.registerHandlers()
}

// registerHandlers registers all the HTTP handlers for the API endpoints.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", ViewKeysEndpoint, "method", "POST")
	a.router.Post(ViewKeysEndpoint, a.issueViewKey)
	log.Infow("register handler", "endpoint", ViewKeyEndpoint, "method", "GET")
	a.router.Get(ViewKeyEndpoint, a.getViewKey)
	log.Infow("register handler", "endpoint", ViewKeyEndpoint, "method", "DELETE")
	a.router.Delete(ViewKeyEndpoint, a.revokeViewKey)
	log.Infow("register handler", "endpoint", ReportEndpoint, "method", "GET", "parameters", "from,to")
	a.router.Get(ReportEndpoint, a.generateReport)
	if a.prover != nil {
		log.Infow("register handler", "endpoint", VerifierEndpoint, "method", "GET")
		a.router.Get(VerifierEndpoint, a.verifierMaterial)
	}
}
