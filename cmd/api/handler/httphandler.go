package handler

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/cache/v8"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/account"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/transfer"
	"github.com/tamasbrandstadter/transfers-api/internal/web"
)

const (
	accounts           = "/v1/accounts"
	accountById        = "/v1/accounts/:id"
	balanceByAccountId = "/v1/accounts/:id/balance"
	transfers          = "/v1/accounts/transfer"
	health             = "/health"
	metricsPath        = "/metrics"

	idempotencyHeader = "Idempotency-Key"
)

var validate = validator.New()

type Options struct {
	Currency string
	// Transfers caches transfer outcomes by idempotency key. Nil disables replay.
	Transfers      *cache.Cache
	IdempotencyTTL time.Duration
}

type Application struct {
	Store       *account.Store
	Coordinator *transfer.Coordinator
	opts        Options
	handler     http.Handler
}

func (a *Application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func NewApplication(store *account.Store, coordinator *transfer.Coordinator, opts Options) *Application {
	app := Application{
		Store:       store,
		Coordinator: coordinator,
		opts:        opts,
	}

	router := httprouter.New()
	router.HandlerFunc(http.MethodPost, accounts, app.CreateAccount)
	router.HandlerFunc(http.MethodGet, accounts, app.FindAllAccounts)
	router.HandlerFunc(http.MethodDelete, accounts, app.ClearAccounts)
	router.HandlerFunc(http.MethodGet, accountById, app.GetAccountById)
	router.HandlerFunc(http.MethodGet, balanceByAccountId, app.GetBalance)
	router.HandlerFunc(http.MethodPut, transfers, app.Transfer)
	router.HandlerFunc(http.MethodGet, health, app.Health)
	router.Handler(http.MethodGet, metricsPath, promhttp.Handler())

	app.handler = router
	return &app
}

func (a *Application) Health(w http.ResponseWriter, r *http.Request) {
	web.Respond(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
