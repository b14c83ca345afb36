package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database/dbtest"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/logs"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/notify"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/service/registry"
	"github.com/iliyamo/table-reservation/internal/service/reports"
	"github.com/iliyamo/table-reservation/internal/service/reservation"
	"github.com/iliyamo/table-reservation/internal/utils"
)

const secret = "router-secret"

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	db := dbtest.Open(t)
	log := logs.Discard()
	tables := registry.NewTables(repository.NewTableRepo(db), log)
	clients := registry.NewClients(repository.NewClientRepo(db), "US", log)
	hours := registry.NewHours(repository.NewHoursRepo(db), log)
	engine := reservation.New(reservation.Deps{
		Store:   repository.NewReservationRepo(db),
		Tables:  tables,
		Clients: clients,
		Hours:   hours,
		Logger:  log,
	})
	reg := handler.NewRegistryHandler(tables, clients, hours, log)
	res := handler.NewReservationHandler(engine, log)
	auth := handler.NewAuthHandler(config.AuthConfig{
		JWTSecret: secret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: bcrypt.MinCost,
	}, repository.NewOperatorRepo(db), repository.NewTokenRepo(db), log)

	e := echo.New()
	noop := middleware.NewTokenBucket(config.RateLimitConfig{}, nil, log)
	RegisterRoutes(e, db)
	RegisterAuth(e, auth, secret)
	RegisterPublic(e, reg, res, noop)
	RegisterOperator(e, Operator{
		Registry:     reg,
		Reservations: res,
		Reports:      handler.NewReportHandler(reports.New(repository.NewReportRepo(db), time.UTC, nil), log),
		Events:       handler.NewEventsHandler(notify.NewHub(log), log),
	}, secret, middleware.NewRedisCache(config.CacheConfig{}, nil, log))
	return e
}

func call(e *echo.Echo, method, path, body, token string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRouteProtection(t *testing.T) {
	e := newServer(t)
	tok, err := utils.NewAccessToken(secret, 1, utils.RoleOperator, 5)
	require.NoError(t, err)
	other, err := utils.NewAccessToken(secret, 2, "guest", 5)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/healthz", "", ""))
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/tables", "", ""))
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/hours", "", ""))
	// public booking reaches the engine and fails validation, not auth
	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodPost, "/v1/reservations", `{}`, ""))

	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/v1/tables"},
		{http.MethodGet, "/v1/clients"},
		{http.MethodPost, "/v1/hours"},
		{http.MethodGet, "/v1/reservations"},
		{http.MethodPut, "/v1/reservations/1/cancel"},
		{http.MethodDelete, "/v1/reservations/cancelled"},
		{http.MethodGet, "/v1/dashboard/stats"},
		{http.MethodGet, "/v1/me"},
	} {
		assert.Equal(t, http.StatusUnauthorized, call(e, r.method, r.path, "", ""), r.path)
		assert.Equal(t, http.StatusForbidden, call(e, r.method, r.path, "", other.Token), r.path)
	}

	assert.Equal(t, http.StatusCreated,
		call(e, http.MethodPost, "/v1/tables", `{"table_number":1,"capacity":2}`, tok.Token))
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/reservations", "", tok.Token))
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/reservations/archived", "", tok.Token))
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/reports/top-client", "", tok.Token))
	assert.Equal(t, http.StatusNotFound, call(e, http.MethodGet, "/v1/reservations/42", "", tok.Token))
	// operator 1 was never registered
	assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodGet, "/v1/me", "", tok.Token))
}
