package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database/dbtest"
	"github.com/iliyamo/table-reservation/internal/logs"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/notify"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/service/registry"
	"github.com/iliyamo/table-reservation/internal/service/reports"
	"github.com/iliyamo/table-reservation/internal/service/reservation"
)

const secret = "handler-secret"

// 2024-01-01 is a Monday.
var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	e       *echo.Echo
	hub     *notify.Hub
	engine  *reservation.Engine
	tables  *registry.Tables
	clients *registry.Clients
	hours   *registry.Hours
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	log := logs.Discard()
	f := &fixture{
		e:       echo.New(),
		hub:     notify.NewHub(log),
		tables:  registry.NewTables(repository.NewTableRepo(db), log),
		clients: registry.NewClients(repository.NewClientRepo(db), "US", log),
		hours:   registry.NewHours(repository.NewHoursRepo(db), log),
	}
	f.engine = reservation.New(reservation.Deps{
		Store:     repository.NewReservationRepo(db),
		Tables:    f.tables,
		Clients:   f.clients,
		Hours:     f.hours,
		Publisher: f.hub,
		Clock:     func() time.Time { return monday.Add(9 * time.Hour) },
		Location:  time.UTC,
		Logger:    log,
	})
	t.Cleanup(f.engine.Wait)

	auth := NewAuthHandler(config.AuthConfig{
		JWTSecret: secret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: bcrypt.MinCost,
	}, repository.NewOperatorRepo(db), repository.NewTokenRepo(db), log)
	reg := NewRegistryHandler(f.tables, f.clients, f.hours, log)
	res := NewReservationHandler(f.engine, log)
	rep := NewReportHandler(reports.New(repository.NewReportRepo(db), time.UTC, nil), log)

	f.e.GET("/healthz", Health(db))
	f.e.POST("/auth/register", auth.Register)
	f.e.POST("/auth/login", auth.Login)
	f.e.POST("/auth/refresh", auth.Refresh)
	f.e.POST("/auth/logout", auth.Logout)
	f.e.GET("/me", auth.Me, middleware.JWTAuth(secret))

	f.e.GET("/tables", reg.ListTables)
	f.e.GET("/tables/:id", reg.GetTable)
	f.e.POST("/tables", reg.CreateTable)
	f.e.PUT("/tables/:id", reg.UpdateTable)
	f.e.DELETE("/tables/:id", reg.DeleteTable)
	f.e.GET("/clients", reg.ListClients)
	f.e.GET("/clients/:id", reg.GetClient)
	f.e.POST("/clients", reg.CreateClient)
	f.e.PUT("/clients/:id", reg.UpdateClient)
	f.e.DELETE("/clients/:id", reg.DeleteClient)
	f.e.GET("/hours", reg.ListHours)
	f.e.POST("/hours", reg.UpsertHours)

	f.e.POST("/reservations", res.Create)
	f.e.GET("/reservations", res.List)
	f.e.GET("/reservations/archived", res.ListArchived)
	f.e.DELETE("/reservations/cancelled", res.ArchiveCancelled)
	f.e.GET("/reservations/:id", res.Get)
	f.e.PUT("/reservations/:id/cancel", res.Cancel)
	f.e.PUT("/reservations/:id/check-in", res.CheckIn)
	f.e.GET("/clients/:id/reservations", res.ClientHistory)

	f.e.GET("/reports/occupancy-by-day", rep.OccupancyByDay)
	f.e.GET("/reports/top-client", rep.TopClient)
	f.e.GET("/dashboard/stats", rep.DashboardStats)
	return f
}

func (f *fixture) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]any](t, rec)["kind"].(string)
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/up", Health(pinger{}))
	e.GET("/down", Health(pinger{err: errors.New("gone")}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/up", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTablesEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/tables", `{"table_number":3,"capacity":4,"location":"terrace"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	id := int(created["id"].(float64))

	rec = f.do(http.MethodPost, "/tables", `{"table_number":3,"capacity":2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", errorKind(t, rec))

	rec = f.do(http.MethodPost, "/tables", `{"table_number":0,"capacity":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", errorKind(t, rec))

	rec = f.do(http.MethodPut, "/tables/"+itoa(id), `{"table_number":3,"capacity":6}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 6, decode[map[string]any](t, rec)["capacity"])

	rec = f.do(http.MethodGet, "/tables", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = f.do(http.MethodGet, "/tables/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodDelete, "/tables/"+itoa(id), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(http.MethodGet, "/tables/"+itoa(id), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorKind(t, rec))
}

func TestClientsAndHoursEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/clients", `{"name":"Ana","phone":"(201) 555-0123"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "+12015550123", decode[map[string]any](t, rec)["phone"])

	rec = f.do(http.MethodPost, "/clients", `{"name":"Other","phone":"+1 201-555-0123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodPost, "/clients", `{"name":"Bad","phone":"12"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/hours", `{"day_of_week":1,"open_time":"12:00","close_time":"22:00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.do(http.MethodPost, "/hours", `{"day_of_week":1,"open_time":"13:00","close_time":"23:00"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodPost, "/hours", `{"open_time":"13:00","close_time":"23:00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(http.MethodPost, "/hours", `{"day_of_week":7,"open_time":"13:00","close_time":"23:00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/hours", "")
	hours := decode[[]map[string]any](t, rec)
	require.Len(t, hours, 1)
	assert.Equal(t, "13:00", hours[0]["open_time"])
}

func TestReservationEndpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.hours.Upsert(ctx, 1, "12:00", "22:00")
	require.NoError(t, err)
	table, err := f.tables.Create(ctx, registry.TableInput{TableNumber: 1, Capacity: 4})
	require.NoError(t, err)
	client, err := f.clients.Create(ctx, registry.ClientInput{Name: "Ana", Phone: "+12015550123"})
	require.NoError(t, err)

	book := func(partySize int, start string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]any{
			"client_id": client.ID, "table_id": table.ID, "party_size": partySize, "start_time": start,
		})
		return f.do(http.MethodPost, "/reservations", string(body))
	}

	rec := book(2, "2024-01-01T13:00:00Z")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[map[string]any](t, rec)
	id := itoa(int(res["id"].(float64)))
	assert.Equal(t, "confirmed", res["status"])
	assert.Equal(t, "2024-01-01T15:00:00Z", res["end_time"])

	for _, tc := range []struct {
		name   string
		rec    *httptest.ResponseRecorder
		status int
		kind   string
	}{
		{"overlap", book(2, "2024-01-01T14:00:00Z"), http.StatusConflict, "conflict"},
		{"capacity", book(5, "2024-01-01T18:00:00Z"), http.StatusConflict, "capacity_exceeded"},
		{"closed", book(2, "2024-01-07T13:00:00Z"), http.StatusConflict, "closed"},
		{"outside hours", book(2, "2024-01-01T22:01:00Z"), http.StatusConflict, "outside_hours"},
		{"missing fields", book(0, "2024-01-01T18:00:00Z"), http.StatusBadRequest, "validation"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, tc.rec.Code, tc.rec.Body.String())
			assert.Equal(t, tc.kind, errorKind(t, tc.rec))
		})
	}

	rec = f.do(http.MethodPost, "/reservations", `{"client_id":1,"table_id":1,"party_size":2,"start_time":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/reservations?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/reservations/"+id+"/check-in", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "seated", decode[map[string]any](t, rec)["status"])

	rec = f.do(http.MethodPut, "/reservations/"+id+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[map[string]any](t, rec)["status"])

	rec = f.do(http.MethodPut, "/reservations/999/cancel", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/reservations?status=cancelled", "")
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = f.do(http.MethodDelete, "/reservations/cancelled", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[map[string]any](t, rec)
	assert.EqualValues(t, 1, out["archived_count"])
	assert.EqualValues(t, 0, out["deleted_count"])

	rec = f.do(http.MethodGet, "/reservations/archived", "")
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = f.do(http.MethodGet, "/clients/"+itoa(int(client.ID))+"/reservations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)
	rec = f.do(http.MethodGet, "/clients/999/reservations", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// the client and table are still referenced
	rec = f.do(http.MethodDelete, "/tables/"+itoa(int(table.ID)), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = f.do(http.MethodDelete, "/clients/"+itoa(int(client.ID)), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReportEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/reports/top-client", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = f.do(http.MethodGet, "/reports/occupancy-by-day", "")
	require.Equal(t, http.StatusOK, rec.Code)
	days := decode[[]map[string]any](t, rec)
	require.Len(t, days, 7)
	assert.Equal(t, "Sunday", days[0]["day"])

	rec = f.do(http.MethodGet, "/dashboard/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "total_clients")
}

func TestAuthEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/auth/register", `{"username":"Host","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/auth/register", `{"username":"Host","password":"secret-pass"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[authResp](t, rec)
	assert.Equal(t, "host", reg.Operator.Username)
	assert.NotEmpty(t, reg.Access.Token)

	rec = f.do(http.MethodPost, "/auth/register", `{"username":"host","password":"secret-pass"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodPost, "/auth/login", `{"username":"host","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(http.MethodPost, "/auth/login", `{"username":"nobody","password":"secret-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/auth/login", `{"username":"HOST","password":"secret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[authResp](t, rec)

	rec = f.do(http.MethodGet, "/me", "", "Authorization", "Bearer "+login.Access.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "host", decode[operatorPart](t, rec).Username)

	// refresh rotates: the old token stops working
	rec = f.do(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+login.Refresh.Token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decode[authResp](t, rec)
	rec = f.do(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+login.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/auth/logout", `{"refresh_token":"`+rotated.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+rotated.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// bearer logout revokes every remaining session
	rec = f.do(http.MethodPost, "/auth/logout", "", "Authorization", "Bearer "+reg.Access.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+reg.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func itoa(n int) string { return strconv.Itoa(n) }
