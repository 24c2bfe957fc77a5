package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fraudguard/internal/config"
	"fraudguard/internal/handlers"
	"fraudguard/internal/lock"
	"fraudguard/internal/models"
	"fraudguard/internal/repositories"
	"fraudguard/internal/repositories/cache"
	"fraudguard/internal/services/network"
	"fraudguard/internal/services/risk"
	"fraudguard/internal/services/transaction"
	"fraudguard/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type testServer struct {
	app   *fiber.App
	store *repositories.MemoryStore
	alice models.User
	admin models.User
}

func newTestServer(t *testing.T, rateLimit int, checks map[string]handlers.Check) *testServer {
	t.Helper()
	ctx := context.Background()

	store := repositories.NewMemoryStore()
	alice := models.User{Name: "Alice Doe", Email: "alice@example.com", Role: models.RoleUser}
	admin := models.User{Name: "Ops", Email: "ops@example.com", Role: models.RoleAdmin}
	require.NoError(t, store.Users().Create(ctx, &alice))
	require.NoError(t, store.Users().Create(ctx, &admin))

	engine, err := risk.NewEngine(risk.DefaultPolicy())
	require.NoError(t, err)

	memCache := cache.NewMemoryCache(cache.DefaultMaxEntries, time.Minute)
	txSvc := transaction.NewService(store, lock.NewLocalLocker(), engine, risk.NewStaticScorer(risk.Scored(10)), transaction.Config{}, nil)
	netSvc := network.NewService(store, memCache, network.NewBuilder(nil), config.GraphConfig{
		MaxTransactions: 1000,
		BuildTimeout:    time.Second,
		DefaultWindow:   time.Hour,
	}, nil)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	SetupRoutes(app, Dependencies{
		Transactions: txSvc,
		Network:      netSvc,
		Cache:        memCache,
		Checks:       checks,
		Server:       config.ServerConfig{RateLimitMax: rateLimit, RateLimitWindow: time.Minute},
		Auth:         config.AuthConfig{JWTSecret: secret},
	})

	return &testServer{app: app, store: store, alice: alice, admin: admin}
}

func token(t *testing.T, u models.User) string {
	t.Helper()
	tok, err := utils.SignToken(secret, models.UserClaims{UserID: u.ID, Email: u.Email, Role: u.Role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if tok != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tok)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestTransactionFlow(t *testing.T) {
	s := newTestServer(t, 100, nil)
	tok := token(t, s.alice)

	status, _ := s.do(t, http.MethodPost, "/api/accounts", tok, `{"currency":"idr"}`)
	require.Equal(t, fiber.StatusCreated, status)

	status, body := s.do(t, http.MethodPost, "/api/accounts", tok, "")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "ACCOUNT_EXISTS", body["code"])

	status, body = s.do(t, http.MethodPost, "/api/transactions", tok,
		`{"amount":"500000","type":"income","description":"Salary"}`)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "COMPLETED", body["disposition"])
	assert.Equal(t, risk.ReasonApproved, body["reason"])

	status, body = s.do(t, http.MethodPost, "/api/transactions", tok,
		`{"amount":400000,"type":"EXPENSE","description":"Payment to landlord"}`)
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "500000.00", body["current"])
	assert.Equal(t, "100000.00", body["projected"])

	status, body = s.do(t, http.MethodPost, "/api/transactions", tok,
		`{"amount":"100000","type":"EXPENSE","description":"Transfer to Bob: rent"}`)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "400000", body["balance"])

	status, body = s.do(t, http.MethodGet, "/api/balance", tok, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "400000", body["balance"])
	assert.Equal(t, true, body["is_synced"])
	assert.Equal(t, "IDR", body["currency"])

	status, body = s.do(t, http.MethodGet, "/api/transactions?limit=1", tok, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = s.do(t, http.MethodGet, "/api/transactions?status=completed", tok, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 2)

	status, body = s.do(t, http.MethodGet, "/api/transactions?status=PENDING,FAILED", tok, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 0)

	status, body = s.do(t, http.MethodGet, "/api/transactions?status=reversed", tok, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "status", body["field"])
}

func TestCreateTransaction_Validation(t *testing.T) {
	s := newTestServer(t, 100, nil)
	tok := token(t, s.alice)
	s.do(t, http.MethodPost, "/api/accounts", tok, "")

	status, body := s.do(t, http.MethodPost, "/api/transactions", tok,
		`{"amount":"-5","type":"INCOME","description":"x"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "amount", body["field"])

	status, _ = s.do(t, http.MethodPost, "/api/transactions", tok, `{not json`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestBalance_NoAccount(t *testing.T) {
	s := newTestServer(t, 100, nil)

	status, body := s.do(t, http.MethodGet, "/api/balance", token(t, s.alice), "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", body["code"])
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, 100, nil)

	status, _ := s.do(t, http.MethodGet, "/api/balance", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/balance", "garbage", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	forged, err := utils.SignToken("other-secret", models.UserClaims{UserID: s.alice.ID, Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	status, _ = s.do(t, http.MethodGet, "/api/admin/network-graph", forged, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestNetworkGraph(t *testing.T) {
	s := newTestServer(t, 100, nil)
	tok := token(t, s.alice)
	s.do(t, http.MethodPost, "/api/accounts", tok, "")
	s.do(t, http.MethodPost, "/api/transactions", tok, `{"amount":"1000","type":"TRANSFER","description":"Transfer to Ops: fee"}`)

	status, _ := s.do(t, http.MethodGet, "/api/admin/network-graph", tok, "")
	assert.Equal(t, fiber.StatusForbidden, status)

	adminTok := token(t, s.admin)
	status, body := s.do(t, http.MethodGet, "/api/admin/network-graph", adminTok, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["nodes"], 2)
	assert.Len(t, body["edges"], 1)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, 1.0, summary["resolved_transactions"])

	status, body = s.do(t, http.MethodGet, "/api/admin/network-graph?since=yesterday", adminTok, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "since", body["field"])

	status, _ = s.do(t, http.MethodGet, "/api/admin/network-graph?limit=-3", adminTok, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestTransactionRateLimit(t *testing.T) {
	s := newTestServer(t, 2, nil)
	tok := token(t, s.alice)
	s.do(t, http.MethodPost, "/api/accounts", tok, "")

	for i := 0; i < 2; i++ {
		status, _ := s.do(t, http.MethodPost, "/api/transactions", tok, `{"amount":"1","type":"INCOME","description":"tip"}`)
		require.Equal(t, fiber.StatusCreated, status)
	}
	status, _ := s.do(t, http.MethodPost, "/api/transactions", tok, `{"amount":"1","type":"INCOME","description":"tip"}`)
	assert.Equal(t, fiber.StatusTooManyRequests, status)

	// reads are not limited
	status, _ = s.do(t, http.MethodGet, "/api/balance", tok, "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 100, map[string]handlers.Check{
		"database": func(context.Context) error { return nil },
	})
	status, body := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	s = newTestServer(t, 100, map[string]handlers.Check{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
	})
	status, body = s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"database": "connected", "redis": "unavailable"}, body["services"])
}
