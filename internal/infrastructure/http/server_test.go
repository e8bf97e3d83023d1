package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/wekeepgrowing/custody-gateway/internal/config"
	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/custody-gateway/internal/infrastructure/crypto"
	"github.com/wekeepgrowing/custody-gateway/internal/infrastructure/database"
	"github.com/wekeepgrowing/custody-gateway/internal/usecase"
)

const internalSecret = "internal-test-secret"

type recordingNotifier struct {
	mu     sync.Mutex
	urls   []string
	events []entity.CompletionEvent
}

func (n *recordingNotifier) Notify(url string, event entity.CompletionEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
	n.events = append(n.events, event)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type testAPI struct {
	t        *testing.T
	server   *Server
	notifier *recordingNotifier
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := &config.Config{
		Service: config.ServiceConfig{
			Name:           "gateway",
			Network:        config.NetworkMainnet,
			InternalSecret: internalSecret,
			ClientURL:      "*",
		},
	}
	log := zap.NewNop()
	repos := database.NewMemoryRepositories()
	opts := usecase.Options{Network: cfg.Service.Network}
	notifier := &recordingNotifier{}

	server := NewServer(cfg, log, repos, Usecases{
		Provisioning: usecase.NewProvisioningUsecase(repos.Account, crypto.NewBcryptHasher(bcrypt.MinCost), crypto.NewTokenGenerator(), opts, log),
		Accounts:     usecase.NewAccountUsecase(repos.Account, opts, log),
		Payments:     usecase.NewPaymentUsecase(repos.Payment, repos.Account, notifier, time.Hour, opts, log),
	})
	return &testAPI{t: t, server: server, notifier: notifier}
}

func (a *testAPI) do(method, path string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func mediator() map[string]string {
	return map[string]string{"X-Internal-Secret": internalSecret}
}

func (a *testAPI) register(identity, password string) string {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/api/account", map[string]string{"publicKey": identity, "password": password}, nil)
	require.Contains(a.t, []int{http.StatusCreated, http.StatusOK}, status)
	return body["apiKey"].(string)
}

func TestProvisioningEndpoint(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(http.MethodPost, "/api/account", map[string]string{"publicKey": "A1", "password": "password123"}, nil)
	require.Equal(t, http.StatusCreated, status)
	token := body["apiKey"].(string)
	assert.Len(t, token, 64)
	assert.Equal(t, "A1", body["publicKey"])
	assert.Nil(t, body["custodialAddress"])

	status, body = api.do(http.MethodPost, "/api/account", map[string]string{"publicKey": "A1", "password": "password123"}, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, token, body["apiKey"])

	status, body = api.do(http.MethodPost, "/api/account", map[string]string{"publicKey": "A1", "password": "wrong-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIAL", body["code"])

	status, body = api.do(http.MethodPost, "/api/account", map[string]string{"publicKey": "A2", "password": "short"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	details := body["details"].([]interface{})
	require.Len(t, details, 1)
	assert.Equal(t, "password", details[0].(map[string]interface{})["field"])
}

func TestAccountEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("alice", "correct-horse")

	status, body := api.do(http.MethodGet, "/api/account", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_API_KEY", body["code"])

	status, body = api.do(http.MethodGet, "/api/account", nil, bearer("not-a-token"))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_API_KEY", body["code"])

	status, body = api.do(http.MethodGet, "/api/account", nil, bearer(token))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["publicKey"])
	assert.Equal(t, "mainnet", body["network"])
	assert.Nil(t, body["custodialAddress"])
	assert.NotContains(t, body, "secretDigest")

	status, body = api.do(http.MethodPost, "/api/webhooks", map[string]string{"url": "http://insecure.example/hook"}, bearer(token))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	status, body = api.do(http.MethodPost, "/api/webhooks", map[string]string{"url": "https://merchant.example/hook"}, bearer(token))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://merchant.example/hook", body["webhookUrl"])

	status, body = api.do(http.MethodPost, "/api/internal/balance-update", map[string]interface{}{"publicKey": "alice", "balance": 12.5}, mediator())
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = api.do(http.MethodGet, "/api/balance", nil, bearer(token))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "12.5", body["balance"])
	assert.Equal(t, "XMR", body["currency"])

	status, body = api.do(http.MethodPost, "/api/internal/balance-update", map[string]interface{}{"publicKey": "alice", "balance": -1}, mediator())
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestInternalSecretIsRequired(t *testing.T) {
	api := newTestAPI(t)

	for _, headers := range []map[string]string{nil, {"X-Internal-Secret": "guess"}} {
		status, body := api.do(http.MethodGet, "/api/internal/accounts/awaiting-custody", nil, headers)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "INVALID_INTERNAL_SECRET", body["code"])
	}

	token := api.register("alice", "correct-horse")
	status, _ := api.do(http.MethodGet, "/api/internal/accounts/awaiting-custody", nil, bearer(token))
	assert.Equal(t, http.StatusForbidden, status, "account tokens do not open the internal api")
}

func TestPaymentFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("alice", "correct-horse")

	status, body := api.do(http.MethodPost, "/api/payments", map[string]int{"amount": 1000}, bearer(token))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "NO_CUSTODY_ASSIGNED", body["code"])

	status, body = api.do(http.MethodGet, "/api/internal/accounts/awaiting-custody?limit=10", nil, mediator())
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["accounts"], 1)

	status, body = api.do(http.MethodPost, "/api/internal/assign-custody", map[string]string{"publicKey": "alice", "custodyReference": "custody-1"}, mediator())
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "custody-1", body["account"].(map[string]interface{})["custodialAddress"])

	status, body = api.do(http.MethodPost, "/api/internal/assign-custody", map[string]string{"publicKey": "alice", "custodyReference": "custody-2"}, mediator())
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_ASSIGNED", body["code"])

	status, body = api.do(http.MethodPost, "/api/payments", map[string]int{"amount": 0}, bearer(token))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	status, body = api.do(http.MethodPost, "/api/payments", map[string]int{"amount": 1000}, bearer(token))
	require.Equal(t, http.StatusCreated, status)
	id := body["id"].(string)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, float64(1000), body["amount"])

	status, body = api.do(http.MethodGet, "/api/payments/"+id+"/address", nil, bearer(token))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_GENERATED", body["code"])

	status, body = api.do(http.MethodGet, "/api/internal/payments/awaiting-address", nil, mediator())
	require.Equal(t, http.StatusOK, status)
	waiting := body["payments"].([]interface{})
	require.Len(t, waiting, 1)
	assert.Equal(t, id, waiting[0].(map[string]interface{})["paymentId"])

	status, _ = api.do(http.MethodPost, "/api/internal/payment-update", map[string]string{"paymentId": id, "address": "addr-1"}, mediator())
	require.Equal(t, http.StatusOK, status)

	status, body = api.do(http.MethodGet, "/api/payments/"+id+"/address", nil, bearer(token))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "addr-1", body["address"])
	assert.Equal(t, id, body["paymentId"])

	status, body = api.do(http.MethodPost, "/api/internal/payment-update", map[string]string{"paymentId": id, "address": "addr-2"}, mediator())
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ADDRESS_CONFLICT", body["code"])

	status, body = api.do(http.MethodPost, "/api/internal/payment-update", map[string]string{"paymentId": id, "status": "completed"}, mediator())
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INCOMPLETE_COMPLETION", body["code"])

	status, _ = api.do(http.MethodPost, "/api/webhooks", map[string]string{"url": "https://merchant.example/hook"}, bearer(token))
	require.Equal(t, http.StatusOK, status)

	completion := map[string]string{"paymentId": id, "status": "completed", "transactionHash": "tx-1"}
	status, body = api.do(http.MethodPost, "/api/internal/payment-update", completion, mediator())
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", body["payment"].(map[string]interface{})["status"])

	status, _ = api.do(http.MethodPost, "/api/internal/payment-update", completion, mediator())
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, api.notifier.count())
	assert.Equal(t, "https://merchant.example/hook", api.notifier.urls[0])
	assert.Equal(t, "tx-1", api.notifier.events[0].SettlementProof)

	status, body = api.do(http.MethodPost, "/api/internal/payment-update", map[string]string{"paymentId": id, "status": "failed"}, mediator())
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", body["payment"].(map[string]interface{})["status"])

	status, body = api.do(http.MethodPost, "/api/internal/payment-update", map[string]string{"paymentId": id, "status": "failed", "transactionHash": "tx-2"}, mediator())
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", body["code"])
	assert.Equal(t, 1, api.notifier.count())

	status, body = api.do(http.MethodGet, "/api/payments/"+id, nil, bearer(token))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "tx-1", body["transactionHash"])
	assert.NotNil(t, body["completedAt"])

	status, body = api.do(http.MethodGet, "/api/payments?limit=5", nil, bearer(token))
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	other := api.register("mallory", "correct-horse")
	status, body = api.do(http.MethodGet, "/api/payments/"+id, nil, bearer(other))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestMediatorPaymentCreate(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("alice", "correct-horse")
	status, _ := api.do(http.MethodPost, "/api/internal/assign-custody", map[string]string{"publicKey": "alice", "custodyReference": "custody-1"}, mediator())
	require.Equal(t, http.StatusOK, status)

	const id = "0b6f5a4e-1c2d-4e5f-8a9b-0c1d2e3f4a5b"
	req := map[string]interface{}{"paymentId": id, "publicKey": "alice", "amount": 250, "address": "addr-9"}

	status, body := api.do(http.MethodPost, "/api/internal/payment-create", req, mediator())
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, id, body["id"])

	status, body = api.do(http.MethodPost, "/api/internal/payment-create", req, mediator())
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_PAYMENT", body["code"])

	status, body = api.do(http.MethodPost, "/api/internal/payment-create", map[string]interface{}{"paymentId": "nope", "publicKey": "alice", "amount": 1}, mediator())
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	status, body = api.do(http.MethodGet, "/api/payments/"+id+"/address", nil, bearer(token))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "addr-9", body["address"])
}

func TestOperationalEndpoints(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	api.register("alice", "correct-horse")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	api.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Body.String(), "gateway_requests_total")

	status, body = api.do(http.MethodGet, "/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}
