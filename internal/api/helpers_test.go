// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/safex/internal/alerts"
	"github.com/tomtom215/safex/internal/auth"
	"github.com/tomtom215/safex/internal/authz"
	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/models"
	"github.com/tomtom215/safex/internal/pubsub"
	"github.com/tomtom215/safex/internal/store"
	"github.com/tomtom215/safex/internal/store/badgerstore"
	"github.com/tomtom215/safex/internal/websocket"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

const (
	testSecret   = "this_is_a_very_long_secret_key_for_testing_purposes_12345"
	testAgentKey = "agent-key-0123456789"
	testPassword = "c0rrect-h0rse"
	testOrigin   = "https://console.example.com"
)

type testOptions struct {
	store      store.Store
	middleware *ChiMiddlewareConfig
}

type testAPI struct {
	srv        *httptest.Server
	tokens     *auth.TokenManager
	hub        *websocket.Hub
	bus        *pubsub.WatermillBus
	dispatcher *websocket.Dispatcher
}

// newTestAPI serves the full router over a Badger in-memory store and an
// in-process GoChannel bus with a running dispatcher.
func newTestAPI(t *testing.T, opts ...func(*testOptions)) *testAPI {
	t.Helper()

	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitDisabled = true
	mw.CORSAllowedOrigins = []string{testOrigin}
	o := testOptions{middleware: mw}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		st, err := badgerstore.Open(badgerstore.Options{InMemory: true})
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		o.store = st
	}

	tokens, err := auth.NewTokenManager(auth.TokenManagerConfig{
		Secret: testSecret,
		Issuer: "safex-test",
		TTL:    time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	authSvc, err := auth.NewService(o.store, tokens, auth.ServiceConfig{
		RefreshTTL:   24 * time.Hour,
		BcryptCost:   bcrypt.MinCost,
		RetryBackoff: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	bus := pubsub.NewGoChannelBus(64)
	t.Cleanup(func() { _ = bus.Close() })

	alertSvc, err := alerts.NewService(o.store, bus, auth.NewAgentAuthenticator([]string{testAgentKey}, tokens), alerts.ServiceConfig{
		RetryBackoff: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(enforcer.Close)

	hub := websocket.NewHub(websocket.HubConfig{BusConnected: bus.Connected})
	dispatcher := websocket.NewDispatcher(hub, bus, websocket.DispatcherConfig{})
	if err := dispatcher.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(dispatcher.Stop)

	handler, err := NewHandler(Dependencies{
		Auth:       authSvc,
		Alerts:     alertSvc,
		Hub:        hub,
		Enforcer:   enforcer,
		Store:      o.store,
		Bus:        bus,
		Dispatcher: dispatcher,
	}, HandlerConfig{
		AllowedOrigins: []string{testOrigin},
		RetryAfter:     3 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(NewRouter(handler, o.middleware).SetupChi())
	t.Cleanup(srv.Close)

	return &testAPI{srv: srv, tokens: tokens, hub: hub, bus: bus, dispatcher: dispatcher}
}

// envelope mirrors models.APIResponse with a raw data field.
type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *models.APIError `json:"error"`
}

type request struct {
	method  string
	path    string
	body    interface{}
	headers map[string]string
	bearer  string
}

func (api *testAPI) do(t *testing.T, req request) (*http.Response, envelope) {
	t.Helper()

	var body io.Reader
	switch b := req.body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequest(req.method, api.srv.URL+req.path, body)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.bearer)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("%s %s: %v", req.method, req.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode %s %s response %q: %v", req.method, req.path, raw, err)
		}
	}
	return resp, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, env envelope, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d (error %+v)", resp.StatusCode, want, env.Error)
	}
}

func expectError(t *testing.T, resp *http.Response, env envelope, status int, code string) {
	t.Helper()
	expectStatus(t, resp, env, status)
	if env.Success || env.Error == nil {
		t.Fatalf("envelope = %+v, want error %s", env, code)
	}
	if env.Error.Code != code {
		t.Errorf("error code = %q, want %q", env.Error.Code, code)
	}
	if env.Error.RequestID == "" || env.Error.RequestID != resp.Header.Get("X-Request-ID") {
		t.Errorf("error request_id = %q, header = %q", env.Error.RequestID, resp.Header.Get("X-Request-ID"))
	}
}

// register creates a user and returns its token pair.
func (api *testAPI) register(t *testing.T, email string) models.TokenPair {
	t.Helper()
	resp, env := api.do(t, request{method: http.MethodPost, path: "/api/v1/auth/register", body: map[string]string{
		"email":    email,
		"password": testPassword,
		"name":     "Test User",
	}})
	expectStatus(t, resp, env, http.StatusCreated)
	var pair models.TokenPair
	decodeData(t, env, &pair)
	return pair
}

// token mints an access token for role without a stored user.
func (api *testAPI) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, _, err := api.tokens.Generate(userID, role, "")
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

// createAlert posts an alert with the agent API key and returns its id.
func (api *testAPI) createAlert(t *testing.T, feedID string, severity models.Severity) string {
	t.Helper()
	resp, env := api.do(t, request{
		method:  http.MethodPost,
		path:    "/api/v1/alerts",
		headers: map[string]string{auth.APIKeyHeader: testAgentKey},
		body: map[string]interface{}{
			"feed_id":  feedID,
			"severity": severity,
			"payload":  map[string]interface{}{"zone": "loading-dock", "objects": 2},
		},
	})
	expectStatus(t, resp, env, http.StatusCreated)
	var created models.CreateAlertResponse
	decodeData(t, env, &created)
	if created.AlertID == "" {
		t.Fatal("empty alert_id")
	}
	return created.AlertID
}

func withStore(st store.Store) func(*testOptions) {
	return func(o *testOptions) { o.store = st }
}

func withMiddleware(cfg *ChiMiddlewareConfig) func(*testOptions) {
	return func(o *testOptions) { o.middleware = cfg }
}
