package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/clubhouse/internal/app/store/docstore/memdoc"
	"github.com/dalemusser/clubhouse/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func memoryConfig() AppConfig {
	return AppConfig{
		Backend:          BackendMemory,
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "clubhouse",
		MongoMaxPoolSize: 10,
		MongoMinPoolSize: 1,
		SessionKey:       "bootstrap-test-secret",
		SessionName:      "clubhouse-session",
		LockTTL:          10 * time.Second,
		EnableSampleData: true,
	}
}

func TestValidateConfig(t *testing.T) {
	dev := &config.CoreConfig{Env: "dev"}
	prod := &config.CoreConfig{Env: "prod"}

	tests := []struct {
		name    string
		core    *config.CoreConfig
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"memory ok", dev, func(*AppConfig) {}, false},
		{"mongo ok", dev, func(c *AppConfig) { c.Backend = BackendMongo }, false},
		{"unknown backend", dev, func(c *AppConfig) { c.Backend = "sqlite" }, true},
		{"pool sizes inverted", dev, func(c *AppConfig) { c.MongoMinPoolSize = 50 }, true},
		{"zero lock ttl", dev, func(c *AppConfig) { c.LockTTL = 0 }, true},
		{"negative reconcile interval", dev, func(c *AppConfig) { c.ReconcileInterval = -time.Second }, true},
		{"dev session key in prod", prod, func(c *AppConfig) { c.SessionKey = devSessionKey }, true},
		{"dev session key in dev", dev, func(c *AppConfig) { c.SessionKey = devSessionKey }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(tt.core, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConnectDB_Memory(t *testing.T) {
	deps, err := ConnectDB(context.Background(), &config.CoreConfig{Env: "dev"}, memoryConfig(), testLogger())
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	if _, ok := deps.Store.(*memdoc.Store); !ok {
		t.Errorf("Store = %T, want *memdoc.Store", deps.Store)
	}
	if deps.MongoClient != nil || deps.Redis != nil {
		t.Error("memory backend should not open mongo or redis clients")
	}
	if err := EnsureSchema(context.Background(), nil, memoryConfig(), deps, testLogger()); err != nil {
		t.Errorf("EnsureSchema on memory backend: %v", err)
	}
}

func TestEnsureSchema_Mongo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoDatabase: db}
	for i := 0; i < 2; i++ {
		if err := EnsureSchema(ctx, nil, AppConfig{}, deps, testLogger()); err != nil {
			t.Fatalf("EnsureSchema pass %d: %v", i+1, err)
		}
	}
}

func newServer(t *testing.T, cfg AppConfig, env string) *httptest.Server {
	t.Helper()
	core := &config.CoreConfig{Env: env}
	deps := DBDeps{Store: memdoc.New()}
	if err := Startup(context.Background(), core, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	t.Cleanup(func() { _ = Shutdown(context.Background(), core, cfg, deps, testLogger()) })

	h, err := BuildHandler(core, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequest(method, url, nil)
	} else {
		req, err = http.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestBuildHandler_Routes(t *testing.T) {
	srv := newServer(t, memoryConfig(), "dev")

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/clubs", "", http.StatusOK},
		{http.MethodGet, "/api/students", "", http.StatusOK},
		{http.MethodGet, "/api/flash", "", http.StatusOK},
		{http.MethodGet, "/api/clubs/missing", "", http.StatusNotFound},
		{http.MethodGet, "/api/clubs/missing/members", "", http.StatusNotFound},
		{http.MethodGet, "/api/students/missing/clubs", "", http.StatusNotFound},
		{http.MethodPost, "/api/sample-data", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := do(t, tt.method, srv.URL+tt.path, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestBuildHandler_SampleDataDisabled(t *testing.T) {
	cfg := memoryConfig()
	cfg.EnableSampleData = false
	srv := newServer(t, cfg, "dev")

	resp := do(t, http.MethodPost, srv.URL+"/api/sample-data", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestBuildHandler_WriteRateLimit(t *testing.T) {
	cfg := memoryConfig()
	cfg.WriteRateLimit = 1
	srv := newServer(t, cfg, "dev")

	first := do(t, http.MethodPost, srv.URL+"/api/clubs", `{"name":"Chess Club"}`)
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("first POST status = %d", first.StatusCode)
	}
	second := do(t, http.MethodPost, srv.URL+"/api/clubs", `{"name":"Drama Club"}`)
	if second.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second POST status = %d, want %d", second.StatusCode, http.StatusTooManyRequests)
	}
	if got := do(t, http.MethodGet, srv.URL+"/api/clubs", ""); got.StatusCode != http.StatusOK {
		t.Errorf("GET status = %d", got.StatusCode)
	}
}

func postFrom(t *testing.T, url, forwardedFor, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestBuildHandler_WriteRateLimitIgnoresForwardedFor(t *testing.T) {
	cfg := memoryConfig()
	cfg.WriteRateLimit = 1
	srv := newServer(t, cfg, "dev")

	if got := postFrom(t, srv.URL+"/api/clubs", "10.0.0.1", `{"name":"Chess Club"}`); got != http.StatusCreated {
		t.Fatalf("first POST status = %d", got)
	}
	if got := postFrom(t, srv.URL+"/api/clubs", "10.0.0.2", `{"name":"Drama Club"}`); got != http.StatusTooManyRequests {
		t.Errorf("POST with a new X-Forwarded-For status = %d, want %d", got, http.StatusTooManyRequests)
	}
}

func TestBuildHandler_WriteRateLimitTrustedProxy(t *testing.T) {
	cfg := memoryConfig()
	cfg.WriteRateLimit = 1
	cfg.TrustProxyHeaders = true
	srv := newServer(t, cfg, "dev")

	if got := postFrom(t, srv.URL+"/api/clubs", "10.0.0.1", `{"name":"Chess Club"}`); got != http.StatusCreated {
		t.Fatalf("first POST status = %d", got)
	}
	if got := postFrom(t, srv.URL+"/api/clubs", "10.0.0.1", `{"name":"Drama Club"}`); got != http.StatusTooManyRequests {
		t.Errorf("second POST from 10.0.0.1 status = %d, want %d", got, http.StatusTooManyRequests)
	}
	if got := postFrom(t, srv.URL+"/api/clubs", "10.0.0.2", `{"name":"Robotics Club"}`); got != http.StatusCreated {
		t.Errorf("POST from 10.0.0.2 status = %d, want %d", got, http.StatusCreated)
	}
}

func TestStartup_StartsAndStopsWorker(t *testing.T) {
	cfg := memoryConfig()
	cfg.ReconcileInterval = time.Hour
	core := &config.CoreConfig{Env: "dev"}
	deps := DBDeps{Store: memdoc.New()}

	if err := Startup(context.Background(), core, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	if running == nil || running.Worker == nil {
		t.Fatal("expected a reconcile worker")
	}
	if err := Shutdown(context.Background(), core, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if running != nil {
		t.Error("Shutdown should clear running services")
	}
}
