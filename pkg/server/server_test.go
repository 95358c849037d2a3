package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/adfharrison1/go-tours/pkg/config"
	"github.com/adfharrison1/go-tours/pkg/content"
)

const testPassword = "s3cret"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	return &config.Config{
		Server: config.ServerConfig{
			Addr:            "127.0.0.1:0",
			BaseURL:         "http://tours.test",
			ShutdownTimeout: 5 * time.Second,
			Metrics:         true,
		},
		Storage: config.StorageConfig{
			DataDir: t.TempDir(),
			Journal: true,
		},
		Admin: config.AdminConfig{
			Username:     "admin",
			PasswordHash: string(hash),
			SessionTTL:   time.Hour,
			LoginRate:    5,
			LoginBurst:   5,
			MaxUploadMB:  1,
		},
		Site: config.SiteConfig{CacheSize: 16},
		Log:  config.LogConfig{Level: "info"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, s.InitDB())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func serve(s *Server, method, target string, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	basicAuth := func(r *http.Request) { r.SetBasicAuth("admin", testPassword) }

	tests := []struct {
		name     string
		method   string
		target   string
		setup    func(*http.Request)
		status   int
		location string
	}{
		{"health", "GET", "/health", nil, http.StatusOK, ""},
		{"home", "GET", "/", nil, http.StatusOK, ""},
		{"tours", "GET", "/tours", nil, http.StatusOK, ""},
		{"robots", "GET", "/robots.txt", nil, http.StatusOK, ""},
		{"admin needs login", "GET", "/admin", nil, http.StatusSeeOther, "/admin/login"},
		{"login page", "GET", "/admin/login", nil, http.StatusOK, ""},
		{"api needs auth", "GET", "/admin/api/kinds", nil, http.StatusUnauthorized, ""},
		{"api with basic auth", "GET", "/admin/api/kinds", basicAuth, http.StatusOK, ""},
		{"api list", "GET", "/admin/api/tour", basicAuth, http.StatusOK, ""},
		{"unknown page", "GET", "/nowhere", nil, http.StatusNotFound, ""},
		{"unknown tour", "GET", "/tours/nope", nil, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, tt.method, tt.target, tt.setup)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.location != "" {
				assert.Equal(t, tt.location, w.Header().Get("Location"))
			}
		})
	}
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	kind, _ := content.Lookup(content.KindFAQ)
	_, err := s.Store().Create(kind, map[string]interface{}{"question": "Visa?", "answer": "Yes"})
	require.NoError(t, err)

	w := serve(s, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, len(content.Kinds()), health.Collections)
	assert.Equal(t, int64(1), health.Documents)
	assert.Positive(t, health.LSN)
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	serve(s, "GET", "/tours/one", nil)
	serve(s, "GET", "/tours/two", nil)

	assert.Equal(t, float64(2), testutil.ToFloat64(
		s.metrics.RequestsTotal.WithLabelValues("GET", "/tours/{slug}", "404")),
		"slugs collapse into the route template")

	w := serve(s, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	for _, name := range []string{
		"gotours_http_requests_total",
		"gotours_page_cache_misses_total",
		"gotours_admin_sessions",
		"gotours_documents",
		"gotours_info",
		"go_goroutines",
	} {
		assert.Contains(t, body, name)
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Metrics = false
	s := newTestServer(t, cfg)

	assert.Nil(t, s.metrics)
	assert.Equal(t, http.StatusNotFound, serve(s, "GET", "/metrics", nil).Code)
	assert.Equal(t, http.StatusOK, serve(s, "GET", "/health", nil).Code)
}

func TestServer_RecoversPanics(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	s.router.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	w := serve(s, "GET", "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.PanicsTotal))

	assert.Equal(t, http.StatusOK, serve(s, "GET", "/health", nil).Code, "server keeps serving")
}

func TestServer_ServePersistsOnShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t)
	s, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, s.InitDB())

	tours, _ := content.Lookup(content.KindTour)
	_, err = s.Store().Create(tours, map[string]interface{}{
		"title": "Gorilla trek", "summary": "An hour with the gorillas", "duration_days": 3, "published": true,
	})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + ln.Addr().String() + "/tours/gorilla-trek")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}

	restarted := newTestServer(t, cfg)
	doc, err := restarted.Store().BySlug(tours, "gorilla-trek", true)
	require.NoError(t, err)
	assert.Equal(t, "Gorilla trek", doc["title"])
}

func TestServer_RunRejectsBadAddress(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Addr = "256.0.0.1:80"
	s := newTestServer(t, cfg)

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to listen"))
}

func TestStorageOptions_BackgroundSave(t *testing.T) {
	cfg := testConfig(t)
	assert.Len(t, StorageOptions(cfg.Storage, zap.NewNop()), 5)

	cfg.Storage.BackgroundSave = time.Minute
	assert.Len(t, StorageOptions(cfg.Storage, zap.NewNop()), 6)
}
