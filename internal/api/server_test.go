package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/intrinsic/internal/api/middleware"
	"github.com/newthinker/intrinsic/internal/app"
	"github.com/newthinker/intrinsic/internal/core"
	"github.com/newthinker/intrinsic/internal/metrics"
	"github.com/newthinker/intrinsic/internal/storage/archive"
)

type stubApp struct{}

func (stubApp) Search(ctx context.Context, input string) (core.StockIdentity, error) {
	return core.StockIdentity{Code: "600519", Name: "贵州茅台"}, nil
}

func (stubApp) Valuate(ctx context.Context, req app.ValuationRequest) (*app.Valuation, error) {
	return &app.Valuation{Result: core.ValuationResult{StockCode: req.Code, Parameters: req.Parameters}}, nil
}

func (stubApp) MarketData(ctx context.Context, code string) (*core.Quote, error) {
	return &core.Quote{Code: code, Price: 10}, nil
}

func (stubApp) History(ctx context.Context, code string) ([]archive.Report, error) {
	return []archive.Report{}, nil
}

func (stubApp) Defaults() core.ValuationParameters {
	return core.DefaultValuationParameters()
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	srv, err := NewServer(cfg, Dependencies{App: stubApp{}, Metrics: metrics.NewRegistry()}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost", APIKey: "test-key"})

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, Config{APIKey: "test-key"})

	// one request so the HTTP counters have a sample
	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/health", nil))

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Error("expected http_requests_total in metrics output")
	}
}

func TestServer_APIAuth_Required(t *testing.T) {
	srv := newTestServer(t, Config{APIKey: "test-key"})

	req := httptest.NewRequest("GET", "/stock/market-data/600519", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", w.Code)
	}
}

func TestServer_APIAuth_ValidKey(t *testing.T) {
	srv := newTestServer(t, Config{APIKey: "test-key"})

	req := httptest.NewRequest("GET", "/stock/market-data/600519", nil)
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with key, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"stock_code":"600519"`) {
		t.Errorf("path value not passed through: %s", w.Body.String())
	}
}

func TestServer_APIAuth_BearerToken(t *testing.T) {
	srv := newTestServer(t, Config{JWTSecret: "s3cret"})
	token, err := middleware.NewToken("s3cret", "alice", time.Hour, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/stock/valuation", bytes.NewBufferString(`{"stock_code":"600519"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestServer_APIAuth_Disabled(t *testing.T) {
	srv := newTestServer(t, Config{})

	req := httptest.NewRequest("POST", "/stock/search", bytes.NewBufferString(`{"stock_input":"茅台"}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with disabled auth, got %d", w.Code)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, Config{})

	req := httptest.NewRequest("GET", "/stock/valuation", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestServer_History(t *testing.T) {
	srv := newTestServer(t, Config{})

	req := httptest.NewRequest("GET", "/stock/valuations/600519", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestNewServer_RequiresApp(t *testing.T) {
	if _, err := NewServer(Config{}, Dependencies{}, zap.NewNop()); err == nil {
		t.Error("expected error without app")
	}
}
