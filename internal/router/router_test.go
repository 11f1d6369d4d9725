package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/clubsite/internal/config"
	"github.com/clubsite/internal/handler"
	"github.com/gin-gonic/gin"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.AppConfig{
		SessionSecret:   "test-secret",
		ContentFile:     filepath.Join(t.TempDir(), "site.json"),
		ContentCacheTTL: time.Minute,
	}
	return New(handler.NewAPI(nil, cfg), cfg.SessionSecret)
}

func TestPing(t *testing.T) {
	r := newTestEngine(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestEditRoutesFailClosedWithoutGateConfig(t *testing.T) {
	r := newTestEngine(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/edit/commit"},
		{http.MethodGet, "/api/edit/file?filePath=content/home.json"},
		{http.MethodPost, "/api/edit/mode"},
		{http.MethodGet, "/api/edit/session"},
		{http.MethodGet, "/api/edit/history"},
		{http.MethodPost, "/api/feed/refresh"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(route.method, route.path, nil)
			req.Header.Set("Authorization", "Bearer not-a-token")
			r.ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
		})
	}
}

func TestContentRouteServesDefaults(t *testing.T) {
	r := newTestEngine(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/content", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("X-Content-Source"); got != "defaults" {
		t.Fatalf("expected defaults source, got %q", got)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("failed to decode content: %v", err)
	}
	for _, key := range []string{"hero", "aboutClub", "stats", "partners", "kontaktPage", "partnersPage", "theme"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("expected key %q in content document", key)
		}
	}
}
