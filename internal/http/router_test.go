package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cptec/go-academy-backend/internal/config"
	"github.com/cptec/go-academy-backend/internal/repo"
)

func newRouter(t *testing.T, mutate func(*config.Config)) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "router_test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	cfg := config.Config{
		Port:           "8080",
		APIBasePath:    "/api/v1",
		DBPath:         "unused",
		MediaDir:       t.TempDir(),
		RateRPS:        100,
		RateBurst:      100,
		IdempotencyTTL: time.Hour,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	r := gin.New()
	RegisterRoutes(r, db, cfg)
	return r, db
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r, _ := newRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("request id header missing")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("metrics: %d", w.Code)
	}
}

func TestRouter_FallbackEnvelopes(t *testing.T) {
	r, _ := newRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("no route: %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != "not_found" {
		t.Fatalf("no-route envelope: %v", body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/v1/submissions", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("no method: %d", w.Code)
	}
}

func TestRouter_SubmissionFlow(t *testing.T) {
	r, _ := newRouter(t, nil)

	payload := map[string]any{
		"name":    "Maria Silva",
		"email":   "maria@example.com",
		"phone":   "+258 84 123 4567",
		"service": "Consultoria",
		"message": "Gostaria de mais informações.",
		"consent": true,
	}
	raw, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "router-key-1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create through full stack: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.Data.ID == "" {
		t.Fatalf("envelope: %v %s", err, w.Body.String())
	}

	// Same key again: middleware detects the stored record, handler replays.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/submissions", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "router-key-1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("replay: %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), created.Data.ID) {
		t.Fatalf("replay should return the original submission: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/submissions", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), created.Data.ID) {
		t.Fatalf("list: %d", w.Code)
	}
}

func TestRouter_CORSAllowAllDefault(t *testing.T) {
	r, _ := newRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("ACAO = %q, want *", got)
	}
}

func TestRouter_CORSAllowlist(t *testing.T) {
	r, _ := newRouter(t, func(cfg *config.Config) {
		cfg.CORS.AllowedOrigins = []string{"https://www.cptec.co.mz"}
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://www.cptec.co.mz")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://www.cptec.co.mz" {
		t.Fatalf("ACAO = %q", got)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "https://evil.example.com" {
		t.Fatalf("disallowed origin echoed: %q", got)
	}
}

func TestRouter_SecurityHeadersPresent(t *testing.T) {
	r, _ := newRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers not applied")
	}
}

func TestRouter_PublicCertificateView(t *testing.T) {
	r, _ := newRouter(t, nil)

	payload := map[string]any{
		"nome_completo":  "João Macamo",
		"documento":      "110100123456A",
		"curso":          "Gestão de Projectos",
		"duracao":        "3 meses",
		"carga_horaria":  "120h",
		"data_conclusao": "2024-06-30",
		"ano":            "2024",
		"codigo":         "CPT-100",
	}
	raw, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/certifications", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		UniqueLink string `json:"unique_link"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.UniqueLink == "" {
		t.Fatalf("unique link missing: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/certificates/view/"+created.UniqueLink, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("public view: %d %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "110100123456A") {
		t.Fatalf("documento leaked on share page: %s", w.Body.String())
	}
}
