// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/cptec/go-academy-backend/internal/config"
	"github.com/cptec/go-academy-backend/internal/domain"
	"github.com/cptec/go-academy-backend/internal/http/handlers"
	"github.com/cptec/go-academy-backend/internal/http/middleware"
	"github.com/cptec/go-academy-backend/internal/presenter"
	"github.com/cptec/go-academy-backend/internal/repo"
	"github.com/cptec/go-academy-backend/internal/services"
	"github.com/cptec/go-academy-backend/internal/validation"
)

// submissionRepoShim adapts the repository free functions to the
// services.SubmissionRepo interface expected by the SubmissionService. This
// keeps services decoupled from the concrete repo package while reusing
// existing functions.
type submissionRepoShim struct{}

// CreateSubmission proxies repo.CreateSubmission.
func (submissionRepoShim) CreateSubmission(ctx context.Context, db *gorm.DB, s *domain.Submission) error {
	return repo.CreateSubmission(ctx, db, s)
}

// GetSubmission proxies repo.GetSubmission.
func (submissionRepoShim) GetSubmission(ctx context.Context, db *gorm.DB, id string) (*domain.Submission, error) {
	return repo.GetSubmission(ctx, db, id)
}

// CountSubmissions proxies repo.CountSubmissions (pagination support).
func (submissionRepoShim) CountSubmissions(ctx context.Context, db *gorm.DB, f repo.SubmissionFilter) (int64, error) {
	return repo.CountSubmissions(ctx, db, f)
}

// ListSubmissionsPage proxies repo.ListSubmissionsPage (pagination support).
func (submissionRepoShim) ListSubmissionsPage(ctx context.Context, db *gorm.DB, f repo.SubmissionFilter, offset, limit int) ([]domain.Submission, error) {
	return repo.ListSubmissionsPage(ctx, db, f, offset, limit)
}

// ListSubmissions proxies repo.ListSubmissions (CSV export).
func (submissionRepoShim) ListSubmissions(ctx context.Context, db *gorm.DB, f repo.SubmissionFilter) ([]domain.Submission, error) {
	return repo.ListSubmissions(ctx, db, f)
}

// DeleteSubmission proxies repo.DeleteSubmission.
func (submissionRepoShim) DeleteSubmission(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteSubmission(ctx, db, id)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health/metrics endpoints, the media
// file server, and then mounts the versioned API under cfg.APIBasePath plus
// the unauthenticated certificate share page.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression (skipping /metrics)
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per client IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (the contact form carries PII)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			middleware.HeaderIdempotencyKey,
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Response compression; Prometheus scrapes stay uncompressed
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, repo.ScopeSubmissions, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Uploaded certificate photos
	r.Static("/media", cfg.MediaDir)

	// Swagger UI (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/validator
	v := validation.New()
	subSvc := services.NewSubmissionService(db, submissionRepoShim{}, v)
	subSvc.IdempotencyTTL = cfg.IdempotencyTTL
	certSvc := services.NewCertificationService(db, v)
	h := handlers.New(subSvc, certSvc, cfg.PublicBaseURL)

	// Versioned API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Submissions
		api.POST("/submissions", h.CreateSubmission)
		api.GET("/submissions", h.ListSubmissions)
		api.GET("/submissions/export", h.ExportSubmissions)
		api.GET("/submissions/:id", h.GetSubmission)
		api.DELETE("/submissions/:id", h.DeleteSubmission)

		// Certifications
		api.POST("/certifications", h.CreateCertification)
		api.GET("/certifications", h.ListCertifications)
		api.GET("/certifications/link/:unique_link", h.GetCertificationByLink)
		api.GET("/certifications/codigo/:codigo", h.GetCertificationByCodigo)
		api.GET("/certifications/:id", h.GetCertification)
		api.PUT("/certifications/:id", h.UpdateCertification)
		api.DELETE("/certifications/:id", h.DeleteCertification)
	}

	// Unauthenticated share page behind an issued unique link
	r.GET(presenter.PublicViewPath+":unique_link", h.ViewCertificate)
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
