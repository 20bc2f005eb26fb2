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
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/forgebay/go-build-backend/internal/config"
	"github.com/forgebay/go-build-backend/internal/domain"
	"github.com/forgebay/go-build-backend/internal/http/handlers"
	"github.com/forgebay/go-build-backend/internal/http/middleware"
	"github.com/forgebay/go-build-backend/internal/repo"
	"github.com/forgebay/go-build-backend/internal/services"
)

// recordRepoShim adapts the repository free functions to the
// services.RecordRepo interface expected by the StoreService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type recordRepoShim struct{}

// GetRecord proxies repo.GetRecord.
func (recordRepoShim) GetRecord(ctx context.Context, db *gorm.DB, ns, key string) (*domain.Record, error) {
	return repo.GetRecord(ctx, db, ns, key)
}

// PutRecord proxies repo.PutRecord.
func (recordRepoShim) PutRecord(ctx context.Context, db *gorm.DB, ns, key, value string) (*domain.Record, error) {
	return repo.PutRecord(ctx, db, ns, key, value)
}

// DeleteRecord proxies repo.DeleteRecord.
func (recordRepoShim) DeleteRecord(ctx context.Context, db *gorm.DB, ns, key string) (bool, error) {
	return repo.DeleteRecord(ctx, db, ns, key)
}

// ListRecords proxies repo.ListRecords.
func (recordRepoShim) ListRecords(ctx context.Context, db *gorm.DB, ns string) ([]domain.Record, error) {
	return repo.ListRecords(ctx, db, ns)
}

// ListRecordsByPrefix proxies repo.ListRecordsByPrefix.
func (recordRepoShim) ListRecordsByPrefix(ctx context.Context, db *gorm.DB, ns, prefix string) ([]domain.Record, error) {
	return repo.ListRecordsByPrefix(ctx, db, ns, prefix)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, compression, CORS and security headers, health and metrics
// endpoints, and then mounts the public API under the configured base path.
//
// builder runs web build submissions through the pipeline; pass nil to mount
// the data plane and gallery without the build intake (poller-only deploys).
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with secret scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression (metrics excluded)
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per client IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, builder handlers.BuildService, cfg config.Config, log zerolog.Logger) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-Build-Token",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Compress responses; /metrics stays uncompressed for scrapers
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Dependency injection: services ← repo/db
	storeSvc := services.NewStoreService(db, recordRepoShim{})
	if cfg.MaxValueBytes > 0 {
		storeSvc.MaxValueBytes = cfg.MaxValueBytes
	}
	showcaseSvc := services.NewShowcaseService(storeSvc, log)

	// 8) Idempotency validation (before rate limiting). A key that matches a
	// ledger entry marks the request as a replay so it can skip the limiter.
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, key string, now time.Time) (bool, error) {
			_, err := storeSvc.Get(ctx, domain.NamespaceBuilds, key)
			if err != nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
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
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Build-Token", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
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
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Build-Token", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
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

	h := handlers.New(storeSvc, showcaseSvc, builder, cfg.Pipeline.WebBuildToken)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api"
	api := groupWithPrefix(r, apiBase)
	{
		// Data plane
		api.GET("/data/:ns", h.ListData)
		api.GET("/data/:ns/:key", h.GetValue)
		api.PUT("/data/:ns/:key", h.PutValue)
		api.DELETE("/data/:ns/:key", h.DeleteValue)

		// Showcase gallery
		api.GET("/builds", h.ListBuilds)
		api.GET("/builds/:id", h.GetBuild)

		// Web build intake
		if builder != nil {
			api.POST("/build", h.SubmitBuild)
		}
	}
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
