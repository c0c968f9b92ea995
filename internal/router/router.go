package router

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/campaign"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/user"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers for a JSON API.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("Cache-Control", "no-store")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none';")
			}
			// HSTS only makes sense over TLS.
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware allows cross-origin calls from origins. An empty list allows any origin.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: len(origins) > 0,
		MaxAge:           600,
	})
	return c.Handler
}

// Deps are the handlers and collaborators the routes are mounted on.
type Deps struct {
	Users          *user.Handler
	Campaigns      *campaign.Handler
	Gate           *auth.Gate
	AllowedOrigins []string
	// Ping reports store health for /health. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if d.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ping(ctx); err != nil {
				logger.Warnw("health check failed", "err", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	gated := d.Gate.Middleware

	// user routes
	mux.HandleFunc("POST /users/signup", d.Users.Signup)
	mux.HandleFunc("POST /users/signin", d.Users.Signin)
	mux.Handle("GET /users/me", gated(http.HandlerFunc(d.Users.Me)))
	mux.Handle("POST /users/signout", gated(http.HandlerFunc(d.Users.Signout)))
	mux.Handle("GET /user/campaigns", gated(http.HandlerFunc(d.Campaigns.Mine)))

	// campaign routes; creation names its creator by email and is not gated
	mux.HandleFunc("POST /campaigns", d.Campaigns.Create)
	mux.HandleFunc("GET /campaigns", d.Campaigns.List)
	mux.HandleFunc("GET /campaigns/{id}", d.Campaigns.Get)
	mux.HandleFunc("PATCH /campaigns/{id}", d.Campaigns.Update)
	mux.HandleFunc("DELETE /campaigns/{id}", d.Campaigns.Delete)

	return LoggingMiddleware(logger)(SecurityHeadersMiddleware()(CORSMiddleware(d.AllowedOrigins)(mux)))
}
