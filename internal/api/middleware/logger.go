// logger.go — slog middleware для логирования HTTP-запросов.
package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// RequestLogger возвращает HTTP middleware для структурированного
// логирования запросов. Health-проверки логируются на уровне Debug,
// чтобы не засорять журнал probe-запросами Kubernetes.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With(slog.String("component", "http"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			}

			switch r.URL.Path {
			case "/health/live", "/health/ready", "/metrics":
				log.Debug("HTTP-запрос", attrs...)
			default:
				log.Info("HTTP-запрос", attrs...)
			}
		})
	}
}
