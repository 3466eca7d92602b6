package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestObserver принимает сведения об обработанных запросах.
// *metrics.Collector удовлетворяет этому интерфейсу.
type RequestObserver interface {
	ObserveRequest(method string, status int)
}

// LoggerMiddleware создает middleware для логирования запросов и ответов.
// observer может быть nil.
func LoggerMiddleware(logger *zap.Logger, observer RequestObserver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := r.URL.Path
			method := r.Method

			// Обертка для ResponseWriter, чтобы отслеживать статус и размер
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			latency := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			if observer != nil {
				observer.ObserveRequest(method, status)
			}

			logger.Info("Request processed",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("path", path),
				zap.String("method", method),
				zap.Duration("latency", latency),
				zap.Int("status", status),
				zap.Int("size", ww.BytesWritten()),
			)
		})
	}
}
