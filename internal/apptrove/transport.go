package apptrove

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const userAgent = "edurise-apptrove-proxy/1.0"

// sensitiveParams - параметры запроса, значения которых не попадают в логи
var sensitiveParams = []string{"api_key", "apikey", "token", "secret", "key", "password"}

// loggingTransport логирует исходящие запросы и проставляет User-Agent.
// Заголовки с учетными данными в лог не пишутся.
type loggingTransport struct {
	base   http.RoundTripper
	logger *zap.Logger
}

func newLoggingTransport(base http.RoundTripper, logger *zap.Logger) *loggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{base: base, logger: logger}
}

// RoundTrip реализует http.RoundTripper.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := t.base.RoundTrip(req)
	latency := time.Since(start)

	if err != nil {
		t.logger.Warn("Outbound request failed",
			zap.String("method", req.Method),
			zap.String("url", sanitizeURL(req.URL)),
			zap.Duration("latency", latency),
			zap.Error(err))
		return resp, err
	}

	t.logger.Debug("Outbound request",
		zap.String("method", req.Method),
		zap.String("url", sanitizeURL(req.URL)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", latency))

	return resp, nil
}

// sanitizeURL скрывает значения чувствительных параметров запроса
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	for param := range q {
		lower := strings.ToLower(param)
		for _, sensitive := range sensitiveParams {
			if strings.Contains(lower, sensitive) {
				q.Set(param, "[REDACTED]")
				break
			}
		}
	}
	safe := *u
	safe.RawQuery = q.Encode()
	return safe.String()
}
