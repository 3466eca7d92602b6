package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/InQaaaaGit/edurise.git/internal/buildinfo"
	"github.com/InQaaaaGit/edurise.git/internal/config"
	"github.com/InQaaaaGit/edurise.git/internal/models"
)

// newVendor поднимает фиктивный AppTrove: шаблоны отдаются только по /api/v2,
// ссылки создаются только с учетными данными secret.
func newVendor(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v2/unilink/templates":
			_, _ = io.WriteString(w, `{"templates":[{"id":"tpl-1","name":"Courses"}]}`)
		case r.Method == http.MethodPost && r.URL.Path == "/internal/unilink/templates/tpl-1/links":
			if r.Header.Get("secret-id") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"message":"Invalid credentials"}`)
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"data":{"id":42,"unilink":"https://edr.link/abc"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"Not found"}`)
		}
	}))
	t.Cleanup(srv.Close)

	return srv, &hits
}

func newTestApp(t *testing.T, vendorURL string) *App {
	t.Helper()

	cfg := config.Default()
	cfg.AppTrove.BaseURL = vendorURL
	cfg.AppTrove.APIKey = "general-key"
	cfg.AppTrove.SecretID = "sid"
	cfg.AppTrove.SecretKey = "skey"

	a, err := NewApp(cfg, zap.NewNop(), Options{Build: buildinfo.NewInfo("v0.1.0", "", "")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return a
}

func TestNewApp(t *testing.T) {
	a := newTestApp(t, "http://127.0.0.1:1")

	assert.NotNil(t, a.router)
	assert.NotNil(t, a.logger)
	assert.NotNil(t, a.handler)

	server := a.GetServer()
	assert.Equal(t, ":8080", server.Addr)
	assert.NotNil(t, server.Handler)
}

func TestTemplatesThroughRouter(t *testing.T) {
	vendor, hits := newVendor(t)
	a := newTestApp(t, vendor.URL)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/apptrove/templates", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var result models.TemplatesResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	require.Len(t, result.Templates, 1)
	assert.Equal(t, "tpl-1", result.Templates[0]["id"])

	// internal и v1 с двумя наборами учетных данных, затем первая попытка v2
	assert.EqualValues(t, 5, atomic.LoadInt32(hits))

	// Повторный запрос обслуживается из кэша
	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/apptrove/templates", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, atomic.LoadInt32(hits))
}

func TestSignupAndCreateLinkThroughRouter(t *testing.T) {
	vendor, _ := newVendor(t)
	a := newTestApp(t, vendor.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/affiliates",
		strings.NewReader(`{"name":"Asha","email":"asha@example.com","phone":"9876543210"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req = httptest.NewRequest(http.MethodPost, "/api/apptrove/links",
		strings.NewReader(`{"template_id":"tpl-1","link":{"name":"Summer"}}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"unilink":"https://edr.link/abc","link_id":"42"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/affiliates/me/links", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"vendor_link_id":"42"`)
}

func TestServiceEndpoints(t *testing.T) {
	a := newTestApp(t, "http://127.0.0.1:1")

	tests := []struct {
		path         string
		expectedCode int
		contains     string
	}{
		{path: "/ping", expectedCode: http.StatusOK},
		{path: "/version", expectedCode: http.StatusOK, contains: `"version":"v0.1.0"`},
		{path: "/metrics", expectedCode: http.StatusOK},
		{path: "/api/affiliates/me", expectedCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedCode, rec.Code)
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestMetricsRecordAttempts(t *testing.T) {
	vendor, _ := newVendor(t)
	a := newTestApp(t, vendor.URL)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/apptrove/templates", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "edurise_apptrove_attempts_total")
	assert.Contains(t, body, `outcome="success"`)
	assert.Contains(t, body, "edurise_http_requests_total")
}
