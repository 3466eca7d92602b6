package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InQaaaaGit/edurise.git/internal/models"
)

const testSecret = "test-secret"

func TestIssueAndParseToken(t *testing.T) {
	s := NewSessions(testSecret, false)

	token, err := s.IssueToken("aff-1")
	require.NoError(t, err)

	id, err := s.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "aff-1", id)

	_, err = NewSessions("other-secret", false).ParseToken(token)
	assert.Error(t, err, "token signed with another key must be rejected")
}

func TestParseTokenRejectsExpired(t *testing.T) {
	claims := &models.AffiliateClaims{
		AffiliateID: "aff-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewSessions(testSecret, false).ParseToken(token)
	assert.Error(t, err)
}

func TestWithAffiliate(t *testing.T) {
	s := NewSessions(testSecret, false)
	valid, err := s.IssueToken("aff-1")
	require.NoError(t, err)

	tests := []struct {
		name       string
		cookie     *http.Cookie
		expectedID string
		expectedOK bool
	}{
		{name: "No cookie", cookie: nil},
		{name: "Garbage cookie", cookie: &http.Cookie{Name: SessionCookieName, Value: "garbage"}},
		{name: "Valid cookie", cookie: &http.Cookie{Name: SessionCookieName, Value: valid}, expectedID: "aff-1", expectedOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			var gotOK bool
			handler := s.WithAffiliate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID, gotOK = AffiliateIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.expectedOK, gotOK)
			assert.Equal(t, tt.expectedID, gotID)
		})
	}
}

func TestRequireAffiliate(t *testing.T) {
	s := NewSessions(testSecret, false)
	handler := s.WithAffiliate(RequireAffiliate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"affiliate session required"}`, rec.Body.String())

	// Кука, выданная SetSessionCookie, открывает доступ
	issue := httptest.NewRecorder()
	require.NoError(t, s.SetSessionCookie(issue, "aff-1"))
	cookies := issue.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestClearSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSessions(testSecret, true).ClearSessionCookie(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.True(t, cookies[0].Secure)
}
