package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/InQaaaaGit/edurise.git/internal/models"
)

// contextKey используется как ключ для значений в контексте
type contextKey string

const (
	// AffiliateIDKey используется как ключ для хранения ID партнера в контексте
	AffiliateIDKey contextKey = "affiliate_id"
	// SessionCookieName - имя куки с сессионным токеном партнера
	SessionCookieName = "edurise_session"

	sessionTTL = 30 * 24 * time.Hour
)

// Sessions выпускает и проверяет подписанные токены сессии партнера
type Sessions struct {
	secret []byte
	secure bool
	ttl    time.Duration
}

// NewSessions создает менеджер сессий. secure включает флаг Secure у куки.
func NewSessions(secret string, secure bool) *Sessions {
	return &Sessions{
		secret: []byte(secret),
		secure: secure,
		ttl:    sessionTTL,
	}
}

// WithAffiliate извлекает ID партнера из сессионной куки, если она есть и валидна.
// Запросы без сессии пропускаются дальше без ID в контексте.
func (s *Sessions) WithAffiliate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		affiliateID, err := s.ParseToken(cookie.Value)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), AffiliateIDKey, affiliateID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAffiliate отвечает 401, если в контексте нет ID партнера
func RequireAffiliate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AffiliateIDFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"affiliate session required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AffiliateIDFromContext возвращает ID партнера из контекста запроса
func AffiliateIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AffiliateIDKey).(string)
	return id, ok && id != ""
}

// IssueToken создает JWT токен для партнера
func (s *Sessions) IssueToken(affiliateID string) (string, error) {
	now := time.Now()
	claims := &models.AffiliateClaims{
		AffiliateID: affiliateID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken проверяет токен и возвращает ID партнера
func (s *Sessions) ParseToken(value string) (string, error) {
	claims := &models.AffiliateClaims{}
	token, err := jwt.ParseWithClaims(value, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.AffiliateID == "" {
		return "", fmt.Errorf("invalid session token")
	}
	return claims.AffiliateID, nil
}

// SetSessionCookie выпускает токен и устанавливает сессионную куку
func (s *Sessions) SetSessionCookie(w http.ResponseWriter, affiliateID string) error {
	token, err := s.IssueToken(affiliateID)
	if err != nil {
		return fmt.Errorf("issue session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.ttl),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSessionCookie удаляет сессионную куку
func (s *Sessions) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
