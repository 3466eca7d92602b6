// Package handler содержит HTTP-обработчики API партнерской программы.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/InQaaaaGit/edurise.git/internal/buildinfo"
	"github.com/InQaaaaGit/edurise.git/internal/middleware"
	"github.com/InQaaaaGit/edurise.git/internal/models"
	"github.com/InQaaaaGit/edurise.git/internal/storage"
)

const (
	contentTypeJSON = "application/json"
	maxRequestBody  = 1 << 20
)

// AffiliateService определяет операции над профилями партнеров
type AffiliateService interface {
	Signup(ctx context.Context, req models.SignupRequest) (*models.Affiliate, error)
	GetAffiliate(ctx context.Context, id string) (*models.Affiliate, error)
	UpdateAffiliate(ctx context.Context, id string, upd models.AffiliateUpdate) (*models.Affiliate, error)
	DeleteAffiliate(ctx context.Context, id string) error
}

// LinkService определяет операции над отслеживаемыми ссылками
type LinkService interface {
	ListTemplates(ctx context.Context) models.TemplatesResult
	GetLinkStats(ctx context.Context, linkID string) models.StatsResult
	CreateLink(ctx context.Context, affiliateID string, req models.CreateLinkRequest) (models.CreateLinkResult, error)
	ListAffiliateLinks(ctx context.Context, affiliateID string) ([]models.Link, error)
}

// Handler обслуживает HTTP API
type Handler struct {
	affiliates AffiliateService
	links      LinkService
	checker    storage.DatabaseChecker
	sessions   *middleware.Sessions
	build      *buildinfo.Info
	logger     *zap.Logger
}

// NewHandler создает новый экземпляр Handler
func NewHandler(
	affiliates AffiliateService,
	links LinkService,
	checker storage.DatabaseChecker,
	sessions *middleware.Sessions,
	build *buildinfo.Info,
	logger *zap.Logger,
) *Handler {
	if build == nil {
		build = buildinfo.DefaultInfo()
	}
	return &Handler{
		affiliates: affiliates,
		links:      links,
		checker:    checker,
		sessions:   sessions,
		build:      build,
		logger:     logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

var errInvalidContentType = errors.New("invalid Content-Type")

// decodeJSON читает тело запроса в формате JSON
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), contentTypeJSON) {
		return errInvalidContentType
	}

	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer func() {
		if err := body.Close(); err != nil {
			h.logger.Error("Error closing request body", zap.Error(err))
		}
	}()

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// writeJSON записывает ответ в формате JSON
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Error writing JSON response", zap.Error(err))
	}
}

// writeError записывает сообщение об ошибке в формате JSON
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}
