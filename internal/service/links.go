package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/InQaaaaGit/edurise.git/internal/models"
	"github.com/InQaaaaGit/edurise.git/internal/storage"
)

// LinkProxy - операции поставщика отслеживаемых ссылок.
// *apptrove.Client удовлетворяет этому интерфейсу.
type LinkProxy interface {
	ListTemplates(ctx context.Context) models.TemplatesResult
	GetLinkStats(ctx context.Context, linkID string) models.StatsResult
	CreateLink(ctx context.Context, req models.CreateLinkRequest) models.CreateLinkResult
}

// LinkService выпускает отслеживаемые ссылки и ведет их учет по партнерам.
type LinkService struct {
	proxy    LinkProxy
	store    storage.RecordStorage
	validate *validator.Validate
	logger   *zap.Logger
}

// NewLinkService создает новый экземпляр LinkService
func NewLinkService(proxy LinkProxy, store storage.RecordStorage, logger *zap.Logger) *LinkService {
	return &LinkService{
		proxy:    proxy,
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// ListTemplates возвращает шаблоны ссылок поставщика
func (s *LinkService) ListTemplates(ctx context.Context) models.TemplatesResult {
	return s.proxy.ListTemplates(ctx)
}

// GetLinkStats возвращает статистику поставщика по ссылке
func (s *LinkService) GetLinkStats(ctx context.Context, linkID string) models.StatsResult {
	return s.proxy.GetLinkStats(ctx, linkID)
}

// CreateLink создает ссылку у поставщика. Если affiliateID не пуст, сведения
// о партнере берутся из сохраненного профиля. Неудача поставщика возвращается
// в результате с Success=false, а не ошибкой.
func (s *LinkService) CreateLink(ctx context.Context, affiliateID string, req models.CreateLinkRequest) (models.CreateLinkResult, error) {
	req.TemplateID = strings.TrimSpace(req.TemplateID)
	req.Link.Name = strings.TrimSpace(req.Link.Name)

	if err := s.validate.Struct(req); err != nil {
		return models.CreateLinkResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if affiliateID != "" {
		var affiliate models.Affiliate
		if err := s.store.Get(ctx, storage.CollectionAffiliates, affiliateID, &affiliate); err != nil {
			if errors.Is(err, storage.ErrRecordNotFound) {
				return models.CreateLinkResult{}, ErrAffiliateNotFound
			}
			return models.CreateLinkResult{}, fmt.Errorf("get affiliate: %w", err)
		}
		req.Affiliate = affiliate.Metadata()
	}

	result := s.proxy.CreateLink(ctx, req)
	if !result.Success {
		return result, nil
	}

	link := models.Link{
		ID:           uuid.New().String(),
		AffiliateID:  req.Affiliate.ID,
		TemplateID:   req.TemplateID,
		VendorLinkID: result.LinkID,
		Unilink:      result.Unilink,
		Name:         req.Link.Name,
		Campaign:     req.Link.Campaign,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Put(ctx, storage.CollectionLinks, link.ID, link); err != nil {
		s.logger.Error("Failed to save created link",
			zap.String("affiliate_id", link.AffiliateID),
			zap.String("vendor_link_id", link.VendorLinkID),
			zap.Error(err))
	}

	return result, nil
}

// ListAffiliateLinks возвращает сохраненные ссылки партнера в порядке создания
func (s *LinkService) ListAffiliateLinks(ctx context.Context, affiliateID string) ([]models.Link, error) {
	if affiliateID == "" {
		return nil, ErrAffiliateNotFound
	}

	docs, err := s.store.ListBy(ctx, storage.CollectionLinks, "affiliate_id", affiliateID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	links := make([]models.Link, 0, len(docs))
	for _, doc := range docs {
		var link models.Link
		if err := json.Unmarshal(doc, &link); err != nil {
			s.logger.Warn("Skipping malformed link record", zap.Error(err))
			continue
		}
		links = append(links, link)
	}

	sort.SliceStable(links, func(i, j int) bool {
		return links[i].CreatedAt.Before(links[j].CreatedAt)
	})
	return links, nil
}
