// Package service содержит бизнес-логику партнерской программы:
// регистрацию партнеров и выпуск отслеживаемых ссылок через AppTrove.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/InQaaaaGit/edurise.git/internal/models"
	"github.com/InQaaaaGit/edurise.git/internal/storage"
)

// affiliateCodeLength - длина реферального кода партнера
const affiliateCodeLength = 8

var (
	// ErrInvalidInput возвращается, если входные данные не прошли проверку.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAffiliateNotFound возвращается, если партнер не найден.
	ErrAffiliateNotFound = errors.New("affiliate not found")
)

// AffiliateService управляет профилями партнеров.
type AffiliateService struct {
	store    storage.RecordStorage
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAffiliateService создает новый экземпляр AffiliateService
func NewAffiliateService(store storage.RecordStorage, logger *zap.Logger) *AffiliateService {
	return &AffiliateService{
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// Signup регистрирует нового партнера и выдает ему реферальный код
func (s *AffiliateService) Signup(ctx context.Context, req models.SignupRequest) (*models.Affiliate, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.Referrer = strings.ToUpper(strings.TrimSpace(req.Referrer))

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	affiliate := &models.Affiliate{
		ID:        id,
		Code:      affiliateCode(id),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Referrer:  req.Referrer,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Put(ctx, storage.CollectionAffiliates, id, affiliate); err != nil {
		return nil, fmt.Errorf("save affiliate: %w", err)
	}

	s.logger.Info("Affiliate registered",
		zap.String("affiliate_id", id),
		zap.String("code", affiliate.Code))

	return affiliate, nil
}

// GetAffiliate возвращает профиль партнера
func (s *AffiliateService) GetAffiliate(ctx context.Context, id string) (*models.Affiliate, error) {
	if id == "" {
		return nil, ErrAffiliateNotFound
	}

	var affiliate models.Affiliate
	if err := s.store.Get(ctx, storage.CollectionAffiliates, id, &affiliate); err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, ErrAffiliateNotFound
		}
		return nil, fmt.Errorf("get affiliate: %w", err)
	}
	return &affiliate, nil
}

// UpdateAffiliate применяет частичное изменение профиля и возвращает обновленный профиль
func (s *AffiliateService) UpdateAffiliate(ctx context.Context, id string, upd models.AffiliateUpdate) (*models.Affiliate, error) {
	if id == "" {
		return nil, ErrAffiliateNotFound
	}
	if err := s.validate.Struct(upd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	patch := map[string]any{}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		patch["name"] = name
	}
	if upd.Email != nil {
		patch["email"] = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.Phone != nil {
		patch["phone"] = strings.TrimSpace(*upd.Phone)
	}
	patch["updated_at"] = time.Now().UTC()

	if err := s.store.Update(ctx, storage.CollectionAffiliates, id, patch); err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, ErrAffiliateNotFound
		}
		return nil, fmt.Errorf("update affiliate: %w", err)
	}

	return s.GetAffiliate(ctx, id)
}

// DeleteAffiliate удаляет профиль партнера. Сохраненные ссылки остаются.
func (s *AffiliateService) DeleteAffiliate(ctx context.Context, id string) error {
	if id == "" {
		return ErrAffiliateNotFound
	}

	if err := s.store.Delete(ctx, storage.CollectionAffiliates, id); err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return ErrAffiliateNotFound
		}
		return fmt.Errorf("delete affiliate: %w", err)
	}

	s.logger.Info("Affiliate deleted", zap.String("affiliate_id", id))
	return nil
}

// affiliateCode вычисляет реферальный код из идентификатора партнера
func affiliateCode(id string) string {
	hash := sha256.Sum256([]byte(id))
	return base32.StdEncoding.EncodeToString(hash[:])[:affiliateCodeLength]
}
