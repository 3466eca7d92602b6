// Package apptrove реализует устойчивый прокси к API AppTrove.
//
// Контракт поставщика не задокументирован, поэтому для каждой операции
// перебираются несколько вариантов адресов и несколько наборов учетных данных
// до первого успешного ответа, а полезная нагрузка извлекается из ответа по
// упорядоченному списку известных вариантов конверта.
//
// Чтения (шаблоны, статистика) при неудаче возвращают пустой результат с
// success=false. Запись (создание ссылки) при неудаче возвращает явную ошибку
// и список выполненных попыток, но никогда не выдумывает созданную ссылку.
package apptrove

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/InQaaaaGit/edurise.git/internal/config"
	"github.com/InQaaaaGit/edurise.git/internal/models"
)

const templatesCacheKey = "templates"

// Client выполняет операции AppTrove поверх Executor.
type Client struct {
	baseURL     string
	credentials []CredentialBundle
	executor    *Executor
	templates   *cache.Cache
	logger      *zap.Logger
}

// NewClient создает клиента. Наборы учетных данных вычисляются один раз из cfg.
// Успешные списки шаблонов кэшируются на cfg.TemplateCacheTTL; нулевое значение отключает кэш.
func NewClient(cfg config.AppTroveConfig, executor *Executor, logger *zap.Logger) *Client {
	c := &Client{
		baseURL:     cfg.BaseURL,
		credentials: ResolveCredentials(cfg),
		executor:    executor,
		logger:      logger,
	}
	if cfg.TemplateCacheTTL > 0 {
		c.templates = cache.New(cfg.TemplateCacheTTL, 2*cfg.TemplateCacheTTL)
	}

	logger.Info("AppTrove client configured",
		zap.String("base_url", cfg.BaseURL),
		zap.Strings("credentials", Labels(c.credentials)))

	return c
}

// ListTemplates возвращает список шаблонов UniLink.
// При исчерпании попыток возвращает success=false и пустой список.
func (c *Client) ListTemplates(ctx context.Context) models.TemplatesResult {
	if c.templates != nil {
		if cached, ok := c.templates.Get(templatesCacheKey); ok {
			return cached.(models.TemplatesResult)
		}
	}

	attempt, err := c.executor.Execute(ctx, Call{
		Operation:   OpListTemplates.Name,
		Method:      http.MethodGet,
		Endpoints:   OpListTemplates.Endpoints(c.baseURL, ""),
		Credentials: c.credentials,
	})
	if err != nil {
		return models.TemplatesResult{
			Success:   false,
			Templates: []models.Template{},
			Error:     failureMessage(err),
		}
	}

	items, rule := TemplatesExtractor.Extract(attempt.Body)
	c.logger.Debug("Templates extracted",
		zap.String("endpoint", attempt.Endpoint),
		zap.String("credential", attempt.CredentialLabel),
		zap.String("rule", rule))

	result := models.TemplatesResult{
		Success:   true,
		Templates: toTemplates(items),
	}
	if c.templates != nil {
		c.templates.SetDefault(templatesCacheKey, result)
	}
	return result
}

// GetLinkStats возвращает статистику по ссылке.
// При исчерпании попыток возвращает success=false и пустую статистику.
func (c *Client) GetLinkStats(ctx context.Context, linkID string) models.StatsResult {
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return models.StatsResult{
			Success: false,
			Stats:   map[string]any{},
			Error:   "link id is required",
		}
	}

	attempt, err := c.executor.Execute(ctx, Call{
		Operation:   OpLinkStats.Name,
		Method:      http.MethodGet,
		Endpoints:   OpLinkStats.Endpoints(c.baseURL, linkID),
		Credentials: c.credentials,
	})
	if err != nil {
		return models.StatsResult{
			Success: false,
			Stats:   map[string]any{},
			Error:   failureMessage(err),
		}
	}

	stats, _ := StatsExtractor.Extract(attempt.Body)
	obj, ok := stats.(map[string]any)
	if !ok {
		obj = map[string]any{}
	}
	return models.StatsResult{Success: true, Stats: obj}
}

// CreateLink создает отслеживаемую ссылку по шаблону.
// При исчерпании попыток возвращает success=false, сообщение последней ошибки
// и список попыток. Unilink и LinkID при неудаче не заполняются.
func (c *Client) CreateLink(ctx context.Context, req models.CreateLinkRequest) models.CreateLinkResult {
	templateID := strings.TrimSpace(req.TemplateID)
	if templateID == "" {
		return models.CreateLinkResult{Success: false, Error: "template id is required"}
	}

	attempt, err := c.executor.Execute(ctx, Call{
		Operation:   OpCreateLink.Name,
		Method:      http.MethodPost,
		Endpoints:   OpCreateLink.Endpoints(c.baseURL, templateID),
		Credentials: c.credentials,
		Body:        linkBody(templateID, req),
	})
	if err != nil {
		result := models.CreateLinkResult{Success: false, Error: failureMessage(err)}
		var exhausted *ExhaustedError
		if errors.As(err, &exhausted) {
			result.Attempts = exhausted.Attempts
		}
		return result
	}

	result := models.CreateLinkResult{Success: true}
	if unilink, _ := UnilinkExtractor.Extract(attempt.Body); unilink != nil {
		result.Unilink = unilink.(string)
	}
	if id, _ := LinkIDExtractor.Extract(attempt.Body); id != nil {
		result.LinkID = id.(string)
	}
	if result.Unilink == "" && result.LinkID == "" {
		c.logger.Warn("Link created but response has no known link fields",
			zap.String("endpoint", attempt.Endpoint),
			zap.Int("status", attempt.Status))
	}
	return result
}

// Credentials возвращает метки настроенных наборов учетных данных
func (c *Client) Credentials() []string {
	return Labels(c.credentials)
}

// linkBody собирает тело запроса на создание ссылки
func linkBody(templateID string, req models.CreateLinkRequest) map[string]any {
	body := map[string]any{
		"template_id": templateID,
		"name":        req.Link.Name,
	}
	if req.Link.Campaign != "" {
		body["campaign"] = req.Link.Campaign
	}
	if req.Link.Channel != "" {
		body["channel"] = req.Link.Channel
	}
	if req.Link.DeepLink != "" {
		body["deep_link"] = req.Link.DeepLink
	}

	params := map[string]any{}
	for k, v := range req.Link.Params {
		params[k] = v
	}
	if req.Affiliate.ID != "" {
		params["affiliate_id"] = req.Affiliate.ID
	}
	if req.Affiliate.Code != "" {
		params["affiliate_code"] = req.Affiliate.Code
	}
	if req.Affiliate.Name != "" {
		params["affiliate_name"] = req.Affiliate.Name
	}
	if req.Affiliate.Email != "" {
		params["affiliate_email"] = req.Affiliate.Email
	}
	if len(params) > 0 {
		body["sub_params"] = params
	}
	return body
}

// toTemplates оставляет только элементы-объекты
func toTemplates(items any) []models.Template {
	templates := []models.Template{}
	arr, ok := items.([]any)
	if !ok {
		return templates
	}
	for _, item := range arr {
		if obj, ok := item.(map[string]any); ok {
			templates = append(templates, models.Template(obj))
		}
	}
	return templates
}

// failureMessage возвращает диагностическое сообщение для ответа клиенту
func failureMessage(err error) string {
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		if exhausted.LastMessage != "" {
			return exhausted.LastMessage
		}
	}
	return err.Error()
}

// NewHTTPClient создает HTTP-клиент для обращений к поставщику.
func NewHTTPClient(cfg config.AppTroveConfig, logger *zap.Logger) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: newLoggingTransport(nil, logger),
	}
}
