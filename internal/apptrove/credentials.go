package apptrove

import (
	"strings"

	"github.com/InQaaaaGit/edurise.git/internal/config"
)

// Метки наборов учетных данных в порядке приоритета.
const (
	LabelReporting = "reporting"
	LabelGeneral   = "general"
	LabelSecret    = "secret"
)

// CredentialBundle представляет одну схему аутентификации в API AppTrove:
// набор заголовков, которые добавляются к запросу.
type CredentialBundle struct {
	Label   string
	Headers map[string]string
}

// ResolveCredentials собирает наборы учетных данных из конфигурации.
// Порядок фиксирован: ключ отчетности, общий ключ, пара secret id/key.
// Набор попадает в результат только если все его поля заданы; частично
// заполненные наборы пропускаются без ошибки.
func ResolveCredentials(cfg config.AppTroveConfig) []CredentialBundle {
	var bundles []CredentialBundle

	if key := strings.TrimSpace(cfg.ReportingAPIKey); key != "" {
		bundles = append(bundles, CredentialBundle{
			Label:   LabelReporting,
			Headers: map[string]string{"api-key": key},
		})
	}

	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		bundles = append(bundles, CredentialBundle{
			Label:   LabelGeneral,
			Headers: map[string]string{"api-key": key},
		})
	}

	id, secret := strings.TrimSpace(cfg.SecretID), strings.TrimSpace(cfg.SecretKey)
	if id != "" && secret != "" {
		bundles = append(bundles, CredentialBundle{
			Label: LabelSecret,
			Headers: map[string]string{
				"secret-id":  id,
				"secret-key": secret,
			},
		})
	}

	return bundles
}

// Labels возвращает метки наборов в исходном порядке
func Labels(bundles []CredentialBundle) []string {
	labels := make([]string, 0, len(bundles))
	for _, b := range bundles {
		labels = append(labels, b.Label)
	}
	return labels
}
