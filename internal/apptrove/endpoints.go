package apptrove

import (
	"net/url"
	"strings"
)

// Operation описывает логическую операцию API и упорядоченный список адресов,
// которые предположительно ее реализуют. Первым идет наиболее вероятный адрес.
type Operation struct {
	Name      string
	Templates []string
}

// Известные варианты адресов API AppTrove.
var (
	OpListTemplates = Operation{
		Name: "list_templates",
		Templates: []string{
			"/internal/unilink/templates",
			"/api/v1/unilink/templates",
			"/api/v2/unilink/templates",
		},
	}

	OpLinkStats = Operation{
		Name: "link_stats",
		Templates: []string{
			"/internal/unilink/{id}/stats",
			"/api/v1/unilink/{id}/stats",
			"/api/v1/stats/unilink/{id}",
		},
	}

	OpCreateLink = Operation{
		Name: "create_link",
		Templates: []string{
			"/internal/unilink/templates/{id}/links",
			"/api/v1/unilink/templates/{id}/links",
			"/api/v1/unilink",
		},
	}
)

// Endpoints разворачивает шаблоны операции относительно базового адреса.
// Плейсхолдер {id} заменяется экранированным значением id.
func (op Operation) Endpoints(baseURL, id string) []string {
	base := strings.TrimRight(baseURL, "/")
	escaped := url.PathEscape(id)

	endpoints := make([]string, 0, len(op.Templates))
	for _, tmpl := range op.Templates {
		endpoints = append(endpoints, base+strings.ReplaceAll(tmpl, "{id}", escaped))
	}
	return endpoints
}
