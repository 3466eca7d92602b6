package apptrove

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/itchyny/gojq"
)

// RuleKind определяет вид правила извлечения.
type RuleKind int

const (
	// RulePath извлекает значение по jq-пути.
	RulePath RuleKind = iota
	// RuleSelfArray принимает тело целиком, если это массив.
	RuleSelfArray
	// RuleSelfObject принимает тело целиком, если это объект.
	RuleSelfObject
	// RuleDefault всегда срабатывает и возвращает значение по умолчанию.
	RuleDefault
)

// Shape описывает ожидаемый вид извлекаемого значения.
type Shape int

const (
	ShapeArray Shape = iota
	ShapeObject
	ShapeString
	// ShapeID принимает непустую строку или число.
	ShapeID
)

// Rule - одно правило извлечения полезной нагрузки из ответа поставщика.
type Rule struct {
	Kind     RuleKind
	Path     string
	code     *gojq.Code
	fallback func() any
}

// PathRule компилирует jq-путь. Паникует на некорректном выражении:
// правила задаются статически при инициализации пакета.
func PathRule(path string) Rule {
	query, err := gojq.Parse(path)
	if err != nil {
		panic(fmt.Sprintf("apptrove: parse rule %q: %v", path, err))
	}
	code, err := gojq.Compile(query)
	if err != nil {
		panic(fmt.Sprintf("apptrove: compile rule %q: %v", path, err))
	}
	return Rule{Kind: RulePath, Path: path, code: code}
}

// SelfArrayRule срабатывает, если тело ответа само является массивом.
func SelfArrayRule() Rule { return Rule{Kind: RuleSelfArray, Path: "."} }

// SelfObjectRule срабатывает, если тело ответа само является объектом.
func SelfObjectRule() Rule { return Rule{Kind: RuleSelfObject, Path: "."} }

// DefaultRule всегда срабатывает и возвращает новое значение из fallback.
func DefaultRule(fallback func() any) Rule {
	return Rule{Kind: RuleDefault, Path: "default", fallback: fallback}
}

// Apply применяет правило к телу ответа с учетом ожидаемого вида значения.
func (r Rule) Apply(body any, shape Shape) (any, bool) {
	switch r.Kind {
	case RuleDefault:
		if r.fallback == nil {
			return nil, true
		}
		return r.fallback(), true
	case RuleSelfArray:
		if v, ok := body.([]any); ok {
			return v, true
		}
		return nil, false
	case RuleSelfObject:
		if v, ok := body.(map[string]any); ok {
			return v, true
		}
		return nil, false
	}

	if body == nil || r.code == nil {
		return nil, false
	}

	iter := r.code.Run(body)
	v, ok := iter.Next()
	if !ok {
		return nil, false
	}
	if _, isErr := v.(error); isErr {
		return nil, false
	}
	return conform(v, shape)
}

// conform проверяет, что значение имеет нужный вид
func conform(v any, shape Shape) (any, bool) {
	switch shape {
	case ShapeArray:
		arr, ok := v.([]any)
		return arr, ok
	case ShapeObject:
		obj, ok := v.(map[string]any)
		return obj, ok
	case ShapeString:
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, false
		}
		return s, true
	case ShapeID:
		switch id := v.(type) {
		case string:
			if strings.TrimSpace(id) == "" {
				return nil, false
			}
			return id, true
		case float64:
			return strconv.FormatFloat(id, 'f', -1, 64), true
		case int:
			return strconv.Itoa(id), true
		}
	}
	return nil, false
}

// Extractor - упорядоченный набор правил. Побеждает первое сработавшее правило,
// даже если последующие дали бы другое значение.
type Extractor struct {
	Name  string
	Shape Shape
	Rules []Rule
}

// Extract возвращает извлеченное значение и путь сработавшего правила.
// Если ни одно правило не сработало, возвращается nil и пустая строка.
func (x Extractor) Extract(body any) (any, string) {
	for _, rule := range x.Rules {
		if v, ok := rule.Apply(body, x.Shape); ok {
			return v, rule.Path
		}
	}
	return nil, ""
}

// Известные варианты конвертов ответа AppTrove.
var (
	TemplatesExtractor = Extractor{
		Name:  "templates",
		Shape: ShapeArray,
		Rules: []Rule{
			PathRule(".data.items"),
			PathRule(".items"),
			PathRule(".data.templates"),
			PathRule(".templates"),
			PathRule(".data"),
			SelfArrayRule(),
			DefaultRule(func() any { return []any{} }),
		},
	}

	StatsExtractor = Extractor{
		Name:  "stats",
		Shape: ShapeObject,
		Rules: []Rule{
			PathRule(".data.stats"),
			PathRule(".stats"),
			PathRule(".data"),
			SelfObjectRule(),
			DefaultRule(func() any { return map[string]any{} }),
		},
	}

	UnilinkExtractor = Extractor{
		Name:  "unilink",
		Shape: ShapeString,
		Rules: []Rule{
			PathRule(".data.unilink"),
			PathRule(".unilink"),
			PathRule(".data.url"),
			PathRule(".url"),
			PathRule(".data.short_url"),
			PathRule(".short_url"),
		},
	}

	LinkIDExtractor = Extractor{
		Name:  "link_id",
		Shape: ShapeID,
		Rules: []Rule{
			PathRule(".data.id"),
			PathRule(".data._id"),
			PathRule(".data.link_id"),
			PathRule(".id"),
			PathRule("._id"),
			PathRule(".link_id"),
		},
	}
)
