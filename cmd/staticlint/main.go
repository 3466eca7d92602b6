// Команда staticlint запускает статические анализаторы, которыми проверяется сервис.
//
// Набор подобран под код проекта: HTTP-клиенты и обработчики, context,
// JSON и обертки ошибок. Анализаторы для ассемблера, cgo и unsafe не включены,
// такого кода в проекте нет.
//
// Использование:
//
//	go run ./cmd/staticlint ./...
package main

import (
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/assign"
	"golang.org/x/tools/go/analysis/passes/bools"
	"golang.org/x/tools/go/analysis/passes/composite"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/nilness"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/shadow"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/tests"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"golang.org/x/tools/go/analysis/passes/unusedresult"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/simple"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/stylecheck"

	"github.com/go-critic/go-critic/checkers/analyzer"
	"github.com/kisielk/errcheck/errcheck"
)

// disabledChecks - проверки staticcheck, которые не подходят проекту.
// ST1000 требует комментарий в каждом пакете, у models и middleware его нет.
var disabledChecks = map[string]bool{
	"ST1000": true,
}

func main() {
	multichecker.Main(analyzers()...)
}

// analyzers собирает полный список анализаторов
func analyzers() []*analysis.Analyzer {
	checks := []*analysis.Analyzer{
		DefaultClientAnalyzer,

		// Запросы к AppTrove и обработчики
		httpresponse.Analyzer,
		lostcancel.Analyzer,
		unmarshal.Analyzer,
		structtag.Analyzer,
		errorsas.Analyzer,

		// Общие ошибки
		assign.Analyzer,
		bools.Analyzer,
		composite.Analyzer,
		copylock.Analyzer,
		loopclosure.Analyzer,
		nilness.Analyzer,
		printf.Analyzer,
		shadow.Analyzer,
		tests.Analyzer,
		unreachable.Analyzer,
		unusedresult.Analyzer,

		analyzer.Analyzer, // go-critic
		errcheck.Analyzer,
	}

	checks = appendChecks(checks, staticcheck.Analyzers)
	checks = appendChecks(checks, simple.Analyzers)
	checks = appendChecks(checks, stylecheck.Analyzers)
	return checks
}

// appendChecks добавляет анализаторы staticcheck, кроме отключенных
func appendChecks(dst []*analysis.Analyzer, src []*lint.Analyzer) []*analysis.Analyzer {
	for _, v := range src {
		if disabledChecks[v.Analyzer.Name] {
			continue
		}
		dst = append(dst, v.Analyzer)
	}
	return dst
}
