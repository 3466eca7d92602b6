package main

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// DefaultClientAnalyzer запрещает http.DefaultClient и вспомогательные функции
// http.Get, http.Head, http.Post, http.PostForm вне пакета main.
// Исходящие запросы идут только через сконфигурированный *http.Client.
var DefaultClientAnalyzer = &analysis.Analyzer{
	Name:     "nodefaultclient",
	Doc:      "prohibits http.DefaultClient and package-level http request helpers outside main packages",
	Run:      runDefaultClientCheck,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
}

var forbiddenHTTPIdents = map[string]bool{
	"DefaultClient": true,
	"Get":           true,
	"Head":          true,
	"Post":          true,
	"PostForm":      true,
}

func runDefaultClientCheck(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() == "main" {
		return nil, nil
	}

	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.SelectorExpr)(nil),
	}

	inspect.Preorder(nodeFilter, func(node ast.Node) {
		sel := node.(*ast.SelectorExpr)

		if !forbiddenHTTPIdents[sel.Sel.Name] {
			return
		}
		if strings.HasSuffix(pass.Fset.File(sel.Pos()).Name(), "_test.go") {
			return
		}

		ident, ok := sel.X.(*ast.Ident)
		if !ok {
			return
		}
		pkgName, ok := pass.TypesInfo.Uses[ident].(*types.PkgName)
		if !ok || pkgName.Imported().Path() != "net/http" {
			return
		}

		pass.Reportf(sel.Pos(), "avoid http.%s: use a configured *http.Client", sel.Sel.Name)
	})

	return nil, nil
}
