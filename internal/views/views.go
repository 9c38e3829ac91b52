// Package views holds the HTML templates embedded in the binary.
package views

import (
	"embed"
	"html/template"
	"strconv"

	"github.com/phenrril/expressbi/internal/domain"
)

//go:embed *.html
var FS embed.FS

// Funcs returns the template helpers shared by every page.
func Funcs() template.FuncMap {
	return template.FuncMap{
		// faturamento se muestra como número plano; NaN queda vacío
		"faturamento": func(c domain.Customer) string {
			if !c.HasRevenue() {
				return ""
			}
			return strconv.FormatFloat(c.Revenue, 'f', -1, 64)
		},
		"selected": func(cur, opt string) bool {
			if cur == "" {
				cur = "ativo"
			}
			return cur == opt
		},
	}
}

// Parse loads the embedded templates.
func Parse() (*template.Template, error) {
	return template.New("layout").Funcs(Funcs()).ParseFS(FS, "*.html")
}
