package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strconv"
	"strings"

	"github.com/cienspay/cienspay-web/card"
)

//go:embed templates/*
var templateFiles embed.FS

const layoutTemplate = "layout.html"

// Page templates, each rendered inside the layout
const (
	pageIndex           = "index.html"
	pageLogin           = "login.html"
	pageRegister        = "register.html"
	pageRegisterSuccess = "register_success.html"
	pageDashboard       = "dashboard.html"
	pageAdminDashboard  = "admin_dashboard.html"
)

var pageNames = []string{
	pageIndex,
	pageLogin,
	pageRegister,
	pageRegisterSuccess,
	pageDashboard,
	pageAdminDashboard,
}

func TemplateFilesFS() fs.FS {
	// Create the sub filesystem once
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	content, err := fs.ReadFile(TemplateFilesFS(), name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Funcs(templateFuncs).Parse(string(content))
}

// parsePages builds one template set per page: the layout plus the page's own blocks
func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(layoutTemplate).Funcs(templateFuncs).ParseFS(TemplateFilesFS(), layoutTemplate, name)
		if err != nil {
			return nil, fmt.Errorf("[server parsePages] %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

var templateFuncs = template.FuncMap{
	"formatCard": card.Format,
	"maskCard":   card.Mask,
	"money":      money,
	"add":        func(a, b int) int { return a + b },
	"sub":        func(a, b int) int { return a - b },
	"initials":   initials,
}

// money renders whole currency units as $1,234.00
func money(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + "$" + b.String() + ".00"
}

func initials(name string) string {
	var out []rune
	for _, part := range strings.Fields(name) {
		out = append(out, []rune(strings.ToUpper(part))[0])
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}
