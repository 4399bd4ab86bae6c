// Package views renders the HTML pages from templates embedded in the binary.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"blogfeed/app/forms"
	"blogfeed/app/models"
)

//go:embed templates/*.html
var files embed.FS

// shared holds the templates every page is parsed together with.
var shared = []string{"templates/layout.html", "templates/partials.html"}

// Data is what every page template receives.
type Data struct {
	Viewer  *models.User
	Content any
}

// PostFormPage is the content of the create and edit post pages.
type PostFormPage struct {
	Form     *forms.PostForm
	Errors   *forms.ValidationError
	Groups   []*models.Group
	Action   string
	Editing  bool
	ImageURL string
}

// SignupPage is the content of the signup page.
type SignupPage struct {
	Form   *forms.SignupForm
	Errors *forms.ValidationError
}

// LoginPage is the content of the login page.
type LoginPage struct {
	Form   *forms.LoginForm
	Errors *forms.ValidationError
}

// Renderer executes named pages inside the site layout.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Local().Format("2 January 2006 15:04")
	},
	"fieldErrors": func(e *forms.ValidationError, field string) []string {
		if e == nil {
			return nil
		}
		return e.Fields[field]
	},
}

// New parses every page. Page names are the template file names without
// extension, for example "index" or "404".
func New() (*Renderer, error) {
	base, err := template.New("").Funcs(funcs).ParseFS(files, shared...)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		if name == shared[0] || name == shared[1] {
			continue
		}
		page, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if page, err = page.ParseFS(files, name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[strings.TrimSuffix(path.Base(name), ".html")] = page
	}
	return r, nil
}

// Render writes page name with status. Output is buffered so a failing
// template never leaves a half written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data Data) error {
	page, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
