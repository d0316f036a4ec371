// Package handler contains the HTTP request handlers for the blog.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, form values)
// 2. Call the service layer
// 3. Write the HTTP response: a rendered page, or a flash message and a redirect
//
// Handlers should NOT contain business logic. Ownership checks, validation and
// subscription rules all live in internal/service; handlers only decide which
// page or redirect a given service result turns into.
package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/sakif/blog/internal/flash"
	"github.com/sakif/blog/internal/model"
)

// Page template names. Each one is parsed together with base.html and the
// shared partials into its own template set.
const (
	pageIndex         = "index.html"
	pageRegister      = "register.html"
	pageLogin         = "login.html"
	pagePostDetail    = "post_detail.html"
	pagePostForm      = "post_form.html"
	pagePostDelete    = "post_confirm_delete.html"
	pageSubscriptions = "subscription_posts.html"
	pageUserPosts     = "user_posts.html"
	pageProfile       = "profile.html"
	pageNotFound      = "not_found.html"
	pageError         = "error.html"
)

var pages = []string{
	pageIndex, pageRegister, pageLogin, pagePostDetail, pagePostForm, pagePostDelete,
	pageSubscriptions, pageUserPosts, pageProfile, pageNotFound, pageError,
}

const excerptLength = 300

// PageData is what every template receives. Page-specific values live in Data
// ({{.Data.posts}}, {{.Data.form}}); CurrentUser and Messages feed the layout.
type PageData struct {
	CurrentUser *model.User
	Messages    []flash.Message
	Data        map[string]any
}

// Renderer owns the parsed templates and the flash store.
//
// TEMPLATE COMPOSITION:
// base.html defines the page skeleton with a {{template "content" .}} slot.
// Every page file defines "title" and "content". Because each page redefines
// "content", pages cannot share one template set: each gets its own clone of
// base + partials + page, parsed once at startup.
type Renderer struct {
	pages  map[string]*template.Template
	flash  *flash.Store
	logger *slog.Logger
}

// NewRenderer parses every page under templates/ in fsys.
func NewRenderer(fsys fs.FS, flashes *flash.Store, logger *slog.Logger) (*Renderer, error) {
	rd := &Renderer{
		pages:  make(map[string]*template.Template, len(pages)),
		flash:  flashes,
		logger: logger,
	}

	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys,
			"templates/base.html",
			"templates/_*.html",
			"templates/"+name,
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		rd.pages[name] = tmpl
	}
	return rd, nil
}

var templateFuncs = template.FuncMap{
	"postURL":       postURL,
	"postEditURL":   func(id string) string { return postURL(id) + "edit/" },
	"postDeleteURL": func(id string) string { return postURL(id) + "delete/" },
	"userURL":       userURL,
	"subscribeURL":  func(username string) string { return "/subscribe/" + url.PathEscape(username) + "/" },
	"date":          func(t time.Time) string { return t.Format("January 2, 2006 15:04") },
	"excerpt":       excerpt,
}

func postURL(id string) string { return "/post/" + url.PathEscape(id) + "/" }

func userURL(username string) string { return "/user/" + url.PathEscape(username) + "/" }

func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= excerptLength {
		return s
	}
	return string([]rune(s)[:excerptLength]) + "…"
}

// Page renders the named page with status.
//
// The page is executed into a buffer first: if the template fails halfway we
// can still send a clean 500 instead of half a page with a 200 status.
func (rd *Renderer) Page(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	tmpl, ok := rd.pages[name]
	if !ok {
		rd.ServerError(w, r, fmt.Errorf("unknown template %q", name))
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["errors"]; !ok {
		data["errors"] = map[string][]string{}
	}

	pd := PageData{
		CurrentUser: CurrentUser(r.Context()),
		Messages:    rd.flash.Pop(w, r),
		Data:        data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", pd); err != nil {
		rd.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// NotFound renders the 404 page.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rd.Page(w, r, http.StatusNotFound, pageNotFound, nil)
}

// ServerError logs err and renders the generic 500 page. The error text never
// reaches the browser: it may contain SQL or file paths.
func (rd *Renderer) ServerError(w http.ResponseWriter, r *http.Request, err error) {
	rd.logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	if _, ok := rd.pages[pageError]; !ok {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	rd.Page(w, r, http.StatusInternalServerError, pageError, nil)
}

// Success and Fail queue a flash message for the next rendered page.
func (rd *Renderer) Success(w http.ResponseWriter, r *http.Request, text string) {
	rd.flash.Success(w, r, text)
}

func (rd *Renderer) Fail(w http.ResponseWriter, r *http.Request, text string) {
	rd.flash.Error(w, r, text)
}
