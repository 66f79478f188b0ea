package web

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"nutrilens/internal/storage"
)

const flashCookie = "flash"

// Flash is a one-shot message surfaced on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

// PageData is the root object handed to every template.
type PageData struct {
	User  *storage.User
	Flash *Flash
	Data  any
}

// Renderer executes the parsed page templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses all templates in the directory.
func NewRenderer(dir string) (*Renderer, error) {
	tmpl, err := template.ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the named page, attaching the current user and any pending
// flash message.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data any) {
	page := PageData{
		Flash: PopFlash(w, req),
		Data:  data,
	}
	if user, ok := UserFromRequest(req); ok {
		page.User = &user
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := r.tmpl.ExecuteTemplate(w, name, page); err != nil {
		log.Printf("render %s: %v", name, err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

// SetFlash queues a message for the next page render.
func SetFlash(w http.ResponseWriter, category, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(category + "|" + message),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash reads and clears the pending flash message, if any.
func PopFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	category, message, found := strings.Cut(raw, "|")
	if !found {
		return &Flash{Category: "info", Message: raw}
	}
	return &Flash{Category: category, Message: message}
}
