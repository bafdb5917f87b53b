package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
)

// pageTitles maps page name → browser title. The keys double as the list of
// pages this handler serves; anything else is a 404.
var pageTitles = map[string]string{
	"login":            "ShopWithUs — Log In",
	"home":             "ShopWithUs",
	"personalization":  "ShopWithUs — Personalization",
	"account-settings": "ShopWithUs — Account Settings",
	"llm-consent":      "ShopWithUs — AI Data Settings",
	"thank-you":        "ShopWithUs — Thank You",
}

// PagesHandler renders the site's HTML pages.
//
// Each page file defines a "content" block that base.html pulls in. Because
// every page defines the same block name, each page gets its own parsed
// template set — they cannot share one *template.Template.
type PagesHandler struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewPagesHandler parses all page templates once at startup.
func NewPagesHandler(templateDir string, logger *slog.Logger) (*PagesHandler, error) {
	pages := make(map[string]*template.Template, len(pageTitles))
	for name := range pageTitles {
		tmpl, err := template.ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, name+".html"),
		)
		if err != nil {
			return nil, err
		}
		pages[name] = tmpl
	}

	return &PagesHandler{
		pages:  pages,
		logger: logger,
	}, nil
}

// HandlePage serves the named page. Used as a closure in the router:
//
//	r.Get("/home", pages.HandlePage("home"))
func (h *PagesHandler) HandlePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, ok := h.pages[name]
		if !ok {
			http.NotFound(w, r)
			return
		}

		data := map[string]interface{}{
			"Title": pageTitles[name],
			"Page":  name,
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
			h.logger.Error("failed to render template",
				slog.String("page", name),
				slog.String("error", err.Error()),
			)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}
