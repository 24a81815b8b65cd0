// Package handlers implements the HTTP surface. Each handler serves both
// HTML (form posts, server-rendered pages) and JSON (Accept negotiation)
// for the same operation.
package handlers

import (
	"net/http"

	"github.com/algasur/algatrack/view"
)

// renderTemplate uses the shared view.Render so layout, partials, funcs,
// and caching behave the same everywhere.
func renderTemplate(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if err := view.Render(w, r, name+".html", data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte("template error")); werr != nil {
			_ = werr
		}
	}
}

const statusSeeOther = http.StatusSeeOther
