// Package view renders HTML templates with a small parse cache. The host
// app injects permission callbacks so templates can show or hide sections
// without importing policy types.
package view

import (
	"bytes"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sync"
)

var (
	baseDir string
	once    sync.Once

	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}

	// permission resolvers set by the host app so templates can check auth
	canModuleResolver = func(*http.Request, string) bool { return false }
	isAdminResolver   = func(*http.Request) bool { return false }
)

// SetCanModuleResolver sets the callback templates use to test whether the
// current user may reach a named module.
func SetCanModuleResolver(f func(*http.Request, string) bool) {
	if f != nil {
		canModuleResolver = f
	}
}

// SetIsAdminResolver sets the callback templates use to detect admins.
func SetIsAdminResolver(f func(*http.Request) bool) {
	if f != nil {
		isAdminResolver = f
	}
}

// Dir returns the template root, TEMPLATES_DIR or ./templates.
func Dir() string {
	once.Do(func() {
		baseDir = os.Getenv("TEMPLATES_DIR")
		if baseDir == "" {
			baseDir = "templates"
		}
	})
	return baseDir
}

func load(name string) (*template.Template, error) {
	tplCache.RLock()
	t, ok := tplCache.m[name]
	tplCache.RUnlock()
	if ok && os.Getenv("DEV") != "1" {
		return t, nil
	}

	mainPath := filepath.Join(Dir(), name)
	files := []string{mainPath}
	if layout := filepath.Join(Dir(), "layout.html"); fileExists(layout) && name != "layout.html" {
		files = append([]string{layout}, files...)
	}

	t, err := template.New(filepath.Base(files[0])).ParseFiles(files...)
	if err != nil {
		return nil, err
	}

	tplCache.Lock()
	tplCache.m[name] = t
	tplCache.Unlock()
	return t, nil
}

// Render executes the named template into a buffer and writes it out.
// The data map is extended with CanModule/IsAdmin closures bound to the
// current request.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	t, err := load(name)
	if err != nil {
		return err
	}
	if data == nil {
		data = map[string]any{}
	}
	data["CanModule"] = func(module string) bool { return canModuleResolver(r, module) }
	data["IsAdmin"] = isAdminResolver(r)

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = buf.WriteTo(w)
	return err
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
