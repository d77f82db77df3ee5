package glaze

import (
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

// =============================================================================
// Static Template Source
// =============================================================================

// Template is the static HTML template byte source. The file is read on
// every request; the modification time feeds Last-Modified handling.
type Template struct {
	path string
}

// NewTemplate creates a template source for a file path.
func NewTemplate(path string) *Template {
	return &Template{path: path}
}

// Path returns the template file path.
func (t *Template) Path() string { return t.path }

// Load reads the template bytes and modification time. Errors propagate to
// the caller; the pipeline does not swallow unreadable templates.
func (t *Template) Load() ([]byte, time.Time, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil, time.Time{}, err
	}
	return data, info.ModTime(), nil
}

// =============================================================================
// Static File Serving
// =============================================================================

// staticRelPath returns a sanitized relative path for a static file request.
// It rejects traversal and absolute-path tricks so serving cannot escape the
// configured static directory.
func (a *App) staticRelPath(urlPath string) (string, bool) {
	if a.staticFS == nil || a.staticDir == "" {
		return "", false
	}

	rel := strings.TrimPrefix(urlPath, a.staticPrefix)
	if rel == "" || (rel == urlPath && a.staticPrefix != "/") {
		return "", false
	}
	rel = strings.TrimPrefix(rel, "/")

	// NUL can appear via %00; backslashes are platform-dependent
	// separators; dot-segments must be rejected before cleaning so a
	// traversal attempt is never "cleaned away" into a different path.
	if strings.IndexByte(rel, 0) != -1 || strings.Contains(rel, "\\") {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == "" || strings.HasPrefix(clean, "/") {
		return "", false
	}
	return clean, true
}

// shouldServeStatic reports whether the path resolves to an existing file in
// the static directory.
func (a *App) shouldServeStatic(urlPath string) bool {
	rel, ok := a.staticRelPath(urlPath)
	if !ok {
		return false
	}
	f, err := a.staticFS.Open(rel)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// serveStatic handles static file requests.
func (a *App) serveStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	rel, ok := a.staticRelPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	f, err := a.staticFS.Open(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
