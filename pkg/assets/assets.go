// Package assets normalizes asset references found in the static template
// and resolves them through an optional fingerprint manifest.
//
// During a production build the bundler writes a manifest.json mapping
// source asset names to their fingerprinted versions:
//
//	{
//	  "app.js": "app.a1b2c3d4.min.js",
//	  "style/base.css": "style/base.e5f6g7h8.css"
//	}
//
// The stream rewriter runs every link href and script src through a
// Resolver, so relative references come out root-anchored and, when a
// manifest is loaded, fingerprinted.
package assets

import (
	"encoding/json"
	"os"
	"path"
	"strings"
	"sync"
)

// Manifest maps source asset paths to fingerprinted paths. Safe for
// concurrent use.
type Manifest struct {
	mu      sync.RWMutex
	entries map[string]string
}

// LoadManifest reads a manifest.json file.
func LoadManifest(file string) (*Manifest, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return &Manifest{entries: entries}, nil
}

// Lookup returns the fingerprinted path for a source path.
func (m *Manifest) Lookup(source string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fingerprinted, ok := m.entries[source]
	return fingerprinted, ok
}

// Set records or replaces one mapping. Used by watch-mode rebuilds.
func (m *Manifest) Set(source, fingerprinted string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]string)
	}
	m.entries[source] = fingerprinted
}

// Resolver normalizes template asset references.
type Resolver struct {
	// Manifest is consulted for fingerprinted names. May be nil.
	Manifest *Manifest
}

// Resolve normalizes a template reference. Relative references are
// root-anchored and path-cleaned; absolute URLs, protocol-relative URLs and
// data URIs pass through untouched.
func (r *Resolver) Resolve(ref string) string {
	if ref == "" || isExternal(ref) {
		return ref
	}
	rel := strings.TrimPrefix(ref, "/")
	if r.Manifest != nil {
		if fingerprinted, ok := r.Manifest.Lookup(rel); ok {
			rel = fingerprinted
		}
	}
	return path.Clean("/" + rel)
}

func isExternal(ref string) bool {
	return strings.HasPrefix(ref, "//") ||
		strings.HasPrefix(ref, "data:") ||
		strings.Contains(ref, "://")
}
