package assets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveNormalizesRelativeRefs(t *testing.T) {
	r := &Resolver{}
	tests := []struct {
		in   string
		want string
	}{
		{"style.css", "/style.css"},
		{"./style.css", "/style.css"},
		{"a/../b/app.js", "/b/app.js"},
		{"/already/rooted.js", "/already/rooted.js"},
	}
	for _, tt := range tests {
		if got := r.Resolve(tt.in); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveLeavesExternalRefs(t *testing.T) {
	r := &Resolver{}
	for _, ref := range []string{
		"https://cdn.example.com/app.js",
		"//cdn.example.com/app.js",
		"data:text/css;base64,Ym9keXt9",
		"",
	} {
		if got := r.Resolve(ref); got != ref {
			t.Errorf("Resolve(%q) = %q, want unchanged", ref, got)
		}
	}
}

func TestResolveAppliesManifest(t *testing.T) {
	m := &Manifest{}
	m.Set("app.js", "app.a1b2c3d4.min.js")
	r := &Resolver{Manifest: m}

	if got := r.Resolve("app.js"); got != "/app.a1b2c3d4.min.js" {
		t.Errorf("Resolve = %q", got)
	}
	if got := r.Resolve("/app.js"); got != "/app.a1b2c3d4.min.js" {
		t.Errorf("rooted Resolve = %q", got)
	}
	if got := r.Resolve("other.js"); got != "/other.js" {
		t.Errorf("unmapped Resolve = %q", got)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(file, []byte(`{"app.js":"app.abc.js"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadManifest(file)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := m.Lookup("app.js"); !ok || got != "app.abc.js" {
		t.Errorf("Lookup = %q, %v", got, ok)
	}

	if _, err := LoadManifest(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing manifest did not error")
	}
}
