package glaze

import (
	"fmt"
	"net/http"
	"time"

	"github.com/glaze-dev/glaze/pkg/loader"
)

// nonCacheable marks responses whose data has no declared lifetime, and
// every render failure.
const nonCacheable = "public, max-age=0, must-revalidate"

// cacheControl derives the response cache policy from the modules' data
// TTLs. With more than one positive TTL the minimum wins; with exactly one,
// that one; with none the response is non-cacheable. A render failure always
// forces the non-cacheable policy.
func cacheControl(modules []*loader.Module, renderFailed bool) string {
	if renderFailed {
		return nonCacheable
	}
	minTTL := 0
	for _, mod := range modules {
		if mod.DataCacheTTL <= 0 {
			continue
		}
		if minTTL == 0 || mod.DataCacheTTL < minTTL {
			minTTL = mod.DataCacheTTL
		}
	}
	if minTTL == 0 {
		return nonCacheable
	}
	return fmt.Sprintf("public, max-age=%d", minTTL)
}

// notModified reports whether the request's conditional header matches the
// template's modification time. HTTP dates have second precision, so the
// comparison truncates.
func notModified(r *http.Request, modTime time.Time) bool {
	ims := r.Header.Get("If-Modified-Since")
	if ims == "" {
		return false
	}
	t, err := http.ParseTime(ims)
	if err != nil {
		return false
	}
	return !modTime.Truncate(time.Second).After(t)
}

func formatModTime(modTime time.Time) string {
	return modTime.UTC().Format(http.TimeFormat)
}
