// Package loader resolves matched routes into per-request SSR modules.
//
// Each matched route's module is imported and its optional data-fetch hook is
// invoked with a request derived from the incoming one. All modules load
// concurrently; the result slice always preserves match order regardless of
// completion order.
package loader

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/glaze-dev/glaze/pkg/router"
)

// Fetch error messages. These are part of the hydration payload and must not
// change between releases.
const (
	msgMissingLocation = "Missing the Location header"
	msgInvalidJSON     = "Data must be valid JSON"
)

// Module is the resolved per-request state for one matched route.
type Module struct {
	// URL is the request URL with the matched pathname substituted in.
	URL *url.URL

	// Filename is the route module's specifier.
	Filename string

	// HasDefault reports whether the module exports a page component.
	HasDefault bool

	// Outcome is the module's data-fetch result.
	Outcome Outcome

	// DataCacheTTL is the module's data cache lifetime in seconds.
	// Zero means the module declared none.
	DataCacheTTL int
}

// Load resolves every match into a Module, concurrently, preserving match
// order in the output. A loader or fetch transport failure aborts the whole
// batch; status-level outcomes (4xx, 3xx, malformed bodies) are captured per
// module and never abort it.
//
// The result is the full resolved set, including modules without a default
// export: a module whose fetch computed a redirect is honored even though
// the module never renders. Check Redirect on this set, then narrow to
// RenderSet for rendering and hydration.
func Load(req *http.Request, matches []router.Match) ([]*Module, error) {
	if len(matches) == 0 {
		return nil, nil
	}

	resolved := make([]*Module, len(matches))
	g, ctx := errgroup.WithContext(req.Context())
	for i := range matches {
		i := i
		g.Go(func() error {
			match := matches[i]
			mod, err := match.Route.Loader(ctx)
			if err != nil {
				return fmt.Errorf("loader: import %s: %w", match.Route.Meta.Filename, err)
			}

			modURL := *req.URL
			modURL.Path = match.Pathname
			entry := &Module{
				URL:      &modURL,
				Filename: match.Route.Meta.Filename,
			}
			if mod != nil {
				entry.HasDefault = mod.HasDefault
				if mod.Data != nil {
					entry.DataCacheTTL = mod.Data.CacheTTL
					if mod.Data.Fetch != nil {
						derived := req.Clone(ctx)
						derived.URL = &modURL
						derived.Host = modURL.Host
						resp, err := mod.Data.Fetch(ctx, derived)
						if err != nil {
							return fmt.Errorf("loader: fetch %s: %w", match.Route.Meta.Filename, err)
						}
						outcome, err := interpret(resp)
						if err != nil {
							return err
						}
						entry.Outcome = outcome
					}
				}
			}
			resolved[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resolved, nil
}

// RenderSet narrows a Load result to the modules with a default export.
// Only these participate in rendering, hydration and cache policy.
func RenderSet(modules []*Module) []*Module {
	out := make([]*Module, 0, len(modules))
	for _, m := range modules {
		if m.HasDefault {
			out = append(out, m)
		}
	}
	return out
}

// interpret maps an HTTP-response-shaped fetch result onto an outcome.
// A nil response is ignored.
func interpret(resp *http.Response) (Outcome, error) {
	if resp == nil {
		return NoFetch(), nil
	}
	var body []byte
	if resp.Body != nil {
		defer resp.Body.Close()
		var err error
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return Outcome{}, fmt.Errorf("loader: read fetch body: %w", err)
		}
	}

	switch {
	case resp.StatusCode >= 400:
		return ErrorOutcome(string(body), resp.StatusCode), nil
	case resp.StatusCode >= 300:
		if resp.Header.Get("Location") == "" {
			return ErrorOutcome(msgMissingLocation, http.StatusBadRequest), nil
		}
		return RedirectOutcome(resp.Header.Clone(), resp.StatusCode), nil
	default:
		if !json.Valid(body) {
			return ErrorOutcome(msgInvalidJSON, http.StatusBadRequest), nil
		}
		return DataOutcome(json.RawMessage(body)), nil
	}
}

// Redirect returns the first redirect outcome across modules, if any. The
// pipeline returns it as an empty-body redirect before rendering. Pass the
// unfiltered Load result so a redirect from a module without a default
// export is not lost.
func Redirect(modules []*Module) (http.Header, int, bool) {
	for _, m := range modules {
		if header, status, ok := m.Outcome.Redirect(); ok {
			return header, status, true
		}
	}
	return nil, 0, false
}
