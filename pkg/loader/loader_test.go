package loader

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glaze-dev/glaze/pkg/router"
)

func fetchResponse(status int, body string, header http.Header) router.FetchFunc {
	return func(ctx context.Context, req *http.Request) (*http.Response, error) {
		if header == nil {
			header = http.Header{}
		}
		return &http.Response{
			StatusCode: status,
			Header:     header,
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	}
}

func testMatch(t *testing.T, pattern, pathname string, mod *router.RouteModule) router.Match {
	t.Helper()
	r := &router.Route{
		Pattern: router.MustPattern(pattern),
		Loader:  func(context.Context) (*router.RouteModule, error) { return mod, nil },
		Meta:    router.Meta{Pattern: pattern, Filename: "/routes" + pattern + ".go"},
	}
	return router.Match{Route: r, Params: router.Params{}, Pathname: pathname}
}

func testRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func TestLoadDataOutcome(t *testing.T) {
	mod := &router.RouteModule{
		HasDefault: true,
		Data:       &router.DataConfig{Fetch: fetchResponse(200, `{"title":"hi"}`, nil)},
	}
	modules, err := Load(testRequest(t, "http://localhost/page"), []router.Match{testMatch(t, "/page", "/page", mod)})
	if err != nil {
		t.Fatal(err)
	}
	if len(modules) != 1 {
		t.Fatalf("got %d modules, want 1", len(modules))
	}
	data, ok := modules[0].Outcome.Data()
	if !ok {
		t.Fatalf("outcome kind = %v, want data", modules[0].Outcome.Kind())
	}
	if string(data) != `{"title":"hi"}` {
		t.Errorf("data = %s", data)
	}
}

func TestLoadErrorStatus(t *testing.T) {
	mod := &router.RouteModule{
		HasDefault: true,
		Data:       &router.DataConfig{Fetch: fetchResponse(404, "not here", nil)},
	}
	modules, err := Load(testRequest(t, "http://localhost/x"), []router.Match{testMatch(t, "/x", "/x", mod)})
	if err != nil {
		t.Fatal(err)
	}
	fe, ok := modules[0].Outcome.Err()
	if !ok {
		t.Fatalf("outcome kind = %v, want error", modules[0].Outcome.Kind())
	}
	if fe.Message != "not here" || fe.Status != 404 {
		t.Errorf("error = %+v", fe)
	}
}

func TestLoadRedirect(t *testing.T) {
	header := http.Header{}
	header.Set("Location", "/login")
	mod := &router.RouteModule{
		HasDefault: true,
		Data:       &router.DataConfig{Fetch: fetchResponse(302, "", header)},
	}
	modules, err := Load(testRequest(t, "http://localhost/private"), []router.Match{testMatch(t, "/private", "/private", mod)})
	if err != nil {
		t.Fatal(err)
	}
	h, status, ok := modules[0].Outcome.Redirect()
	if !ok {
		t.Fatalf("outcome kind = %v, want redirect", modules[0].Outcome.Kind())
	}
	if status != 302 || h.Get("Location") != "/login" {
		t.Errorf("redirect = %d %v", status, h)
	}
	if _, ok := modules[0].Outcome.Err(); ok {
		t.Error("redirect outcome also reports an error")
	}

	if _, gotStatus, ok := Redirect(modules); !ok || gotStatus != 302 {
		t.Errorf("Redirect() = %d, %v", gotStatus, ok)
	}
}

func TestLoadRedirectWithoutLocation(t *testing.T) {
	mod := &router.RouteModule{
		HasDefault: true,
		Data:       &router.DataConfig{Fetch: fetchResponse(301, "", nil)},
	}
	modules, err := Load(testRequest(t, "http://localhost/x"), []router.Match{testMatch(t, "/x", "/x", mod)})
	if err != nil {
		t.Fatal(err)
	}
	fe, ok := modules[0].Outcome.Err()
	if !ok {
		t.Fatalf("outcome kind = %v, want error", modules[0].Outcome.Kind())
	}
	if fe.Message != "Missing the Location header" || fe.Status != 400 {
		t.Errorf("error = %+v", fe)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	mod := &router.RouteModule{
		HasDefault: true,
		Data:       &router.DataConfig{Fetch: fetchResponse(200, "<html>", nil)},
	}
	modules, err := Load(testRequest(t, "http://localhost/x"), []router.Match{testMatch(t, "/x", "/x", mod)})
	if err != nil {
		t.Fatal(err)
	}
	fe, ok := modules[0].Outcome.Err()
	if !ok {
		t.Fatalf("outcome kind = %v, want error", modules[0].Outcome.Kind())
	}
	if fe.Message != "Data must be valid JSON" || fe.Status != 400 {
		t.Errorf("error = %+v", fe)
	}
	if _, ok := modules[0].Outcome.Data(); ok {
		t.Error("data set alongside error")
	}
}

func TestLoadNoFetch(t *testing.T) {
	mod := &router.RouteModule{HasDefault: true}
	modules, err := Load(testRequest(t, "http://localhost/x"), []router.Match{testMatch(t, "/x", "/x", mod)})
	if err != nil {
		t.Fatal(err)
	}
	if modules[0].Outcome.Kind() != KindNoFetch {
		t.Errorf("outcome kind = %v, want no-fetch", modules[0].Outcome.Kind())
	}
}

func TestLoadNilResponseIgnored(t *testing.T) {
	mod := &router.RouteModule{
		HasDefault: true,
		Data: &router.DataConfig{Fetch: func(context.Context, *http.Request) (*http.Response, error) {
			return nil, nil
		}},
	}
	modules, err := Load(testRequest(t, "http://localhost/x"), []router.Match{testMatch(t, "/x", "/x", mod)})
	if err != nil {
		t.Fatal(err)
	}
	if modules[0].Outcome.Kind() != KindNoFetch {
		t.Errorf("outcome kind = %v, want no-fetch", modules[0].Outcome.Kind())
	}
}

func TestRenderSetFiltersModulesWithoutDefaultExport(t *testing.T) {
	matches := []router.Match{
		testMatch(t, "/_app", "/page", &router.RouteModule{HasDefault: true}),
		testMatch(t, "/middleware", "/page", &router.RouteModule{HasDefault: false}),
		testMatch(t, "/page", "/page", &router.RouteModule{HasDefault: true}),
	}
	loaded, err := Load(testRequest(t, "http://localhost/page"), matches)
	if err != nil {
		t.Fatal(err)
	}
	// Load keeps every resolved module; only RenderSet narrows.
	if len(loaded) != 3 {
		t.Fatalf("got %d loaded modules, want 3", len(loaded))
	}
	modules := RenderSet(loaded)
	if len(modules) != 2 {
		t.Fatalf("got %d render modules, want 2", len(modules))
	}
	if modules[0].Filename != "/routes/_app.go" || modules[1].Filename != "/routes/page.go" {
		t.Errorf("surviving modules: %s, %s", modules[0].Filename, modules[1].Filename)
	}
}

func TestRedirectFromModuleWithoutDefaultExport(t *testing.T) {
	header := http.Header{}
	header.Set("Location", "/login")
	mod := &router.RouteModule{
		HasDefault: false,
		Data:       &router.DataConfig{Fetch: fetchResponse(302, "", header)},
	}
	loaded, err := Load(testRequest(t, "http://localhost/private"), []router.Match{testMatch(t, "/private", "/private", mod)})
	if err != nil {
		t.Fatal(err)
	}
	h, status, ok := Redirect(loaded)
	if !ok {
		t.Fatal("redirect from a module without a default export was lost")
	}
	if status != 302 || h.Get("Location") != "/login" {
		t.Errorf("redirect = %d %v", status, h)
	}
	if got := RenderSet(loaded); len(got) != 0 {
		t.Errorf("render set = %d modules, want 0", len(got))
	}
}

func TestLoadPreservesMatchOrder(t *testing.T) {
	// Stagger completion so the slowest module finishes first in wall time
	// but still lands in match order.
	delayed := func(d time.Duration) router.FetchFunc {
		return func(ctx context.Context, req *http.Request) (*http.Response, error) {
			time.Sleep(d)
			return &http.Response{
				StatusCode: 200,
				Header:     http.Header{},
				Body:       io.NopCloser(strings.NewReader(`"` + req.URL.Path + `"`)),
			}, nil
		}
	}
	matches := []router.Match{
		testMatch(t, "/a", "/a", &router.RouteModule{HasDefault: true, Data: &router.DataConfig{Fetch: delayed(30 * time.Millisecond)}}),
		testMatch(t, "/b", "/b", &router.RouteModule{HasDefault: true, Data: &router.DataConfig{Fetch: delayed(0)}}),
	}
	modules, err := Load(testRequest(t, "http://localhost/a"), matches)
	if err != nil {
		t.Fatal(err)
	}
	if modules[0].Filename != "/routes/a.go" || modules[1].Filename != "/routes/b.go" {
		t.Errorf("order not preserved: %s, %s", modules[0].Filename, modules[1].Filename)
	}
}

func TestLoadFetchFailureAbortsBatch(t *testing.T) {
	boom := errors.New("connection refused")
	matches := []router.Match{
		testMatch(t, "/ok", "/ok", &router.RouteModule{HasDefault: true}),
		testMatch(t, "/bad", "/bad", &router.RouteModule{
			HasDefault: true,
			Data: &router.DataConfig{Fetch: func(context.Context, *http.Request) (*http.Response, error) {
				return nil, boom
			}},
		}),
	}
	_, err := Load(testRequest(t, "http://localhost/ok"), matches)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

func TestLoadComputedURL(t *testing.T) {
	mod := &router.RouteModule{
		HasDefault: true,
		Data: &router.DataConfig{Fetch: func(ctx context.Context, req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/docs" {
				t.Errorf("derived request path = %q, want /docs", req.URL.Path)
			}
			if req.Method != http.MethodGet {
				t.Errorf("derived request method = %q", req.Method)
			}
			return &http.Response{StatusCode: 200, Header: http.Header{}, Body: io.NopCloser(strings.NewReader("null"))}, nil
		}},
	}
	// Ancestor layout match: request path differs from matched pathname.
	modules, err := Load(testRequest(t, "http://localhost/docs/guides?tab=1"), []router.Match{testMatch(t, "/docs", "/docs", mod)})
	if err != nil {
		t.Fatal(err)
	}
	if modules[0].URL.Path != "/docs" {
		t.Errorf("module URL path = %q, want /docs", modules[0].URL.Path)
	}
	if modules[0].URL.RawQuery != "tab=1" {
		t.Errorf("module URL query = %q, want tab=1", modules[0].URL.RawQuery)
	}
}

func TestLoadCacheTTL(t *testing.T) {
	mod := &router.RouteModule{HasDefault: true, Data: &router.DataConfig{CacheTTL: 60}}
	modules, err := Load(testRequest(t, "http://localhost/x"), []router.Match{testMatch(t, "/x", "/x", mod)})
	if err != nil {
		t.Fatal(err)
	}
	if modules[0].DataCacheTTL != 60 {
		t.Errorf("ttl = %d, want 60", modules[0].DataCacheTTL)
	}
}
