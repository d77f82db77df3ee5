package router

import (
	"fmt"
	"regexp"
	"strings"
)

// PathPattern is the default Pattern implementation. It matches pathnames
// segment by segment:
//
//	/docs            static segments match literally
//	/users/:id       ":name" captures one segment
//	/files/*rest     "*name" captures the remaining path
//
// An optional host constraint limits the pattern to a single host; the empty
// host matches any request.
type PathPattern struct {
	raw  string
	host string
	re   *regexp.Regexp
}

// PatternOption configures pattern compilation.
type PatternOption func(*PathPattern)

// WithHost restricts the pattern to requests for the given host.
func WithHost(host string) PatternOption {
	return func(p *PathPattern) {
		p.host = host
	}
}

// NewPattern compiles a path pattern.
func NewPattern(pattern string, opts ...PatternOption) (*PathPattern, error) {
	p := &PathPattern{raw: pattern}
	for _, opt := range opts {
		opt(p)
	}

	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("router: pattern %q must start with a slash", pattern)
	}

	var b strings.Builder
	b.WriteString("^")
	for _, seg := range strings.Split(strings.TrimPrefix(pattern, "/"), "/") {
		b.WriteString("/")
		switch {
		case strings.HasPrefix(seg, ":"):
			name := seg[1:]
			if name == "" {
				return nil, fmt.Errorf("router: pattern %q has an unnamed parameter", pattern)
			}
			fmt.Fprintf(&b, "(?P<%s>[^/]+)", regexp.QuoteMeta(name))
		case strings.HasPrefix(seg, "*"):
			name := seg[1:]
			if name == "" {
				return nil, fmt.Errorf("router: pattern %q has an unnamed catch-all", pattern)
			}
			fmt.Fprintf(&b, "(?P<%s>.*)", regexp.QuoteMeta(name))
		default:
			b.WriteString(regexp.QuoteMeta(seg))
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("router: pattern %q: %w", pattern, err)
	}
	p.re = re
	return p, nil
}

// MustPattern is like NewPattern but panics on a malformed pattern.
// Intended for route tables built from literals.
func MustPattern(pattern string, opts ...PatternOption) *PathPattern {
	p, err := NewPattern(pattern, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Exec implements Pattern.
func (p *PathPattern) Exec(host, pathname string) (Params, bool) {
	if p.host != "" && p.host != host {
		return nil, false
	}
	m := p.re.FindStringSubmatch(pathname)
	if m == nil {
		return nil, false
	}
	params := Params{}
	for i, name := range p.re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		params[name] = m[i]
	}
	return params, true
}

// String implements Pattern.
func (p *PathPattern) String() string { return p.raw }
