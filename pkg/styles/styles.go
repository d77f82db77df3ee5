// Package styles gathers per-module <style> fragments by walking the module
// dependency graph.
//
// The graph, the CSS bundler, and the utility-class generator are external
// collaborators supplied by the build layer; this package only drives them
// and shapes their output into style tags.
package styles

import (
	"fmt"
	"html"
	"strings"

	"github.com/glaze-dev/glaze/pkg/loader"
)

// Dependency is one node reported by a graph walk.
type Dependency struct {
	// Specifier is the dependency's module id, e.g. "/style/app.css".
	Specifier string

	// CSS marks a CSS-file dependency. Source holds its raw bytes.
	CSS    bool
	Source []byte

	// InlineStyle holds utility-class markup carried by a non-CSS
	// dependency. Empty when the dependency carries none.
	InlineStyle string
}

// Graph walks a module's transitive dependency subtree in first-discovered
// order.
type Graph interface {
	Walk(filename string, visit func(dep Dependency))
}

// Bundler bundles a CSS-file dependency. Minification is requested outside
// development mode.
type Bundler func(specifier string, source []byte, minify bool) (string, error)

// UtilityGenerator produces utility-class CSS from inline markup, keyed by
// module id. An empty result emits no tag.
type UtilityGenerator func(source, id string, minify bool) (string, error)

// Collector gathers style tags for a rendered module set.
type Collector struct {
	Graph   Graph
	Bundle  Bundler
	Utility UtilityGenerator

	// Dev disables minification.
	Dev bool
}

// Collect walks each rendered module's dependency subtree and returns one
// <style> tag per CSS or inline-style dependency, each carrying a
// data-module-id attribute equal to its source specifier, in
// first-discovered order. Tags are not deduplicated across modules.
func (c *Collector) Collect(modules []*loader.Module) ([]string, error) {
	if c.Graph == nil {
		return nil, nil
	}

	var tags []string
	var walkErr error
	for _, mod := range modules {
		c.Graph.Walk(mod.Filename, func(dep Dependency) {
			if walkErr != nil {
				return
			}
			tag, err := c.styleTag(dep)
			if err != nil {
				walkErr = err
				return
			}
			if tag != "" {
				tags = append(tags, tag)
			}
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}
	return tags, nil
}

func (c *Collector) styleTag(dep Dependency) (string, error) {
	switch {
	case dep.CSS:
		if c.Bundle == nil {
			return "", nil
		}
		code, err := c.Bundle(dep.Specifier, dep.Source, !c.Dev)
		if err != nil {
			return "", fmt.Errorf("styles: bundle %s: %w", dep.Specifier, err)
		}
		return renderTag(dep.Specifier, code), nil
	case dep.InlineStyle != "":
		if c.Utility == nil {
			return "", nil
		}
		css, err := c.Utility(dep.InlineStyle, dep.Specifier, !c.Dev)
		if err != nil {
			return "", fmt.Errorf("styles: utility css %s: %w", dep.Specifier, err)
		}
		if css == "" {
			return "", nil
		}
		return renderTag(dep.Specifier, css), nil
	default:
		return "", nil
	}
}

func renderTag(specifier, css string) string {
	var b strings.Builder
	b.WriteString(`<style data-module-id="`)
	b.WriteString(html.EscapeString(specifier))
	b.WriteString(`">`)
	b.WriteString(css)
	b.WriteString(`</style>`)
	return b.String()
}
