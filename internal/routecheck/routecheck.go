// Package routecheck verifies captured routes against the application's
// OpenAPI document. It only produces warnings upstream; an unknown route is
// a documentation smell, not a capture failure.
package routecheck

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Guard answers whether a method/path pair appears in an OpenAPI document.
type Guard struct {
	doc *openapi3.T
}

// Load reads and parses the OpenAPI document at path.
func Load(path string) (*Guard, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi document %s: %w", path, err)
	}
	return &Guard{doc: doc}, nil
}

// FromData parses an in-memory OpenAPI document.
func FromData(data []byte) (*Guard, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	return &Guard{doc: doc}, nil
}

// Known reports whether the document declares an operation for the given
// method and request path. Templated segments such as {id} match any single
// path segment.
func (g *Guard) Known(method, path string) bool {
	if g == nil || g.doc == nil || g.doc.Paths == nil {
		return false
	}

	for template, item := range g.doc.Paths.Map() {
		if item == nil || item.GetOperation(strings.ToUpper(method)) == nil {
			continue
		}
		if matchTemplate(template, path) {
			return true
		}
	}
	return false
}

func matchTemplate(template, path string) bool {
	templateSegments := splitPath(template)
	pathSegments := splitPath(path)
	if len(templateSegments) != len(pathSegments) {
		return false
	}

	for i, seg := range templateSegments {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			continue
		}
		if seg != pathSegments[i] {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
