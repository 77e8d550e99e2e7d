// Package storage maps exchanges to fixture files on disk: a pluggable
// layout strategy picks the directory, a filesystem-probing resolver picks
// collision-free filenames, and FileStorage performs the writes.
package storage

import (
	"path/filepath"

	"github.com/fixturelab/autofixture/pkg/fixture"
)

const (
	defaultRequestBase  = "request"
	defaultResponseBase = "response"
)

// Location is the placement computed by a Layout for one exchange: a
// directory relative to the fixture root and the base names for the request
// and response files (without suffix or extension).
type Location struct {
	Dir          string
	RequestBase  string
	ResponseBase string
}

// Layout is the strategy that places an exchange within the fixture
// directory. Implementations must be stateless; the layout is chosen once at
// controller construction, not per exchange.
type Layout interface {
	Locate(ex fixture.Exchange) Location
}

// RequestMethodLayout groups fixtures by request method first:
//
//	<appName>/<METHOD>/<normalized-path>/response.json
//
// This is the default layout.
type RequestMethodLayout struct{}

// Locate implements Layout.
func (RequestMethodLayout) Locate(ex fixture.Exchange) Location {
	requestBase, responseBase := baseNames(ex)
	return Location{
		Dir:          filepath.Join(ex.AppName, ex.Method, ex.Path),
		RequestBase:  requestBase,
		ResponseBase: responseBase,
	}
}

// RouteLayout groups fixtures by resource route first:
//
//	<appName>/<normalized-path>/<METHOD>/response.json
type RouteLayout struct{}

// Locate implements Layout.
func (RouteLayout) Locate(ex fixture.Exchange) Location {
	requestBase, responseBase := baseNames(ex)
	return Location{
		Dir:          filepath.Join(ex.AppName, ex.Path, ex.Method),
		RequestBase:  requestBase,
		ResponseBase: responseBase,
	}
}

func baseNames(ex fixture.Exchange) (string, string) {
	requestBase := ex.Names.Request
	if requestBase == "" {
		requestBase = defaultRequestBase
	}
	responseBase := ex.Names.Response
	if responseBase == "" {
		responseBase = defaultResponseBase
	}
	return requestBase, responseBase
}
