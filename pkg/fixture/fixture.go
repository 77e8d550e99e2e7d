// Package fixture defines the immutable exchange model: one captured HTTP
// request/response pair plus the metadata needed to name and place it on
// disk.
package fixture

import (
	"errors"
	"fmt"
	"mime"
	"strings"
)

// ErrUnsupportedContentType reports that one side of an exchange carried a
// content type outside the recognized set. It applies to that side only; the
// other side of the exchange is still captured.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// RootPathName is the directory token substituted for the application root
// path "/", which would otherwise normalize to an empty string.
const RootPathName = "root"

const pathSeparator = "-"

// Request carries the observable parts of an incoming request, filled by the
// host adapter before the application handles it.
type Request struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

// Response carries the observable parts of an outgoing response.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Names holds explicit fixture base names supplied by a Record bracket.
// Empty fields fall back to the layout defaults.
type Names struct {
	Request  string
	Response string
}

// Exchange is one captured round trip. It is built exactly once per observed
// request/response pair and never mutated afterwards; it is either fully
// persisted or fully discarded.
type Exchange struct {
	AppName string
	Method  string
	Path    string // normalized, filesystem-safe
	TestID  string
	Names   Names

	RequestBody  []byte
	ResponseBody []byte

	HasRequest  bool
	HasResponse bool
}

// Build assembles an Exchange from one observed round trip.
//
// A side whose content type is not recognized is omitted rather than
// aborting the exchange: the returned error wraps ErrUnsupportedContentType
// for each omitted side and the Exchange remains usable. The request side is
// only captured when a body was actually sent; the response side is captured
// whenever its content type is recognized, even for an empty body.
func Build(appName, testID string, req *Request, resp *Response, names Names, mountPrefix string) (Exchange, error) {
	ex := Exchange{
		AppName: appName,
		Method:  req.Method,
		Path:    NormalizePath(req.Path, mountPrefix),
		TestID:  testID,
		Names:   names,
	}

	var errs []error

	if len(req.Body) > 0 {
		if Supported(req.ContentType) {
			ex.RequestBody = append([]byte(nil), req.Body...)
			ex.HasRequest = true
		} else {
			errs = append(errs, fmt.Errorf("request body (%s): %w", req.ContentType, ErrUnsupportedContentType))
		}
	}

	if resp != nil {
		if Supported(resp.ContentType) {
			ex.ResponseBody = append([]byte(nil), resp.Body...)
			ex.HasResponse = true
		} else {
			errs = append(errs, fmt.Errorf("response body (%s): %w", resp.ContentType, ErrUnsupportedContentType))
		}
	}

	return ex, errors.Join(errs...)
}

// Supported reports whether the given content type belongs to the recognized
// set: application/json and any application/*+json media type. Parameters
// such as charset are ignored.
func Supported(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	if mediaType == "application/json" {
		return true
	}
	return strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json")
}

// NormalizePath turns a route path into a filesystem-safe directory token:
// the mount prefix is stripped, separators become dashes, and the
// application root path maps to RootPathName.
func NormalizePath(path, mountPrefix string) string {
	if mountPrefix != "" && mountPrefix != "/" {
		path = strings.TrimPrefix(path, strings.TrimSuffix(mountPrefix, "/"))
	}

	normalized := strings.Trim(strings.ReplaceAll(path, "/", pathSeparator), pathSeparator)
	if normalized == "" {
		return RootPathName
	}
	return normalized
}

// String renders the exchange for log output, e.g. "<POST api-posts>".
func (e Exchange) String() string {
	return fmt.Sprintf("<%s %s>", e.Method, e.Path)
}
