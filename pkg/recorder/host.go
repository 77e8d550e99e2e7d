package recorder

import (
	"bytes"
	"io"
	"net/http"
	"sync"

	"github.com/fixturelab/autofixture/pkg/fixture"
)

// Host adapts a plain net/http application to the App contract. Wrap the
// application's handler with Middleware and hand the Host to Init; every
// request served through the middleware is observed as one exchange.
//
// Exchanges are serialized by an internal mutex so that the before/after
// hook pairing holds by invocation order. Requests issued concurrently or
// outside the primary synchronous test client are unsupported: they will not
// corrupt state, but their pairing order is undefined.
type Host struct {
	name         string
	instancePath string

	mu     sync.Mutex
	before []func(*fixture.Request)
	after  []func(*fixture.Request, *fixture.Response) *fixture.Response
}

// NewHost names the application under test and designates its instance
// (data) directory.
func NewHost(name, instancePath string) *Host {
	return &Host{name: name, instancePath: instancePath}
}

// Name implements App.
func (h *Host) Name() string { return h.name }

// InstancePath implements App.
func (h *Host) InstancePath() string { return h.instancePath }

// BeforeRequest implements App.
func (h *Host) BeforeRequest(fn func(*fixture.Request)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.before = append(h.before, fn)
}

// AfterRequest implements App. Callbacks run in registration order and must
// return the response unchanged; capture is a transparent observer.
func (h *Host) AfterRequest(fn func(*fixture.Request, *fixture.Response) *fixture.Response) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.after = append(h.after, fn)
}

// Middleware observes one exchange per request served. The request body is
// buffered and restored so the application reads it normally; response
// writes pass straight through to the client while a copy is kept for the
// capture callbacks.
func (h *Host) Middleware(next http.Handler) http.Handler {
	if next == nil {
		return http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		defer h.mu.Unlock()

		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		captured := &fixture.Request{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		}

		for _, fn := range h.before {
			fn(captured)
		}

		writer := newCaptureWriter(w)
		next.ServeHTTP(writer, r)

		resp := &fixture.Response{
			StatusCode:  writer.status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		}
		for _, fn := range h.after {
			resp = fn(captured, resp)
		}
	})
}

// captureWriter tees response writes into a buffer while passing them
// through to the client untouched.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func newCaptureWriter(w http.ResponseWriter) *captureWriter {
	return &captureWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *captureWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.body.Write(b[:n])
	return n, err
}

func (w *captureWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
