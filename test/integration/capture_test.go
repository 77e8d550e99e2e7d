// Package integration drives a real HTTP server through a real client and
// checks the fixture trees written to disk.
package integration

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fixturelab/autofixture/internal/routecheck"
	"github.com/fixturelab/autofixture/pkg/recorder"
	"github.com/fixturelab/autofixture/pkg/storage"
)

func newServer(t *testing.T, root string, opts ...recorder.Option) (*recorder.AutoFixture, *httptest.Server) {
	t.Helper()

	host := recorder.NewHost("app", root)
	af := recorder.New(opts...)
	if err := af.Init(host); err != nil {
		t.Fatalf("init: %v", err)
	}

	r := chi.NewRouter()
	r.Get("/api/posts", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})
	r.Post("/api/posts", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"missing_email"}`))
	})

	srv := httptest.NewServer(host.Middleware(r))
	t.Cleanup(srv.Close)
	return af, srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestEndToEndAutomaticCapture(t *testing.T) {
	root := t.TempDir()
	_, srv := newServer(t, root)

	resp := postJSON(t, srv.URL+"/api/posts", `{"name":"john"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if string(body) != `{"error":"missing_email"}` {
		t.Fatalf("unexpected response body %s", body)
	}

	dir := filepath.Join(root, "autofixture", "app", "POST", "api-posts")
	request, err := os.ReadFile(filepath.Join(dir, "request.json"))
	if err != nil {
		t.Fatalf("read request fixture: %v", err)
	}
	if string(request) != `{"name":"john"}` {
		t.Fatalf("unexpected request fixture %s", request)
	}
	response, err := os.ReadFile(filepath.Join(dir, "response.json"))
	if err != nil {
		t.Fatalf("read response fixture: %v", err)
	}
	if string(response) != `{"error":"missing_email"}` {
		t.Fatalf("unexpected response fixture %s", response)
	}
}

func TestEndToEndSuffixesAndGapReuse(t *testing.T) {
	root := t.TempDir()
	_, srv := newServer(t, root)

	postJSON(t, srv.URL+"/api/posts", `{"name":"john"}`)
	postJSON(t, srv.URL+"/api/posts", `{"name":"jane"}`)
	postJSON(t, srv.URL+"/api/posts", `{"name":"jim"}`)

	dir := filepath.Join(root, "autofixture", "app", "POST", "api-posts")
	for _, name := range []string{
		"request.json", "request_2.json", "request_3.json",
		"response.json", "response_2.json", "response_3.json",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	// Deleting a middle fixture frees its suffix for the next run.
	if err := os.Remove(filepath.Join(dir, "request_2.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "response_2.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	postJSON(t, srv.URL+"/api/posts", `{"name":"june"}`)

	request, err := os.ReadFile(filepath.Join(dir, "request_2.json"))
	if err != nil {
		t.Fatalf("expected gap reuse: %v", err)
	}
	if string(request) != `{"name":"june"}` {
		t.Fatalf("unexpected reused fixture %s", request)
	}
	if _, err := os.Stat(filepath.Join(dir, "request_4.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected no request_4.json, got %v", err)
	}
}

func TestEndToEndRouteLayout(t *testing.T) {
	root := t.TempDir()
	_, srv := newServer(t, root, recorder.WithLayout(storage.RouteLayout{}))

	resp, err := http.Get(srv.URL + "/api/posts")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	dir := filepath.Join(root, "autofixture", "app", "api-posts", "GET")
	if _, err := os.Stat(filepath.Join(dir, "response.json")); err != nil {
		t.Fatalf("expected route-first layout fixture: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "request.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected no request fixture for bodyless GET, got %v", err)
	}
}

func TestEndToEndRecordBracket(t *testing.T) {
	root := t.TempDir()
	af, srv := newServer(t, root, recorder.WithExplicitRecording())

	postJSON(t, srv.URL+"/api/posts", `{"name":"before"}`)

	t.Run("bracketed", func(t *testing.T) {
		af.Record(t, "missing_email", "missing_email_response")
		postJSON(t, srv.URL+"/api/posts", `{"name":"john"}`)
	})

	postJSON(t, srv.URL+"/api/posts", `{"name":"after"}`)

	dir := filepath.Join(root, "autofixture", "app", "POST", "api-posts")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read fixture dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected exactly the bracketed fixtures, got %d entries", len(entries))
	}
	for _, name := range []string{"missing_email.json", "missing_email_response.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestEndToEndRouteGuard(t *testing.T) {
	guard, err := routecheck.FromData([]byte(`{
	  "openapi": "3.0.0",
	  "info": {"title": "app", "version": "1.0.0"},
	  "paths": {
	    "/api/posts": {
	      "get": {"responses": {"200": {"description": "ok"}}},
	      "post": {"responses": {"400": {"description": "bad request"}}}
	    }
	  }
	}`))
	if err != nil {
		t.Fatalf("parse openapi: %v", err)
	}

	root := t.TempDir()
	_, srv := newServer(t, root, recorder.WithRouteGuard(guard))

	// Declared route records without drama; the guard only warns on unknown
	// routes, so capture behaviour is identical either way.
	postJSON(t, srv.URL+"/api/posts", `{"name":"john"}`)

	dir := filepath.Join(root, "autofixture", "app", "POST", "api-posts")
	if _, err := os.Stat(filepath.Join(dir, "response.json")); err != nil {
		t.Fatalf("expected fixture despite route guard: %v", err)
	}
}
