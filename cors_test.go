package devserve

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers": "*",
}

func checkCORS(t *testing.T, h http.Header) {
	t.Helper()
	for k, v := range corsHeaders {
		if got := h.Values(k); len(got) != 1 || got[0] != v {
			t.Errorf("expected %s: %q, got %q", k, v, got)
		}
	}
}

func TestWithCORS_PreflightSkipsNext(t *testing.T) {
	hdl := WithCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("next called for %s", r.Method)
	}))

	req := httptest.NewRequest("OPTIONS", "/anything", nil)
	w := httptest.NewRecorder()

	hdl.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", w.Body.String())
	}
	checkCORS(t, w.Header())
}

func TestWithCORS_KeepsInnerHeaders(t *testing.T) {
	hdl := WithCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	hdl.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("expected status %d, got %d", http.StatusTeapot, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type: application/json, got %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected Cache-Control: no-cache, got %q", cc)
	}
	checkCORS(t, w.Header())
}

// TestNew_CORSOnEveryResponse covers every method on existing and missing paths
func TestNew_CORSOnEveryResponse(t *testing.T) {
	hdl := New(fstest.MapFS{
		"index.html": &fstest.MapFile{Data: []byte("<html>Home</html>")},
	})

	testCases := []struct {
		method string
		path   string
		code   int
	}{
		{method: "GET", path: "/index.html", code: http.StatusOK},
		{method: "GET", path: "/", code: http.StatusOK},
		{method: "GET", path: "/missing.js", code: http.StatusNotFound},
		{method: "HEAD", path: "/index.html", code: http.StatusOK},
		{method: "POST", path: "/index.html", code: http.StatusNotImplemented},
		{method: "PUT", path: "/missing.js", code: http.StatusNotImplemented},
		{method: "OPTIONS", path: "/index.html", code: http.StatusOK},
		{method: "OPTIONS", path: "/missing.js", code: http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			hdl.ServeHTTP(w, req)

			if w.Code != tc.code {
				t.Errorf("expected status %d, got %d", tc.code, w.Code)
			}
			checkCORS(t, w.Header())
		})
	}
}

func TestNew_PreflightOnMissingPath(t *testing.T) {
	hdl := New(fstest.MapFS{})

	req := httptest.NewRequest("OPTIONS", "/no/such/file.json", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()

	hdl.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", w.Body.String())
	}
	checkCORS(t, w.Header())
}

func TestNew_StaticFileWithCORS(t *testing.T) {
	content := "<!doctype html><html><body>app</body></html>"
	hdl := New(fstest.MapFS{
		"index.html": &fstest.MapFile{Data: []byte(content)},
	})

	req := httptest.NewRequest("GET", "/index.html", nil)
	w := httptest.NewRecorder()

	hdl.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if body := w.Body.String(); body != content {
		t.Errorf("expected body %q, got %q", content, body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("expected text/html Content-Type, got %q", ct)
	}
	checkCORS(t, w.Header())
}

func TestNew_RepeatedRequestsSameHeaders(t *testing.T) {
	hdl := New(fstest.MapFS{
		"app.js": &fstest.MapFile{Data: []byte("console.log(1)")},
	})

	var prev http.Header
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/app.js", nil)
		w := httptest.NewRecorder()

		hdl.ServeHTTP(w, req)

		checkCORS(t, w.Header())
		if prev != nil {
			for k := range corsHeaders {
				if got, want := w.Header().Values(k), prev.Values(k); len(got) != len(want) || got[0] != want[0] {
					t.Errorf("request %d: %s changed from %q to %q", i, k, want, got)
				}
			}
		}
		prev = w.Header()
	}
}
