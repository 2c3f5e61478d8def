package devserve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const (
	DefaultFirstPort = 8080
	DefaultLastPort  = 8090
)

type Config struct {
	RootDir   string `json:"rootdir,omitempty"`
	Host      string `json:"host,omitempty"`
	FirstPort int    `json:"first_port,omitempty"`
	LastPort  int    `json:"last_port,omitempty"`
}

func CreateConfig() *Config {
	return &Config{
		FirstPort: DefaultFirstPort,
		LastPort:  DefaultLastPort,
	}
}

// NewRouter sends GET and HEAD to the file handler. Every other method that
// reaches it is answered with 501.
func NewRouter(fsys fs.FS) *mux.Router {
	r := mux.NewRouter()
	r.Methods(http.MethodGet, http.MethodHead).PathPrefix("/").Handler(NewHandler(fsys))
	r.MethodNotAllowedHandler = http.HandlerFunc(notImplemented)
	return r
}

func notImplemented(w http.ResponseWriter, r *http.Request) {
	http.Error(w, fmt.Sprintf("unsupported method (%q)", r.Method), http.StatusNotImplemented)
}

// New returns the complete handler: access log, CORS headers and the router.
// CORS wraps the router from outside since mux middlewares only run for
// matched routes.
func New(fsys fs.FS) http.Handler {
	return accessLog(WithCORS(NewRouter(fsys)))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		st := time.Now()
		rec := &statusRecorder{ResponseWriter: res}
		next.ServeHTTP(rec, req)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		slog.Info("accesslog", "method", req.Method, "path", req.URL.Path, "remote", req.RemoteAddr, "status", rec.status, "elapsed_ns", time.Since(st))
	})
}

// Banner prints the startup lines for a server on port serving dir.
func Banner(w io.Writer, port int, dir string) {
	fmt.Fprintf(w, "🚀 Server running at http://localhost:%d\n", port)
	fmt.Fprintf(w, "📁 Serving directory: %s\n", dir)
	fmt.Fprintln(w, "📱 Open the URL in your browser to test the app")
	fmt.Fprintln(w, "⏹️  Press Ctrl+C to stop the server")
}

// Run serves handler on ln until ctx is done, then closes the server without
// waiting for in-flight requests.
func Run(ctx context.Context, ln net.Listener, handler http.Handler) error {
	server := &http.Server{Handler: handler}
	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(ln)
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("shutting down server")
		err := server.Close()
		<-errc
		return err
	}
}
