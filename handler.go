package devserve

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Handler serves files from fsys the way a plain file server does, except that
// a request for a file is answered directly (no index.html redirect) and may be
// answered from a precompressed sidecar.
type Handler struct {
	fs    fs.FS
	files http.Handler
}

func NewHandler(fsys fs.FS) *Handler {
	slog.Info("handler created", "root", fsys)
	return &Handler{fs: fsys, files: http.FileServerFS(fsys)}
}

type encodeInfo struct {
	ext    string
	encode string
	order  int
}

var sortorder = map[string]encodeInfo{
	// brotli vs zstd: which is winner?
	"br":       {ext: ".br", encode: "br", order: 1},
	"zstd":     {ext: ".zst", encode: "zstd", order: 2},
	"gzip":     {ext: ".gz", encode: "gzip", order: 3},
	"deflate":  {ext: ".deflate", encode: "deflate", order: 4},
	"compress": {ext: ".Z", encode: "compress", order: 5},
}

// isSidecar reports whether name carries one of the precompressed extensions.
func isSidecar(name string) bool {
	ext := path.Ext(name)
	for _, v := range sortorder {
		if v.ext == ext {
			return true
		}
	}
	return false
}

// accepts returns the known encodings named in an Accept-Encoding header,
// ordered by server preference. Quality values only matter when they are zero.
func (h *Handler) accepts(accept string) []encodeInfo {
	res := []encodeInfo{}
	for _, v := range strings.Split(accept, ",") {
		vv := strings.SplitN(v, ";", 2)
		ei, ok := sortorder[strings.TrimSpace(vv[0])]
		if !ok {
			continue
		}
		if len(vv) == 2 {
			if q, found := strings.CutPrefix(strings.TrimSpace(vv[1]), "q="); found {
				if f, err := strconv.ParseFloat(q, 64); err == nil && f == 0 {
					continue
				}
			}
		}
		res = append(res, ei)
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].order < res[j].order
	})
	return res
}

func toHTTPError(err error) (string, int) {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrInvalid):
		return "404 page not found", http.StatusNotFound
	case errors.Is(err, fs.ErrPermission):
		return "403 Forbidden", http.StatusForbidden
	}
	return "500 Internal Server Error", http.StatusInternalServerError
}

// contentType guesses the type of name from its extension, then from its
// first 512 bytes.
func (h *Handler) contentType(name string) string {
	if ctype := mime.TypeByExtension(path.Ext(name)); ctype != "" {
		return ctype
	}
	fp, err := h.fs.Open(name)
	if err != nil {
		slog.Error("open original", "path", name, "error", err)
		return "application/octet-stream"
	}
	defer fp.Close()
	buf := make([]byte, 512)
	n, err := io.ReadFull(fp, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		slog.Error("read for content-type failed", "path", name, "error", err)
		return "application/octet-stream"
	}
	return http.DetectContentType(buf[:n])
}

// sidecar picks the precompressed variant of name to send, if any.
func (h *Handler) sidecar(req *http.Request, name string, info fs.FileInfo) (encodeInfo, fs.FileInfo, bool) {
	for _, ae := range h.accepts(req.Header.Get("Accept-Encoding")) {
		cinfo, err := fs.Stat(h.fs, name+ae.ext)
		if err != nil || !cinfo.Mode().IsRegular() {
			continue
		}
		if cinfo.ModTime().Round(time.Second).Before(info.ModTime().Round(time.Second)) {
			slog.Warn("encoded file is older than original", "path", name, "ext", ae.ext, "diff", info.ModTime().Sub(cinfo.ModTime()))
			continue
		}
		if cinfo.Size() > info.Size() {
			slog.Info("encoded file is larger than original, skip", "path", name, "ext", ae.ext, "original", info.Size(), "encoded", cinfo.Size())
			continue
		}
		return ae, cinfo, true
	}
	return encodeInfo{}, nil, false
}

func (h *Handler) serveFile(res http.ResponseWriter, req *http.Request, name string, info fs.FileInfo) {
	res.Header().Set("Vary", "Accept-Encoding")
	send, sendInfo := name, info
	ae, cinfo, encoded := h.sidecar(req, name, info)
	if encoded {
		send, sendInfo = name+ae.ext, cinfo
	}
	fp, err := h.fs.Open(send)
	if err != nil {
		msg, code := toHTTPError(err)
		slog.Error("open error", "path", send, "error", err)
		http.Error(res, msg, code)
		return
	}
	defer fp.Close()
	rs, ok := fp.(io.ReadSeeker)
	if !ok {
		slog.Error("file is not seekable", "path", send)
		http.Error(res, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	if encoded {
		res.Header().Set("Content-Type", h.contentType(name))
		res.Header().Set("Content-Encoding", ae.encode)
		// ServeContent leaves Content-Length out once Content-Encoding is set
		if req.Header.Get("Range") == "" {
			res.Header().Set("Content-Length", strconv.FormatInt(cinfo.Size(), 10))
		}
		slog.Debug("encoded file", "path", name, "ext", ae.ext)
	}
	http.ServeContent(res, req, name, sendInfo.ModTime(), rs)
}

func (h *Handler) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+req.URL.Path), "/")
	if name == "" {
		name = "."
	}
	info, err := fs.Stat(h.fs, name)
	if err != nil {
		msg, code := toHTTPError(err)
		slog.Debug("stat failed", "path", name, "error", err)
		http.Error(res, msg, code)
		return
	}
	if !info.IsDir() && strings.HasSuffix(req.URL.Path, "/") {
		slog.Debug("trailing slash on a file", "path", name)
		http.Error(res, "404 page not found", http.StatusNotFound)
		return
	}
	if info.IsDir() {
		// index.html or a listing
		h.files.ServeHTTP(res, req)
		return
	}
	h.serveFile(res, req, name, info)
}
