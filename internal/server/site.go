package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/logfields"
	"git.home.luguber.info/inful/sitehead/internal/pipeline"
)

const notFoundPage = "404.html"

func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	urlPath := path.Clean("/" + r.URL.Path)
	if hasHiddenSegment(urlPath) {
		s.notFound(w, r)
		return
	}
	name := filepath.Join(s.opts.Dir, filepath.FromSlash(urlPath))

	info, err := os.Stat(name)
	if err != nil {
		s.notFound(w, r)
		return
	}
	if info.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			localRedirect(w, r, path.Base(urlPath)+"/")
			return
		}
		urlPath = path.Join(urlPath, "index.html")
		name = filepath.Join(name, "index.html")
		if info, err = os.Stat(name); err != nil || info.IsDir() {
			s.notFound(w, r)
			return
		}
	}

	if isHTML(name) {
		s.serveHTML(w, r, name, urlPath, http.StatusOK)
		return
	}
	http.ServeFile(w, r, name)
}

// localRedirect sends a redirect relative to the requested path, so the
// Location never names another host.
func localRedirect(w http.ResponseWriter, r *http.Request, target string) {
	if q := r.URL.RawQuery; q != "" {
		target += "?" + q
	}
	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusMovedPermanently)
}

func (s *Server) serveHTML(w http.ResponseWriter, r *http.Request, name, urlPath string, status int) {
	data, err := os.ReadFile(name)
	if err != nil {
		s.adapter.WriteErrorResponse(w, r, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read page").
			WithContext("page", urlPath).Build())
		return
	}

	out, outcome, err := s.proc.ProcessDocument(r.Context(), urlPath, data)
	if err != nil {
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}
	s.recorder.IncServedPage(outcome == pipeline.OutcomeUpdated)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(out); err != nil {
		slog.Debug("Failed writing page", logfields.Page(urlPath), logfields.Error(err))
	}
}

// notFound serves the site's own 404 page when it has one.
func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	custom := filepath.Join(s.opts.Dir, notFoundPage)
	if info, err := os.Stat(custom); err == nil && !info.IsDir() {
		s.serveHTML(w, r, custom, "/"+notFoundPage, http.StatusNotFound)
		return
	}
	s.adapter.WriteErrorResponse(w, r, ferrors.NotFoundError("page not found").
		WithContext("path", r.URL.Path).Build())
}

func isHTML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".htm"
}

func hasHiddenSegment(urlPath string) bool {
	for _, seg := range strings.Split(urlPath, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// writeJSON encodes into a buffer first so a failed encode never sends a
// partial response.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}
