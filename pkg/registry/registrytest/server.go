// Package registrytest serves an in-memory npm registry for tests.
package registrytest

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Package is one published version.
type Package struct {
	Name         string
	Version      string
	Dependencies map[string]string
	Bin          map[string]string
	Files        map[string]string // path inside the package to content
}

// Server is a fake registry. Versions published later become "latest".
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	packages map[string]map[string]Package
	latest   map[string]string
	status   map[string]int
	hits     map[string]int
}

// NewServer starts a registry serving pkgs and stops it on test cleanup.
func NewServer(t testing.TB, pkgs ...Package) *Server {
	t.Helper()
	s := &Server{
		packages: make(map[string]map[string]Package),
		latest:   make(map[string]string),
		status:   make(map[string]int),
		hits:     make(map[string]int),
	}
	for _, p := range pkgs {
		s.Publish(p)
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/{scope:@[^/]+}/{name}/-/{file}", s.tarball)
	r.Get("/{scope:@[^/]+}/{name}/{version}", s.metadata)
	r.Get("/{name}/-/{file}", s.tarball)
	r.Get("/{name}/{version}", s.metadata)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Publish adds or replaces a package version.
func (s *Server) Publish(p Package) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.packages[p.Name] == nil {
		s.packages[p.Name] = make(map[string]Package)
	}
	s.packages[p.Name][p.Version] = p
	s.latest[p.Name] = p.Version
}

// FailWith makes every request for path answer with status.
func (s *Server) FailWith(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[path] = status
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// Paths returns every requested path, sorted.
func (s *Server) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.hits))
	for p := range s.hits {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		code := s.status[r.URL.Path]
		s.mu.Unlock()
		if code != 0 {
			http.Error(w, http.StatusText(code), code)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func fullName(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if scope := chi.URLParam(r, "scope"); scope != "" {
		return scope + "/" + name
	}
	return name
}

func (s *Server) lookup(name, version string) (Package, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version == "latest" {
		version = s.latest[name]
	}
	p, ok := s.packages[name][version]
	return p, ok
}

func (s *Server) metadata(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(fullName(r), chi.URLParam(r, "version"))
	if !ok {
		http.Error(w, `{"error":"Not found"}`, http.StatusNotFound)
		return
	}
	doc := map[string]any{"name": p.Name, "version": p.Version}
	if len(p.Dependencies) > 0 {
		doc["dependencies"] = p.Dependencies
	}
	if len(p.Bin) > 0 {
		doc["bin"] = p.Bin
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

func (s *Server) tarball(w http.ResponseWriter, r *http.Request) {
	name := fullName(r)
	file := chi.URLParam(r, "file")

	s.mu.Lock()
	var found *Package
	for v, p := range s.packages[name] {
		if file == baseName(name)+"-"+v+".tgz" {
			found = &p
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		http.NotFound(w, r)
		return
	}

	data, err := Tarball(*found)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func baseName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			return name[i+1:]
		}
	}
	return name
}

// Tarball packs p the way npm does: every entry below a "package/"
// directory, with a generated package.json unless Files provides one.
// Files named in Bin are marked executable.
func Tarball(p Package) ([]byte, error) {
	files := make(map[string]string, len(p.Files)+1)
	for k, v := range p.Files {
		files[k] = v
	}
	if _, ok := files["package.json"]; !ok {
		doc, err := json.Marshal(map[string]any{"name": p.Name, "version": p.Version, "bin": p.Bin})
		if err != nil {
			return nil, err
		}
		files["package.json"] = string(doc)
	}
	exec := make(map[string]bool)
	for _, rel := range p.Bin {
		exec[cleanRel(rel)] = true
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	if err := tw.WriteHeader(&tar.Header{Name: "package/", Typeflag: tar.TypeDir, Mode: 0o755}); err != nil {
		return nil, err
	}
	for _, name := range names {
		mode := int64(0o644)
		if exec[name] {
			mode = 0o755
		}
		body := files[name]
		hdr := &tar.Header{Name: "package/" + name, Typeflag: tar.TypeReg, Mode: mode, Size: int64(len(body))}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, err
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cleanRel(p string) string {
	for len(p) > 2 && p[:2] == "./" {
		p = p[2:]
	}
	return p
}
