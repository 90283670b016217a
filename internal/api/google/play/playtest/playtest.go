// Package playtest provides a fake Google Play Android Publisher API
// together with its OAuth 2.0 token endpoint.
package playtest

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/courtapp/releasetools/internal/api/google/serviceaccount/satest"
	"github.com/courtapp/releasetools/internal/testutil"
)

//go:embed testdata/tracks.txtar
var tracksArchive []byte

// Server is a fake Android Publisher API. Tracks are served from
// testdata/tracks.txtar.
type Server struct {
	*httptest.Server
	Tokens *satest.TokenServer

	tracks map[string][]byte

	mu          sync.Mutex
	nextID      int
	open        []string
	deleted     []string
	beforeTrack func(r *http.Request)
}

// NewServer starts a Server that is closed when the test finishes.
func NewServer(t *testing.T) *Server {
	s := &Server{
		Tokens: satest.NewTokenServer(t),
		tracks: testutil.ParseTxtar(tracksArchive),
	}

	mux := http.NewServeMux()
	mux.Handle("POST /token", s.Tokens)
	mux.HandleFunc("POST /androidpublisher/v3/applications/{pkg}/edits", s.authorized(s.insertEdit))
	mux.HandleFunc("GET /androidpublisher/v3/applications/{pkg}/edits/{edit}/tracks/{track}", s.authorized(s.getTrack))
	mux.HandleFunc("DELETE /androidpublisher/v3/applications/{pkg}/edits/{edit}", s.authorized(s.deleteEdit))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Endpoint returns the base URL to pass to play.NewClient.
func (s *Server) Endpoint() string { return s.URL + "/" }

// Key returns a service account key trusted by this server.
func (s *Server) Key() []byte { return s.Tokens.Key(s.URL + "/token") }

// OpenEdits returns the edits created and not yet deleted.
func (s *Server) OpenEdits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.open)
}

// BeforeTrack sets a function called when a track is requested inside an
// open edit, before the track is served.
func (s *Server) BeforeTrack(f func(r *http.Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeTrack = f
}

// DeletedEdits returns the edits deleted so far.
func (s *Server) DeletedEdits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.deleted)
}

func (s *Server) authorized(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+satest.AccessToken {
			apiError(w, http.StatusUnauthorized, "Request is missing required authentication credential.")
			return
		}
		h(w, r)
	}
}

func (s *Server) insertEdit(w http.ResponseWriter, r *http.Request) {
	pkg := r.PathValue("pkg")
	if !s.knownPackage(pkg) {
		apiError(w, http.StatusNotFound, "Package not found: "+pkg+".")
		return
	}

	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("edit-%d", s.nextID)
	s.open = append(s.open, id)
	s.mu.Unlock()

	writeJSON(w, map[string]string{"id": id, "expiryTimeSeconds": "1718000000"})
}

func (s *Server) getTrack(w http.ResponseWriter, r *http.Request) {
	if !s.isOpen(r.PathValue("edit")) {
		apiError(w, http.StatusNotFound, "This Edit has been deleted.")
		return
	}
	s.mu.Lock()
	hook := s.beforeTrack
	s.mu.Unlock()
	if hook != nil {
		hook(r)
	}
	b, ok := s.tracks[r.PathValue("pkg")+"/"+r.PathValue("track")+".json"]
	if !ok {
		apiError(w, http.StatusNotFound, "Track not found: "+r.PathValue("track")+".")
		return
	}
	testutil.ServeJSON(w, b)
}

func (s *Server) deleteEdit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("edit")

	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.open, id)
	if i < 0 {
		apiError(w, http.StatusNotFound, "This Edit has been deleted.")
		return
	}
	s.open = slices.Delete(s.open, i, i+1)
	s.deleted = append(s.deleted, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) knownPackage(pkg string) bool {
	for name := range s.tracks {
		if strings.HasPrefix(name, pkg+"/") {
			return true
		}
	}
	return false
}

func (s *Server) isOpen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.open, id)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func apiError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	})
}
