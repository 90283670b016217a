// Package asctest provides a fake App Store Connect API and generated API
// keys for tests.
package asctest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	_ "embed"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/courtapp/releasetools/internal/testutil"

	"github.com/golang-jwt/jwt/v5"
)

// Identifiers of the API key accepted by Server.
const (
	KeyID    = "2X9R4HXF34"
	IssuerID = "57246542-96fe-1a63-e053-0824d011072a"
)

//go:embed testdata/builds.txtar
var buildsArchive []byte

// Server is a fake App Store Connect API serving builds from
// testdata/builds.txtar.
type Server struct {
	*httptest.Server

	priv     *ecdsa.PrivateKey
	builds   map[string][]byte
	requests atomic.Int64
	t        *testing.T
}

// NewServer starts a Server that is closed when the test finishes.
func NewServer(t *testing.T) *Server {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	s := &Server{
		priv:   priv,
		builds: testutil.ParseTxtar(buildsArchive),
		t:      t,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/builds", s.listBuilds)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Requests returns the number of authorized requests served.
func (s *Server) Requests() int64 { return s.requests.Load() }

// PrivateKey returns the PEM-encoded PKCS #8 key trusted by the server, the
// way it is stored in a .p8 file.
func (s *Server) PrivateKey() string {
	s.t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(s.priv)
	if err != nil {
		s.t.Fatal(err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

// EscapedPrivateKey returns PrivateKey with newlines written as literal \n,
// the way it usually ends up in single-line secrets.
func (s *Server) EscapedPrivateKey() string {
	return strings.ReplaceAll(s.PrivateKey(), "\n", `\n`)
}

// PublicKey returns the public half of the trusted key.
func (s *Server) PublicKey() *ecdsa.PublicKey { return &s.priv.PublicKey }

func (s *Server) listBuilds(w http.ResponseWriter, r *http.Request) {
	if err := s.verify(r.Header.Get("Authorization")); err != nil {
		apiError(w, http.StatusUnauthorized, "NOT_AUTHORIZED", err.Error())
		return
	}
	s.requests.Add(1)

	app := r.URL.Query().Get("filter[app]")
	b, ok := s.builds[app+".json"]
	if !ok {
		apiError(w, http.StatusNotFound, "NOT_FOUND", "There is no resource of type 'apps' with id '"+app+"'")
		return
	}
	testutil.ServeJSON(w, b)
}

func (s *Server) verify(header string) error {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return jwt.ErrTokenMalformed
	}
	tok, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
		if tok.Header["kid"] != KeyID {
			return nil, jwt.ErrTokenUnverifiable
		}
		if tok.Header["typ"] != "JWT" {
			return nil, jwt.ErrTokenUnverifiable
		}
		return &s.priv.PublicKey, nil
	},
		jwt.WithValidMethods([]string{"ES256"}),
		jwt.WithAudience("appstoreconnect-v1"),
		jwt.WithIssuer(IssuerID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return err
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil {
		return err
	}
	if time.Until(exp.Time) > 20*time.Minute {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

func apiError(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"errors": []map[string]string{{
			"status": http.StatusText(status),
			"code":   code,
			"title":  "The request could not be completed.",
			"detail": detail,
		}},
	})
}
