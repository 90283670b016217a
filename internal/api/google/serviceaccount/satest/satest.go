// Package satest provides a fake Google OAuth 2.0 token endpoint and
// generated service account keys for tests.
package satest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken is the access token issued by TokenServer.
const AccessToken = "ya29.test-access-token"

// ClientEmail is the service account email used in generated keys.
const ClientEmail = "release-bot@courtapp.iam.gserviceaccount.com"

// TokenServer is a fake token endpoint. It accepts only assertions signed by
// the key returned from Key.
type TokenServer struct {
	priv  *rsa.PrivateKey
	calls atomic.Int64
	t     *testing.T
}

// NewTokenServer generates a fresh RSA key and returns a TokenServer that
// trusts it.
func NewTokenServer(t *testing.T) *TokenServer {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return &TokenServer{priv: priv, t: t}
}

// Calls returns the number of tokens issued so far.
func (s *TokenServer) Calls() int64 { return s.calls.Load() }

// Key returns a service account key file in JSON whose token_uri is tokenURI.
func (s *TokenServer) Key(tokenURI string) []byte {
	s.t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(s.priv)
	if err != nil {
		s.t.Fatal(err)
	}
	b, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "courtapp",
		"private_key_id": "test-key",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   ClientEmail,
		"token_uri":      tokenURI,
	})
	if err != nil {
		s.t.Fatal(err)
	}
	return b
}

// ServeHTTP implements the JWT bearer grant.
func (s *TokenServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if got := r.PostForm.Get("grant_type"); got != "urn:ietf:params:oauth:grant-type:jwt-bearer" {
		http.Error(w, "unsupported grant_type "+got, http.StatusBadRequest)
		return
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(r.PostForm.Get("assertion"), claims, func(*jwt.Token) (any, error) {
		return &s.priv.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithIssuer(ClientEmail))
	if err != nil {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		return
	}

	s.calls.Add(1)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"access_token": AccessToken,
		"token_type":   "Bearer",
		"expires_in":   3599,
		"scope":        claims["scope"],
	})
}
