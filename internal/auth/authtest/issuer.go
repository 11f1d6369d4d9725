// Package authtest 提供测试用的本地令牌签发方，模拟身份提供方的 JWKS 端点。
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const keyID = "authtest-key"

// Issuer serves a JWKS document and signs tokens with the matching key.
type Issuer struct {
	server *httptest.Server
	key    *rsa.PrivateKey
	signer jose.Signer
}

// NewIssuer starts an issuer that is shut down when t finishes.
func NewIssuer(t testing.TB) *Issuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate rsa key: %v", err)
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: jose.JSONWebKey{Key: key, KeyID: keyID}},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}

	keySet := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &key.PublicKey,
		KeyID:     keyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}}

	mux := http.NewServeMux()
	mux.HandleFunc("/cdn-cgi/access/certs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(keySet)
	})

	issuer := &Issuer{server: httptest.NewServer(mux), key: key, signer: signer}
	t.Cleanup(issuer.server.Close)
	return issuer
}

// URL 返回签发方地址，可直接作为团队域名配置。
func (i *Issuer) URL() string {
	return i.server.URL
}

// Client 返回可访问签发方的 HTTP 客户端。
func (i *Issuer) Client() *http.Client {
	return i.server.Client()
}

// Token signs a token for email with the given audience, valid for one hour.
func (i *Issuer) Token(t testing.TB, email string, audience ...string) string {
	t.Helper()
	now := time.Now()
	return i.Sign(t, jwt.Claims{
		Issuer:   i.URL(),
		Subject:  "user-" + email,
		Audience: jwt.Audience(audience),
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(time.Hour)),
	}, email)
}

// Sign signs arbitrary registered claims plus an email claim.
func (i *Issuer) Sign(t testing.TB, claims jwt.Claims, email string) string {
	t.Helper()
	raw, err := jwt.Signed(i.signer).
		Claims(claims).
		Claims(map[string]interface{}{"email": email}).
		Serialize()
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return raw
}
