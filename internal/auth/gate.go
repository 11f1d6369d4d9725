// Package auth 校验身份提供方（Cloudflare Access 风格）签发的 JWT，用于保护编辑相关路由。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
)

const (
	// HeaderAccessJWT 为身份代理注入的令牌请求头。
	HeaderAccessJWT = "Cf-Access-Jwt-Assertion"
	// CookieAccessJWT 为浏览器侧携带令牌的 Cookie。
	CookieAccessJWT = "CF_Authorization"

	certsPath   = "/cdn-cgi/access/certs"
	identityKey = "__access_identity"
)

var (
	ErrGateNotConfigured = errors.New("access gate is not configured")
	ErrTokenMissing      = errors.New("access token is missing")
	ErrAudienceMismatch  = errors.New("token audience does not match")
)

// Identity is the verified caller extracted from an access token.
type Identity struct {
	Subject  string
	Email    string
	Issuer   string
	Audience []string
}

// Gate verifies access tokens against the identity provider's published key set.
type Gate struct {
	issuer    string
	audiences map[string]struct{}
	verifier  *oidc.IDTokenVerifier
}

// NewGate builds a gate for the given team domain and expected audiences.
// A gate without a team domain or audience rejects every token.
func NewGate(teamDomain string, audiences []string, client *http.Client) *Gate {
	gate := &Gate{audiences: make(map[string]struct{}, len(audiences))}
	for _, aud := range audiences {
		if aud = strings.TrimSpace(aud); aud != "" {
			gate.audiences[aud] = struct{}{}
		}
	}

	issuer := normalizeIssuer(teamDomain)
	if issuer == "" || len(gate.audiences) == 0 {
		return gate
	}
	gate.issuer = issuer

	ctx := context.Background()
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}
	keySet := oidc.NewRemoteKeySet(ctx, issuer+certsPath)
	gate.verifier = oidc.NewVerifier(issuer, keySet, &oidc.Config{
		SkipClientIDCheck:    true,
		SupportedSigningAlgs: []string{oidc.RS256},
	})
	return gate
}

// Configured 表示网关是否具备校验令牌所需的配置。
func (g *Gate) Configured() bool {
	return g != nil && g.verifier != nil
}

// Verify checks signature, issuer, expiry and audience of a raw token.
func (g *Gate) Verify(ctx context.Context, raw string) (*Identity, error) {
	if !g.Configured() {
		return nil, ErrGateNotConfigured
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrTokenMissing
	}

	token, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("verify access token: %w", err)
	}

	if !g.audienceAllowed(token.Audience) {
		return nil, ErrAudienceMismatch
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode access token claims: %w", err)
	}

	return &Identity{
		Subject:  token.Subject,
		Email:    claims.Email,
		Issuer:   token.Issuer,
		Audience: token.Audience,
	}, nil
}

// Authenticate verifies the token carried by r.
func (g *Gate) Authenticate(r *http.Request) (*Identity, error) {
	return g.Verify(r.Context(), TokenFromRequest(r))
}

func (g *Gate) audienceAllowed(audience []string) bool {
	for _, aud := range audience {
		if _, ok := g.audiences[aud]; ok {
			return true
		}
	}
	return false
}

// TokenFromRequest 依次从请求头、Authorization Bearer 与 Cookie 中提取令牌。
func TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(HeaderAccessJWT)); token != "" {
		return token
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				return token
			}
		}
	}
	if cookie, err := r.Cookie(CookieAccessJWT); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// IsPrefetch reports whether r is a framework-level prefetch of a page.
// Only GET and HEAD requests qualify.
func IsPrefetch(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	if r.Header.Get("Next-Router-Prefetch") == "1" {
		return true
	}
	for _, header := range []string{"Purpose", "Sec-Purpose"} {
		if strings.Contains(strings.ToLower(r.Header.Get(header)), "prefetch") {
			return true
		}
	}
	return false
}

// MiddlewareOption 调整网关中间件的行为。
type MiddlewareOption func(*middlewareOptions)

type middlewareOptions struct {
	allowPrefetch bool
}

// AllowPrefetch 放行未携带令牌的页面预取请求，只用于页面导航类路由。
func AllowPrefetch() MiddlewareOption {
	return func(o *middlewareOptions) {
		o.allowPrefetch = true
	}
}

// Middleware 返回保护路由前缀的 gin 中间件。默认不放行预取请求。
func Middleware(g *Gate, opts ...MiddlewareOption) gin.HandlerFunc {
	var options middlewareOptions
	for _, opt := range opts {
		opt(&options)
	}

	return func(c *gin.Context) {
		if options.allowPrefetch && IsPrefetch(c.Request) {
			c.Next()
			return
		}

		identity, err := g.Authenticate(c.Request)
		if err != nil {
			log.Printf("[auth] rejected %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom 返回中间件写入上下文的已验证身份。
func IdentityFrom(c *gin.Context) (*Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	identity, ok := value.(*Identity)
	return identity, ok && identity != nil
}

// WithIdentity stores identity on c for handlers that verify the token themselves.
func WithIdentity(c *gin.Context, identity *Identity) {
	c.Set(identityKey, identity)
}

func normalizeIssuer(teamDomain string) string {
	domain := strings.TrimRight(strings.TrimSpace(teamDomain), "/")
	if domain == "" {
		return ""
	}
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	return domain
}
