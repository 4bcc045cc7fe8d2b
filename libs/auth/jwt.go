package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the identity fields the API trusts from an access token.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type VerifierConfig struct {
	// HS256 shared secret. Optional when JWKS is set.
	Secret   string
	JWKS     *JWKSClient
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Verifier validates bearer tokens signed with HS256 (shared secret) or RS256 (JWKS).
type Verifier struct {
	secret []byte
	jwks   *JWKSClient
	opts   []jwt.ParserOption
}

func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" && cfg.JWKS == nil {
		return nil, errors.New("auth: either a shared secret or a JWKS client is required")
	}

	var methods []string
	if cfg.Secret != "" {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if cfg.JWKS != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Verifier{secret: []byte(cfg.Secret), jwks: cfg.JWKS, opts: opts}, nil
}

func (v *Verifier) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.keyFunc, v.opts...)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(v.secret) == 0 {
			return nil, errors.New("hs256 not enabled")
		}
		return v.secret, nil
	case *jwt.SigningMethodRSA:
		if v.jwks == nil {
			return nil, errors.New("rs256 not enabled")
		}
		kid, _ := t.Header["kid"].(string)
		return v.jwks.Get(kid)
	default:
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
}

// SignHS256 mints a token with the shared secret. Used by the dev token command and tests.
func SignHS256(claims Claims, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("auth: empty signing secret")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
