package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"bookify/pkg/domain"
)

const (
	defaultIssuer   = "bookify-api"
	defaultAudience = "bookify-web"

	// TokenTTL is the fixed bearer token lifetime. There is no refresh or
	// revocation path; logout is client-side token deletion.
	TokenTTL = 7 * 24 * time.Hour
)

var defaultLeeway = 30 * time.Second

// ErrInvalidToken covers malformed, tampered, and expired tokens alike so
// handlers can answer with a single 401 message.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is what a verified bearer token asserts about its caller.
// The role claim is informational; authorization gates re-check role
// against storage.
type Claims struct {
	SubjectID string
	Role      domain.UserRole
}

type tokenClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens with a shared secret.
type TokenIssuer struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	leeway   time.Duration
}

// NewTokenIssuer builds an issuer from the shared secret.
func NewTokenIssuer(secret string) (*TokenIssuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("jwt secret required")
	}
	return &TokenIssuer{
		secret:   []byte(secret),
		ttl:      TokenTTL,
		issuer:   defaultIssuer,
		audience: defaultAudience,
		leeway:   defaultLeeway,
	}, nil
}

// Issue creates a signed token carrying the subject id and role.
func (t *TokenIssuer) Issue(subjectID string, role domain.UserRole) (string, error) {
	if strings.TrimSpace(subjectID) == "" {
		return "", errors.New("subject id required")
	}
	now := time.Now().UTC()
	claims := tokenClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify validates signature, expiry, issuer and audience, and returns the
// subject/role claims.
func (t *TokenIssuer) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrInvalidToken
	}
	claims := tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(t.leeway),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return Claims{}, ErrInvalidToken
	}
	role := domain.UserRole(claims.Role)
	if role != domain.RoleAdmin {
		role = domain.RoleUser
	}
	return Claims{SubjectID: subject, Role: role}, nil
}
