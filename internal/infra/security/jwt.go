package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenVerification covers every verification failure: malformed input,
// unknown signer, bad signature, expired-by-claims. Callers collapse all of
// these to a single rejection so the endpoint cannot be used as an oracle.
var ErrTokenVerification = errors.New("jwt: token verification failed")

// SessionClaims are the claims carried by every issued token. Subject is the
// account email; Audience holds the single role the account carries.
type SessionClaims struct {
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// SessionClaimsOptions configures creation of session token claims.
type SessionClaimsOptions struct {
	Subject     string
	DisplayName string
	Issuer      string
	Role        string
	TTL         time.Duration
	IssuedAt    time.Time
}

// NewSessionClaims constructs standardized claims for an access or refresh token.
func NewSessionClaims(opts SessionClaimsOptions) (*SessionClaims, error) {
	subject := strings.TrimSpace(opts.Subject)
	if subject == "" {
		return nil, fmt.Errorf("jwt: subject is required")
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		return nil, fmt.Errorf("jwt: issuer is required")
	}
	if opts.TTL <= 0 {
		return nil, fmt.Errorf("jwt: ttl must be positive")
	}

	now := opts.IssuedAt
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}

	var audience jwt.ClaimStrings
	if role := strings.TrimSpace(opts.Role); role != "" {
		audience = jwt.ClaimStrings{role}
	}

	return &SessionClaims{
		DisplayName: strings.TrimSpace(opts.DisplayName),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			Audience:  audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(opts.TTL)),
		},
	}, nil
}

// JWTCodec signs and verifies session tokens against the process key pair.
type JWTCodec struct {
	keyProvider KeyProvider
	kid         string
	issuer      string
}

// NewJWTCodec constructs a codec bound to a key provider, kid, and issuer.
func NewJWTCodec(keyProvider KeyProvider, kid, issuer string) (*JWTCodec, error) {
	if keyProvider == nil {
		return nil, fmt.Errorf("jwt: key provider is required")
	}
	kid = strings.TrimSpace(kid)
	if kid == "" {
		return nil, fmt.Errorf("jwt: kid is required")
	}
	return &JWTCodec{keyProvider: keyProvider, kid: kid, issuer: issuer}, nil
}

// Issuer returns the issuer identifier stamped into every token.
func (c *JWTCodec) Issuer() string {
	return c.issuer
}

// Sign produces the signed compact serialization of the claims.
func (c *JWTCodec) Sign(claims *SessionClaims) (string, error) {
	if claims == nil {
		return "", fmt.Errorf("jwt: claims required")
	}

	signingKey, err := c.keyProvider.GetSigningKey()
	if err != nil {
		return "", fmt.Errorf("jwt: get signing key: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = c.kid

	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// Verify parses the compact serialization and checks signature, issuer, and
// registered time claims. Every failure mode maps to ErrTokenVerification.
func (c *JWTCodec) Verify(tokenValue string) (*SessionClaims, error) {
	tokenValue = strings.TrimSpace(tokenValue)
	if tokenValue == "" {
		return nil, ErrTokenVerification
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(tokenValue, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		kid, ok := t.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("kid header not found")
		}

		return c.keyProvider.GetVerificationKey(kid)
	}, jwt.WithIssuer(c.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenVerification, err)
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrTokenVerification
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenVerification
	}

	return claims, nil
}
