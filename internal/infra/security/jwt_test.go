package security

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) (*JWTCodec, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	codec, err := NewJWTCodec(NewStaticKeyProvider("v1", key), "v1", "blog-auth")
	require.NoError(t, err)

	return codec, key
}

func TestJWTCodecRoundTrip(t *testing.T) {
	codec, _ := newTestCodec(t)

	claims, err := NewSessionClaims(SessionClaimsOptions{
		Subject:     "reader@example.com",
		DisplayName: "Reader",
		Issuer:      "blog-auth",
		Role:        "user",
		TTL:         30 * time.Minute,
	})
	require.NoError(t, err)

	signed, err := codec.Sign(claims)
	require.NoError(t, err)
	require.Equal(t, 3, len(strings.Split(signed, ".")))

	parsed, err := codec.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "reader@example.com", parsed.Subject)
	require.Equal(t, "Reader", parsed.DisplayName)
	require.Equal(t, []string{"user"}, []string(parsed.Audience))
}

func TestJWTCodecRejectsWrongIssuer(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	signer, err := NewJWTCodec(NewStaticKeyProvider("v1", key), "v1", "other-service")
	require.NoError(t, err)
	verifier, err := NewJWTCodec(NewStaticKeyProvider("v1", key), "v1", "blog-auth")
	require.NoError(t, err)

	claims, err := NewSessionClaims(SessionClaimsOptions{
		Subject: "reader@example.com",
		Issuer:  "other-service",
		TTL:     time.Minute,
	})
	require.NoError(t, err)

	signed, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	require.ErrorIs(t, err, ErrTokenVerification)
}

func TestJWTCodecRejectsForeignKey(t *testing.T) {
	codec, _ := newTestCodec(t)
	foreign, _ := newTestCodec(t)

	claims, err := NewSessionClaims(SessionClaimsOptions{
		Subject: "reader@example.com",
		Issuer:  "blog-auth",
		TTL:     time.Minute,
	})
	require.NoError(t, err)

	signed, err := foreign.Sign(claims)
	require.NoError(t, err)

	_, err = codec.Verify(signed)
	require.ErrorIs(t, err, ErrTokenVerification)
}

func TestJWTCodecRejectsExpired(t *testing.T) {
	codec, _ := newTestCodec(t)

	claims, err := NewSessionClaims(SessionClaimsOptions{
		Subject:  "reader@example.com",
		Issuer:   "blog-auth",
		TTL:      time.Minute,
		IssuedAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	signed, err := codec.Sign(claims)
	require.NoError(t, err)

	_, err = codec.Verify(signed)
	require.ErrorIs(t, err, ErrTokenVerification)
}

func TestJWTCodecRejectsGarbage(t *testing.T) {
	codec, _ := newTestCodec(t)

	for _, input := range []string{"", "   ", "garbage", "a.b.c"} {
		_, err := codec.Verify(input)
		require.ErrorIs(t, err, ErrTokenVerification, "input %q", input)
	}
}

func TestNewSessionClaimsValidation(t *testing.T) {
	_, err := NewSessionClaims(SessionClaimsOptions{Issuer: "blog-auth", TTL: time.Minute})
	require.Error(t, err)

	_, err = NewSessionClaims(SessionClaimsOptions{Subject: "reader@example.com", TTL: time.Minute})
	require.Error(t, err)

	_, err = NewSessionClaims(SessionClaimsOptions{Subject: "reader@example.com", Issuer: "blog-auth"})
	require.Error(t, err)
}
