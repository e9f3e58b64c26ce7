// internal/licensing/codec_test.go
package licensing

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	keys, err := NewKeyProvider(NewFileKeyStore(t.TempDir()))
	require.NoError(t, err)
	return NewTokenCodec(keys, "", "")
}

func testInput() TokenInput {
	return TokenInput{
		LicenseID:      42,
		ClinicID:       7,
		Type:           "Standalone",
		Version:        "1.0",
		ActivationDate: time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC),
		SupportExpiry:  time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestMintVerifyRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Mint(testInput())
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)

	assert.Equal(t, 42, claims.LicenseID)
	assert.Equal(t, 7, claims.ClinicID)
	assert.Equal(t, "Standalone", claims.Type)
	assert.Equal(t, "1.0", claims.Version)
	assert.Equal(t, DefaultIssuer, claims.Issuer)
	assert.True(t, claims.VerifyAudience(DefaultAudience, true))

	activation, err := time.Parse(time.RFC3339, claims.ActivationDate)
	require.NoError(t, err, "activationDate must be RFC 3339")
	assert.True(t, activation.Equal(testInput().ActivationDate))

	expiry, err := time.Parse(time.RFC3339, claims.SupportExpiry)
	require.NoError(t, err, "supportExpiry must be RFC 3339")
	assert.True(t, expiry.Equal(testInput().SupportExpiry))
}

func TestMintIsRandomized(t *testing.T) {
	codec := newTestCodec(t)

	first, err := codec.Mint(testInput())
	require.NoError(t, err)
	second, err := codec.Mint(testInput())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	_, err = codec.Verify(first)
	assert.NoError(t, err)
	_, err = codec.Verify(second)
	assert.NoError(t, err)
}

func TestVerifyMalformedToken(t *testing.T) {
	codec := newTestCodec(t)

	for _, token := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := codec.Verify(token)
		assert.ErrorIs(t, err, ErrMalformedToken, "token %q", token)
	}
}

func TestVerifyTamperedPayload(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Mint(testInput())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	// Valid base64url, different bytes: the signature no longer matches.
	parts[1] = "eyJsaWNlbnNlSWQiOjk5OTl9"
	_, err = codec.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyForeignKey(t *testing.T) {
	codec := newTestCodec(t)
	foreign := newTestCodec(t)

	token, err := foreign.Mint(testInput())
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	codec := newTestCodec(t)

	hmacToken := jwt.NewWithClaims(jwt.SigningMethodHS256, &LicenseClaims{
		LicenseID: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   DefaultIssuer,
			Audience: jwt.ClaimStrings{DefaultAudience},
		},
	})
	signed, err := hmacToken.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	_, err = codec.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWrongIssuerOrAudience(t *testing.T) {
	keys, err := NewKeyProvider(NewFileKeyStore(t.TempDir()))
	require.NoError(t, err)

	standard := NewTokenCodec(keys, "", "")
	otherIssuer := NewTokenCodec(keys, "staging.nulldental.com", DefaultAudience)
	otherAudience := NewTokenCodec(keys, DefaultIssuer, "desktop-app")

	token, err := standard.Mint(testInput())
	require.NoError(t, err)

	_, err = otherIssuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
	_, err = otherAudience.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}
