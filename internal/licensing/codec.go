// internal/licensing/codec.go
package licensing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Fixed identity strings embedded and checked in every license token.
const (
	DefaultIssuer   = "admin.nulldental.com"
	DefaultAudience = "clinic-app"
)

// LicenseClaims is the signed payload of a license token. Date claims are
// RFC 3339 strings rather than numeric epochs; clinic deployments parse them
// as ISO-8601 and this is a format contract, not an accident.
type LicenseClaims struct {
	LicenseID      int    `json:"licenseId"`
	ClinicID       int    `json:"clinicId"`
	Type           string `json:"type"`
	Version        string `json:"version"`
	ActivationDate string `json:"activationDate"`
	SupportExpiry  string `json:"supportExpiry"`
	jwt.RegisteredClaims
}

// TokenInput carries the license fields bound into a token at mint time.
type TokenInput struct {
	LicenseID      uint
	ClinicID       uint
	Type           string
	Version        string
	ActivationDate time.Time
	SupportExpiry  time.Time
}

// TokenCodec mints and verifies ES256 license tokens. It is stateless with
// respect to license records: business checks (expiry, revocation) belong to
// the lifecycle service, which has the authoritative row.
type TokenCodec struct {
	keys     *KeyProvider
	issuer   string
	audience string
}

func NewTokenCodec(keys *KeyProvider, issuer, audience string) *TokenCodec {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if audience == "" {
		audience = DefaultAudience
	}
	return &TokenCodec{keys: keys, issuer: issuer, audience: audience}
}

// Mint produces a compact signed token embedding the given license fields
// verbatim. ECDSA signing is randomized, so two mints of identical input
// yield different byte strings; each independently verifies.
func (c *TokenCodec) Mint(in TokenInput) (string, error) {
	claims := LicenseClaims{
		LicenseID:      int(in.LicenseID),
		ClinicID:       int(in.ClinicID),
		Type:           in.Type,
		Version:        in.Version,
		ActivationDate: in.ActivationDate.UTC().Format(time.RFC3339),
		SupportExpiry:  in.SupportExpiry.UTC().Format(time.RFC3339),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   c.issuer,
			Audience: jwt.ClaimStrings{c.audience},
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	return token.SignedString(c.keys.SigningKey())
}

// Verify checks the signature and the fixed issuer/audience, then returns
// the decoded claims un-interpreted. Failures map to ErrMalformedToken,
// ErrInvalidSignature or ErrInvalidClaims.
func (c *TokenCodec) Verify(tokenString string) (*LicenseClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &LicenseClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, ErrInvalidSignature
		}
		return c.keys.VerificationKey(), nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := token.Claims.(*LicenseClaims)
	if !ok || !token.Valid {
		return nil, ErrMalformedToken
	}

	if claims.Issuer != c.issuer {
		return nil, ErrInvalidClaims
	}
	if !claims.VerifyAudience(c.audience, true) {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, ErrInvalidSignature):
		return ErrInvalidSignature
	default:
		return ErrInvalidSignature
	}
}
