// internal/licensing/errors.go
package licensing

import "errors"

// Error kinds of the licensing core. Callers branch with errors.Is; the
// public validation endpoint normalizes all of these into a uniform
// {valid:false, reason} shape so a remote caller cannot probe internals.
var (
	// ErrKeyMaterial means persisted key material exists but is unreadable
	// or malformed. Regenerating over it would invalidate every issued
	// license, so this is fatal at startup rather than silently handled.
	ErrKeyMaterial = errors.New("key material unreadable or malformed")

	// ErrMalformedToken means the token cannot be parsed into the expected
	// header.claims.signature structure.
	ErrMalformedToken = errors.New("malformed license token")

	// ErrInvalidSignature means the cryptographic check failed.
	ErrInvalidSignature = errors.New("invalid license token signature")

	// ErrInvalidClaims means the signature verified but the issuer or
	// audience does not match this system.
	ErrInvalidClaims = errors.New("license token issuer or audience mismatch")

	// ErrNotFound means no license record matches the given identifier.
	ErrNotFound = errors.New("license not found")

	// ErrInvalidOperation means a state transition was attempted against a
	// revoked license (renew, transfer).
	ErrInvalidOperation = errors.New("operation not allowed on revoked license")

	// ErrInconsistentState means a license row still carries its issuance
	// placeholder instead of a signed token. The record is "not yet fully
	// issued", which must never be conflated with an invalid license.
	ErrInconsistentState = errors.New("license not fully issued")
)
