package crewauth

import (
	"errors"
	"net/http"
)

// ErrorKind enumerates the closed set of authentication rejection causes.
// Every verification failure surfaced by the engine maps to exactly one kind;
// callers can switch over the set exhaustively.
type ErrorKind uint8

const (
	// KindTokenMissing — no or malformed Authorization header on an
	// enforced path.
	KindTokenMissing ErrorKind = iota + 1
	// KindTokenMalformed — the credential cannot be parsed.
	KindTokenMalformed
	// KindTokenInvalid — signature mismatch, unrecognized or foreign
	// refresh identifier, or an unresolvable subject.
	KindTokenInvalid
	// KindTokenExpired — signature valid, clock past expiry.
	KindTokenExpired
	// KindTokenBlacklisted — credential explicitly revoked before its
	// natural expiry.
	KindTokenBlacklisted
)

// TokenError is a tagged rejection value. The five instances below are the
// only values of this type the engine ever returns; compare with errors.Is
// or unwrap via AsTokenError.
type TokenError struct {
	kind     ErrorKind
	codeName string
	message  string
}

var (
	// ErrTokenMissing is an exported rejection value returned by the engine and middleware.
	ErrTokenMissing = &TokenError{kind: KindTokenMissing, codeName: "TOKEN_MISSING", message: "authorization credential missing"}
	// ErrTokenMalformed is an exported rejection value returned by the engine and middleware.
	ErrTokenMalformed = &TokenError{kind: KindTokenMalformed, codeName: "TOKEN_MALFORMED", message: "authorization credential malformed"}
	// ErrTokenInvalid is an exported rejection value returned by the engine and middleware.
	ErrTokenInvalid = &TokenError{kind: KindTokenInvalid, codeName: "TOKEN_INVALID", message: "authorization credential invalid"}
	// ErrTokenExpired is an exported rejection value returned by the engine and middleware.
	ErrTokenExpired = &TokenError{kind: KindTokenExpired, codeName: "TOKEN_EXPIRED", message: "authorization credential expired"}
	// ErrTokenBlacklisted is an exported rejection value returned by the engine and middleware.
	ErrTokenBlacklisted = &TokenError{kind: KindTokenBlacklisted, codeName: "TOKEN_BLACKLISTED", message: "authorization credential revoked"}
)

// ErrStoreUnavailable marks a durable-tier outage. It is deliberately not a
// TokenError: when the authoritative store cannot be reached no conclusion
// about credential validity can be drawn, so the failure surfaces as a
// server error rather than a 401.
var ErrStoreUnavailable = errors.New("durable token store unavailable")

func (e *TokenError) Error() string { return e.message }

// Kind returns the tag identifying the rejection cause.
func (e *TokenError) Kind() ErrorKind { return e.kind }

// CodeName returns the stable machine-readable error code used in HTTP
// error bodies.
func (e *TokenError) CodeName() string { return e.codeName }

// HTTPStatus returns the transport status equivalent of the rejection.
// Every kind in the closed set is an authentication failure.
func (e *TokenError) HTTPStatus() int { return http.StatusUnauthorized }

// AsTokenError unwraps err into the closed TokenError set. The second return
// is false for store outages and other non-token failures.
func AsTokenError(err error) (*TokenError, bool) {
	var te *TokenError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// ConfigurationError reports an unusable engine configuration. It is fatal:
// Builder.Build returns it instead of producing an engine, so a bad signing
// key fails process startup rather than individual requests.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "crewauth configuration: " + e.Reason
}
