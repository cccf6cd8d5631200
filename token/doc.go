// Package token implements signing and parsing of bearer credentials.
//
// # Credential format
//
// HS256-signed JWTs carrying subject, credential kind, issued-at, and expiry.
// Refresh credentials additionally embed a UUIDv4 refresh identifier in the
// "rti" claim; it is the join key into the durable refresh state store.
// Access credentials are fully stateless — validity is proven by signature
// plus expiry alone.
//
// # Architecture boundaries
//
// This package owns credential encoding, signature verification, and the
// closed verification error set. Revocation, refresh state, and subject
// resolution are handled by the engine and its stores.
//
// # What this package must NOT do
//
//   - Access Redis, Postgres, or any I/O.
//   - Import crewauth or any of its store packages.
//   - Decide revocation or rotation policy.
package token
