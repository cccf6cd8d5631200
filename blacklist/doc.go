// Package blacklist stores revoked access credentials in Redis.
//
// Access credentials are stateless, so revocation before natural expiry
// requires an out-of-band marker. The key is the raw credential string
// (optionally prefixed) and the TTL is clamped to the credential's remaining
// lifetime; entries older than the original expiry are redundant and safe to
// lose.
package blacklist
