// Package refreshstate persists refresh credential validity in two tiers.
//
// The durable store (Postgres in production, in-memory for tests) is the
// source of truth: a refresh identifier is valid exactly when a live record
// maps it to the presenting subject. The Redis mirror is a disposable
// accelerator keyed "refresh_token:<refresh_identifier>"; its TTL is capped
// at the durable TTL so a stale cache entry cannot outlive a revocation by
// more than the configured cache window.
//
// The two tiers are not written transactionally. A crash between the durable
// write and the mirror write leaves the record without its shadow, which is
// safe: validation falls back to the durable store on any miss. Tiered is
// the only type call sites should use; it keeps the consistency contract in
// one place instead of scattering two repositories across callers.
package refreshstate
