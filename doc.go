// Package crewauth manages the authentication token lifecycle for the
// LearningCrew platform: issuance of short-lived signed access credentials
// and longer-lived rotatable refresh credentials, verification on every
// request, explicit revocation through a Redis blacklist, and two-tier
// (Redis cache plus durable store) refresh state.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// crewauth is the public surface. It exposes [Engine], [Builder], [Config],
// the closed [TokenError] set, and value types ([Pair], [Principal],
// [MetricsSnapshot]). Credential encoding lives in the token package, the
// storage tiers in refreshstate and blacklist, route exemption in exempt,
// and the HTTP gate in middleware.
//
// # Consistency contract
//
// The durable refresh store is the single source of truth. The Redis mirror
// and the blacklist are the only Redis state; a mirror outage degrades to
// durable-only validation, while a blacklist outage fails the request as a
// server error because revocation can no longer be ruled out.
package crewauth
