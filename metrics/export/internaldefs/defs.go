// Package internaldefs holds the shared counter definitions consumed by the
// Prometheus and OTel exporters. It exists so both exporters render the same
// names and help strings without importing each other.
package internaldefs

import crewauth "github.com/DEPthes/crewauth"

// CounterDef binds one engine counter to its exported name.
type CounterDef struct {
	ID   crewauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{crewauth.MetricIssueSuccess, "crewauth_issue_success_total", "Credential pairs issued."},
	{crewauth.MetricIssueFailure, "crewauth_issue_failure_total", "Failed issuance attempts."},
	{crewauth.MetricRotateSuccess, "crewauth_rotate_success_total", "Successful refresh rotations."},
	{crewauth.MetricRotateFailure, "crewauth_rotate_failure_total", "Rejected refresh rotations."},
	{crewauth.MetricRevoke, "crewauth_revoke_total", "Explicit credential revocations."},
	{crewauth.MetricAuthSuccess, "crewauth_auth_success_total", "Requests authenticated."},
	{crewauth.MetricAuthRejected, "crewauth_auth_rejected_total", "Requests rejected at the gate."},
	{crewauth.MetricBlacklistHit, "crewauth_blacklist_hit_total", "Revoked credentials presented after revocation."},
	{crewauth.MetricCacheFallback, "crewauth_cache_fallback_total", "Refresh validations served by the durable store after a cache miss."},
	{crewauth.MetricCacheDegraded, "crewauth_cache_degraded_total", "Cache tier failures absorbed by the tiered store."},
}
