package exempt

import (
	"strings"
	"sync"
	"sync/atomic"
)

// MethodAny matches every HTTP method in an exemption entry.
const MethodAny = "*"

// Route declares one HTTP route. NoAuth marks it exempt from authentication
// enforcement.
type Route struct {
	Method  string
	Pattern string
	NoAuth  bool
}

// Group declares routes sharing a path prefix. NoAuth at group level exempts
// every route in the group regardless of per-route markers.
type Group struct {
	Prefix string
	NoAuth bool
	Routes []Route
}

// Table is the declarative route metadata walked at startup. It is data, not
// behavior: building the registry never invokes a handler.
type Table struct {
	Groups []Group
}

type entry struct {
	method  string
	pattern string
}

// Registry is the process-wide set of routes that bypass authentication.
// Build runs once at startup; concurrent builds are benign (the scan is
// idempotent, a losing racer only wastes work). Lookups after construction
// take a read lock only because Add remains available as an append-only
// administrative escape hatch.
type Registry struct {
	mu       sync.RWMutex
	built    atomic.Bool
	enforced []string
	entries  map[entry]struct{}
}

// NewRegistry creates a Registry. The enforced prefixes define where
// authentication applies at all: a path outside every prefix is implicitly
// exempt, and within them explicit exemptions subtract from enforcement.
// With no prefixes every path is enforced.
func NewRegistry(enforcedPrefixes ...string) *Registry {
	return &Registry{
		enforced: enforcedPrefixes,
		entries:  make(map[entry]struct{}),
	}
}

// Build walks table and records every route carrying a NoAuth marker at
// either granularity. Calling it again, including concurrently, yields the
// same final set as calling it once.
func (r *Registry) Build(table Table) {
	if r.built.Load() {
		return
	}

	scanned := make([]entry, 0, 8)
	for _, g := range table.Groups {
		for _, rt := range g.Routes {
			if !g.NoAuth && !rt.NoAuth {
				continue
			}
			method := rt.Method
			if method == "" {
				method = MethodAny
			}
			scanned = append(scanned, entry{
				method:  strings.ToUpper(method),
				pattern: joinPattern(g.Prefix, rt.Pattern),
			})
		}
	}

	r.mu.Lock()
	for _, e := range scanned {
		r.entries[e] = struct{}{}
	}
	r.built.Store(true)
	r.mu.Unlock()
}

// Add registers an additional exempt pattern for all methods. Append-only;
// there is no removal.
func (r *Registry) Add(pattern string) {
	r.mu.Lock()
	r.entries[entry{method: MethodAny, pattern: pattern}] = struct{}{}
	r.mu.Unlock()
}

// IsExempt reports whether the request bypasses authentication enforcement.
func (r *Registry) IsExempt(method, path string) bool {
	if !r.enforcedPath(path) {
		return true
	}

	method = strings.ToUpper(method)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for e := range r.entries {
		if e.method != MethodAny && e.method != method {
			continue
		}
		if matchPattern(e.pattern, path) {
			return true
		}
	}
	return false
}

// Size returns the number of recorded exemption entries.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) enforcedPath(path string) bool {
	if len(r.enforced) == 0 {
		return true
	}
	for _, prefix := range r.enforced {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func joinPattern(prefix, pattern string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if pattern == "" || pattern == "/" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}
	return prefix + pattern
}

// matchPattern matches path against a slash-separated pattern. A "*" or
// ":name" segment matches exactly one path segment; a trailing "**" matches
// any remainder, including none.
func matchPattern(pattern, path string) bool {
	ps := splitPath(pattern)
	ts := splitPath(path)

	for i, seg := range ps {
		if seg == "**" && i == len(ps)-1 {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if seg == "*" || strings.HasPrefix(seg, ":") {
			continue
		}
		if seg != ts[i] {
			return false
		}
	}
	return len(ps) == len(ts)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
