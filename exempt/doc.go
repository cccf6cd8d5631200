// Package exempt holds the startup-built registry of routes that bypass
// authentication enforcement.
//
// Route metadata is declared as data (Table/Group/Route with NoAuth markers)
// and walked once during bootstrap; there is no reflection, no ambient
// global, and no runtime invalidation other than the append-only Add. The
// registry is handed by reference to the request-handling layer.
package exempt
