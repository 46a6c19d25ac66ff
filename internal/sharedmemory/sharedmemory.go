// Package sharedmemory implements the boundary-only "persistent
// shared-memory backend" spec.md keeps out of the core runtime's scope
// (it is a Provider capability, `SharedMemory`, not a load-bearing C1-C10
// component): a narrow Get/Set/Close contract plus a Redis-backed
// implementation, so a Provider advertising the SharedMemory capability
// has somewhere real to read and write.
package sharedmemory

import "context"

// Backend is the narrow contract a SharedMemory-capable provider reads
// and writes through. No caching policy, eviction, or consistency model
// is specified beyond what the concrete backend itself provides.
type Backend interface {
	// Get retrieves the value stored under key. ok is false when the
	// key does not exist.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, persisting it until overwritten or
	// explicitly removed by the backend's own retention policy.
	Set(ctx context.Context, key, value string) error

	// Close releases the backend's underlying connection(s).
	Close() error
}
