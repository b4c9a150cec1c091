// Package heapcore is a uniform allocate/reallocate/deallocate/query
// surface over one of several interchangeable allocator backends. It is
// the substrate for owning-pointer and growable-container types: those
// callers talk only to the package-level entry points and never learn
// which backend is active.
//
// # Choosing a backend
//
// Exactly one backend is compiled in, selected by build tag and resolved
// once at package initialization:
//
//   - default: an embedded size-class arena allocator
//     (github.com/voxalloc/heapcore/internal/arena)
//   - heapcore_cmalloc: the platform's C allocator via cgo
//     (malloc/posix_memalign on unix, malloc/_aligned_malloc on windows)
//   - heapcore_external: a caller-supplied Backend registered with
//     SetExternalBackend before first use
//
// # The contract
//
// Allocation handles are opaque addresses. The package tracks nothing
// about them: every Reallocate, ReallocateInPlace, Deallocate and
// UsableSize call must be given a size and alignment consistent with the
// values used to create the handle, where the size may drift anywhere
// between the size originally requested and the usable size reported for
// it. Passing anything else is undefined behavior: by design it is never
// checked or reported, keeping the hot path free of branches. Builds with
// the heapcore_debug tag add guard bytes and consistency checks inside
// the arena backend; release builds pay nothing.
//
// Zero-size allocations never reach a backend. They all resolve to
// EmptySentinel, a fixed non-nil address that may numerically coincide
// with live allocations and must never be dereferenced; comparing a
// handle against it is the only legal use. Deallocating it is a no-op.
// The sentinel is what lets handle-owning types above this package keep a
// "never nil unless explicitly failed" invariant.
//
// A nil return from Allocate or Reallocate means exhaustion and the
// caller decides how to respond. The one exception is ExchangeAllocate,
// the fast path for exclusive-ownership types, which instead hands
// control to the injected out-of-memory handler and never returns nil.
//
// Calls on distinct handles may run concurrently; the backends do their
// own locking. Concurrent mutating calls on the same handle are the
// caller's race to prevent. StatsPrint may observe torn counters while
// other goroutines allocate. That is a permanent characteristic, not a
// bug.
package heapcore
