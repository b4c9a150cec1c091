//go:build amd64 || 386 || arm64

package heapcore

// MinAlign is the alignment the underlying allocators already guarantee
// for every allocation on this architecture. Requests at or below it
// skip alignment-specific code paths entirely.
const MinAlign uint = 16
