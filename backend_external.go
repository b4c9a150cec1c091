//go:build heapcore_external

package heapcore

import "unsafe"

// externalTarget is the caller-supplied allocator every operation is
// forwarded to. It must be registered with SetExternalBackend before the
// first allocation; this build adds no behavior of its own on top of it.
var externalTarget Backend

// SetExternalBackend registers the allocator this build forwards to.
// Accepts any Backend implementation, including an ExternalFuncs table.
func SetExternalBackend(backend Backend) {
	externalTarget = backend
}

type externalBackend struct{}

func newBackend() Backend {
	return externalBackend{}
}

func (externalBackend) Allocate(size int, align uint) unsafe.Pointer {
	return externalTarget.Allocate(size, align)
}

func (externalBackend) Reallocate(ptr unsafe.Pointer, oldSize, newSize int, align uint) unsafe.Pointer {
	return externalTarget.Reallocate(ptr, oldSize, newSize, align)
}

func (externalBackend) ReallocateInPlace(ptr unsafe.Pointer, oldSize, newSize int, align uint) int {
	return externalTarget.ReallocateInPlace(ptr, oldSize, newSize, align)
}

func (externalBackend) Deallocate(ptr unsafe.Pointer, oldSize int, align uint) {
	externalTarget.Deallocate(ptr, oldSize, align)
}

func (externalBackend) UsableSize(size int, align uint) int {
	return externalTarget.UsableSize(size, align)
}

func (externalBackend) StatsPrint() {
	externalTarget.StatsPrint()
}
