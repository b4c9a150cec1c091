package heapcore

import "unsafe"

// ExternalFuncs adapts a set of free functions into a Backend, for
// callers that supply their allocator as individual functions rather
// than a full implementation. Every field must be populated; the adapter
// forwards verbatim and performs no nil checks.
type ExternalFuncs struct {
	AllocateFunc          func(size int, align uint) unsafe.Pointer
	ReallocateFunc        func(ptr unsafe.Pointer, oldSize, newSize int, align uint) unsafe.Pointer
	ReallocateInPlaceFunc func(ptr unsafe.Pointer, oldSize, newSize int, align uint) int
	DeallocateFunc        func(ptr unsafe.Pointer, oldSize int, align uint)
	UsableSizeFunc        func(size int, align uint) int
	StatsPrintFunc        func()
}

var _ Backend = ExternalFuncs{}

func (f ExternalFuncs) Allocate(size int, align uint) unsafe.Pointer {
	return f.AllocateFunc(size, align)
}

func (f ExternalFuncs) Reallocate(ptr unsafe.Pointer, oldSize, newSize int, align uint) unsafe.Pointer {
	return f.ReallocateFunc(ptr, oldSize, newSize, align)
}

func (f ExternalFuncs) ReallocateInPlace(ptr unsafe.Pointer, oldSize, newSize int, align uint) int {
	return f.ReallocateInPlaceFunc(ptr, oldSize, newSize, align)
}

func (f ExternalFuncs) Deallocate(ptr unsafe.Pointer, oldSize int, align uint) {
	f.DeallocateFunc(ptr, oldSize, align)
}

func (f ExternalFuncs) UsableSize(size int, align uint) int {
	return f.UsableSizeFunc(size, align)
}

func (f ExternalFuncs) StatsPrint() {
	f.StatsPrintFunc()
}
