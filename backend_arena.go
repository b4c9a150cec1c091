//go:build !heapcore_cmalloc && !heapcore_external

package heapcore

import (
	"os"
	"unsafe"

	"github.com/voxalloc/heapcore/internal/arena"
	"golang.org/x/exp/slog"
)

// arenaBackend serves every operation from an embedded size-class heap,
// translating alignments into the heap's flag encoding. Alignments at or
// below MinAlign collapse to flag zero, so the common case carries no
// alignment arithmetic at all.
type arenaBackend struct {
	heap *arena.Heap
}

func newBackend() Backend {
	return &arenaBackend{
		heap: arena.NewHeap(arena.HeapOptions{
			Synchronized: true,
		}),
	}
}

func (b *arenaBackend) Allocate(size int, align uint) unsafe.Pointer {
	return b.heap.Mallocx(size, AlignFlags(align))
}

func (b *arenaBackend) Reallocate(ptr unsafe.Pointer, oldSize, newSize int, align uint) unsafe.Pointer {
	return b.heap.Rallocx(ptr, oldSize, newSize, AlignFlags(align))
}

func (b *arenaBackend) ReallocateInPlace(ptr unsafe.Pointer, oldSize, newSize int, align uint) int {
	return b.heap.Xallocx(ptr, oldSize, newSize, AlignFlags(align))
}

func (b *arenaBackend) Deallocate(ptr unsafe.Pointer, oldSize int, align uint) {
	b.heap.Sdallocx(ptr, oldSize, AlignFlags(align))
}

func (b *arenaBackend) UsableSize(size int, align uint) int {
	return b.heap.Nallocx(size, AlignFlags(align))
}

func (b *arenaBackend) StatsPrint() {
	if err := b.heap.PrintStats(os.Stderr); err != nil {
		slog.Warn("heapcore: failed to print arena statistics",
			slog.String("error", err.Error()))
	}
}
