package heapcore

import "math/bits"

// RequiresSlowAlignment reports whether align is too strict for the
// active backend's general allocation path. Alignments at or below
// MinAlign come for free with every allocation. Both this function and
// AlignFlags are pure; when align is a constant at the call site the
// branch folds away entirely.
func RequiresSlowAlignment(align uint) bool {
	return align > MinAlign
}

// AlignFlags translates align into the encoding flags-based backends
// expect: zero for naturally aligned requests, otherwise the base-2
// logarithm of the alignment. align must be a power of two no larger
// than the largest page size the platform supports; this is never
// checked.
func AlignFlags(align uint) int32 {
	if align <= MinAlign {
		return 0
	}

	return int32(bits.TrailingZeros(align))
}
