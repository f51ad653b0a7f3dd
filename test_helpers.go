package tcgemm

import (
	"testing"
)

// MallocOrFail allocates device memory and fails the test if unsuccessful
func MallocOrFail(t testing.TB, size int) DevicePtr {
	t.Helper()
	ptr, err := Malloc(size)
	if err != nil {
		t.Fatalf("Failed to allocate %d bytes: %v", size, err)
	}
	return ptr
}

// MemcpyOrFail copies data and fails the test if unsuccessful
func MemcpyOrFail(t testing.TB, dst DevicePtr, src interface{}, size int, direction MemcpyKind) {
	t.Helper()
	err := Memcpy(dst, src, size, direction)
	if err != nil {
		t.Fatalf("Memcpy failed: %v", err)
	}
}

// EncodeOrFail encodes a sparse operand and fails the test if unsuccessful
func EncodeOrFail(t testing.TB, dense []Float16, rows, cols int) *SparseMatrix {
	t.Helper()
	s, err := EncodeSparse(dense, rows, cols)
	if err != nil {
		t.Fatalf("EncodeSparse(%dx%d) failed: %v", rows, cols, err)
	}
	return s
}
