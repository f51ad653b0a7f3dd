package tcgemm

import (
	"fmt"
	"sync"
	"unsafe"
)

// MemcpyKind specifies the direction of memory transfer. In the unified
// CPU memory model these are equivalent and kept for API familiarity.
type MemcpyKind int

const (
	MemcpyHostToHost     MemcpyKind = iota // Host to host transfer
	MemcpyHostToDevice                     // Host to device transfer
	MemcpyDeviceToHost                     // Device to host transfer
	MemcpyDeviceToDevice                   // Device to device transfer
)

// DevicePtr is a handle to device memory. All kernel operand buffers are
// DevicePtrs; allocations are aligned to PointerAlign (128 bytes), which
// the launch preconditions verify for every operand.
type DevicePtr struct {
	ptr    unsafe.Pointer
	size   int
	offset int
}

// MemoryPool manages device memory allocation with reuse. Freed blocks go
// on a free list and are handed back to later allocations of equal or
// smaller size.
type MemoryPool struct {
	mu         sync.Mutex
	allocated  map[uintptr]*allocation
	freeList   []*allocation
	totalAlloc int64
	peakAlloc  int64
}

type allocation struct {
	buf  []byte // backing store, held to keep the pointer alive
	ptr  unsafe.Pointer
	size int
	used bool
}

// NewMemoryPool creates an empty pool.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{
		allocated: make(map[uintptr]*allocation),
	}
}

// Allocate returns a PointerAlign-aligned block of at least size bytes.
func (mp *MemoryPool) Allocate(size int) (DevicePtr, error) {
	if size <= 0 {
		return DevicePtr{}, ErrInvalidSize
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	alignedSize := (size + MemoryAlignment - 1) &^ (MemoryAlignment - 1)

	// Reuse from the free list when possible
	for i, alloc := range mp.freeList {
		if alloc.size >= alignedSize {
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			alloc.used = true
			mp.totalAlloc += int64(alloc.size)
			if mp.totalAlloc > mp.peakAlloc {
				mp.peakAlloc = mp.totalAlloc
			}
			return DevicePtr{ptr: alloc.ptr, size: size}, nil
		}
	}

	// Fresh allocation. Over-allocate so we can round the base pointer up
	// to the alignment boundary.
	buf := make([]byte, alignedSize+MemoryAlignment)
	base := uintptr(unsafe.Pointer(&buf[0]))
	pad := (MemoryAlignment - int(base%MemoryAlignment)) % MemoryAlignment
	ptr := unsafe.Pointer(&buf[pad])

	alloc := &allocation{
		buf:  buf,
		ptr:  ptr,
		size: alignedSize,
		used: true,
	}
	mp.allocated[uintptr(ptr)] = alloc

	mp.totalAlloc += int64(alignedSize)
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}

	return DevicePtr{ptr: ptr, size: size}, nil
}

// Free returns a block to the pool.
func (mp *MemoryPool) Free(ptr DevicePtr) error {
	if ptr.ptr == nil {
		return nil
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	alloc, ok := mp.allocated[uintptr(ptr.ptr)]
	if !ok {
		return NewMemoryError("Free", "pointer not found in allocation pool", nil)
	}
	if !alloc.used {
		return ErrDoubleFree
	}

	alloc.used = false
	mp.freeList = append(mp.freeList, alloc)
	mp.totalAlloc -= int64(alloc.size)
	return nil
}

// GetStats returns current and peak allocation in bytes.
func (mp *MemoryPool) GetStats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// Context-level memory operations

// Malloc allocates aligned device memory of the specified size in bytes.
func (ctx *Context) Malloc(size int) (DevicePtr, error) {
	return ctx.memory.Allocate(size)
}

// Free releases device memory allocated by Malloc.
// It is safe to call Free with a zero-value DevicePtr.
func (ctx *Context) Free(ptr DevicePtr) error {
	return ctx.memory.Free(ptr)
}

// Memcpy copies memory between host slices and device pointers.
// Supported operand types: DevicePtr, []byte, []float32, []Float16,
// []uint32 and []int32. size is in bytes.
func (ctx *Context) Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	dstPtr, err := memOperand("Memcpy", dst)
	if err != nil {
		return err
	}
	srcPtr, err := memOperand("Memcpy", src)
	if err != nil {
		return err
	}

	if dstPtr != nil && srcPtr != nil && size > 0 {
		copy(unsafe.Slice((*byte)(dstPtr), size), unsafe.Slice((*byte)(srcPtr), size))
	}
	return nil
}

// memOperand extracts the base pointer from a Memcpy operand.
func memOperand(op string, v interface{}) (unsafe.Pointer, error) {
	switch x := v.(type) {
	case DevicePtr:
		return x.ptr, nil
	case []byte:
		if len(x) == 0 {
			return nil, nil
		}
		return unsafe.Pointer(&x[0]), nil
	case []float32:
		if len(x) == 0 {
			return nil, nil
		}
		return unsafe.Pointer(&x[0]), nil
	case []Float16:
		if len(x) == 0 {
			return nil, nil
		}
		return unsafe.Pointer(&x[0]), nil
	case []uint32:
		if len(x) == 0 {
			return nil, nil
		}
		return unsafe.Pointer(&x[0]), nil
	case []int32:
		if len(x) == 0 {
			return nil, nil
		}
		return unsafe.Pointer(&x[0]), nil
	default:
		return nil, NewInvalidArgError(op, fmt.Sprintf("unsupported operand type: %T", v))
	}
}

// DevicePtr views

// Float32 returns a float32 slice view of the device memory.
func (d DevicePtr) Float32() []float32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*float32)(d.ptr), d.size/4)
}

// Float16 returns a half-precision slice view of the device memory.
func (d DevicePtr) Float16() []Float16 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*Float16)(d.ptr), d.size/2)
}

// Uint32 returns a uint32 slice view of the device memory.
// Sparse bitmask buffers use this view.
func (d DevicePtr) Uint32() []uint32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*uint32)(d.ptr), d.size/4)
}

// Int32 returns an int32 slice view of the device memory.
func (d DevicePtr) Int32() []int32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*int32)(d.ptr), d.size/4)
}

// Byte returns a byte slice view covering the whole region.
func (d DevicePtr) Byte() []byte {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(d.ptr), d.size)
}

// Offset returns a new DevicePtr advanced by the given number of bytes.
// The returned pointer shares the same underlying memory.
func (d DevicePtr) Offset(bytes int) DevicePtr {
	return DevicePtr{
		ptr:    unsafe.Pointer(uintptr(d.ptr) + uintptr(bytes)),
		size:   d.size - bytes,
		offset: d.offset + bytes,
	}
}

// Size returns the size in bytes of the memory region.
func (d DevicePtr) Size() int {
	return d.size
}

// IsAligned reports whether the pointer satisfies the kernel alignment
// requirement (PointerAlign bytes).
func (d DevicePtr) IsAligned() bool {
	return d.ptr != nil && uintptr(d.ptr)%PointerAlign == 0
}
