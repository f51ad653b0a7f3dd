package tcgemm

import (
	"testing"
)

func TestMallocAlignment(t *testing.T) {
	sizes := []int{1, 64, 100, 4096, 1 << 20}
	for _, size := range sizes {
		ptr := MallocOrFail(t, size)
		if !ptr.IsAligned() {
			t.Errorf("allocation of %d bytes not %d-byte aligned", size, PointerAlign)
		}
		if ptr.Size() != size {
			t.Errorf("allocation of %d bytes reports size %d", size, ptr.Size())
		}
		if err := Free(ptr); err != nil {
			t.Errorf("Free failed: %v", err)
		}
	}
}

func TestMallocRejectsBadSize(t *testing.T) {
	if _, err := Malloc(0); err == nil {
		t.Error("Malloc(0) should fail")
	}
	if _, err := Malloc(-1); err == nil {
		t.Error("Malloc(-1) should fail")
	}
}

func TestDoubleFree(t *testing.T) {
	ptr := MallocOrFail(t, 256)
	if err := Free(ptr); err != nil {
		t.Fatalf("first Free failed: %v", err)
	}
	if err := Free(ptr); !IsMemoryError(err) {
		t.Errorf("double Free: got %v, want memory error", err)
	}
}

func TestMemcpyRoundTrip(t *testing.T) {
	const n = 1024

	host := GenerateSmallIntF16(n, 21)
	dev := MallocOrFail(t, n*2)
	defer Free(dev)

	MemcpyOrFail(t, dev, host, n*2, MemcpyHostToDevice)

	view := dev.Float16()[:n]
	for i := range host {
		if view[i] != host[i] {
			t.Fatalf("device view differs at %d", i)
		}
	}

	back := make([]Float16, n)
	if err := Memcpy(back, dev, n*2, MemcpyDeviceToHost); err != nil {
		t.Fatalf("copy back failed: %v", err)
	}
	for i := range host {
		if back[i] != host[i] {
			t.Fatalf("round trip differs at %d", i)
		}
	}
}

func TestMemcpyRejectsUnsupportedType(t *testing.T) {
	dev := MallocOrFail(t, 16)
	defer Free(dev)
	if err := Memcpy(dev, "not a buffer", 8, MemcpyHostToDevice); !IsInvalidArgError(err) {
		t.Errorf("got %v, want invalid arg error", err)
	}
}

func TestDevicePtrViews(t *testing.T) {
	dev := MallocOrFail(t, 64)
	defer Free(dev)

	f32 := dev.Float32()
	f32[0] = 3.5
	if dev.Byte()[0] == 0 && dev.Byte()[1] == 0 && dev.Byte()[2] == 0 && dev.Byte()[3] == 0 {
		t.Error("float32 write not visible through byte view")
	}

	u32 := dev.Uint32()
	if len(u32) != 16 {
		t.Errorf("uint32 view length %d, want 16", len(u32))
	}

	off := dev.Offset(8)
	if off.Size() != 56 {
		t.Errorf("offset view size %d, want 56", off.Size())
	}
	off.Float32()[0] = 1
	if dev.Float32()[2] != 1 {
		t.Error("offset view does not alias parent memory")
	}
}

func TestPoolReuse(t *testing.T) {
	pool := NewMemoryPool()

	a, err := pool.Allocate(4096)
	if err != nil {
		t.Fatal(err)
	}
	if err := pool.Free(a); err != nil {
		t.Fatal(err)
	}

	b, err := pool.Allocate(2048)
	if err != nil {
		t.Fatal(err)
	}
	if b.ptr != a.ptr {
		t.Error("expected the freed block to be reused for a smaller request")
	}

	alloc, peak := pool.GetStats()
	if alloc <= 0 || peak < alloc {
		t.Errorf("implausible pool stats: allocated %d, peak %d", alloc, peak)
	}
}
