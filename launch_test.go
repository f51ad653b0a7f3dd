package tcgemm

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestFlatLaunchCoversGrid(t *testing.T) {
	const n = 10000

	var count int64
	seen := make([]int32, n)

	err := Launch(func(tid ThreadID) {
		idx := tid.Global()
		if idx < n {
			atomic.AddInt32(&seen[idx], 1)
			atomic.AddInt64(&count, 1)
		}
	}, Dim3{X: (n + 255) / 256, Y: 1, Z: 1}, Dim3{X: 256, Y: 1, Z: 1})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	if err := Synchronize(); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}

	if count != n {
		t.Errorf("executed %d work items, want %d", count, n)
	}
	for i, v := range seen {
		if v != 1 {
			t.Fatalf("work item %d executed %d times", i, v)
		}
	}
}

func TestFlatLaunchEmptyGrid(t *testing.T) {
	err := Launch(func(tid ThreadID) {
		t.Error("kernel ran on an empty grid")
	}, Dim3{}, Dim3{X: 32, Y: 1, Z: 1})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	if err := Synchronize(); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
}

// Every warp of a block must see the writes its siblings made before the
// barrier.
func TestCooperativeBarrierVisibility(t *testing.T) {
	const blocks = 3
	const warps = WarpsPerBlock
	const rounds = 16

	var failures int64

	err := defaultContext.LaunchCooperative(func(team *BlockTeam) {
		slots := team.Scratch().Int32()[:warps]

		for round := 0; round < rounds; round++ {
			slots[team.WarpID] = int32(round + 1)
			team.Sync()

			for w := 0; w < warps; w++ {
				if slots[w] != int32(round+1) {
					atomic.AddInt64(&failures, 1)
				}
			}
			team.Sync()
		}
	}, blocks, warps, warps*4)
	if err != nil {
		t.Fatalf("LaunchCooperative failed: %v", err)
	}
	if failures != 0 {
		t.Errorf("%d stale scratch reads across barriers", failures)
	}
}

func TestCooperativeFaultPropagates(t *testing.T) {
	err := defaultContext.LaunchCooperative(func(team *BlockTeam) {
		var empty []int
		_ = empty[1] // out-of-bounds fault
	}, 2, 1, 64)

	if err == nil {
		t.Fatal("kernel fault was not propagated")
	}
	ke, ok := err.(*KernelError)
	if !ok || ke.Type != ErrTypeExecution {
		t.Errorf("got %v, want execution error", err)
	}
}

func TestCooperativeFaultReleasesSiblings(t *testing.T) {
	// Only warp 0 faults; the rest park at the barrier and must be
	// released for the launch to return at all.
	err := defaultContext.LaunchCooperative(func(team *BlockTeam) {
		if team.WarpID == 0 {
			var empty []int
			_ = empty[1]
		}
		team.Sync()
	}, 1, 4, 64)

	ke, ok := err.(*KernelError)
	if !ok || ke.Type != ErrTypeExecution {
		t.Errorf("got %v, want execution error", err)
	}
}

func TestCooperativeRejectsBadConfig(t *testing.T) {
	noop := func(team *BlockTeam) {}
	if err := defaultContext.LaunchCooperative(noop, 0, 1, 64); !IsInvalidArgError(err) {
		t.Errorf("zero blocks: got %v, want invalid arg", err)
	}
	if err := defaultContext.LaunchCooperative(noop, 1, 0, 64); !IsInvalidArgError(err) {
		t.Errorf("zero warps: got %v, want invalid arg", err)
	}
}

func TestBarrierReuse(t *testing.T) {
	const goroutines = 8
	const rounds = 100

	bar := newBarrier(goroutines)
	var phase int64

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		g := g
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				bar.Wait()
				if got := atomic.LoadInt64(&phase); got != int64(r) {
					t.Errorf("phase %d observed during round %d", got, r)
					return
				}
				bar.Wait()
				if g == 0 {
					atomic.AddInt64(&phase, 1)
				}
				bar.Wait()
			}
		}()
	}
	wg.Wait()
}
