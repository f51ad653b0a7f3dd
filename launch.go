package tcgemm

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Dim3 represents 3D dimensions for grid and block configurations.
type Dim3 struct {
	X, Y, Z int
}

// Size returns the total number of elements.
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// ThreadID identifies a thread's position within a flat grid launch,
// with the usual blockIdx/threadIdx/blockDim/gridDim semantics.
type ThreadID struct {
	BlockIdx  Dim3 // Block index within the grid
	ThreadIdx Dim3 // Thread index within the block
	BlockDim  Dim3 // Dimensions of the block
	GridDim   Dim3 // Dimensions of the grid
}

// Global returns the global linear index along X.
func (tid ThreadID) Global() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// KernelFunc is a flat (non-cooperative) kernel: every thread of the grid
// executes it independently, with no intra-block synchronization. Kernel
// state travels through the closure.
type KernelFunc func(tid ThreadID)

// Launch executes a flat kernel on the default stream. Threads within a
// block run sequentially on one worker; blocks are spread across workers.
func Launch(fn KernelFunc, grid, block Dim3) error {
	return defaultContext.Launch(fn, grid, block)
}

// Launch executes a flat kernel on the context's default stream.
func (ctx *Context) Launch(fn KernelFunc, grid, block Dim3) error {
	return ctx.LaunchStream(fn, grid, block, ctx.defaultStream)
}

// LaunchStream executes a flat kernel on a specific stream.
func (ctx *Context) LaunchStream(fn KernelFunc, grid, block Dim3, stream *Stream) error {
	gridSize := grid.Size()
	blockSize := block.Size()

	if gridSize == 0 {
		// Empty task keeps stream ordering intact
		stream.Submit(func() {})
		return nil
	}

	numWorkers := ctx.device.NumWorkers
	if gridSize < numWorkers {
		numWorkers = gridSize
	}
	blocksPerWorker := (gridSize + numWorkers - 1) / numWorkers

	stream.Submit(func() {
		var wg sync.WaitGroup
		wg.Add(numWorkers)

		for workerID := 0; workerID < numWorkers; workerID++ {
			startBlock := workerID * blocksPerWorker
			endBlock := min(startBlock+blocksPerWorker, gridSize)

			go func() {
				defer wg.Done()
				for blockID := startBlock; blockID < endBlock; blockID++ {
					blockIdx := linearTo3D(blockID, grid)
					for threadID := 0; threadID < blockSize; threadID++ {
						fn(ThreadID{
							BlockIdx:  blockIdx,
							ThreadIdx: linearTo3D(threadID, block),
							BlockDim:  block,
							GridDim:   grid,
						})
					}
				}
			}()
		}

		wg.Wait()
	})

	return nil
}

// linearTo3D converts a linear index to 3D coordinates.
func linearTo3D(linear int, dim Dim3) Dim3 {
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}

// Cooperative launch: thread-block teams with scratch memory and barriers.

// BlockTeam is one warp's handle on its thread block. All warps of a
// block share the scratch buffer and the barrier; WarpID distinguishes
// them. Block and Grid give the block's launch index and the number of
// concurrently resident blocks, which the tile schedule strides by.
type BlockTeam struct {
	Block  int // block launch index, 0..Grid-1
	Grid   int // concurrently resident block count
	WarpID int // warp index within the block

	scratch DevicePtr
	barrier *barrier
}

// Scratch returns the block's scratch buffer.
func (bt *BlockTeam) Scratch() DevicePtr {
	return bt.scratch
}

// Sync blocks until every warp of the block has reached the barrier.
// It is the analogue of __syncthreads(): a staged buffer written before
// Sync is visible to all warps after it, and may not be overwritten until
// the next Sync proves all readers are done.
func (bt *BlockTeam) Sync() {
	bt.barrier.Wait()
}

// CoopKernelFunc is a cooperative kernel: it is invoked once per warp per
// block, and the invocations of one block coordinate through the team's
// scratch buffer and Sync.
type CoopKernelFunc func(team *BlockTeam)

// LaunchCooperative runs a cooperative kernel across the given number of
// thread blocks, each with warpsPerBlock warp goroutines and sharedBytes
// of scratch. It returns after every block has run to completion. A fault
// inside any warp aborts the whole computation; no partial results are
// recovered.
func (ctx *Context) LaunchCooperative(fn CoopKernelFunc, blocks, warpsPerBlock, sharedBytes int) error {
	if blocks <= 0 || warpsPerBlock <= 0 {
		return NewInvalidArgError("LaunchCooperative", "block and warp counts must be positive")
	}

	scratch := make([]DevicePtr, blocks)
	for b := range scratch {
		ptr, err := ctx.Malloc(sharedBytes)
		if err != nil {
			for _, p := range scratch[:b] {
				ctx.Free(p)
			}
			return NewMemoryError("LaunchCooperative", "scratch allocation failed", err)
		}
		scratch[b] = ptr
	}
	defer func() {
		for _, p := range scratch {
			ctx.Free(p)
		}
	}()

	var g errgroup.Group
	for b := 0; b < blocks; b++ {
		bar := newBarrier(warpsPerBlock)
		for w := 0; w < warpsPerBlock; w++ {
			team := &BlockTeam{
				Block:   b,
				Grid:    blocks,
				WarpID:  w,
				scratch: scratch[b],
				barrier: bar,
			}
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						// Release sibling warps parked at the barrier so
						// the launch cannot deadlock on a faulted block.
						team.barrier.abort()
						err = NewExecutionError("LaunchCooperative",
							fmt.Sprintf("kernel fault in block %d warp %d: %v", team.Block, team.WarpID, r), nil)
					}
				}()
				fn(team)
				return nil
			})
		}
	}

	return g.Wait()
}

// barrier is a reusable (cyclic) barrier for one block's warps. A barrier
// broken by abort releases all current and future waiters; the block's
// results are discarded anyway once a warp has faulted.
type barrier struct {
	mu     sync.Mutex
	cond   *sync.Cond
	n      int
	count  int
	gen    uint64
	broken bool
}

func newBarrier(n int) *barrier {
	b := &barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until n goroutines have called Wait for the current
// generation, then releases them all and resets for the next use.
func (b *barrier) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()

	gen := b.gen
	b.count++
	if b.count == b.n {
		b.count = 0
		b.gen++
		b.cond.Broadcast()
		return
	}
	for gen == b.gen && !b.broken {
		b.cond.Wait()
	}
}

func (b *barrier) abort() {
	b.mu.Lock()
	b.broken = true
	b.cond.Broadcast()
	b.mu.Unlock()
}
