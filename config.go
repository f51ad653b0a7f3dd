// Package tcgemm kernel geometry and tuning constants
package tcgemm

// Hardware-style tile geometry. The matrix-unit primitive consumes
// 16x16 operand tiles; a thread block computes a 128x128 output tile.
const (
	// TileDim is the edge length of one matrix-unit tile
	TileDim = 16

	// WarpSize is the number of lanes in one execution group
	WarpSize = 32

	// WarpsPerBlock is the number of execution groups per thread block
	WarpsPerBlock = 8

	// ThreadsPerBlock is the total lane count of one block
	ThreadsPerBlock = WarpSize * WarpsPerBlock
)

// Warp and block tiling. Each warp owns a 2x4 grid of 16x16 sub-tiles
// (a 32x64 warp tile); the 8 warps are arranged 4 down by 2 across,
// covering the full 128x128 block tile.
const (
	// WarpRowTiles is the number of sub-tile rows a warp computes
	WarpRowTiles = 2

	// WarpColTiles is the number of sub-tile columns a warp computes
	WarpColTiles = 4

	// BlockRowWarps is the number of warps stacked down a block tile
	BlockRowWarps = 4

	// BlockColWarps is the number of warps across a block tile
	BlockColWarps = 2

	// BlockRowTiles is the block tile height in 16-unit tiles
	BlockRowTiles = WarpRowTiles * BlockRowWarps

	// BlockColTiles is the block tile width in 16-unit tiles
	BlockColTiles = WarpColTiles * BlockColWarps

	// BlockTileDim is the edge length of one block's output tile
	BlockTileDim = BlockRowTiles * TileDim
)

// Reduction-dimension chunking and scratch layout.
const (
	// ChunkK is the number of 16-unit tiles staged per reduction step
	ChunkK = 4

	// ChunkKDim is the staged reduction slice width in elements
	ChunkKDim = ChunkK * TileDim

	// SkewHalf is the padding, in half elements, appended to each staged
	// operand row so concurrent lane accesses land on distinct banks.
	// Purely a performance property; results are identical without it.
	SkewHalf = 16

	// ChunkStride is the padded stride of one staged operand row
	ChunkStride = ChunkKDim + SkewHalf

	// ChunkRows is the number of staged operand rows per step: a block
	// tile's worth of A rows plus a block tile's worth of B columns
	ChunkRows = 2 * BlockTileDim
)

// Scratch sizing in bytes. The C/D tile and the A/B chunk reuse the same
// scratch region, so a block needs the larger of the two.
const (
	cTileScratchBytes   = BlockTileDim * BlockTileDim * 4
	abChunkScratchBytes = ChunkRows * ChunkStride * 2
)

// SharedMemRequired returns the per-block scratch requirement of the
// staged kernel in bytes. Callers whose device advertises less than this
// in SharedMemPerBlock should use the simple (non-staged) kernel instead;
// MatMulF16 performs that dispatch automatically.
func SharedMemRequired() int {
	if cTileScratchBytes > abChunkScratchBytes {
		return cTileScratchBytes
	}
	return abChunkScratchBytes
}

// Memory alignment requirements.
const (
	// PointerAlign is the required alignment of all kernel operand
	// buffers in bytes
	PointerAlign = 128

	// MemoryAlignment is the alignment of pool allocations
	MemoryAlignment = PointerAlign
)

// Sparsity codec layout (see sparse.go).
const (
	// maskWordsPerBlock is the number of bitmask words per 16x16 block:
	// one uint32 per two rows, 16 bits per row
	maskWordsPerBlock = TileDim / 2
)
