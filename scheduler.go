package tcgemm

// tileScheduler assigns 128x128 output tiles to thread blocks. Every
// block derives its own sequence of tile positions arithmetically from
// its launch index and the resident block count, so no shared scheduling
// state exists: block b takes linear positions b, b+grid, b+2*grid, ...
// in row-major raster order until the row index runs off the matrix.
//
// Tile coordinates are expressed in 16-unit tiles, matching the matrix
// dimensions divided by TileDim.
type tileScheduler struct {
	mTiles int // output height in 16-unit tiles
	nTiles int // output width in 16-unit tiles
}

func newTileScheduler(dims Dims) tileScheduler {
	return tileScheduler{
		mTiles: dims.M / TileDim,
		nTiles: dims.N / TileDim,
	}
}

// tileAt maps a linear schedule position to the top-left corner of a
// block tile, in 16-unit tile coordinates. ok is false once the position
// walks past the last tile row, which is the block's termination signal.
func (s tileScheduler) tileAt(pos int) (blockTileI, blockTileJ int, ok bool) {
	blockTileI = pos * BlockColTiles / s.nTiles * BlockRowTiles
	blockTileJ = pos * BlockColTiles % s.nTiles
	return blockTileI, blockTileJ, blockTileI < s.mTiles
}

// numTiles returns the total number of block tiles in the schedule.
func (s tileScheduler) numTiles() int {
	return (s.mTiles / BlockRowTiles) * (s.nTiles / BlockColTiles)
}
