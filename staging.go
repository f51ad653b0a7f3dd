package tcgemm

// Staged scratch access. The block scratch buffer is viewed through
// explicit 2D windows with a named stride instead of manual flat-offset
// arithmetic, so the skew padding lives in exactly one place.

// f32Window is a row-major float32 window.
type f32Window struct {
	data   []float32
	stride int
}

// Row returns row r of the window.
func (w f32Window) Row(r int) []float32 {
	return w.data[r*w.stride : (r+1)*w.stride]
}

// f16Window is a row-major half-precision window. The staged A/B chunk
// uses stride ChunkStride, which includes SkewHalf elements of padding
// past the useful ChunkKDim slice.
type f16Window struct {
	data   []Float16
	stride int
}

// Row returns row r of the window.
func (w f16Window) Row(r int) []Float16 {
	return w.data[r*w.stride : (r+1)*w.stride]
}

// cTileWindow views the block scratch as the 128x128 float32 C/D tile.
func cTileWindow(scratch DevicePtr) f32Window {
	return f32Window{
		data:   scratch.Float32()[:BlockTileDim*BlockTileDim],
		stride: BlockTileDim,
	}
}

// abChunkWindow views the block scratch as the skew-padded operand cache:
// rows 0..127 hold A rows, rows 128..255 hold B columns, each row one
// ChunkKDim slice of the reduction dimension.
func abChunkWindow(scratch DevicePtr) f16Window {
	return f16Window{
		data:   scratch.Float16()[:ChunkRows*ChunkStride],
		stride: ChunkStride,
	}
}

// operand is one staged input matrix over row-major half storage. A is
// staged by rows of its M x K layout; B, being column-major, is staged by
// rows of its N x K storage layout, which are B's columns. Exactly one of
// dense/sparse is set.
type operand struct {
	dense  []Float16
	sparse *SparseMatrix
	cols   int // storage row length, always K
}

func newOperand(o Operand, rows, cols int) operand {
	if o.Sparse != nil {
		return operand{sparse: o.Sparse, cols: cols}
	}
	return operand{dense: o.Dense.Float16()[:rows*cols], cols: cols}
}

// stageRow writes the reduction slice [kBase, kBase+ChunkKDim) of storage
// row r into dst. For a sparse operand this is the decode pass: dst is
// overwritten positionally, masked-out positions as exact zeros, so the
// compute engine always sees a dense slice.
func (op operand) stageRow(r, kBase int, dst []Float16) {
	if op.sparse != nil {
		for t := 0; t < ChunkK; t++ {
			op.sparse.decodeRow(r/TileDim, kBase/TileDim+t, r%TileDim, dst[t*TileDim:(t+1)*TileDim])
		}
		return
	}
	copy(dst[:ChunkKDim], op.dense[r*op.cols+kBase:])
}

// loadFragment widens one 16x16 tile at (tileRow, tileK), in 16-unit tile
// coordinates of the storage layout, straight from global memory. Used by
// the non-staged kernel.
func (op operand) loadFragment(frag *Fragment, tileRow, tileK int) {
	if op.sparse != nil {
		var tmp [TileDim]Float16
		for x := 0; x < TileDim; x++ {
			op.sparse.decodeRow(tileRow, tileK, x, tmp[:])
			for k := 0; k < TileDim; k++ {
				frag[x*TileDim+k] = tmp[k].ToFloat32()
			}
		}
		return
	}
	for x := 0; x < TileDim; x++ {
		row := op.dense[(tileRow*TileDim+x)*op.cols+tileK*TileDim:]
		for k := 0; k < TileDim; k++ {
			frag[x*TileDim+k] = row[k].ToFloat32()
		}
	}
}

// loadStagedFragment widens a 16x16 operand tile out of the staged chunk
// window: rows rowStart..rowStart+15, reduction offset kOff. The same
// loader serves A fragments (rowStart in the A half of the window) and B
// fragments (rowStart in the B half), since both keep the reduction
// dimension contiguous.
func loadStagedFragment(frag *Fragment, win f16Window, rowStart, kOff int) {
	for x := 0; x < TileDim; x++ {
		row := win.Row(rowStart + x)[kOff:]
		for k := 0; k < TileDim; k++ {
			frag[x*TileDim+k] = row[k].ToFloat32()
		}
	}
}

// loadAccum reads a 16x16 float32 tile at (rowStart, colStart) of the C
// window into an accumulator fragment.
func loadAccum(acc *AccumFragment, win f32Window, rowStart, colStart int) {
	for r := 0; r < TileDim; r++ {
		copy(acc[r*TileDim:(r+1)*TileDim], win.Row(rowStart+r)[colStart:colStart+TileDim])
	}
}

// storeAccum writes an accumulator fragment back to the C window at
// (rowStart, colStart).
func storeAccum(win f32Window, rowStart, colStart int, acc *AccumFragment) {
	for r := 0; r < TileDim; r++ {
		copy(win.Row(rowStart+r)[colStart:colStart+TileDim], acc[r*TileDim:(r+1)*TileDim])
	}
}
