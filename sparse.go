package tcgemm

import (
	"fmt"
	"math/bits"
)

// SparseMatrix is the structured-sparsity encoding of a row-major half
// precision matrix: every 16x16 block is stored as a per-row bitmask of
// its nonzero positions plus the nonzero values themselves, packed in
// row-major scan order. Zeros are never stored; decode reconstructs them
// from the mask, so decode(encode(X)) == X bit-exactly for every legal X.
//
// Layout:
//
//   - blocks are scanned row-major over the (Rows/16)x(Cols/16) grid
//   - Mask holds maskWordsPerBlock words per block; word w of a block
//     packs row 2w in bits 0-15 and row 2w+1 in bits 16-31, bit c set
//     meaning column c of that row is nonzero
//   - PrefixCount[b] is the inclusive running nonzero count through
//     block b, so block b's values occupy
//     Values[PrefixCount[b-1]:PrefixCount[b]]
//
// A column-major operand (the B matrix) is encoded over its storage
// layout: a K x N column-major buffer is a N x K row-major matrix of
// columns, so the same codec serves both operands.
type SparseMatrix struct {
	Rows, Cols  int
	Mask        []uint32
	PrefixCount []int32
	Values      []Float16
}

// EncodeSparse compresses a row-major half matrix. Performed once on the
// host; the kernels only decode.
func EncodeSparse(dense []Float16, rows, cols int) (*SparseMatrix, error) {
	if rows <= 0 || cols <= 0 || rows%TileDim != 0 || cols%TileDim != 0 {
		return nil, NewInvalidArgError("EncodeSparse",
			fmt.Sprintf("dimensions %dx%d must be positive multiples of %d", rows, cols, TileDim))
	}
	if len(dense) != rows*cols {
		return nil, NewInvalidArgError("EncodeSparse",
			fmt.Sprintf("buffer holds %d elements, want %d", len(dense), rows*cols))
	}

	blockRows := rows / TileDim
	blockCols := cols / TileDim
	numBlocks := blockRows * blockCols

	s := &SparseMatrix{
		Rows:        rows,
		Cols:        cols,
		Mask:        make([]uint32, numBlocks*maskWordsPerBlock),
		PrefixCount: make([]int32, numBlocks),
	}

	var total int32
	for br := 0; br < blockRows; br++ {
		for bc := 0; bc < blockCols; bc++ {
			block := br*blockCols + bc
			for r := 0; r < TileDim; r++ {
				row := dense[(br*TileDim+r)*cols+bc*TileDim:]
				var rowMask uint32
				for c := 0; c < TileDim; c++ {
					if row[c] != 0 {
						rowMask |= 1 << uint(c)
						s.Values = append(s.Values, row[c])
						total++
					}
				}
				s.Mask[block*maskWordsPerBlock+r/2] |= rowMask << uint(16*(r&1))
			}
			s.PrefixCount[block] = total
		}
	}

	return s, nil
}

// blockStart returns the exclusive value-stream offset of block b.
func (s *SparseMatrix) blockStart(b int) int32 {
	if b == 0 {
		return 0
	}
	return s.PrefixCount[b-1]
}

// rowMask returns the 16-bit nonzero mask of one row of one block.
func (s *SparseMatrix) rowMask(block, row int) uint32 {
	word := s.Mask[block*maskWordsPerBlock+row/2]
	return (word >> uint(16*(row&1))) & 0xFFFF
}

// decodeRow expands one 16-element row of block (blockRow, blockCol) into
// dst[0:16]. Positions with an unset mask bit are written as zero, since
// the value stream never stores explicit zeros.
func (s *SparseMatrix) decodeRow(blockRow, blockCol, row int, dst []Float16) {
	block := blockRow*(s.Cols/TileDim) + blockCol

	// Offset of this row's first value: the block's stream start plus
	// the nonzero count of the rows above it.
	off := s.blockStart(block)
	for w := 0; w < row/2; w++ {
		off += int32(bits.OnesCount32(s.Mask[block*maskWordsPerBlock+w]))
	}
	if row&1 == 1 {
		off += int32(bits.OnesCount32(s.Mask[block*maskWordsPerBlock+row/2] & 0xFFFF))
	}

	mask := s.rowMask(block, row)
	for c := 0; c < TileDim; c++ {
		if mask&(1<<uint(c)) != 0 {
			dst[c] = s.Values[off]
			off++
		} else {
			dst[c] = 0
		}
	}
}

// DecodeBlock expands block (blockRow, blockCol) into dst, a row-major
// window with the given stride.
func (s *SparseMatrix) DecodeBlock(blockRow, blockCol int, dst []Float16, stride int) {
	for r := 0; r < TileDim; r++ {
		s.decodeRow(blockRow, blockCol, r, dst[r*stride:r*stride+TileDim])
	}
}

// Decode reconstructs the full dense matrix. Primarily a verification aid.
func (s *SparseMatrix) Decode() []Float16 {
	dense := make([]Float16, s.Rows*s.Cols)
	blockCols := s.Cols / TileDim
	for br := 0; br < s.Rows/TileDim; br++ {
		for bc := 0; bc < blockCols; bc++ {
			s.DecodeBlock(br, bc, dense[(br*TileDim)*s.Cols+bc*TileDim:], s.Cols)
		}
	}
	return dense
}

// NonzeroCount returns the total number of stored values.
func (s *SparseMatrix) NonzeroCount() int {
	if len(s.PrefixCount) == 0 {
		return 0
	}
	return int(s.PrefixCount[len(s.PrefixCount)-1])
}

// Validate checks the internal consistency the kernels are entitled to
// assume: mask popcounts must match the prefix-count deltas and the value
// stream must be exactly as long as the declared nonzero total. Data that
// fails Validate would drive the decode loops out of bounds and must
// never reach a launch.
func (s *SparseMatrix) Validate() error {
	if s.Rows <= 0 || s.Cols <= 0 || s.Rows%TileDim != 0 || s.Cols%TileDim != 0 {
		return NewCodecError("Validate",
			fmt.Sprintf("dimensions %dx%d must be positive multiples of %d", s.Rows, s.Cols, TileDim), nil)
	}

	numBlocks := (s.Rows / TileDim) * (s.Cols / TileDim)
	if len(s.Mask) != numBlocks*maskWordsPerBlock {
		return NewCodecError("Validate",
			fmt.Sprintf("mask holds %d words, want %d", len(s.Mask), numBlocks*maskWordsPerBlock), nil)
	}
	if len(s.PrefixCount) != numBlocks {
		return NewCodecError("Validate",
			fmt.Sprintf("prefix table holds %d entries, want %d", len(s.PrefixCount), numBlocks), nil)
	}

	var prev int32
	for b := 0; b < numBlocks; b++ {
		pop := 0
		for w := 0; w < maskWordsPerBlock; w++ {
			pop += bits.OnesCount32(s.Mask[b*maskWordsPerBlock+w])
		}
		delta := s.PrefixCount[b] - prev
		if int32(pop) != delta {
			return NewCodecError("Validate",
				fmt.Sprintf("block %d mask popcount %d disagrees with prefix delta %d", b, pop, delta), b)
		}
		prev = s.PrefixCount[b]
	}

	if int(prev) != len(s.Values) {
		return NewCodecError("Validate",
			fmt.Sprintf("value stream holds %d entries, prefix table declares %d", len(s.Values), prev), nil)
	}
	return nil
}
