package tcgemm

import (
	"math/bits"
	"testing"
)

// Round trip must be bit-exact: codec correctness is not a numeric
// approximation property.
func TestSparseRoundTrip(t *testing.T) {
	cases := []struct {
		name       string
		rows, cols int
		seed       uint64
	}{
		{"single block", 16, 16, 1},
		{"wide", 16, 128, 2},
		{"tall", 128, 16, 3},
		{"square", 64, 64, 4},
		{"large", 256, 256, 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dense := GenerateMaskedSmallIntF16(tc.rows*tc.cols, tc.seed)
			s := EncodeOrFail(t, dense, tc.rows, tc.cols)

			if err := s.Validate(); err != nil {
				t.Fatalf("Validate failed on fresh encoding: %v", err)
			}

			decoded := s.Decode()
			for i := range dense {
				if decoded[i] != dense[i] {
					t.Fatalf("decode mismatch at %d: got %#04x, want %#04x", i, decoded[i], dense[i])
				}
			}
		})
	}
}

func TestSparseAllZeroAndAllDense(t *testing.T) {
	const n = 32

	zero := make([]Float16, n*n)
	s := EncodeOrFail(t, zero, n, n)
	if s.NonzeroCount() != 0 {
		t.Errorf("all-zero matrix encoded %d values", s.NonzeroCount())
	}
	for i, v := range s.Decode() {
		if v != 0 {
			t.Fatalf("all-zero decode produced nonzero at %d", i)
		}
	}

	full := make([]Float16, n*n)
	two := FromFloat32(2)
	for i := range full {
		full[i] = two
	}
	s = EncodeOrFail(t, full, n, n)
	if s.NonzeroCount() != n*n {
		t.Errorf("dense matrix encoded %d values, want %d", s.NonzeroCount(), n*n)
	}
	for i, v := range s.Decode() {
		if v != two {
			t.Fatalf("dense decode lost value at %d", i)
		}
	}
}

// popcount(bitmask) must equal the number of stored values, per block.
func TestSparsePopcountMatchesValues(t *testing.T) {
	const rows, cols = 128, 64
	dense := GenerateMaskedSmallIntF16(rows*cols, 42)
	s := EncodeOrFail(t, dense, rows, cols)

	numBlocks := (rows / TileDim) * (cols / TileDim)
	var prev int32
	total := 0
	for b := 0; b < numBlocks; b++ {
		pop := 0
		for w := 0; w < maskWordsPerBlock; w++ {
			pop += bits.OnesCount32(s.Mask[b*maskWordsPerBlock+w])
		}
		if int32(pop) != s.PrefixCount[b]-prev {
			t.Errorf("block %d: popcount %d != prefix delta %d", b, pop, s.PrefixCount[b]-prev)
		}
		prev = s.PrefixCount[b]
		total += pop
	}
	if total != len(s.Values) {
		t.Errorf("total popcount %d != stored values %d", total, len(s.Values))
	}
}

// decodeRow must overwrite masked-out positions with exact zeros even if
// the destination held garbage.
func TestSparseDecodeOverwritesGarbage(t *testing.T) {
	dense := GenerateMaskedSmallIntF16(TileDim*TileDim, 7)
	s := EncodeOrFail(t, dense, TileDim, TileDim)

	dst := make([]Float16, TileDim*TileDim)
	for i := range dst {
		dst[i] = 0x7BFF // largest finite half
	}
	s.DecodeBlock(0, 0, dst, TileDim)

	for i := range dense {
		if dst[i] != dense[i] {
			t.Fatalf("position %d: got %#04x, want %#04x", i, dst[i], dense[i])
		}
	}
}

func TestSparseValidateRejectsCorruption(t *testing.T) {
	dense := GenerateMaskedSmallIntF16(64*64, 9)
	fresh := func() *SparseMatrix { return EncodeOrFail(t, dense, 64, 64) }

	s := fresh()
	s.PrefixCount[0]++
	if err := s.Validate(); !IsCodecError(err) {
		t.Errorf("tampered prefix table: got %v, want codec error", err)
	}

	s = fresh()
	s.Values = s.Values[:len(s.Values)-1]
	if err := s.Validate(); !IsCodecError(err) {
		t.Errorf("truncated value stream: got %v, want codec error", err)
	}

	s = fresh()
	s.Mask[3] ^= 1
	if err := s.Validate(); !IsCodecError(err) {
		t.Errorf("flipped mask bit: got %v, want codec error", err)
	}

	s = fresh()
	s.Mask = s.Mask[:len(s.Mask)-1]
	if err := s.Validate(); !IsCodecError(err) {
		t.Errorf("short mask array: got %v, want codec error", err)
	}
}

func TestEncodeSparseRejectsBadArgs(t *testing.T) {
	if _, err := EncodeSparse(make([]Float16, 100), 10, 10); !IsInvalidArgError(err) {
		t.Errorf("non-multiple dims: got %v, want invalid arg", err)
	}
	if _, err := EncodeSparse(make([]Float16, 16), 16, 16); !IsInvalidArgError(err) {
		t.Errorf("short buffer: got %v, want invalid arg", err)
	}
}
