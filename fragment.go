package tcgemm

// Fragment is one 16x16 operand tile, widened to float32 when loaded from
// staged half-precision storage. Both operand kinds keep the reduction
// dimension contiguous: an A fragment stores row r at data[r*16..], a B
// fragment stores column c at data[c*16..]. That matches how the staging
// engine lays them out (A by rows, B by columns) and makes the inner
// multiply-accumulate loop a dot product over contiguous memory for both
// operands.
type Fragment [TileDim * TileDim]float32

// AccumFragment is one 16x16 accumulator tile held in float32 for the
// duration of an output tile's computation. Indexed row-major.
type AccumFragment [TileDim * TileDim]float32

// Zero clears the accumulator.
func (acc *AccumFragment) Zero() {
	for i := range acc {
		acc[i] = 0
	}
}

// Scale multiplies every accumulator element by s.
func (acc *AccumFragment) Scale(s float32) {
	for i := range acc {
		acc[i] *= s
	}
}

// MatMulUnit is the matrix-unit primitive: a fused 16x16x16 multiply
// accumulate, acc += a * b. The compute engine drives only this narrow
// interface, so a backend with a real small-matrix FMA instruction can be
// slotted in without touching the kernel.
type MatMulUnit interface {
	MulAccumulate(a, b *Fragment, acc *AccumFragment)
}

// scalarUnit is the portable MatMulUnit: an explicit triple loop with the
// same result as the hardware primitive, only slower.
type scalarUnit struct{}

func (scalarUnit) MulAccumulate(a, b *Fragment, acc *AccumFragment) {
	for r := 0; r < TileDim; r++ {
		ar := a[r*TileDim : r*TileDim+TileDim]
		for c := 0; c < TileDim; c++ {
			bc := b[c*TileDim : c*TileDim+TileDim]
			sum := acc[r*TileDim+c]
			for k := 0; k < TileDim; k++ {
				sum += ar[k] * bc[k]
			}
			acc[r*TileDim+c] = sum
		}
	}
}

// defaultMatMulUnit is the unit used by all kernels in this package.
var defaultMatMulUnit MatMulUnit = scalarUnit{}
