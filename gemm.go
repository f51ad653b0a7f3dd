package tcgemm

import (
	"fmt"
)

// Dims fixes the global matrix dimensions of one GEMM:
// A is M x K row-major, B is K x N column-major, C and D are M x N
// row-major. All three dimensions must be positive multiples of
// BlockTileDim (and therefore of TileDim).
type Dims struct {
	M, N, K int
}

// Validate rejects dimension sets the kernels cannot tile.
func (d Dims) Validate() error {
	for _, v := range []struct {
		name string
		dim  int
	}{{"M", d.M}, {"N", d.N}, {"K", d.K}} {
		if v.dim <= 0 || v.dim%BlockTileDim != 0 {
			return NewInvalidArgError("Dims",
				fmt.Sprintf("%s = %d must be a positive multiple of %d", v.name, v.dim, BlockTileDim))
		}
	}
	return nil
}

// Operand selects the representation of one input matrix: a dense half
// precision device buffer, or its structured-sparse encoding. Exactly one
// field must be set; sparsity is chosen per matrix.
type Operand struct {
	Dense  DevicePtr
	Sparse *SparseMatrix
}

// DenseOperand wraps a dense device buffer.
func DenseOperand(ptr DevicePtr) Operand {
	return Operand{Dense: ptr}
}

// SparseOperand wraps a sparse encoding.
func SparseOperand(s *SparseMatrix) Operand {
	return Operand{Sparse: s}
}

// TensorGEMM computes D = alpha*A*B + beta*C with dense half operands
// through the staged matrix-unit kernel. A is M x K row-major, B is
// K x N column-major, C and D are M x N float32 row-major. All buffers
// must be 128-byte aligned and large enough for their dimensions; these
// preconditions are checked before anything launches.
func TensorGEMM(dims Dims, alpha float32, dA, dB DevicePtr, beta float32, dC, dD DevicePtr) error {
	return TensorGEMMEx(dims, alpha, DenseOperand(dA), DenseOperand(dB), beta, dC, dD)
}

// TensorGEMMSparse is TensorGEMM with both operands structured-sparse.
func TensorGEMMSparse(dims Dims, alpha float32, a, b *SparseMatrix, beta float32, dC, dD DevicePtr) error {
	return TensorGEMMEx(dims, alpha, SparseOperand(a), SparseOperand(b), beta, dC, dD)
}

// TensorGEMMEx is the general entry point: either operand may be dense
// or sparse. It runs the staged kernel across Device.NumWorkers thread
// blocks and returns once D is fully written.
func TensorGEMMEx(dims Dims, alpha float32, a, b Operand, beta float32, dC, dD DevicePtr) error {
	return defaultContext.TensorGEMMEx(dims, alpha, a, b, beta, dC, dD)
}

// TensorGEMMEx runs the staged kernel on this context.
func (ctx *Context) TensorGEMMEx(dims Dims, alpha float32, a, b Operand, beta float32, dC, dD DevicePtr) error {
	if err := validateLaunch("TensorGEMM", dims, a, b, dC, dD); err != nil {
		return err
	}

	c := dC.Float32()[:dims.M*dims.N]
	d := dD.Float32()[:dims.M*dims.N]

	// The staged kernel folds beta into beta/alpha, so alpha = 0 takes
	// the exact scale-only path instead.
	if alpha == 0 {
		return ctx.runScaleOnly(dims, beta, c, d)
	}

	if need := SharedMemRequired(); need > ctx.device.SharedMemPerBlock {
		return NewInvalidArgError("TensorGEMM",
			fmt.Sprintf("staged kernel needs %d bytes of scratch per block, device grants %d; use SimpleGEMM",
				need, ctx.device.SharedMemPerBlock))
	}

	kernel := stagedGEMMKernel(dims, alpha, beta,
		newOperand(a, dims.M, dims.K),
		newOperand(b, dims.N, dims.K),
		c, d, defaultMatMulUnit)

	return ctx.LaunchCooperative(kernel, ctx.device.NumWorkers, WarpsPerBlock, SharedMemRequired())
}

// SimpleGEMM computes the same product as TensorGEMM through the
// non-staged fallback kernel. It has no scratch memory requirement.
func SimpleGEMM(dims Dims, alpha float32, dA, dB DevicePtr, beta float32, dC, dD DevicePtr) error {
	return SimpleGEMMEx(dims, alpha, DenseOperand(dA), DenseOperand(dB), beta, dC, dD)
}

// SimpleGEMMEx is SimpleGEMM with per-operand sparsity.
func SimpleGEMMEx(dims Dims, alpha float32, a, b Operand, beta float32, dC, dD DevicePtr) error {
	return defaultContext.SimpleGEMMEx(dims, alpha, a, b, beta, dC, dD)
}

// SimpleGEMMEx runs the fallback kernel on this context.
func (ctx *Context) SimpleGEMMEx(dims Dims, alpha float32, a, b Operand, beta float32, dC, dD DevicePtr) error {
	if err := validateLaunch("SimpleGEMM", dims, a, b, dC, dD); err != nil {
		return err
	}

	c := dC.Float32()[:dims.M*dims.N]
	d := dD.Float32()[:dims.M*dims.N]

	if alpha == 0 {
		return ctx.runScaleOnly(dims, beta, c, d)
	}

	kernel := simpleGEMMKernel(dims, alpha, beta,
		newOperand(a, dims.M, dims.K),
		newOperand(b, dims.N, dims.K),
		c, d, defaultMatMulUnit)

	numTiles := (dims.M / TileDim) * (dims.N / TileDim)
	if err := ctx.Launch(kernel, Dim3{X: numTiles, Y: 1, Z: 1}, Dim3{X: 1, Y: 1, Z: 1}); err != nil {
		return err
	}
	return ctx.Synchronize()
}

// MatMulF16 picks the kernel by scratch budget: the staged path when the
// device's per-block grant covers SharedMemRequired(), the simple
// fallback otherwise.
func MatMulF16(dims Dims, alpha float32, a, b Operand, beta float32, dC, dD DevicePtr) error {
	ctx := defaultContext
	if SharedMemRequired() <= ctx.device.SharedMemPerBlock {
		return ctx.TensorGEMMEx(dims, alpha, a, b, beta, dC, dD)
	}
	return ctx.SimpleGEMMEx(dims, alpha, a, b, beta, dC, dD)
}

// runScaleOnly computes D = beta*C on the flat grid.
func (ctx *Context) runScaleOnly(dims Dims, beta float32, c, d []float32) error {
	total := dims.M * dims.N
	grid := Dim3{X: (total + ThreadsPerBlock - 1) / ThreadsPerBlock, Y: 1, Z: 1}
	block := Dim3{X: ThreadsPerBlock, Y: 1, Z: 1}
	if err := ctx.Launch(scaleOnlyKernel(dims, beta, c, d), grid, block); err != nil {
		return err
	}
	return ctx.Synchronize()
}

// validateLaunch enforces every launch precondition from the kernel
// contract: tileable dimensions, aligned and sufficiently large buffers,
// and internally consistent sparse encodings. Nothing is validated again
// inside the kernels.
func validateLaunch(op string, dims Dims, a, b Operand, dC, dD DevicePtr) error {
	if err := dims.Validate(); err != nil {
		return err
	}
	if err := validateOperand(op, "A", a, dims.M, dims.K); err != nil {
		return err
	}
	if err := validateOperand(op, "B", b, dims.N, dims.K); err != nil {
		return err
	}
	if err := validateDense(op, "C", dC, dims.M*dims.N*4); err != nil {
		return err
	}
	return validateDense(op, "D", dD, dims.M*dims.N*4)
}

// validateOperand checks one input matrix against its storage dimensions
// (rows x cols of the row-major storage layout).
func validateOperand(op, name string, o Operand, rows, cols int) error {
	if o.Sparse != nil {
		if o.Dense.ptr != nil {
			return NewInvalidArgError(op, name+" sets both dense and sparse representations")
		}
		if o.Sparse.Rows != rows || o.Sparse.Cols != cols {
			return NewInvalidArgError(op,
				fmt.Sprintf("%s sparse encoding is %dx%d, want %dx%d",
					name, o.Sparse.Rows, o.Sparse.Cols, rows, cols))
		}
		return o.Sparse.Validate()
	}
	return validateDense(op, name, o.Dense, rows*cols*2)
}

// validateDense checks alignment and capacity of a device buffer.
func validateDense(op, name string, ptr DevicePtr, minBytes int) error {
	if ptr.ptr == nil {
		return NewInvalidArgError(op, name+" buffer is nil")
	}
	if !ptr.IsAligned() {
		return NewInvalidArgError(op,
			fmt.Sprintf("%s buffer is not %d-byte aligned", name, PointerAlign))
	}
	if ptr.Size() < minBytes {
		return NewInvalidArgError(op,
			fmt.Sprintf("%s buffer holds %d bytes, want at least %d", name, ptr.Size(), minBytes))
	}
	return nil
}
