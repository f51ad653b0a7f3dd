// Package tcgemm reference implementations for verification
package tcgemm

// Reference contains simple, correct host-side implementations used to
// verify the kernels. They run in higher precision than the kernels
// (float64 accumulation), so kernel output is compared against them with
// the coarse GEMM tolerance rather than exactly.
type Reference struct{}

// GEMMF16 computes D = alpha*A*B + beta*C by triple loop:
// A is m x k row-major half, B is k x n column-major half, C and D are
// m x n row-major float32.
func (Reference) GEMMF16(m, n, k int, alpha float32, a, b []Float16, beta float32, c, d []float32) {
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float64
			for l := 0; l < k; l++ {
				sum += float64(a[i*k+l].ToFloat32()) * float64(b[j*k+l].ToFloat32())
			}
			d[i*n+j] = float32(float64(alpha)*sum + float64(beta)*float64(c[i*n+j]))
		}
	}
}

// MatMulF16 is GEMMF16 with alpha = 1, beta = 0.
func (r Reference) MatMulF16(m, n, k int, a, b []Float16, d []float32) {
	c := make([]float32, m*n)
	r.GEMMF16(m, n, k, 1, a, b, 0, c, d)
}
