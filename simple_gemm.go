package tcgemm

// simpleGEMMKernel is the non-staged fallback: one flat grid work item
// per 16x16 output tile, operand fragments read straight from global
// memory with no scratch staging and no cooperation between tiles. Used
// when the device cannot grant SharedMemRequired() bytes of scratch per
// block. Same arithmetic as the staged kernel, only slower.
func simpleGEMMKernel(dims Dims, alpha, beta float32, a, b operand, c, d []float32, unit MatMulUnit) KernelFunc {
	nTiles := dims.N / TileDim
	kTiles := dims.K / TileDim

	return func(tid ThreadID) {
		tile := tid.Global()
		tileRow := tile / nTiles
		tileCol := tile % nTiles

		var acc AccumFragment
		var aFrag, bFrag Fragment

		for kt := 0; kt < kTiles; kt++ {
			a.loadFragment(&aFrag, tileRow, kt)
			b.loadFragment(&bFrag, tileCol, kt)
			unit.MulAccumulate(&aFrag, &bFrag, &acc)
		}

		rowBase := tileRow * TileDim
		colBase := tileCol * TileDim
		for r := 0; r < TileDim; r++ {
			dRow := d[(rowBase+r)*dims.N+colBase:]
			cRow := c[(rowBase+r)*dims.N+colBase:]
			for j := 0; j < TileDim; j++ {
				v := alpha * acc[r*TileDim+j]
				if beta != 0 {
					v += beta * cRow[j]
				}
				dRow[j] = v
			}
		}
	}
}

// scaleOnlyKernel computes D = beta*C elementwise. It serves the
// alpha == 0 boundary, where the product term vanishes and the staged
// kernel's beta/alpha folding is undefined. beta == 0 writes exact zeros.
func scaleOnlyKernel(dims Dims, beta float32, c, d []float32) KernelFunc {
	total := dims.M * dims.N
	return func(tid ThreadID) {
		idx := tid.Global()
		if idx >= total {
			return
		}
		if beta == 0 {
			d[idx] = 0
		} else {
			d[idx] = beta * c[idx]
		}
	}
}
