package tcgemm

// stagedGEMMKernel builds the cooperative kernel computing
// D = alpha*A*B + beta*C one 128x128 output tile at a time.
//
// Per tile, each block walks the same sequence the hardware kernel does:
//
//  1. stage the tile's C region into scratch, barrier
//  2. load C into per-warp accumulator fragments, barrier (the scratch is
//     about to be reused for operands), then pre-scale by beta/alpha
//  3. for each ChunkK-wide step of the reduction dimension: stage the A
//     rows and B columns of the chunk into the skew-padded scratch cache,
//     barrier, drive the matrix unit over every (sub-tile row, sub-tile
//     column, k-step) triple, barrier so the next chunk cannot overwrite
//     operands still being read
//  4. scale accumulators by alpha, store them through scratch, barrier,
//     stream the finished tile to D, barrier before the next tile's C
//     staging reuses the scratch
//
// The four barrier points are the block's only synchronization; omitting
// or reordering any of them is a data race on the scratch buffer.
//
// Requires alpha != 0: the single final alpha multiply relies on folding
// beta into beta/alpha up front. Callers route alpha == 0 to the
// scale-only path instead. beta == 0 zeroes the accumulators outright so
// garbage in C can never leak into D through rounding.
func stagedGEMMKernel(dims Dims, alpha, beta float32, a, b operand, c, d []float32, unit MatMulUnit) CoopKernelFunc {
	sched := newTileScheduler(dims)
	kTiles := dims.K / TileDim
	scaledBeta := beta / alpha

	return func(team *BlockTeam) {
		cWin := cTileWindow(team.Scratch())
		abWin := abChunkWindow(team.Scratch())

		warp := team.WarpID
		warpRow := warp / BlockColWarps // sub-grid row, 0..3
		warpCol := warp % BlockColWarps // sub-grid col, 0..1

		// Each warp copies this many C/D rows per tile, and this many
		// operand rows per reduction chunk.
		const cRowsPerWarp = BlockTileDim / WarpsPerBlock
		const abRowsPerWarp = BlockTileDim / (WarpsPerBlock / 2)

		var acc [WarpRowTiles][WarpColTiles]AccumFragment
		var aFrag Fragment
		var bFrag [WarpColTiles]Fragment

		for pos := team.Block; ; pos += team.Grid {
			tileI, tileJ, ok := sched.tileAt(pos)
			if !ok {
				break
			}
			rowBase := tileI * TileDim // global row of the output tile
			colBase := tileJ * TileDim // global column of the output tile

			// Stage C: warp w owns rows [w*16, w*16+16) of the tile.
			for r := warp * cRowsPerWarp; r < (warp+1)*cRowsPerWarp; r++ {
				copy(cWin.Row(r)[:BlockTileDim], c[(rowBase+r)*dims.N+colBase:])
			}
			team.Sync()

			// Load C into accumulators. The barrier after the loads
			// releases the scratch for operand staging.
			for i := 0; i < WarpRowTiles; i++ {
				for j := 0; j < WarpColTiles; j++ {
					loadAccum(&acc[i][j], cWin,
						warpRow*WarpRowTiles*TileDim+i*TileDim,
						warpCol*WarpColTiles*TileDim+j*TileDim)
				}
			}
			team.Sync()

			for i := 0; i < WarpRowTiles; i++ {
				for j := 0; j < WarpColTiles; j++ {
					if beta == 0 {
						acc[i][j].Zero()
					} else {
						acc[i][j].Scale(scaledBeta)
					}
				}
			}

			// Reduction dimension, one ChunkK-wide slice at a time.
			for kt := 0; kt < kTiles; kt += ChunkK {
				kBase := kt * TileDim

				// First half of the warps stages A rows, second half
				// stages B columns into the lower half of the cache.
				if warp < WarpsPerBlock/2 {
					base := warp * abRowsPerWarp
					for r := base; r < base+abRowsPerWarp; r++ {
						a.stageRow(rowBase+r, kBase, abWin.Row(r))
					}
				} else {
					base := (warp - WarpsPerBlock/2) * abRowsPerWarp
					for r := base; r < base+abRowsPerWarp; r++ {
						b.stageRow(colBase+r, kBase, abWin.Row(BlockTileDim+r))
					}
				}
				team.Sync()

				for step := 0; step < ChunkK; step++ {
					kOff := step * TileDim
					for i := 0; i < WarpRowTiles; i++ {
						loadStagedFragment(&aFrag, abWin,
							warpRow*WarpRowTiles*TileDim+i*TileDim, kOff)
						for j := 0; j < WarpColTiles; j++ {
							if i == 0 {
								// B does not vary across sub-tile rows
								// within a step: load once, reuse.
								loadStagedFragment(&bFrag[j], abWin,
									BlockTileDim+warpCol*WarpColTiles*TileDim+j*TileDim, kOff)
							}
							unit.MulAccumulate(&aFrag, &bFrag[j], &acc[i][j])
						}
					}
				}
				team.Sync()
			}

			// Finalize: one alpha multiply, then out through scratch.
			for i := 0; i < WarpRowTiles; i++ {
				for j := 0; j < WarpColTiles; j++ {
					acc[i][j].Scale(alpha)
					storeAccum(cWin,
						warpRow*WarpRowTiles*TileDim+i*TileDim,
						warpCol*WarpColTiles*TileDim+j*TileDim,
						&acc[i][j])
				}
			}
			team.Sync()

			for r := warp * cRowsPerWarp; r < (warp+1)*cRowsPerWarp; r++ {
				copy(d[(rowBase+r)*dims.N+colBase:(rowBase+r)*dims.N+colBase+BlockTileDim],
					cWin.Row(r)[:BlockTileDim])
			}
			team.Sync()
		}
	}
}
