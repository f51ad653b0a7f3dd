// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tcgemm implements a tensor-core-style tiled GEMM runtime on CPU.
//
// It computes D = alpha*A*B + beta*C for large dense matrices with 16-bit
// floating point operands and 32-bit accumulation, using the same execution
// structure a warp-level matrix-multiply (WMMA) kernel uses on a GPU:
//
//   - thread blocks become cooperating goroutine teams (8 warps of 32 lanes)
//   - on-chip shared memory becomes a pool-allocated, 128-byte-aligned
//     scratch buffer local to each team, with skew padding between rows
//   - __syncthreads() becomes a cyclic barrier shared by the team's warps
//   - the hardware 16x16x16 multiply-accumulate instruction becomes the
//     MatMulUnit interface with a portable scalar implementation
//
// Output tiles of 128x128 are distributed across teams by a deterministic
// grid-stride schedule, so the kernel is correct for any degree of
// parallelism. A structured-sparsity codec (per-row bitmasks plus a packed
// nonzero value stream for each 16x16 block) lets sparse operands be staged
// through scratch memory without moving their zeros.
//
// Example:
//
//	dims := tcgemm.Dims{M: 256, N: 256, K: 256}
//	dA, _ := tcgemm.Malloc(dims.M * dims.K * 2) // half operands
//	dB, _ := tcgemm.Malloc(dims.K * dims.N * 2)
//	dC, _ := tcgemm.Malloc(dims.M * dims.N * 4) // float32 accumulators
//	dD, _ := tcgemm.Malloc(dims.M * dims.N * 4)
//	err := tcgemm.TensorGEMM(dims, 1.1, dA, dB, 1.2, dC, dD)
package tcgemm
