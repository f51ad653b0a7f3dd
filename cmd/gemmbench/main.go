// gemmbench runs the staged tensor-core-style GEMM against the host
// reference, on both the dense and the structured-sparse path, and
// reports throughput and verification results.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/LynnColeArt/tcgemm"
)

func main() {
	size := flag.Int("size", 1024, "matrix edge length (multiple of 128)")
	alpha := flag.Float64("alpha", 1.1, "alpha scalar")
	beta := flag.Float64("beta", 1.2, "beta scalar")
	verify := flag.Bool("verify", true, "compare against host reference")
	flag.Parse()

	dims := tcgemm.Dims{M: *size, N: *size, K: *size}
	if err := dims.Validate(); err != nil {
		log.Fatal(err)
	}

	dev := tcgemm.GetDevice()
	fmt.Printf("tcgemm benchmark: %dx%dx%d on %s (%d workers, %d warps/block)\n",
		dims.M, dims.N, dims.K, dev.Name, dev.NumWorkers, tcgemm.WarpsPerBlock)

	hA := tcgemm.GenerateMaskedSmallIntF16(dims.M*dims.K, 1)
	hB := tcgemm.GenerateMaskedSmallIntF16(dims.N*dims.K, 2)
	hC := tcgemm.GenerateSmallIntF32(dims.M*dims.N, 3)

	dA, err := tcgemm.Malloc(dims.M * dims.K * 2)
	if err != nil {
		log.Fatal(err)
	}
	defer tcgemm.Free(dA)
	dB, err := tcgemm.Malloc(dims.N * dims.K * 2)
	if err != nil {
		log.Fatal(err)
	}
	defer tcgemm.Free(dB)
	dC, err := tcgemm.Malloc(dims.M * dims.N * 4)
	if err != nil {
		log.Fatal(err)
	}
	defer tcgemm.Free(dC)
	dD, err := tcgemm.Malloc(dims.M * dims.N * 4)
	if err != nil {
		log.Fatal(err)
	}
	defer tcgemm.Free(dD)

	tcgemm.Memcpy(dA, hA, dims.M*dims.K*2, tcgemm.MemcpyHostToDevice)
	tcgemm.Memcpy(dB, hB, dims.N*dims.K*2, tcgemm.MemcpyHostToDevice)
	tcgemm.Memcpy(dC, hC, dims.M*dims.N*4, tcgemm.MemcpyHostToDevice)

	ops := 2 * int64(dims.M) * int64(dims.N) * int64(dims.K)

	// Dense staged path
	start := time.Now()
	if err := tcgemm.TensorGEMM(dims, float32(*alpha), dA, dB, float32(*beta), dC, dD); err != nil {
		log.Fatal(err)
	}
	dense := time.Since(start)
	fmt.Printf("dense staged: %v (%.2f GFLOPS)\n", dense, float64(ops)/dense.Seconds()/1e9)
	denseOut := append([]float32(nil), dD.Float32()[:dims.M*dims.N]...)

	// Sparse staged path over the same operands
	spA, err := tcgemm.EncodeSparse(hA, dims.M, dims.K)
	if err != nil {
		log.Fatal(err)
	}
	spB, err := tcgemm.EncodeSparse(hB, dims.N, dims.K)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("sparse encoding: A %d/%d nonzero, B %d/%d nonzero\n",
		spA.NonzeroCount(), dims.M*dims.K, spB.NonzeroCount(), dims.N*dims.K)

	start = time.Now()
	if err := tcgemm.TensorGEMMSparse(dims, float32(*alpha), spA, spB, float32(*beta), dC, dD); err != nil {
		log.Fatal(err)
	}
	sparse := time.Since(start)
	fmt.Printf("sparse staged: %v (%.2f GFLOPS)\n", sparse, float64(ops)/sparse.Seconds()/1e9)
	sparseOut := dD.Float32()[:dims.M*dims.N]

	if !*verify {
		return
	}

	fmt.Println("running host reference...")
	hD := make([]float32, dims.M*dims.N)
	start = time.Now()
	tcgemm.Reference{}.GEMMF16(dims.M, dims.N, dims.K, float32(*alpha), hA, hB, float32(*beta), hC, hD)
	fmt.Printf("reference: %v\n", time.Since(start))

	tol := tcgemm.GEMMTolerance()
	fmt.Printf("dense vs reference:  %v\n", tcgemm.VerifyFloat32Array(hD, denseOut, tol))
	fmt.Printf("sparse vs reference: %v\n", tcgemm.VerifyFloat32Array(hD, sparseOut, tol))
}
