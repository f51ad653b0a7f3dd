package tcgemm

// Deterministic host-side operand generators. All use a linear
// congruential generator so every run sees the same data; the value
// range {0, 1, 2} is exactly representable in half precision, which is
// what makes the sparse codec round trip and the dense/sparse agreement
// checks bit-exact rather than approximate.

// lcgNext advances the LCG state (Numerical Recipes parameters).
func lcgNext(state uint64) uint64 {
	return state*1103515245 + 12345
}

// GenerateSmallIntF16 generates half values drawn from {0, 1, 2}.
func GenerateSmallIntF16(size int, seed uint64) []Float16 {
	data := make([]Float16, size)
	rng := seed
	for i := range data {
		rng = lcgNext(rng)
		data[i] = FromFloat32(float32((rng >> 16) % 3))
	}
	return data
}

// GenerateMaskedSmallIntF16 generates half values from {0, 1, 2} and then
// zeroes each element independently with probability 1/2, producing the
// Bernoulli-masked operands the sparse tests encode.
func GenerateMaskedSmallIntF16(size int, seed uint64) []Float16 {
	data := GenerateSmallIntF16(size, seed)
	rng := seed ^ 0x9E3779B97F4A7C15
	for i := range data {
		rng = lcgNext(rng)
		if (rng>>16)&1 == 0 {
			data[i] = 0
		}
	}
	return data
}

// GenerateSmallIntF32 generates float32 values drawn from {0, 1, 2},
// used for C matrices.
func GenerateSmallIntF32(size int, seed uint64) []float32 {
	data := make([]float32, size)
	rng := seed
	for i := range data {
		rng = lcgNext(rng)
		data[i] = float32((rng >> 16) % 3)
	}
	return data
}

// GenerateFloat32 generates deterministic float32 data in [0, 1).
func GenerateFloat32(size int, seed uint64) []float32 {
	data := make([]float32, size)
	rng := seed
	for i := range data {
		rng = lcgNext(rng)
		data[i] = float32(uint32(rng)) / float32(1<<32)
	}
	return data
}
