// Package tcgemm tolerance-based verification for floating-point comparisons
package tcgemm

import (
	"fmt"
	"math"
)

// ToleranceConfig defines tolerance parameters for floating-point
// comparison.
type ToleranceConfig struct {
	// AbsTol is the absolute tolerance for values near zero
	AbsTol float32

	// RelTol is the relative tolerance as a fraction of the larger value
	RelTol float32

	// CheckNaN determines if NaN values should be considered equal
	CheckNaN bool

	// CheckInf determines if Inf values should be considered equal
	CheckInf bool
}

// GEMMTolerance is the acceptance bound for kernel output against the
// host reference: half-precision operand rounding accumulated across up
// to K reduction terms lands comfortably inside 0.1 absolute.
func GEMMTolerance() ToleranceConfig {
	return ToleranceConfig{
		AbsTol:   0.1,
		RelTol:   1e-3,
		CheckNaN: true,
		CheckInf: true,
	}
}

// ExactTolerance admits no deviation at all. The sparsity codec round
// trip is verified with it: codec correctness is bitwise, not numeric.
func ExactTolerance() ToleranceConfig {
	return ToleranceConfig{CheckNaN: true, CheckInf: true}
}

// Float32NearEqual checks if two float32 values are equal within
// tolerance.
func Float32NearEqual(a, b float32, tol ToleranceConfig) bool {
	if tol.CheckNaN && math.IsNaN(float64(a)) && math.IsNaN(float64(b)) {
		return true
	}
	if tol.CheckInf {
		if math.IsInf(float64(a), 1) && math.IsInf(float64(b), 1) {
			return true
		}
		if math.IsInf(float64(a), -1) && math.IsInf(float64(b), -1) {
			return true
		}
	}

	// Exact equality handles ±0 and the zero-tolerance config
	if a == b {
		return true
	}

	diff := math.Abs(float64(a - b))
	if diff <= float64(tol.AbsTol) {
		return true
	}

	larger := math.Max(math.Abs(float64(a)), math.Abs(float64(b)))
	return diff <= larger*float64(tol.RelTol)
}

// VerificationResult aggregates an array comparison.
type VerificationResult struct {
	MaxAbsError float32
	MaxRelError float32
	NumErrors   int
	TotalItems  int
	FirstError  int // Index of first error, -1 if none
}

// VerifyFloat32Array compares two float32 arrays and returns detailed
// results.
func VerifyFloat32Array(expected, actual []float32, tol ToleranceConfig) VerificationResult {
	result := VerificationResult{
		TotalItems: len(expected),
		FirstError: -1,
	}

	if len(expected) != len(actual) {
		result.NumErrors = len(expected)
		return result
	}

	for i := range expected {
		if !Float32NearEqual(expected[i], actual[i], tol) {
			result.NumErrors++
			if result.FirstError == -1 {
				result.FirstError = i
			}

			absDiff := float32(math.Abs(float64(expected[i] - actual[i])))
			if absDiff > result.MaxAbsError {
				result.MaxAbsError = absDiff
			}
			if expected[i] != 0 {
				relDiff := absDiff / float32(math.Abs(float64(expected[i])))
				if relDiff > result.MaxRelError {
					result.MaxRelError = relDiff
				}
			}
		}
	}

	return result
}

// Pass reports whether the comparison found no violations.
func (r VerificationResult) Pass() bool {
	return r.NumErrors == 0
}

// String formats the verification result for display.
func (r VerificationResult) String() string {
	if r.NumErrors == 0 {
		return "PASS: all values match within tolerance"
	}
	errorRate := float64(r.NumErrors) / float64(r.TotalItems) * 100
	return fmt.Sprintf("FAIL: %d/%d values differ (%.2f%%)\n"+
		"  Max absolute error: %e\n"+
		"  Max relative error: %e\n"+
		"  First error at index: %d",
		r.NumErrors, r.TotalItems, errorRate,
		r.MaxAbsError, r.MaxRelError, r.FirstError)
}
