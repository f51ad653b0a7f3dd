//go:build !linux
// +build !linux

// Package tcgemm fallback system memory query for non-Linux platforms
package tcgemm

// getSystemMemory returns total system memory in bytes.
// Without a platform query we assume a reasonable default.
func getSystemMemory() uint64 {
	return defaultSystemMemory
}
