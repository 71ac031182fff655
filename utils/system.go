package utils

import (
	"math"
	"runtime"
)

// MemUsage returns the allocated and system memory in MiB and the number of GC cycles
func MemUsage() (allocMiB, sysMiB uint64, numGC uint32) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	// For info on each, see: https://golang.org/pkg/runtime/#MemStats
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}
	return bToMb(m.Alloc), bToMb(m.Sys), m.NumGC
}

func IsNanPanic(A any) {
	if IsNan(A) {
		panic("NAN found")
	}
}

func IsNan(A any) bool {
	switch v := A.(type) {
	case float64:
		return math.IsNaN(v)
	case []float64:
		for _, f := range v {
			if math.IsNaN(f) {
				return true
			}
		}
	case CSR:
		return IsNan(v.Data())
	case *Stencil5:
		return IsNan(v.P) || IsNan(v.N) || IsNan(v.S) || IsNan(v.E) || IsNan(v.W)
	}
	return false
}
