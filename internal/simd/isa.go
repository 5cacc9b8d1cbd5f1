package simd

import (
	"os"
	"runtime"
	"strings"
)

// ISA identifies the instruction set the kernels were selected for.
type ISA uint8

const (
	// Serial is the pure Go fallback without lane unrolling.
	Serial ISA = iota
	// NEON is ARM64 ASIMD (128-bit lanes).
	NEON
	// SVE is ARM64 SVE/SVE2 (scalable lanes).
	SVE
	// AVX2 is x86-64 AVX2 with FMA (256-bit lanes).
	AVX2
)

// String returns the lower-case name reported to callers.
func (i ISA) String() string {
	switch i {
	case Serial:
		return "serial"
	case NEON:
		return "neon"
	case SVE:
		return "sve"
	case AVX2:
		return "avx2"
	default:
		return "unknown"
	}
}

// ParseISA parses a string into an ISA value.
func ParseISA(s string) (ISA, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "serial":
		return Serial, true
	case "neon":
		return NEON, true
	case "sve":
		return SVE, true
	case "avx2":
		return AVX2, true
	default:
		return Serial, false
	}
}

// Package-level state, initialized once from the platform init functions.
var (
	activeISA ISA

	hasASIMD bool // ARM64 NEON
	hasSVE   bool // ARM64 SVE/SVE2
	hasAVX2  bool // x86-64 AVX2 + FMA
)

// Active returns the ISA the kernels were selected for at init time.
func Active() ISA {
	return activeISA
}

// initCapabilities is called from the platform-specific init functions
// after the CPU feature flags have been filled in.
func initCapabilities() {
	if override := os.Getenv("POCKETVEC_SIMD"); override != "" {
		if isa, ok := ParseISA(override); ok && available(isa) {
			activeISA = isa
			bindKernels()
			return
		}
	}

	activeISA = selectBest()
	bindKernels()
}

func available(isa ISA) bool {
	switch isa {
	case Serial:
		return true
	case NEON:
		return hasASIMD
	case SVE:
		return hasSVE
	case AVX2:
		return hasAVX2
	default:
		return false
	}
}

func selectBest() ISA {
	switch runtime.GOARCH {
	case "arm64":
		// Apple Silicon reports SVE through emulation; NEON wins there.
		if hasSVE && runtime.GOOS != "darwin" {
			return SVE
		}
		if hasASIMD {
			return NEON
		}
	case "amd64":
		if hasAVX2 {
			return AVX2
		}
	}
	return Serial
}

// bindKernels points the impl variables at the unrolled kernels when any
// SIMD ISA was selected, and at the scalar reference loops otherwise.
func bindKernels() {
	if activeISA == Serial {
		dotImpl = dotSerial
		squaredL2Impl = squaredL2Serial
		dotI8Impl = dotI8Serial
		squaredL2I8Impl = squaredL2I8Serial
		return
	}
	dotImpl = dotUnrolled
	squaredL2Impl = squaredL2Unrolled
	dotI8Impl = dotI8Unrolled
	squaredL2I8Impl = squaredL2I8Unrolled
}
