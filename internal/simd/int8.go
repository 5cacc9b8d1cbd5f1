package simd

var (
	dotI8Impl       = dotI8Serial
	squaredL2I8Impl = squaredL2I8Serial
)

// DotI8 calculates the dot product of two int8 vectors with int32
// accumulation.
//
// SAFETY: assumes len(a) == len(b).
func DotI8(a, b []int8) int32 {
	return dotI8Impl(a, b)
}

// SquaredL2I8 calculates the squared L2 distance of two int8 vectors with
// int32 accumulation.
//
// SAFETY: assumes len(a) == len(b).
func SquaredL2I8(a, b []int8) int32 {
	return squaredL2I8Impl(a, b)
}

func dotI8Serial(a, b []int8) int32 {
	var ret int32
	for i := range a {
		ret += int32(a[i]) * int32(b[i])
	}
	return ret
}

func squaredL2I8Serial(a, b []int8) int32 {
	var ret int32
	for i := range a {
		d := int32(a[i]) - int32(b[i])
		ret += d * d
	}
	return ret
}

func dotI8Unrolled(a, b []int8) int32 {
	var s0, s1, s2, s3 int32
	n := len(a) &^ 3
	for i := 0; i < n; i += 4 {
		s0 += int32(a[i]) * int32(b[i])
		s1 += int32(a[i+1]) * int32(b[i+1])
		s2 += int32(a[i+2]) * int32(b[i+2])
		s3 += int32(a[i+3]) * int32(b[i+3])
	}
	ret := s0 + s1 + s2 + s3
	for i := n; i < len(a); i++ {
		ret += int32(a[i]) * int32(b[i])
	}
	return ret
}

func squaredL2I8Unrolled(a, b []int8) int32 {
	var s0, s1, s2, s3 int32
	n := len(a) &^ 3
	for i := 0; i < n; i += 4 {
		d0 := int32(a[i]) - int32(b[i])
		d1 := int32(a[i+1]) - int32(b[i+1])
		d2 := int32(a[i+2]) - int32(b[i+2])
		d3 := int32(a[i+3]) - int32(b[i+3])
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}
	ret := s0 + s1 + s2 + s3
	for i := n; i < len(a); i++ {
		d := int32(a[i]) - int32(b[i])
		ret += d * d
	}
	return ret
}

// MismatchI8 counts positions where exactly one of a[i], b[i] exceeds the
// threshold, expressed in the quantized domain.
func MismatchI8(a, b []int8, threshold int8) int {
	var n int
	for i := range a {
		if (a[i] > threshold) != (b[i] > threshold) {
			n++
		}
	}
	return n
}

// OverlapI8 counts the intersection and union of the over-threshold index
// sets in the quantized domain.
func OverlapI8(a, b []int8, threshold int8) (intersection, union int) {
	for i := range a {
		inA := a[i] > threshold
		inB := b[i] > threshold
		if inA && inB {
			intersection++
		}
		if inA || inB {
			union++
		}
	}
	return intersection, union
}
