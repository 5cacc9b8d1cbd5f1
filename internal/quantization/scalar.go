package quantization

import "math"

// levels is the symmetric quantization range: values map into [-levels, levels].
const levels = 127

// Scalar is a symmetric single-scale 8-bit quantizer.
//
// Encoding: int8 = round(clip(x/s, -1, 1) * 127)
// Decoding: f32  = (int8 / 127) * s
//
// The zero value is untrained; the first Fit sets the scale.
type Scalar struct {
	scale float32
}

// NewScalar creates a quantizer with a fixed scale. A scale of zero yields
// an untrained quantizer that fits itself on first use.
func NewScalar(scale float32) *Scalar {
	return &Scalar{scale: scale}
}

// Trained reports whether a scale has been established.
func (s *Scalar) Trained() bool {
	return s.scale > 0
}

// Scale returns the current scale, 0 if untrained.
func (s *Scalar) Scale() float32 {
	return s.scale
}

// Fit derives the scale from the maximum absolute element value of the
// given flattened vectors. It is a no-op once trained.
func (s *Scalar) Fit(elements []float32) {
	if s.Trained() {
		return
	}

	var maxAbs float32
	for _, x := range elements {
		if a := float32(math.Abs(float64(x))); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		// All-zero input: any positive scale round-trips it exactly.
		maxAbs = 1
	}
	s.scale = maxAbs
}

// EncodeValue quantizes a single element.
func (s *Scalar) EncodeValue(x float32) int8 {
	r := x / s.scale
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return int8(math.RoundToEven(float64(r * levels)))
}

// DecodeValue reconstructs a single element.
func (s *Scalar) DecodeValue(q int8) float32 {
	return float32(q) / levels * s.scale
}

// Encode quantizes v into dst. len(dst) must equal len(v).
func (s *Scalar) Encode(v []float32, dst []int8) {
	for i, x := range v {
		dst[i] = s.EncodeValue(x)
	}
}

// Decode reconstructs code into dst. len(dst) must equal len(code).
func (s *Scalar) Decode(code []int8, dst []float32) {
	for i, q := range code {
		dst[i] = s.DecodeValue(q)
	}
}

// InvScaleSq returns (s/127)², the factor that maps int32 dot products and
// squared distances from the quantized domain back to float32.
func (s *Scalar) InvScaleSq() float32 {
	u := s.scale / levels
	return u * u
}

// Threshold maps a float32 cut-off into the quantized domain, for the
// bit-oriented metrics.
func (s *Scalar) Threshold(cutoff float32) int8 {
	return s.EncodeValue(cutoff)
}
