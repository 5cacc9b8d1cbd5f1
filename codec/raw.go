package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// ReadRawVectors reads a headerless little-endian float32 vector file: a
// plain sequence of N × dims elements. The byte length must be an exact
// multiple of dims × 4.
func ReadRawVectors(r io.Reader, dims int) ([]float32, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	stride := dims * 4
	if stride == 0 || len(data)%stride != 0 {
		return nil, fmt.Errorf("%w: file size %d is not a multiple of %d", ErrFormat, len(data), stride)
	}

	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

// WriteRawVectors writes vectors in the raw bulk-load format. Primarily a
// test and tooling helper.
func WriteRawVectors(w io.Writer, vectors []float32) error {
	buf := make([]byte, 4)
	for _, x := range vectors {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}
