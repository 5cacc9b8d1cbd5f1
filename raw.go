package pocketvec

import (
	"fmt"
	"unsafe"
)

// Float32View reinterprets a caller-owned byte buffer as a []float32
// without copying. The buffer must be non-empty, 4-byte aligned and a
// multiple of 4 bytes long. The view borrows the buffer: it is only valid
// while the buffer is.
func Float32View(buf []byte) ([]float32, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrBuffer)
	}
	if uintptr(unsafe.Pointer(&buf[0]))%4 != 0 {
		return nil, fmt.Errorf("%w: not 4-byte aligned", ErrBuffer)
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", ErrBuffer, len(buf))
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&buf[0])), len(buf)/4), nil
}

// AddRaw is Add over a raw byte buffer. The buffer is borrowed only for the
// duration of the call: the vector is copied into storage before AddRaw
// returns.
func (i *Index) AddRaw(key int64, buf []byte) (AddResult, error) {
	vec, err := Float32View(buf)
	if err != nil {
		return AddResult{}, err
	}
	return i.Add(key, vec)
}

// UpdateRaw is Update over a raw byte buffer.
func (i *Index) UpdateRaw(key int64, buf []byte) error {
	vec, err := Float32View(buf)
	if err != nil {
		return err
	}
	return i.Update(key, vec)
}

// SearchRaw is Search over a raw byte buffer.
func (i *Index) SearchRaw(buf []byte, k int, optFns ...func(o *SearchOptions)) ([]SearchResult, error) {
	vec, err := Float32View(buf)
	if err != nil {
		return nil, err
	}
	return i.Search(vec, k, optFns...)
}

// AddBatchRaw is AddBatch over one contiguous raw buffer holding
// len(keys) × Dimensions float32 elements. The whole buffer is cloned
// before the background worker starts, so the caller's buffer is released
// when AddBatchRaw returns.
func (i *Index) AddBatchRaw(keys []int64, buf []byte) error {
	vecs, err := Float32View(buf)
	if err != nil {
		return err
	}
	return i.AddBatch(keys, vecs)
}
