package vectorstore

import (
	"fmt"

	"github.com/pocketvec/pocketvec/internal/quantization"
)

// SetScale pins the i8 quantizer scale. Used when decoding a snapshot, where
// the scale comes from the header instead of a fit.
func (s *Store) SetScale(scale float32) {
	if s.kind == KindI8 && scale > 0 {
		s.quantizer = quantization.NewScalar(scale)
	}
}

// RestoreF32 appends a slot with an already-encoded float32 payload and its
// recorded layer assignment. Used by snapshot decoding; no quantization or
// scale fitting happens here.
func (s *Store) RestoreF32(key int64, topLayer int, vec []float32) (uint32, error) {
	slot, err := s.restoreSlot(key, topLayer)
	if err != nil {
		return 0, err
	}
	copy(s.f32[int(slot)*s.dims:], vec)
	return slot, nil
}

// RestoreI8 appends a slot with already-quantized codes and its recorded
// layer assignment.
func (s *Store) RestoreI8(key int64, topLayer int, code []int8) (uint32, error) {
	slot, err := s.restoreSlot(key, topLayer)
	if err != nil {
		return 0, err
	}
	copy(s.i8[int(slot)*s.dims:], code)
	return slot, nil
}

func (s *Store) restoreSlot(key int64, topLayer int) (uint32, error) {
	if _, ok := s.byKey[key]; ok {
		return 0, fmt.Errorf("%w: %d", ErrDuplicateKey, key)
	}
	if int(s.next) >= len(s.slots) {
		s.Reserve(max(int(s.next)+1, 1))
	}

	slot := s.next
	s.next++
	s.slots[slot] = Slot{Key: key, TopLayer: int32(topLayer)}
	s.byKey[key] = slot
	s.live++
	return slot, nil
}
