// Package codec implements the binary snapshot format.
//
// Layout (all integers and floats little-endian):
//
//	offset  size  field
//	0       8     magic "VECTRIDX"
//	8       2     version = 1
//	10      2     scalar_kind   (0=f32, 1=i8)
//	12      2     metric_kind   (0=cos, 1=l2sq, 2=ip, 3=hamming, 4=jaccard)
//	14      2     reserved = 0
//	16      4     dimensions
//	20      8     size (live count)
//	28      8     capacity
//	36      4     M
//	40      4     ef_construction
//	44      4     ef_search
//	48      4     entry_key_lo
//	52      4     entry_top_layer
//	56      4     scale_f32 (i8 quantizer scale; 0 for f32)
//	60      4     crc32_header (CRC32-C over bytes 0..59)
//	64      ...   key_table: size × (i64 key, u8 top_layer, u8 deleted, 2B pad)
//	...     ...   vector_arena: size × dims × scalar_size, key-table order
//	...     ...   graph_edges: per key, layers 0..top: u16 count, count × i64 neighbor keys
//	...     4     crc32_body (CRC32-C over everything after the header)
//
// Deleted slots are compacted away on write, so the deleted byte in the key
// table is always zero; it is kept for layout stability.
//
// A snapshot may additionally be wrapped in an s2 or lz4 frame; Read sniffs
// the frame magic and decompresses transparently.
package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/s2"
	"github.com/pierrec/lz4/v4"

	"github.com/pocketvec/pocketvec/distance"
	"github.com/pocketvec/pocketvec/hnsw"
	"github.com/pocketvec/pocketvec/internal/hash"
	"github.com/pocketvec/pocketvec/internal/vectorstore"
)

var (
	// ErrFormat indicates a magic, version, kind or size check failed.
	ErrFormat = errors.New("invalid snapshot format")

	// ErrCorrupted indicates a checksum mismatch.
	ErrCorrupted = errors.New("snapshot corrupted")

	// ErrDimensionMismatch indicates the snapshot's dimensionality does not
	// match the receiving index.
	ErrDimensionMismatch = errors.New("snapshot dimension mismatch")
)

const (
	headerSize   = 64
	keyEntrySize = 12
	version      = 1
)

var magic = [8]byte{'V', 'E', 'C', 'T', 'R', 'I', 'D', 'X'}

// Compression selects the optional snapshot frame.
type Compression uint8

const (
	// CompressionNone writes the raw layout.
	CompressionNone Compression = iota
	// CompressionS2 wraps the snapshot in an s2 frame.
	CompressionS2
	// CompressionLZ4 wraps the snapshot in an lz4 frame.
	CompressionLZ4
)

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// Write serializes the graph and its store to w.
func Write(w io.Writer, g *hnsw.Graph, compression Compression) (int64, error) {
	cw := &countingWriter{w: w}

	var (
		out    io.Writer = cw
		finish func() error
	)
	switch compression {
	case CompressionS2:
		zw := s2.NewWriter(cw)
		out, finish = zw, zw.Close
	case CompressionLZ4:
		zw := lz4.NewWriter(cw)
		out, finish = zw, zw.Close
	}

	if err := writeSnapshot(out, g); err != nil {
		return cw.n, err
	}
	if finish != nil {
		if err := finish(); err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}

func writeSnapshot(w io.Writer, g *hnsw.Graph) error {
	store := g.Store()
	opts := g.Options()

	var scalarKind uint16
	if store.Kind() == vectorstore.KindI8 {
		scalarKind = 1
	}

	var entryKeyLo, entryTopLayer uint32
	if slot, layer, ok := g.EntryPoint(); ok {
		entryKeyLo = uint32(uint64(store.Key(slot)) & 0xFFFFFFFF)
		entryTopLayer = uint32(layer)
	}

	header := make([]byte, headerSize)
	copy(header[0:8], magic[:])
	binary.LittleEndian.PutUint16(header[8:10], version)
	binary.LittleEndian.PutUint16(header[10:12], scalarKind)
	binary.LittleEndian.PutUint16(header[12:14], uint16(opts.Metric))
	binary.LittleEndian.PutUint16(header[14:16], 0)
	binary.LittleEndian.PutUint32(header[16:20], uint32(store.Dims()))
	binary.LittleEndian.PutUint64(header[20:28], uint64(store.Len()))
	binary.LittleEndian.PutUint64(header[28:36], uint64(store.Capacity()))
	binary.LittleEndian.PutUint32(header[36:40], uint32(opts.M))
	binary.LittleEndian.PutUint32(header[40:44], uint32(opts.EFConstruction))
	binary.LittleEndian.PutUint32(header[44:48], uint32(opts.EFSearch))
	binary.LittleEndian.PutUint32(header[48:52], entryKeyLo)
	binary.LittleEndian.PutUint32(header[52:56], entryTopLayer)
	binary.LittleEndian.PutUint32(header[56:60], math.Float32bits(store.Scale()))
	binary.LittleEndian.PutUint32(header[60:64], hash.CRC32C(header[:60]))

	if _, err := w.Write(header); err != nil {
		return err
	}

	bodyHash := hash.NewCRC32C()
	bw := io.MultiWriter(w, bodyHash)

	// Key table, ascending slot order; this order also fixes the arena and
	// edge sections.
	var live []uint32
	store.ForEachLive(func(slot uint32) bool {
		live = append(live, slot)
		return true
	})

	entry := make([]byte, keyEntrySize)
	for _, slot := range live {
		binary.LittleEndian.PutUint64(entry[0:8], uint64(store.Key(slot)))
		entry[8] = uint8(store.TopLayer(slot))
		entry[9] = 0 // deleted
		entry[10], entry[11] = 0, 0
		if _, err := bw.Write(entry); err != nil {
			return err
		}
	}

	// Vector arena.
	switch store.Kind() {
	case vectorstore.KindF32:
		buf := make([]byte, store.Dims()*4)
		for _, slot := range live {
			vec := store.ViewF32(slot)
			for i, x := range vec {
				binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
			}
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
	case vectorstore.KindI8:
		buf := make([]byte, store.Dims())
		for _, slot := range live {
			code := store.ViewI8(slot)
			for i, q := range code {
				buf[i] = byte(q)
			}
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
	}

	// Graph edges.
	var scratch [8]byte
	for _, slot := range live {
		for layer := 0; layer <= store.TopLayer(slot); layer++ {
			neighbors := g.Neighbors(slot, layer)
			binary.LittleEndian.PutUint16(scratch[:2], uint16(len(neighbors)))
			if _, err := bw.Write(scratch[:2]); err != nil {
				return err
			}
			for _, n := range neighbors {
				binary.LittleEndian.PutUint64(scratch[:8], uint64(store.Key(n)))
				if _, err := bw.Write(scratch[:8]); err != nil {
					return err
				}
			}
		}
	}

	binary.LittleEndian.PutUint32(scratch[:4], bodyHash.Sum32())
	_, err := w.Write(scratch[:4])
	return err
}

// Read deserializes a snapshot into a freshly constructed graph.
// expectDims, when non-zero, must match the snapshot's dimensionality.
// Compressed snapshots are detected by their frame magic.
func Read(r io.Reader, expectDims int) (*hnsw.Graph, error) {
	br := bufio.NewReader(r)

	peek, err := br.Peek(8)
	if err != nil {
		return nil, fmt.Errorf("%w: short snapshot", ErrFormat)
	}

	var in io.Reader = br
	switch {
	case bytes.Equal(peek, magic[:]):
		// Raw layout.
	case isS2Frame(peek):
		in = s2.NewReader(br)
	case isLZ4Frame(peek):
		in = lz4.NewReader(br)
	default:
		return nil, fmt.Errorf("%w: bad magic", ErrFormat)
	}

	return readSnapshot(in, expectDims)
}

// The s2/snappy stream identifier chunk: type 0xff, length 6, then "S2sTwO"
// (s2 streams, as s2.NewWriter writes them) or "sNaPpY" (snappy-compatible
// streams). Only the first four identifier bytes are checked.
func isS2Frame(p []byte) bool {
	if len(p) < 8 || p[0] != 0xff || p[1] != 0x06 || p[2] != 0x00 || p[3] != 0x00 {
		return false
	}
	id := string(p[4:8])
	return id == "S2sT" || id == "sNaP"
}

// The lz4 frame magic: 0x184D2204 little-endian.
func isLZ4Frame(p []byte) bool {
	return len(p) >= 4 && p[0] == 0x04 && p[1] == 0x22 && p[2] == 0x4d && p[3] == 0x18
}

func readSnapshot(r io.Reader, expectDims int) (*hnsw.Graph, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrFormat)
	}

	if !bytes.Equal(header[0:8], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrFormat)
	}
	if got := binary.LittleEndian.Uint32(header[60:64]); got != hash.CRC32C(header[:60]) {
		return nil, fmt.Errorf("%w: header checksum", ErrCorrupted)
	}
	if v := binary.LittleEndian.Uint16(header[8:10]); v != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, v)
	}

	scalarKind := binary.LittleEndian.Uint16(header[10:12])
	if scalarKind > 1 {
		return nil, fmt.Errorf("%w: unknown scalar kind %d", ErrFormat, scalarKind)
	}
	metricKind := binary.LittleEndian.Uint16(header[12:14])
	if metricKind > uint16(distance.MetricJaccard) {
		return nil, fmt.Errorf("%w: unknown metric kind %d", ErrFormat, metricKind)
	}

	dims := int(binary.LittleEndian.Uint32(header[16:20]))
	if dims == 0 {
		return nil, fmt.Errorf("%w: zero dimensions", ErrFormat)
	}
	if expectDims != 0 && expectDims != dims {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, expectDims, dims)
	}

	size := binary.LittleEndian.Uint64(header[20:28])
	capacity := binary.LittleEndian.Uint64(header[28:36])
	m := int(binary.LittleEndian.Uint32(header[36:40]))
	efConstruction := int(binary.LittleEndian.Uint32(header[40:44]))
	efSearch := int(binary.LittleEndian.Uint32(header[44:48]))
	entryKeyLo := binary.LittleEndian.Uint32(header[48:52])
	entryTopLayer := int(binary.LittleEndian.Uint32(header[52:56]))
	scale := math.Float32frombits(binary.LittleEndian.Uint32(header[56:60]))

	kind := vectorstore.KindF32
	if scalarKind == 1 {
		kind = vectorstore.KindI8
	}
	if capacity < size {
		capacity = size
	}

	store := vectorstore.New(kind, dims, int(capacity), 0)
	store.SetScale(scale)
	g := hnsw.New(store, func(o *hnsw.Options) {
		o.M = m
		o.EFConstruction = efConstruction
		o.EFSearch = efSearch
		o.Metric = distance.Metric(metricKind)
	})

	bodyHash := hash.NewCRC32C()
	body := io.TeeReader(r, bodyHash)

	// Key table.
	keys := make([]int64, size)
	topLayers := make([]int, size)
	entry := make([]byte, keyEntrySize)
	for i := uint64(0); i < size; i++ {
		if _, err := io.ReadFull(body, entry); err != nil {
			return nil, fmt.Errorf("%w: short key table", ErrFormat)
		}
		keys[i] = int64(binary.LittleEndian.Uint64(entry[0:8]))
		topLayers[i] = int(entry[8])
	}

	// Vector arena.
	elemSize := kind.ElementSize()
	buf := make([]byte, dims*elemSize)
	vecF32 := make([]float32, dims)
	vecI8 := make([]int8, dims)
	for i := uint64(0); i < size; i++ {
		if _, err := io.ReadFull(body, buf); err != nil {
			return nil, fmt.Errorf("%w: short vector arena", ErrFormat)
		}

		var restoreErr error
		switch kind {
		case vectorstore.KindF32:
			for j := 0; j < dims; j++ {
				vecF32[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
			}
			_, restoreErr = store.RestoreF32(keys[i], topLayers[i], vecF32)
		case vectorstore.KindI8:
			for j := 0; j < dims; j++ {
				vecI8[j] = int8(buf[j])
			}
			_, restoreErr = store.RestoreI8(keys[i], topLayers[i], vecI8)
		}
		if restoreErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, restoreErr)
		}
	}

	// Graph edges.
	var scratch [8]byte
	for i := uint64(0); i < size; i++ {
		slot, _ := store.Lookup(keys[i])
		lists := make([][]uint32, topLayers[i]+1)
		for layer := 0; layer <= topLayers[i]; layer++ {
			if _, err := io.ReadFull(body, scratch[:2]); err != nil {
				return nil, fmt.Errorf("%w: short edge section", ErrFormat)
			}
			count := int(binary.LittleEndian.Uint16(scratch[:2]))
			list := make([]uint32, 0, count)
			for c := 0; c < count; c++ {
				if _, err := io.ReadFull(body, scratch[:8]); err != nil {
					return nil, fmt.Errorf("%w: short edge section", ErrFormat)
				}
				neighborKey := int64(binary.LittleEndian.Uint64(scratch[:8]))
				if ns, ok := store.Lookup(neighborKey); ok {
					list = append(list, ns)
				}
			}
			lists[layer] = list
		}
		g.RestoreNode(slot, topLayers[i], lists)
	}

	wantBody := bodyHash.Sum32()
	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return nil, fmt.Errorf("%w: missing body checksum", ErrFormat)
	}
	if got := binary.LittleEndian.Uint32(scratch[:4]); got != wantBody {
		return nil, fmt.Errorf("%w: body checksum", ErrCorrupted)
	}

	// Resolve the entry point from the truncated key recorded in the header;
	// fall back to re-election if it no longer resolves.
	if size > 0 {
		restored := false
		for i := uint64(0); i < size; i++ {
			if uint32(uint64(keys[i])&0xFFFFFFFF) == entryKeyLo && topLayers[i] == entryTopLayer {
				if slot, ok := store.Lookup(keys[i]); ok {
					g.RestoreEntryPoint(slot, entryTopLayer)
					restored = true
				}
				break
			}
		}
		if !restored {
			g.ElectEntryPoint()
		}
	}

	return g, nil
}
