// Package pocketvec provides an embeddable approximate-nearest-neighbor
// vector index for Go.
//
// Pocketvec targets in-process use on resource-constrained devices: tens of
// thousands of vectors, hundreds of dimensions, sub-millisecond k-NN search
// over a live, mutable collection held entirely in memory.
//
// # Quick start
//
//	idx, _ := pocketvec.New(128)                     // cosine, f32
//	idx.Add(1, vec)
//	results, _ := idx.Search(query, 10)
//	for _, r := range results {
//	    fmt.Println(r.Key, r.Distance)
//	}
//
// Quantization and metric are fixed at construction:
//
//	idx, _ := pocketvec.New(128, func(o *pocketvec.Options) {
//	    o.Quantization = "i8"    // 4x smaller vectors
//	    o.Metric = "l2sq"
//	})
//
// # Mutation and background indexing
//
// Add, Remove, Update, Search and GetItemVector are synchronous. AddBatch
// and LoadVectorsFromFile run on a single background worker that locks per
// item, so searches stay available while a batch is indexing:
//
//	idx.AddBatch(keys, flatVectors)
//	for idx.IsIndexing() {
//	    p := idx.IndexingProgress()
//	    fmt.Printf("%d/%d\n", p.Current, p.Total)
//	    time.Sleep(50 * time.Millisecond)
//	}
//	result, err := idx.LastResult()
//
// # Persistence
//
// Save writes a checksummed binary snapshot; Load restores it. Snapshots
// can also live in a blobstore.Store (local directory, memory, MinIO, S3):
//
//	idx.Save("file:///data/products.idx")
//	idx.SaveToStore(ctx, s3Store, "products.idx")
//
// # Features
//
//   - HNSW graph with diversity-heuristic neighbor selection
//   - Metrics: cos, l2sq, ip, hamming, jaccard
//   - f32 or symmetric-i8 storage, single per-index scale
//   - Filtered search over an allowed-key set
//   - Zero-copy ingestion from caller-owned byte buffers (AddRaw)
//   - Checksummed snapshot format with optional s2/lz4 compression
//   - SIMD-dispatched kernels (serial/neon/sve/avx2), ISA reported
package pocketvec
