// Package blobstore abstracts where index snapshots live.
//
// A Store moves whole snapshots as opaque byte blobs: the local file system
// for on-device persistence, memory for tests, and MinIO/S3 (subpackages)
// for off-device backup of an embedded index. The snapshot bytes are exactly
// what the codec package writes; no backend reinterprets them.
package blobstore
