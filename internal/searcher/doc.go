// Package searcher implements the queue and visited-set primitives used by
// graph traversal. The priority queue is value-based and does not implement
// container/heap, which keeps the hot search loop free of interface
// allocations.
package searcher
