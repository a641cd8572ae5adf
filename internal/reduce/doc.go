// Package reduce implements SearchReducer and AggregateReducer: the
// top-K heap merge with KNN specialization, and the cursor-driven
// aggregate accumulation with its WITHCOUNT barrier and profile
// stitching.
//
// The top-K heap is adapted from a RediSearch-style coordinator's
// mergeTopK/hitHeap (container/heap, min-heap of size K, fix-on-reject),
// generalized from a single score comparator to the SORTBY/score/KNN
// comparator switch this package requires.
package reduce
