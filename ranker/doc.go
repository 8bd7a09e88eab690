// Package ranker implements exact cosine top-k retrieval over an index.Store.
//
// Every call scores the query against all indexed vectors (or the rows of a
// filter bitmap), keeps the rows whose similarity is strictly above the
// configured threshold, and selects the k best. Two selection strategies are
// available:
//
//   - StrategyPartition (default): collect the survivors, quickselect the k-th
//     best in expected linear time, then sort only the selected k.
//   - StrategyHeap: feed survivors incrementally into a bounded heap of size k.
//
// Both strategies order hits by descending score and break ties by ascending
// row, so they return identical results for the same store and query.
package ranker
