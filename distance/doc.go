// Package distance provides the vector kernels used by the ranker.
//
// # Supported Operations
//
//   - Dot: inner product of two vectors
//   - Norm: L2 norm of a vector
//   - Cosine: cosine similarity, reported as undefined for zero-norm inputs
//   - DotBatch: one matrix-vector product over a row-major matrix
//
// # Usage
//
//	sim, ok := distance.Cosine(a, b)
//	distance.DotBatch(query, matrix, dim, out)
package distance
