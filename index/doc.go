// Package index holds the immutable in-memory catalog of latent vectors.
//
// A Store is built once from a persisted tabular index: a header row names the
// columns, columns called latent_0 … latent_{D-1} carry the vector and every
// other named column is song metadata. After Build the store is read-only and
// safe for concurrent use without locking.
//
// # Layout
//
// Vectors are kept in a single row-major []float32 with their L2 norms
// precomputed, so a ranker can score the whole catalog in one pass. Genre and
// artist membership is indexed with Roaring bitmaps for filtered scans.
//
// # Sources
//
//   - ReadCSV: comma-separated file with a header row
//   - ReadSQLite: a table in a SQLite database (modernc.org/sqlite, no cgo)
package index
