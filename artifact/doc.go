// Package artifact loads the immutable inputs of a recommender from a
// blobstore.BlobStore.
//
// A catalog version consists of four kinds of artifacts, named by a Manifest:
//
//   - the latent index (CSV, optionally .zst or .lz4 compressed, or a SQLite database)
//   - the normalization parameters (JSON or YAML object name -> {min, max})
//   - one categorical dictionary per field (JSON or YAML object label -> id)
//
// The manifest itself is located through the CURRENT blob when present,
// which lets a publisher switch versions atomically (see blobstore/s3.PointerStore).
// Every failure is reported as an *Error whose Kind separates missing
// artifacts from malformed ones.
package artifact
