// Package blobstore provides read access to the recommender's artifacts.
//
// Artifacts (the latent index, categorical dictionaries, normalization
// parameters and the manifest naming them) are immutable blobs addressed by
// name. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, served from read-only memory mappings
//   - MemoryStore: in-process map, for tests and embedded catalogs
//   - MirrorStore: a remote store mirrored into a LocalStore on first open
//   - s3.Store: Amazon S3 with range reads and parallel downloads
//   - minio.Store: MinIO and other S3-compatible servers
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
