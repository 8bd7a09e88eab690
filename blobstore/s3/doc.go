// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("songrec/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
// Whole artifacts are fetched with the transfer manager's parallel ranged
// downloader; Blob.ReadAt and Blob.ReadRange issue single ranged GETs.
//
// PointerStore layers a DynamoDB table over a store so that the CURRENT blob,
// which names the active artifact manifest, can be swapped atomically by a
// publisher while recommenders keep reading.
package s3
