// Package minio provides a BlobStore implementation using the MinIO client.
//
// It serves catalog artifacts from MinIO and other S3-compatible servers
// (Ceph, SeaweedFS, Garage) without pulling in the AWS SDK configuration
// chain, which suits air-gapped deployments.
//
//	store, err := minio.New("localhost:9000", "minioadmin", "minioadmin", "catalog",
//	    minio.WithPrefix("songrec/"),
//	)
package minio
