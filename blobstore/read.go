package blobstore

import (
	"bytes"
	"context"
	"io"
)

// ReadAll reads a whole blob into memory.
func ReadAll(ctx context.Context, store BlobStore, name string) ([]byte, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if m, ok := b.(Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		return bytes.Clone(data), nil
	}

	buf := make([]byte, b.Size())
	n, err := b.ReadAt(ctx, buf, 0)
	if err != nil && !(err == io.EOF && int64(n) == b.Size()) {
		return nil, err
	}
	return buf[:n], nil
}

// OpenReader opens a blob as a sequential stream. Closing the reader closes
// the blob.
func OpenReader(ctx context.Context, store BlobStore, name string) (io.ReadCloser, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	if m, ok := b.(Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			b.Close()
			return nil, err
		}
		return &blobReader{Reader: bytes.NewReader(data), blob: b}, nil
	}

	if b.Size() == 0 {
		return &blobReader{Reader: bytes.NewReader(nil), blob: b}, nil
	}
	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		b.Close()
		return nil, err
	}
	return &blobReader{Reader: rc, body: rc, blob: b}, nil
}

type blobReader struct {
	io.Reader
	body io.Closer
	blob Blob
}

func (r *blobReader) Close() error {
	var err error
	if r.body != nil {
		err = r.body.Close()
	}
	if cerr := r.blob.Close(); err == nil {
		err = cerr
	}
	return err
}
