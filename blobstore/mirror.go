package blobstore

import (
	"context"
	"errors"
	"io"
	"os"

	"golang.org/x/sync/singleflight"
)

// MirrorStore serves a remote store through a local directory.
//
// The first Open of a name downloads the remote blob into the local store;
// later opens are served from the local copy. Concurrent opens of a missing
// name share one download. Artifacts are immutable, so a mirrored copy is
// never revalidated. Names passed as volatile, such as a CURRENT pointer,
// are always read from the remote store.
type MirrorStore struct {
	remote   BlobStore
	local    *LocalStore
	volatile map[string]struct{}
	group    singleflight.Group
}

// NewMirrorStore creates a MirrorStore.
func NewMirrorStore(remote BlobStore, local *LocalStore, volatile ...string) *MirrorStore {
	s := &MirrorStore{remote: remote, local: local, volatile: make(map[string]struct{}, len(volatile))}
	for _, name := range volatile {
		s.volatile[name] = struct{}{}
	}
	return s
}

// Open opens the local copy of name, fetching it first if needed.
func (s *MirrorStore) Open(ctx context.Context, name string) (Blob, error) {
	if _, ok := s.volatile[name]; ok {
		return s.remote.Open(ctx, name)
	}
	b, err := s.local.Open(ctx, name)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if _, err, _ := s.group.Do(name, func() (any, error) {
		// A fetch that finished after our miss already placed the copy.
		if _, err := os.Stat(s.local.path(name)); err == nil {
			return nil, nil
		}
		return nil, s.fetch(ctx, name)
	}); err != nil {
		return nil, err
	}
	return s.local.Open(ctx, name)
}

func (s *MirrorStore) fetch(ctx context.Context, name string) error {
	return s.local.WriteAtomic(ctx, name, func(f *os.File) error {
		if d, ok := s.remote.(Downloader); ok {
			_, err := d.Download(ctx, name, f)
			return err
		}
		rc, err := OpenReader(ctx, s.remote, name)
		if err != nil {
			return err
		}
		defer rc.Close()
		_, err = io.Copy(f, rc)
		return err
	})
}

// Put writes name to the remote store and refreshes the local copy.
func (s *MirrorStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.remote.Put(ctx, name, data); err != nil {
		return err
	}
	if _, ok := s.volatile[name]; ok {
		return nil
	}
	return s.local.Put(ctx, name, data)
}

// List lists the remote store.
func (s *MirrorStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.remote.List(ctx, prefix)
}
