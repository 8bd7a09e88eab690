// Package mmap maps artifact files read-only into memory.
//
// The local blob store serves index and dictionary artifacts from a mapping so
// that a multi-gigabyte index is paged in by the kernel on demand instead of
// being copied through a read buffer.
//
//	f, err := mmap.Open("latent-space-lookup.csv")
//	if err != nil { ... }
//	defer f.Close()
//	_ = f.Advise(mmap.AccessSequential)
//	data := f.Bytes()
//
// Unix systems use mmap(2) and madvise(2). On Windows the file is mapped with
// MapViewOfFile and access hints are ignored.
package mmap
