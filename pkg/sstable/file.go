// pkg/sstable/file.go
package sstable

import (
	"os"

	"ember/pkg/kverrors"
)

// FileObject is the positional-read file handle an SST is built and read
// against: create writes bytes once and reopens read-only, read returns
// exactly the requested range or errors, size is cached at open time.
type FileObject struct {
	file *os.File
	size int64
}

// CreateFileObject writes data to path, then reopens it read-only,
// matching the builder's "atomically write, then reopen read-only" step.
func CreateFileObject(path string, data []byte) (*FileObject, error) {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, kverrors.WrapIO("writing sst file", err)
	}
	return OpenFileObject(path)
}

// OpenFileObject opens an existing file read-only and records its length.
func OpenFileObject(path string) (*FileObject, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, kverrors.WrapIO("opening sst file", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, kverrors.WrapIO("stat sst file", err)
	}
	return &FileObject{file: f, size: info.Size()}, nil
}

// Read returns exactly len(buf) bytes starting at offset, or an error.
func (fo *FileObject) Read(offset int64, buf []byte) error {
	n, err := preadFull(fo.file, buf, offset)
	if err != nil {
		return kverrors.WrapIO("reading sst file", err)
	}
	if n != len(buf) {
		return kverrors.Internalf("short read: got %d bytes, want %d", n, len(buf))
	}
	return nil
}

// Size returns the file's cached length.
func (fo *FileObject) Size() int64 { return fo.size }

// Close releases the underlying file handle.
func (fo *FileObject) Close() error {
	if fo.file == nil {
		return nil
	}
	return fo.file.Close()
}
