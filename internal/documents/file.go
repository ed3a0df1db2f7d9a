package documents

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// FileHandle is one user-selected file awaiting upload.
type FileHandle interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// LocalFile is a file on disk.
type LocalFile struct {
	Path string
}

func (f LocalFile) Name() string { return filepath.Base(f.Path) }

func (f LocalFile) Open() (io.ReadCloser, error) { return os.Open(f.Path) }

// MemoryFile is a named in-memory blob.
type MemoryFile struct {
	FileName string
	Data     []byte
}

func (f MemoryFile) Name() string { return f.FileName }

func (f MemoryFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.Data)), nil
}

// LocalFiles wraps paths as FileHandles, preserving order.
func LocalFiles(paths []string) []FileHandle {
	files := make([]FileHandle, len(paths))
	for i, p := range paths {
		files[i] = LocalFile{Path: p}
	}
	return files
}
