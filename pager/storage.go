// Storage provides an interface for accessing the filesystem. This allows
// the database to run on an in memory buffer if desired.
package pager

import (
	"fmt"
	"io"
	"os"
)

// storage is the random-access byte store a Disk writes pages into. The log
// itself is the durability mechanism (§6 "no WAL separate from the log"), so
// unlike the teacher's journal-backed storage, there is no separate
// crash-recovery file here: a page is either fully written or it is not.
type storage interface {
	io.ReaderAt
	io.WriterAt
	Size() (int64, error)
	Sync() error
}

type memoryStorage struct {
	buf []byte
}

func newMemoryStorage() storage {
	return &memoryStorage{}
}

func (mf *memoryStorage) WriteAt(p []byte, off int64) (n int, err error) {
	end := int(off) + len(p)
	for len(mf.buf) < end {
		mf.buf = append(mf.buf, 0)
	}
	copy(mf.buf[off:end], p)
	return len(p), nil
}

func (mf *memoryStorage) ReadAt(p []byte, off int64) (n int, err error) {
	end := int(off) + len(p)
	if end > len(mf.buf) {
		avail := len(mf.buf) - int(off)
		if avail < 0 {
			avail = 0
		}
		copy(p, mf.buf[off:off+int64(avail)])
		return avail, io.EOF
	}
	copy(p, mf.buf[off:end])
	return len(p), nil
}

func (mf *memoryStorage) Size() (int64, error) {
	return int64(len(mf.buf)), nil
}

func (mf *memoryStorage) Sync() error {
	return nil
}

// DBFileName is the single file a hashdb instance persists to.
const DBFileName = "main.db"

type fileStorage struct {
	file *os.File
}

func newFileStorage(path string) (storage, error) {
	if path == "" {
		path = DBFileName
	}
	fl, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("pager: opening data file %q: %w", path, err)
	}
	return &fileStorage{file: fl}, nil
}

func (s *fileStorage) WriteAt(p []byte, off int64) (n int, err error) {
	n, err = s.file.WriteAt(p, off)
	if err != nil {
		return n, fmt.Errorf("pager: write at %d: %w", off, err)
	}
	return n, nil
}

func (s *fileStorage) ReadAt(p []byte, off int64) (n int, err error) {
	n, err = s.file.ReadAt(p, off)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("pager: read at %d: %w", off, err)
	}
	return n, err
}

func (s *fileStorage) Size() (int64, error) {
	info, err := s.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("pager: stat data file: %w", err)
	}
	return info.Size(), nil
}

func (s *fileStorage) Sync() error {
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("pager: sync data file: %w", err)
	}
	return nil
}

func (s *fileStorage) fd() uintptr {
	return s.file.Fd()
}
