package gguf

import (
	"os"

	"golang.org/x/sys/unix"
)

// Mode selects how Open maps the underlying file.
type Mode int

const (
	// ModeRead maps the file private/read-only; append operations fail.
	ModeRead Mode = iota
	// ModeReadWrite maps the file shared/writable so that appends,
	// followed by Remap, become visible through the mapping.
	ModeReadWrite
)

// Session owns a GGUF file's descriptor and memory mapping. It is not
// safe for concurrent use: one session is owned by one goroutine at a
// time, matching spec.md §5's single-threaded cooperative model.
//
// Metadata and tensor descriptors returned while walking a session are
// views into its mapping (see Key.Value, Session.Weights): their
// lifetime is bounded by the session, and Remap (triggered by any
// Append* call) invalidates them. Callers must not retain a view across
// an append.
type Session struct {
	path string
	mode Mode
	file *os.File
	data []byte
	size int64

	hdr header

	alignment uint64
	dataOff   uint64 // 0 until computed by the first tensor walk

	off         uint64
	leftKV      uint64
	leftTensors uint64

	fileSize      uint64
	phase         appendPhase
	nextRelOffset uint64
	payloadCursor uint64
}

// Open maps an existing GGUF file for reading or read/write.
func Open(path string, mode Mode) (*Session, error) {
	flag := os.O_RDONLY
	if mode == ModeReadWrite {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, newErr(KindIO, path, "open", err)
	}

	s := &Session{path: path, mode: mode, file: f, alignment: DefaultAlignment}
	if err := s.mapFile(); err != nil {
		f.Close()
		return nil, err
	}

	hdr, err := parseHeader(s.data)
	if err != nil {
		s.Close()
		return nil, withPath(err, path)
	}
	if hdr.Version != Version {
		s.Close()
		return nil, newErr(KindInvalid, path, "unsupported gguf version", nil)
	}
	s.hdr = hdr
	s.fileSize = uint64(s.size)
	s.nextRelOffset = 0
	s.rewindLocked()
	return s, nil
}

// Create makes a fresh, zero-count GGUF file and opens it read/write.
// If overwrite is false and path already exists, Create fails with
// KindExists. The file is written via a uuid-named temp sibling and
// renamed into place, so a crash mid-write never leaves a half-written
// file at path (see gguf/atomic.go and SPEC_FULL.md §4.12).
func Create(path string, overwrite bool) (*Session, error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil, newErr(KindExists, path, "file already exists", nil)
		} else if !os.IsNotExist(err) {
			return nil, newErr(KindIO, path, "stat", err)
		}
	}

	hdr := header{Magic: Magic, Version: Version}
	if err := writeFileAtomic(path, hdr.bytes()); err != nil {
		return nil, err
	}
	return Open(path, ModeReadWrite)
}

func (s *Session) mapFile() error {
	fi, err := s.file.Stat()
	if err != nil {
		return newErr(KindIO, s.path, "stat", err)
	}
	size := fi.Size()
	if size < HeaderSize {
		return newErr(KindInvalid, s.path, "file smaller than header size", nil)
	}

	prot := unix.PROT_READ
	mapFlag := unix.MAP_PRIVATE
	if s.mode == ModeReadWrite {
		mapFlag = unix.MAP_SHARED
	}
	data, err := unix.Mmap(int(s.file.Fd()), 0, int(size), prot, mapFlag)
	if err != nil {
		return newErr(KindIO, s.path, "mmap", err)
	}
	if len(data) < 4 || string(data[0:4]) != string(Magic[:]) {
		unix.Munmap(data)
		return newErr(KindInvalid, s.path, "bad magic", nil)
	}

	s.data = data
	s.size = size
	return nil
}

func (s *Session) unmap() error {
	if s.data == nil {
		return nil
	}
	err := unix.Munmap(s.data)
	s.data = nil
	if err != nil {
		return newErr(KindIO, s.path, "munmap", err)
	}
	return nil
}

// Remap unmaps and remaps the file, making header and data bytes
// written since the last mapping observable. It must be called after
// any operation that grows the file; every Append* call does this for
// the caller.
func (s *Session) Remap() error {
	if err := s.unmap(); err != nil {
		return err
	}
	if err := s.mapFile(); err != nil {
		return err
	}
	hdr, err := parseHeader(s.data)
	if err != nil {
		return withPath(err, s.path)
	}
	s.hdr = hdr
	return nil
}

// Rewind resets the parse cursor to just past the header, and resets the
// remaining kv/tensor counters from the (possibly just-updated) header.
func (s *Session) Rewind() {
	s.rewindLocked()
}

func (s *Session) rewindLocked() {
	s.off = HeaderSize
	s.leftKV = s.hdr.KVCount
	s.leftTensors = s.hdr.TensorCount
	s.dataOff = 0
}

// Close releases the mapping and the file descriptor. It is safe to
// call on a session that failed partway through construction.
func (s *Session) Close() error {
	var first error
	if err := s.unmap(); err != nil && first == nil {
		first = err
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil && first == nil {
			first = newErr(KindIO, s.path, "close", err)
		}
		s.file = nil
	}
	return first
}

// Size returns the current mapped file size in bytes.
func (s *Session) Size() int64 { return s.size }

// Alignment returns the session's current alignment (32 by default,
// overridden by a general.alignment uint32 key observed so far).
func (s *Session) Alignment() uint64 { return s.alignment }

// Header fields, exposed read-only.
func (s *Session) TensorCount() uint64 { return s.hdr.TensorCount }
func (s *Session) MetadataCount() uint64 { return s.hdr.KVCount }

func withPath(err error, path string) error {
	if e, ok := err.(*Error); ok && e.Path == "" {
		e.Path = path
		return e
	}
	return err
}

func alignPadding(alignment, offset uint64) uint64 {
	if alignment == 0 {
		return 0
	}
	return (alignment - (offset % alignment)) % alignment
}
