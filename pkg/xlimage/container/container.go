// Package container reads the zip package that backs an OOXML workbook.
package container

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/richardlehane/mscfb"
)

var (
	// ErrNotAnArchive indicates the input is not a zip container.
	ErrNotAnArchive = errors.New("not a zip archive")
	// ErrCorruptArchive indicates a zip signature was found but the central directory is unreadable.
	ErrCorruptArchive = errors.New("corrupt zip archive")
	// ErrPartNotFound indicates the requested part is absent from the package.
	ErrPartNotFound = errors.New("part not found")
	// ErrEncryptedWorkbook indicates a password-protected workbook (an OLE2 wrapper around the package).
	ErrEncryptedWorkbook = fmt.Errorf("%w: encrypted workbook", ErrNotAnArchive)
	// ErrLegacyWorkbook indicates a binary BIFF (.xls) workbook.
	ErrLegacyWorkbook = fmt.Errorf("%w: legacy binary workbook", ErrNotAnArchive)
	// ErrClosed is returned by reads on a closed workbook.
	ErrClosed = errors.New("workbook closed")
)

var (
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	cfbMagic      = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Workbook is an open workbook package. It is not safe for concurrent use.
type Workbook struct {
	name   string
	closer io.Closer
	files  map[string]*zip.File
	folded map[string]string // lower-case name -> actual name
	names  []string
	cache  map[string][]byte
	closed bool
}

// Open opens the workbook at path. The caller must Close it.
func Open(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	wb, err := newWorkbook(f, info.Size(), filepath.Base(path), f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return wb, nil
}

// OpenReader opens a workbook held in r. name is used for diagnostics only.
func OpenReader(r io.ReaderAt, size int64, name string) (*Workbook, error) {
	return newWorkbook(r, size, name, nil)
}

func newWorkbook(r io.ReaderAt, size int64, name string, closer io.Closer) (*Workbook, error) {
	head := make([]byte, len(cfbMagic))
	n, _ := r.ReadAt(head, 0)
	head = head[:n]

	if bytes.HasPrefix(head, cfbMagic) {
		return nil, probeCompoundFile(r)
	}

	zr, err := zip.NewReader(r, size)
	if err != nil {
		if bytes.HasPrefix(head, zipMagic) || bytes.HasPrefix(head, zipEmptyMagic) {
			return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrNotAnArchive, err)
	}

	wb := &Workbook{
		name:   name,
		closer: closer,
		files:  make(map[string]*zip.File, len(zr.File)),
		folded: make(map[string]string, len(zr.File)),
		cache:  make(map[string][]byte),
	}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		wb.files[f.Name] = f
		wb.folded[strings.ToLower(f.Name)] = f.Name
		wb.names = append(wb.names, f.Name)
	}

	return wb, nil
}

// probeCompoundFile classifies an OLE2 compound file. Office stores encrypted
// OOXML packages inside one as an EncryptedPackage stream.
func probeCompoundFile(r io.ReaderAt) error {
	doc, err := mscfb.New(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotAnArchive, err)
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name == "EncryptedPackage" {
			return ErrEncryptedWorkbook
		}
	}
	return ErrLegacyWorkbook
}

// Name returns the base name the workbook was opened with.
func (w *Workbook) Name() string {
	return w.name
}

// Parts returns the part names in archive order.
func (w *Workbook) Parts() []string {
	out := make([]string, len(w.names))
	copy(out, w.names)
	return out
}

// HasPart reports whether the package contains the named part.
func (w *Workbook) HasPart(name string) bool {
	_, ok := w.lookup(name)
	return ok
}

// ReadPart returns the bytes of the named part. Results are cached for the
// lifetime of the handle, so callers must not modify the returned slice.
func (w *Workbook) ReadPart(name string) ([]byte, error) {
	if w.closed {
		return nil, ErrClosed
	}

	f, ok := w.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPartNotFound, name)
	}
	if data, ok := w.cache[f.Name]; ok {
		return data, nil
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read part %s: %w", f.Name, err)
	}
	w.cache[f.Name] = data
	return data, nil
}

// Close releases the underlying file. Further reads fail with ErrClosed.
func (w *Workbook) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.cache = nil
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// lookup matches exactly first, then case-insensitively: OPC part names are
// compared without regard to case.
func (w *Workbook) lookup(name string) (*zip.File, bool) {
	name = strings.TrimPrefix(name, "/")
	if f, ok := w.files[name]; ok {
		return f, true
	}
	if actual, ok := w.folded[strings.ToLower(name)]; ok {
		return w.files[actual], true
	}
	return nil, false
}
