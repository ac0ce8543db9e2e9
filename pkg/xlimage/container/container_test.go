package container

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ukaji3/xlimage-go/internal/fixture"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestOpenClassifiesInput(t *testing.T) {
	valid, err := fixture.NewBuilder().Add("xl/workbook.xml", []byte("<workbook/>")).Bytes()
	if err != nil {
		t.Fatalf("build zip: %v", err)
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"valid zip", valid, nil},
		{"plain text", []byte("this is not a workbook"), ErrNotAnArchive},
		{"empty file", nil, ErrNotAnArchive},
		{"truncated zip", valid[:len(valid)/2], ErrCorruptArchive},
		{"compound file garbage", append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 64)...), ErrNotAnArchive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb, err := Open(writeTemp(t, "in.xlsx", tt.data))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Open() error = %v", err)
				}
				wb.Close()
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.xlsx"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open() error = %v, want os.ErrNotExist", err)
	}
}

func TestReadPart(t *testing.T) {
	data, err := fixture.NewBuilder().
		Add("xl/workbook.xml", []byte("<workbook/>")).
		Add("xl/media/Image1.PNG", []byte("png-bytes")).
		Bytes()
	if err != nil {
		t.Fatalf("build zip: %v", err)
	}

	wb, err := OpenReader(bytes.NewReader(data), int64(len(data)), "book.xlsx")
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer wb.Close()

	if wb.Name() != "book.xlsx" {
		t.Errorf("Name() = %q", wb.Name())
	}
	if got := len(wb.Parts()); got != 2 {
		t.Errorf("len(Parts()) = %d, want 2", got)
	}

	got, err := wb.ReadPart("/xl/workbook.xml")
	if err != nil || string(got) != "<workbook/>" {
		t.Errorf("ReadPart(leading slash) = %q, %v", got, err)
	}

	got, err = wb.ReadPart("xl/media/image1.png")
	if err != nil || string(got) != "png-bytes" {
		t.Errorf("ReadPart(case-folded) = %q, %v", got, err)
	}

	if _, err := wb.ReadPart("xl/missing.xml"); !errors.Is(err, ErrPartNotFound) {
		t.Errorf("ReadPart(missing) error = %v, want ErrPartNotFound", err)
	}
	if wb.HasPart("xl/missing.xml") {
		t.Error("HasPart(missing) = true")
	}
}

func TestReadAfterClose(t *testing.T) {
	data, err := fixture.NewBuilder().Add("a.xml", []byte("<a/>")).Bytes()
	if err != nil {
		t.Fatalf("build zip: %v", err)
	}
	wb, err := Open(writeTemp(t, "a.xlsx", data))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := wb.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := wb.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := wb.ReadPart("a.xml"); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadPart after Close error = %v, want ErrClosed", err)
	}
}
