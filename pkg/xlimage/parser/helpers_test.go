package parser

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/ukaji3/xlimage-go/internal/fixture"
	"github.com/ukaji3/xlimage-go/pkg/xlimage/container"
	"github.com/ukaji3/xlimage-go/pkg/xlimage/models"
)

// partMap is an in-memory PartReader.
type partMap map[string]string

func (p partMap) ReadPart(name string) ([]byte, error) {
	data, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", container.ErrPartNotFound, name)
	}
	return []byte(data), nil
}

func (p partMap) HasPart(name string) bool {
	_, ok := p[name]
	return ok
}

func openFixture(t *testing.T, wb fixture.Workbook) *container.Workbook {
	t.Helper()
	data, err := fixture.Build(wb).Bytes()
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	w, err := container.OpenReader(bytes.NewReader(data), int64(len(data)), "fixture.xlsx")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func sheetAt(path string) models.SheetDescriptor {
	return models.SheetDescriptor{Name: "Sheet1", Path: path, RelID: "rId1"}
}

const relsHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`
