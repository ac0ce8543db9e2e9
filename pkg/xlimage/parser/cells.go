package parser

import (
	"github.com/ukaji3/xlimage-go/pkg/xlimage/models"
	"github.com/xuri/excelize/v2"
)

// RowReader reads cell values of a workbook for naming images after the
// content of their row.
type RowReader struct {
	f     *excelize.File
	owned bool
}

// OpenRowReader opens the workbook at path. The caller must Close it.
func OpenRowReader(path string) (*RowReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &RowReader{f: f, owned: true}, nil
}

// NewRowReader wraps an already open file; Close leaves it open.
func NewRowReader(f *excelize.File) *RowReader {
	return &RowReader{f: f}
}

// Close closes the file if the reader opened it.
func (r *RowReader) Close() error {
	if r.owned {
		return r.f.Close()
	}
	return nil
}

// RowValues returns the formatted values of cols (1-based) in row, keyed by
// column letters. Empty cells are included as "".
func (r *RowReader) RowValues(sheet string, row int, cols []int) (map[string]string, error) {
	values := make(map[string]string, len(cols))
	for _, col := range cols {
		ref := models.CellRef{Col: col, Row: row}
		v, err := r.f.GetCellValue(sheet, ref.Name())
		if err != nil {
			return nil, err
		}
		values[ref.ColumnName()] = v
	}
	return values, nil
}
