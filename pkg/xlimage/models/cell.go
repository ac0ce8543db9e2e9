package models

import "github.com/xuri/excelize/v2"

// CellRef is a 1-based cell coordinate. The zero value means no cell.
type CellRef struct {
	// Col is the column index (1-based).
	Col int `json:"col"`
	// Row is the row index (1-based).
	Row int `json:"row"`
}

// IsZero reports whether c refers to no cell.
func (c CellRef) IsZero() bool {
	return c.Col == 0 && c.Row == 0
}

// Name returns the A1-style reference, or "" for the zero value.
func (c CellRef) Name() string {
	if c.IsZero() {
		return ""
	}
	name, err := excelize.CoordinatesToCellName(c.Col, c.Row)
	if err != nil {
		return ""
	}
	return name
}

// ColumnName returns the column letters, or "" for the zero value.
func (c CellRef) ColumnName() string {
	if c.Col < 1 {
		return ""
	}
	name, err := excelize.ColumnNumberToName(c.Col)
	if err != nil {
		return ""
	}
	return name
}

// Offset is a pixel offset inside a cell.
type Offset struct {
	X int `json:"x"`
	Y int `json:"y"`
}
