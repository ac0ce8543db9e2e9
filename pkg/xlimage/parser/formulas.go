package parser

import (
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"strconv"

	"github.com/ukaji3/xlimage-go/pkg/xlimage/models"
	"github.com/xuri/excelize/v2"
)

// imageFormulaPattern matches a whole DISPIMG("<id>", <n>) formula. The
// leading '=' and the _xlfn. prefix are optional.
var imageFormulaPattern = regexp.MustCompile(`(?i)^\s*=?\s*(?:_xlfn\.)?DISPIMG\(\s*"([^"]+)"\s*(?:,\s*-?\d+\s*)?\)\s*$`)

// FormulaRef is a cell whose formula references an embedded image.
type FormulaRef struct {
	Cell    models.CellRef
	ImageID string
}

// MatchImageFormula reports whether formula is an image reference and returns its id.
func MatchImageFormula(formula string) (string, bool) {
	m := imageFormulaPattern.FindStringSubmatch(formula)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ScanCellFormulas returns the image-referencing formula cells of a sheet
// part in document order. Other formulas are ignored. On a syntax error the
// cells found so far are returned with the error.
func ScanCellFormulas(r PartReader, sheetPath string) ([]FormulaRef, error) {
	data, err := r.ReadPart(sheetPath)
	if err != nil {
		return nil, err
	}

	var refs []FormulaRef
	var curRow, curCol int
	var cell models.CellRef

	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return refs, err
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "row":
			// r is optional; without it rows follow each other.
			curRow++
			if v := attrValue(se, "r"); v != "" {
				if n, err := strconv.Atoi(v); err == nil && n > 0 {
					curRow = n
				}
			}
			curCol = 0
		case "c":
			curCol++
			if v := attrValue(se, "r"); v != "" {
				if col, row, err := excelize.CellNameToCoordinates(v); err == nil {
					curCol, curRow = col, row
				}
			}
			cell = models.CellRef{Col: curCol, Row: curRow}
		case "f":
			text, err := readElementText(decoder)
			if err != nil {
				return refs, err
			}
			if id, ok := MatchImageFormula(text); ok {
				refs = append(refs, FormulaRef{Cell: cell, ImageID: id})
			}
		}
	}

	return refs, nil
}

func attrValue(se xml.StartElement, local string) string {
	for _, attr := range se.Attr {
		if attr.Name.Local == local && attr.Name.Space == "" {
			return attr.Value
		}
	}
	return ""
}
