package parser

import (
	"testing"

	"github.com/ukaji3/xlimage-go/pkg/xlimage/models"
)

func TestMatchImageFormula(t *testing.T) {
	tests := []struct {
		formula string
		id      string
		ok      bool
	}{
		{`_xlfn.DISPIMG("ID_5F1C2A0B3E",1)`, "ID_5F1C2A0B3E", true},
		{`=DISPIMG("ID_ABC", 1)`, "ID_ABC", true},
		{`dispimg("lower")`, "lower", true},
		{` _xlfn.DISPIMG( "spaced" , -1 ) `, "spaced", true},
		{`SUM(A1:A3)`, "", false},
		{`DISPIMG(A1,1)`, "", false},
		{`IF(A1,_xlfn.DISPIMG("nested",1),"")`, "", false},
		{`DISPIMG("",1)`, "", false},
		{``, "", false},
	}

	for _, tt := range tests {
		id, ok := MatchImageFormula(tt.formula)
		if id != tt.id || ok != tt.ok {
			t.Errorf("MatchImageFormula(%q) = (%q, %v), expected (%q, %v)",
				tt.formula, id, ok, tt.id, tt.ok)
		}
	}
}

func TestScanCellFormulas(t *testing.T) {
	sheet := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>` +
		`<row r="2"><c r="A2" t="str"><f>_xlfn.DISPIMG("ID_ONE",1)</f><v>=DISPIMG("ID_ONE",1)</v></c>` +
		`<c r="B2"><f>SUM(1,2)</f><v>3</v></c>` +
		`<c r="D2" t="str"><f>_xlfn.DISPIMG("ID_TWO",1)</f></c></row>` +
		// Rows and cells without r attributes follow their predecessors.
		`<row><c><v>1</v></c><c t="str"><f>_xlfn.DISPIMG("ID_THREE",1)</f></c></row>` +
		`<row r="10"><c r="C10" t="str"><f>_xlfn.DISPIMG("ID_ONE",1)</f></c></row>` +
		`</sheetData></worksheet>`

	refs, err := ScanCellFormulas(partMap{"xl/worksheets/sheet1.xml": sheet}, "xl/worksheets/sheet1.xml")
	if err != nil {
		t.Fatalf("ScanCellFormulas failed: %v", err)
	}

	expected := []FormulaRef{
		{Cell: models.CellRef{Col: 1, Row: 2}, ImageID: "ID_ONE"},
		{Cell: models.CellRef{Col: 4, Row: 2}, ImageID: "ID_TWO"},
		{Cell: models.CellRef{Col: 2, Row: 3}, ImageID: "ID_THREE"},
		{Cell: models.CellRef{Col: 3, Row: 10}, ImageID: "ID_ONE"},
	}
	if len(refs) != len(expected) {
		t.Fatalf("Expected %d refs, got %d: %+v", len(expected), len(refs), refs)
	}
	for i, e := range expected {
		if refs[i] != e {
			t.Errorf("refs[%d] = %+v, expected %+v", i, refs[i], e)
		}
	}
}

func TestScanCellFormulasTruncated(t *testing.T) {
	sheet := `<worksheet><sheetData><row r="1"><c r="A1"><f>DISPIMG("ID_A",1)</f></c></row><row r="2"><c r="A2"><f>DISPIMG(`

	refs, err := ScanCellFormulas(partMap{"s.xml": sheet}, "s.xml")
	if err == nil {
		t.Error("Expected a syntax error")
	}
	if len(refs) != 1 || refs[0].ImageID != "ID_A" {
		t.Errorf("Expected the refs found before the error, got %+v", refs)
	}
}
