package output

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ukaji3/xlimage-go/pkg/xlimage/models"
)

func floating(seq int, sheet string, cell models.CellRef, media string) models.ExtractedImage {
	return models.ExtractedImage{
		Anchor: models.Anchor{
			Kind:  models.KindFloating,
			Sheet: models.SheetDescriptor{Name: sheet},
			Cell:  cell,
			Media: &models.MediaPart{Path: media, Ext: "png"},
		},
		Ext:           "png",
		SequenceIndex: seq,
	}
}

func embedded(seq int, sheet string, cell models.CellRef, id string) models.ExtractedImage {
	img := floating(seq, sheet, cell, "xl/media/image9.png")
	img.Anchor.Kind = models.KindEmbedded
	img.Anchor.ImageID = id
	return img
}

// fakeRows serves row values from a map keyed by sheet and row.
type fakeRows map[string]map[int]map[string]string

func (f fakeRows) RowValues(sheet string, row int, cols []int) (map[string]string, error) {
	rows, ok := f[sheet]
	if !ok {
		return nil, errors.New("no such sheet")
	}
	return rows[row], nil
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)
}

func TestDefaultBaseName(t *testing.T) {
	tests := []struct {
		img      models.ExtractedImage
		expected string
	}{
		{embedded(0, "Sheet1", models.CellRef{Col: 2, Row: 2}, "ID_ABC"), "ID_ABC"},
		{floating(1, "Sheet1", models.CellRef{Col: 1, Row: 1}, "xl/media/image3.jpeg"), "FLOAT_image3"},
		{models.ExtractedImage{SequenceIndex: 4}, "image_5"},
	}

	for _, tt := range tests {
		if got := DefaultBaseName(tt.img); got != tt.expected {
			t.Errorf("DefaultBaseName() = %q, expected %q", got, tt.expected)
		}
	}
}

func TestCombinationOrders(t *testing.T) {
	img := floating(6, "Sheet1", models.CellRef{Col: 1, Row: 1}, "xl/media/image1.png")

	tests := []struct {
		order    Order
		expected string
	}{
		{"", "photo_20240309_007"},
		{OrderPrefixDateSequence, "photo_20240309_007"},
		{OrderPrefixSequenceDate, "photo_007_20240309"},
		{OrderDatePrefixSequence, "20240309_photo_007"},
		{OrderDateSequencePrefix, "20240309_007_photo"},
		{OrderSequencePrefixDate, "007_photo_20240309"},
		{OrderSequenceDatePrefix, "007_20240309_photo"},
	}

	for _, tt := range tests {
		namer, err := NewNamer(NamingConfig{
			Mode:            NamingCombination,
			Prefix:          "photo",
			IncludeDate:     true,
			IncludeSequence: true,
			Order:           tt.order,
		}, nil)
		if err != nil {
			t.Fatalf("NewNamer(%q) failed: %v", tt.order, err)
		}
		namer.WithClock(fixedClock)

		if got := namer.BaseName(img); got != tt.expected {
			t.Errorf("order %q: BaseName() = %q, expected %q", tt.order, got, tt.expected)
		}
	}
}

func TestCombinationPartial(t *testing.T) {
	img := embedded(0, "Sheet1", models.CellRef{Col: 1, Row: 1}, "ID_X")

	tests := []struct {
		name     string
		cfg      NamingConfig
		expected string
	}{
		{"prefix only", NamingConfig{Mode: NamingCombination, Prefix: "p"}, "p"},
		{"sequence width", NamingConfig{Mode: NamingCombination, IncludeSequence: true, SequenceDigits: 5}, "00001"},
		{"date layout", NamingConfig{Mode: NamingCombination, IncludeDate: true, DateLayout: "2006-01-02_150405"}, "2024-03-09_150405"},
		{"nothing set", NamingConfig{Mode: NamingCombination}, "ID_X"},
	}

	for _, tt := range tests {
		namer, err := NewNamer(tt.cfg, nil)
		if err != nil {
			t.Fatalf("%s: NewNamer failed: %v", tt.name, err)
		}
		namer.WithClock(fixedClock)
		if got := namer.BaseName(img); got != tt.expected {
			t.Errorf("%s: BaseName() = %q, expected %q", tt.name, got, tt.expected)
		}
	}
}

func TestColumnNaming(t *testing.T) {
	rows := fakeRows{
		"Sheet1": {
			3: {"A": "Tokyo", "C": " Shibuya "},
			4: {"A": "", "C": "Osaka"},
			5: {"A": "", "C": ""},
		},
	}
	namer, err := NewNamer(NamingConfig{Mode: NamingColumns, Columns: []string{"A", "3"}, Separator: "-"}, rows)
	if err != nil {
		t.Fatalf("NewNamer failed: %v", err)
	}

	tests := []struct {
		img      models.ExtractedImage
		expected string
	}{
		{embedded(0, "Sheet1", models.CellRef{Col: 2, Row: 3}, "ID_A"), "Tokyo-Shibuya"},
		{floating(1, "Sheet1", models.CellRef{Col: 5, Row: 4}, "xl/media/image1.png"), "-Osaka"},
		{embedded(2, "Sheet1", models.CellRef{Col: 2, Row: 5}, "ID_EMPTY"), "ID_EMPTY"},
		{embedded(3, "Other", models.CellRef{Col: 2, Row: 5}, "ID_OTHER"), "ID_OTHER"},
		{embedded(4, "", models.CellRef{}, "ID_NOSHEET"), "ID_NOSHEET"},
	}

	for _, tt := range tests {
		if got := namer.BaseName(tt.img); got != tt.expected {
			t.Errorf("BaseName(%s) = %q, expected %q", tt.img.Anchor.Cell.Name(), got, tt.expected)
		}
	}
}

func TestNamingConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     NamingConfig
		wantErr bool
	}{
		{"zero value", NamingConfig{}, false},
		{"default", NamingConfig{Mode: NamingDefault}, false},
		{"combination", NamingConfig{Mode: NamingCombination, Order: OrderDatePrefixSequence}, false},
		{"unknown order", NamingConfig{Mode: NamingCombination, Order: "prefix_prefix"}, true},
		{"too many digits", NamingConfig{Mode: NamingCombination, SequenceDigits: 40}, true},
		{"columns", NamingConfig{Mode: NamingColumns, Columns: []string{"B"}}, false},
		{"no columns", NamingConfig{Mode: NamingColumns}, true},
		{"bad column", NamingConfig{Mode: NamingColumns, Columns: []string{"B2"}}, true},
		{"unknown mode", NamingConfig{Mode: "random"}, true},
	}

	for _, tt := range tests {
		err := tt.cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidNaming) {
			t.Errorf("%s: expected ErrInvalidNaming, got %v", tt.name, err)
		}
	}

	if _, err := NewNamer(NamingConfig{Mode: NamingColumns, Columns: []string{"A"}}, nil); !errors.Is(err, ErrInvalidNaming) {
		t.Errorf("NewNamer without row reader error = %v, expected ErrInvalidNaming", err)
	}
}

func TestLoadNamingConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "naming.json")
	data := `{"mode": "combination", "prefix": "doc", "include_sequence": true, "sequence_digits": 2, "order": "sequence_prefix_date"}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadNamingConfig(path)
	if err != nil {
		t.Fatalf("LoadNamingConfig failed: %v", err)
	}
	if cfg.Mode != NamingCombination || cfg.Prefix != "doc" || !cfg.IncludeSequence ||
		cfg.SequenceDigits != 2 || cfg.Order != OrderSequencePrefixDate {
		t.Errorf("Unexpected config: %+v", cfg)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{mode:"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadNamingConfig(bad); err == nil {
		t.Error("Expected a parse error")
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"report", "report"},
		{`a/b\c:d*e?f"g<h>i|j`, "a_b_c_d_e_f_g_h_i_j"},
		{"tab\there", "tab_here"},
		{"  padded. ", "padded"},
		{"", "image"},
		{"...", "image"},
		{"\u304b\u3099", "\u304c"},
	}

	for _, tt := range tests {
		if got := SanitizeFileName(tt.input); got != tt.expected {
			t.Errorf("SanitizeFileName(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}

	long := SanitizeFileName(strings.Repeat("画", 100))
	if len(long) > maxNameBytes {
		t.Errorf("Expected at most %d bytes, got %d", maxNameBytes, len(long))
	}
	if !strings.HasPrefix(strings.Repeat("画", 100), long) {
		t.Error("Truncation split a multi-byte character")
	}
}
