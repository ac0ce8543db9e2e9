// Package output names extracted images and writes them to disk.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ukaji3/xlimage-go/pkg/xlimage"
	"github.com/ukaji3/xlimage-go/pkg/xlimage/models"
	"github.com/ukaji3/xlimage-go/pkg/xlimage/parser"
	"golang.org/x/text/unicode/norm"
)

// NamingMode selects how file names are built.
type NamingMode string

const (
	// NamingDefault names embedded images by id and floating images by media name.
	NamingDefault NamingMode = "default"
	// NamingCombination joins prefix, date and sequence number.
	NamingCombination NamingMode = "combination"
	// NamingColumns joins cell values from the image's row.
	NamingColumns NamingMode = "columns"
)

// Order is the arrangement of the combination parts.
type Order string

const (
	OrderPrefixDateSequence Order = "prefix_date_sequence"
	OrderPrefixSequenceDate Order = "prefix_sequence_date"
	OrderDatePrefixSequence Order = "date_prefix_sequence"
	OrderDateSequencePrefix Order = "date_sequence_prefix"
	OrderSequencePrefixDate Order = "sequence_prefix_date"
	OrderSequenceDatePrefix Order = "sequence_date_prefix"
)

const (
	defaultDateLayout     = "20060102"
	defaultSequenceDigits = 3
	maxNameBytes          = 200
)

// ErrInvalidNaming indicates an unusable naming configuration.
var ErrInvalidNaming = errors.New("invalid naming configuration")

// NamingConfig configures file naming.
type NamingConfig struct {
	Mode NamingMode `json:"mode"`

	// Combination naming.
	Prefix          string `json:"prefix,omitempty"`
	IncludeDate     bool   `json:"include_date,omitempty"`
	DateLayout      string `json:"date_layout,omitempty"` // Go time layout, default 20060102
	IncludeSequence bool   `json:"include_sequence,omitempty"`
	SequenceDigits  int    `json:"sequence_digits,omitempty"`
	Order           Order  `json:"order,omitempty"`

	// Column naming.
	Columns   []string `json:"columns,omitempty"`
	Separator string   `json:"separator,omitempty"`
}

// LoadNamingConfig reads a JSON naming configuration.
func LoadNamingConfig(path string) (NamingConfig, error) {
	var cfg NamingConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse naming config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c NamingConfig) Validate() error {
	switch c.Mode {
	case "", NamingDefault:
	case NamingCombination:
		switch c.Order {
		case "", OrderPrefixDateSequence, OrderPrefixSequenceDate, OrderDatePrefixSequence,
			OrderDateSequencePrefix, OrderSequencePrefixDate, OrderSequenceDatePrefix:
		default:
			return fmt.Errorf("%w: unknown order %q", ErrInvalidNaming, c.Order)
		}
		if c.SequenceDigits < 0 || c.SequenceDigits > 12 {
			return fmt.Errorf("%w: sequence digits %d", ErrInvalidNaming, c.SequenceDigits)
		}
	case NamingColumns:
		if len(c.Columns) == 0 {
			return fmt.Errorf("%w: no naming columns", ErrInvalidNaming)
		}
		for _, col := range c.Columns {
			if _, err := parser.ParseColumn(col); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidNaming, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidNaming, c.Mode)
	}
	return nil
}

// RowLookup returns cell values of a row keyed by column letters.
// *parser.RowReader implements it.
type RowLookup interface {
	RowValues(sheet string, row int, cols []int) (map[string]string, error)
}

// Namer builds base file names (without extension) for extracted images.
type Namer struct {
	cfg    NamingConfig
	cols   []int
	rows   RowLookup
	now    func() time.Time
	logger xlimage.Logger
}

// NewNamer validates cfg. rows is required for NamingColumns only.
func NewNamer(cfg NamingConfig, rows RowLookup) (*Namer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := &Namer{cfg: cfg, rows: rows, now: time.Now}
	if cfg.Mode == NamingColumns {
		if rows == nil {
			return nil, fmt.Errorf("%w: column naming needs a row reader", ErrInvalidNaming)
		}
		for _, c := range cfg.Columns {
			col, _ := parser.ParseColumn(c)
			n.cols = append(n.cols, col)
		}
	}
	return n, nil
}

// WithClock replaces the clock used for dates.
func (n *Namer) WithClock(now func() time.Time) *Namer {
	n.now = now
	return n
}

// WithLogger sets a logger for naming fallbacks.
func (n *Namer) WithLogger(l xlimage.Logger) *Namer {
	n.logger = l
	return n
}

// BaseName returns the unsanitized name of img without extension.
func (n *Namer) BaseName(img models.ExtractedImage) string {
	fallback := DefaultBaseName(img)

	switch n.cfg.Mode {
	case NamingCombination:
		if name := n.combination(img); name != "" {
			return name
		}
	case NamingColumns:
		if name := n.columns(img); name != "" {
			return name
		}
		n.warnf("no row values for image %d, using %q", img.SequenceIndex, fallback)
	}
	return fallback
}

func (n *Namer) combination(img models.ExtractedImage) string {
	var date, seq string
	if n.cfg.IncludeDate {
		layout := n.cfg.DateLayout
		if layout == "" {
			layout = defaultDateLayout
		}
		date = n.now().Format(layout)
	}
	if n.cfg.IncludeSequence {
		digits := n.cfg.SequenceDigits
		if digits == 0 {
			digits = defaultSequenceDigits
		}
		seq = fmt.Sprintf("%0*d", digits, img.SequenceIndex+1)
	}
	prefix := n.cfg.Prefix

	var parts []string
	switch n.cfg.Order {
	case OrderPrefixSequenceDate:
		parts = []string{prefix, seq, date}
	case OrderDatePrefixSequence:
		parts = []string{date, prefix, seq}
	case OrderDateSequencePrefix:
		parts = []string{date, seq, prefix}
	case OrderSequencePrefixDate:
		parts = []string{seq, prefix, date}
	case OrderSequenceDatePrefix:
		parts = []string{seq, date, prefix}
	default:
		parts = []string{prefix, date, seq}
	}

	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "_")
}

func (n *Namer) columns(img models.ExtractedImage) string {
	a := img.Anchor
	if a.Sheet.Name == "" || a.Cell.Row < 1 {
		return ""
	}
	values, err := n.rows.RowValues(a.Sheet.Name, a.Cell.Row, n.cols)
	if err != nil {
		n.warnf("read row %d of %q: %v", a.Cell.Row, a.Sheet.Name, err)
		return ""
	}

	parts := make([]string, 0, len(n.cols))
	empty := true
	for _, col := range n.cols {
		v := strings.TrimSpace(values[parser.ColumnName(col)])
		if v != "" {
			empty = false
		}
		parts = append(parts, v)
	}
	if empty {
		return ""
	}
	return strings.Join(parts, n.cfg.Separator)
}

func (n *Namer) warnf(f string, a ...any) {
	if n.logger != nil {
		n.logger.Warnf(f, a...)
	}
}

// DefaultBaseName names embedded images by their id and floating images
// FLOAT_<media name>.
func DefaultBaseName(img models.ExtractedImage) string {
	if img.Anchor.Kind == models.KindEmbedded && img.Anchor.ImageID != "" {
		return img.Anchor.ImageID
	}
	if img.Anchor.Media != nil {
		base := path.Base(img.Anchor.Media.Path)
		return "FLOAT_" + strings.TrimSuffix(base, path.Ext(base))
	}
	return "image_" + strconv.Itoa(img.SequenceIndex+1)
}

// SanitizeFileName makes name safe as a file name on common file systems.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r), unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimRight(strings.TrimSpace(b.String()), ". ")

	if len(out) > maxNameBytes {
		cut := maxNameBytes
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut]
	}
	if out == "" {
		return "image"
	}
	return out
}
