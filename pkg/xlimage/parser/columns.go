package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrInvalidColumn indicates a column that is neither letters nor a 1-based index.
var ErrInvalidColumn = errors.New("invalid column")

// ParseColumn parses a column given as letters ("C", "aa") or a 1-based index ("3").
func ParseColumn(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidColumn)
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > excelize.MaxColumns {
			return 0, fmt.Errorf("%w: %q out of range", ErrInvalidColumn, s)
		}
		return n, nil
	}

	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return 0, fmt.Errorf("%w: %q", ErrInvalidColumn, s)
		}
	}
	n, err := excelize.ColumnNameToNumber(strings.ToUpper(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidColumn, s, err)
	}
	return n, nil
}

// ParseColumnSpec parses a comma separated list of columns and ranges such as
// "A,C-E,7". Duplicates are dropped; first-seen order is kept.
func ParseColumnSpec(spec string) ([]int, error) {
	var cols []int
	seen := make(map[int]bool)
	add := func(n int) {
		if !seen[n] {
			seen[n] = true
			cols = append(cols, n)
		}
	}

	for _, item := range strings.Split(spec, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(item, "-")
		if !isRange {
			n, err := ParseColumn(item)
			if err != nil {
				return nil, err
			}
			add(n)
			continue
		}

		start, err := ParseColumn(lo)
		if err != nil {
			return nil, err
		}
		end, err := ParseColumn(hi)
		if err != nil {
			return nil, err
		}
		if start > end {
			start, end = end, start
		}
		for n := start; n <= end; n++ {
			add(n)
		}
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: empty column list %q", ErrInvalidColumn, spec)
	}
	return cols, nil
}

// ColumnName renders a 1-based column index as letters.
func ColumnName(n int) string {
	name, err := excelize.ColumnNumberToName(n)
	if err != nil {
		return strconv.Itoa(n)
	}
	return name
}
