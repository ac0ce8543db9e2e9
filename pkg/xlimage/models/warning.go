package models

import (
	"fmt"
	"strings"
)

// Warning is a recoverable problem encountered during extraction. The run
// continues and returns whatever did resolve.
type Warning struct {
	Sheet string
	Part  string
	// Ref names the offending item: a relationship id, cell, column or image id.
	Ref string
	Err error
}

func (w *Warning) Error() string {
	var loc []string
	if w.Sheet != "" {
		loc = append(loc, fmt.Sprintf("sheet %q", w.Sheet))
	}
	if w.Part != "" {
		loc = append(loc, "part "+w.Part)
	}
	if w.Ref != "" {
		loc = append(loc, w.Ref)
	}
	if len(loc) == 0 {
		return w.Err.Error()
	}
	return fmt.Sprintf("%s: %v", strings.Join(loc, ", "), w.Err)
}

func (w *Warning) Unwrap() error {
	return w.Err
}
