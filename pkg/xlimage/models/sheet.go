// Package models defines data structures for workbook image extraction.
package models

// SheetDescriptor identifies a sheet declared in the workbook part.
type SheetDescriptor struct {
	// Name is the sheet tab name.
	Name string `json:"name"`
	// Index is the 0-based declaration order in the workbook part.
	Index int `json:"index"`
	// RelID is the workbook relationship id of the sheet part.
	RelID string `json:"rel_id"`
	// Path is the resolved sheet part path (empty if the relationship is broken).
	Path string `json:"path,omitempty"`
}
