// Package xlimage extracts embedded and floating images from OOXML workbooks.
package xlimage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ukaji3/xlimage-go/pkg/xlimage/parser"
)

// Mode represents the extraction mode.
type Mode string

const (
	// ModeWorkbook extracts floating and embedded images of every sheet.
	ModeWorkbook Mode = "workbook"
	// ModeSheet extracts the images of one sheet.
	ModeSheet Mode = "sheet"
	// ModeColumns extracts the images of one sheet anchored in the given columns.
	ModeColumns Mode = "columns"
	// ModeIDs extracts the embedded images with the given ids.
	ModeIDs Mode = "ids"
	// ModeFloating extracts floating images only.
	ModeFloating Mode = "floating"
)

var imageIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Logger receives progress messages. A nil Logger means silent operation.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Options configures extraction behavior.
type Options struct {
	// Mode specifies the extraction mode.
	Mode Mode
	// Sheet is the exact, case-sensitive sheet name for ModeSheet and ModeColumns.
	Sheet string
	// Columns lists letters or 1-based indices for ModeColumns.
	Columns []string
	// IDs lists the image ids for ModeIDs.
	IDs []string
	// IncludeFloating specifies whether to include floating images in
	// ModeWorkbook, ModeSheet and ModeColumns. If nil, defaults to true.
	IncludeFloating *bool
	// EnvironmentCheck, when set, is called once before the workbook is
	// opened; an error aborts the run.
	EnvironmentCheck func() error
	// Logger receives progress messages (nil = silent).
	Logger Logger
}

// DefaultOptions returns default extraction options.
func DefaultOptions() Options {
	return Options{
		Mode: ModeWorkbook,
	}
}

// ShouldIncludeFloating returns whether floating images are extracted.
func (o Options) ShouldIncludeFloating() bool {
	switch o.Mode {
	case ModeIDs:
		return false
	case ModeFloating:
		return true
	}
	if o.IncludeFloating != nil {
		return *o.IncludeFloating
	}
	return true
}

// ShouldIncludeEmbedded returns whether embedded images are extracted.
func (o Options) ShouldIncludeEmbedded() bool {
	return o.Mode != ModeFloating
}

// Validate checks the mode parameters before any IO.
func (o Options) Validate() error {
	switch o.Mode {
	case ModeWorkbook, ModeFloating:
		return nil
	case ModeSheet:
		return validateSheet(o.Sheet)
	case ModeColumns:
		if err := validateSheet(o.Sheet); err != nil {
			return err
		}
		if len(o.Columns) == 0 {
			return NewModeParameterError("columns", "", fmt.Errorf("%w: no columns", parser.ErrInvalidColumn))
		}
		for _, c := range o.Columns {
			if _, err := parser.ParseColumn(c); err != nil {
				return NewModeParameterError("columns", c, err)
			}
		}
		return nil
	case ModeIDs:
		if len(o.IDs) == 0 {
			return NewModeParameterError("ids", "", ErrInvalidImageID)
		}
		for _, id := range o.IDs {
			if !imageIDPattern.MatchString(id) {
				return NewModeParameterError("ids", id, ErrInvalidImageID)
			}
		}
		return nil
	case "":
		return NewModeParameterError("mode", "", ErrInvalidMode)
	default:
		return NewModeParameterError("mode", string(o.Mode), ErrInvalidMode)
	}
}

func validateSheet(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewModeParameterError("sheet", name, ErrInvalidSheetName)
	}
	return nil
}

func (o *Options) logInfo(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Infof(f, a...)
	}
}

func (o *Options) logWarn(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Warnf(f, a...)
	}
}
