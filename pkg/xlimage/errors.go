package xlimage

import (
	"errors"
	"fmt"

	"github.com/ukaji3/xlimage-go/pkg/xlimage/container"
	"github.com/ukaji3/xlimage-go/pkg/xlimage/models"
	"github.com/ukaji3/xlimage-go/pkg/xlimage/parser"
)

// Structural failures.
var (
	ErrNotAnArchive         = container.ErrNotAnArchive
	ErrCorruptArchive       = container.ErrCorruptArchive
	ErrEncryptedWorkbook    = container.ErrEncryptedWorkbook
	ErrLegacyWorkbook       = container.ErrLegacyWorkbook
	ErrPartNotFound         = container.ErrPartNotFound
	ErrEmbeddedIndexMissing = parser.ErrEmbeddedIndexMissing
)

// ErrSheetNotFound indicates no sheet has the requested name.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrEnvironmentDenied indicates the environment check rejected the run.
var ErrEnvironmentDenied = errors.New("environment check failed")

// Resolution warnings.
var (
	ErrRelationshipBroken = parser.ErrRelationshipBroken
	ErrAnchorPosition     = parser.ErrAnchorPosition
	ErrColumnNotFound     = errors.New("column not found")
	ErrImageIDNotFound    = errors.New("image id not found")
)

// Mode parameter failures.
var (
	ErrInvalidMode      = errors.New("invalid mode")
	ErrInvalidSheetName = errors.New("invalid sheet name")
	ErrInvalidColumn    = parser.ErrInvalidColumn
	ErrInvalidImageID   = errors.New("invalid image id")
)

// ResolutionWarning is a recoverable problem collected in Result.Warnings.
type ResolutionWarning = models.Warning

// StructuralError is a fatal failure that aborts the run.
type StructuralError struct {
	Path  string
	Part  string
	Sheet string
	Err   error
}

func (e *StructuralError) Error() string {
	switch {
	case e.Sheet != "":
		return fmt.Sprintf("%s: sheet %q: %v", e.Path, e.Sheet, e.Err)
	case e.Part != "":
		return fmt.Sprintf("%s: part %s: %v", e.Path, e.Part, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// NewStructuralError creates a new StructuralError.
func NewStructuralError(path, part string, err error) *StructuralError {
	return &StructuralError{
		Path: path,
		Part: part,
		Err:  err,
	}
}

// ModeParameterError reports malformed mode parameters. It is returned
// before the workbook is touched.
type ModeParameterError struct {
	Param string
	Value string
	Err   error
}

func (e *ModeParameterError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %v", e.Param, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Param, e.Value, e.Err)
}

func (e *ModeParameterError) Unwrap() error {
	return e.Err
}

// NewModeParameterError creates a new ModeParameterError.
func NewModeParameterError(param, value string, err error) *ModeParameterError {
	return &ModeParameterError{
		Param: param,
		Value: value,
		Err:   err,
	}
}
