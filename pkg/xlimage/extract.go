package xlimage

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"slices"

	"github.com/ukaji3/xlimage-go/pkg/xlimage/container"
	"github.com/ukaji3/xlimage-go/pkg/xlimage/models"
	"github.com/ukaji3/xlimage-go/pkg/xlimage/parser"
)

// Result is the outcome of one extraction run.
type Result struct {
	// BookName is the workbook file name (no path).
	BookName string
	// Sheets lists every sheet of the workbook in declaration order.
	Sheets []models.SheetDescriptor
	// Images is the ordered output; Images[i].SequenceIndex == i.
	Images []models.ExtractedImage
	// Warnings collects recoverable problems.
	Warnings []models.Warning
}

// Extract extracts images from the workbook at path. The workbook is opened
// and closed within the call.
func Extract(path string, opts Options) (*Result, error) {
	if err := prepare(opts); err != nil {
		return nil, err
	}

	wb, err := container.Open(path)
	if err != nil {
		return nil, NewStructuralError(path, "", err)
	}
	defer wb.Close()

	return newRun(wb, path, opts).execute()
}

// ExtractWorkbook extracts images from an already open workbook. The caller
// keeps ownership of wb.
func ExtractWorkbook(wb *container.Workbook, opts Options) (*Result, error) {
	if err := prepare(opts); err != nil {
		return nil, err
	}
	return newRun(wb, wb.Name(), opts).execute()
}

func prepare(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if opts.EnvironmentCheck != nil {
		if err := opts.EnvironmentCheck(); err != nil {
			return fmt.Errorf("%w: %v", ErrEnvironmentDenied, err)
		}
	}
	return nil
}

type imageSize struct{ w, h int }

// run holds the state of one extraction over one workbook handle.
type run struct {
	wb   *container.Workbook
	path string
	opts Options

	sheets   []models.SheetDescriptor
	anchors  []models.Anchor
	warnings []models.Warning

	rels  map[string]*parser.Relationships
	media map[string]*models.MediaPart
	sizes map[string]imageSize

	index       *parser.EmbeddedIndex
	indexErr    error
	indexWarned bool
}

func newRun(wb *container.Workbook, path string, opts Options) *run {
	return &run{
		wb:    wb,
		path:  path,
		opts:  opts,
		rels:  make(map[string]*parser.Relationships),
		media: make(map[string]*models.MediaPart),
		sizes: make(map[string]imageSize),
	}
}

func (r *run) execute() (*Result, error) {
	sheets, err := parser.ListSheets(r.wb)
	if err != nil {
		return nil, NewStructuralError(r.path, "workbook", err)
	}
	r.sheets = sheets
	r.opts.logInfo("Found %d sheet(s)", len(sheets))

	targets := sheets
	if r.opts.Mode == ModeSheet || r.opts.Mode == ModeColumns {
		idx := slices.IndexFunc(sheets, func(s models.SheetDescriptor) bool { return s.Name == r.opts.Sheet })
		if idx < 0 {
			return nil, &StructuralError{Path: r.path, Sheet: r.opts.Sheet, Err: ErrSheetNotFound}
		}
		targets = sheets[idx : idx+1]
	}

	if r.opts.ShouldIncludeEmbedded() {
		r.index, r.indexErr = parser.ResolveEmbeddedIndex(r.wb)
		if r.indexErr != nil && r.opts.Mode == ModeIDs {
			return nil, NewStructuralError(r.path, "cell image index", r.indexErr)
		}
	}

	wanted := make(map[string]bool, len(r.opts.IDs))
	for _, id := range r.opts.IDs {
		wanted[id] = true
	}
	referenced := make(map[string]bool)

	for _, sheet := range targets {
		if sheet.Path == "" {
			r.warn(models.Warning{Sheet: sheet.Name, Ref: sheet.RelID, Err: fmt.Errorf("%w: sheet part", ErrRelationshipBroken)})
			continue
		}

		var floating, embedded int
		if r.opts.ShouldIncludeFloating() {
			floating = r.collectFloating(sheet)
		}
		if r.opts.ShouldIncludeEmbedded() {
			embedded = r.collectEmbedded(sheet, wanted, referenced)
		}
		r.opts.logInfo("Sheet %q: %d floating, %d embedded", sheet.Name, floating, embedded)
	}

	switch r.opts.Mode {
	case ModeIDs:
		r.collectUnreferenced(referenced)
	case ModeColumns:
		r.filterColumns()
	}

	slices.SortStableFunc(r.anchors, compareAnchors)

	res := &Result{
		BookName: filepath.Base(r.path),
		Sheets:   r.sheets,
		Images:   make([]models.ExtractedImage, 0, len(r.anchors)),
		Warnings: r.warnings,
	}
	for i, a := range r.anchors {
		size := r.sizeOf(a.Media)
		res.Images = append(res.Images, models.ExtractedImage{
			Anchor:        a,
			Data:          a.Media.Data,
			Ext:           a.Media.Ext,
			MIMEType:      parser.MIMEFromExt(a.Media.Ext),
			Width:         size.w,
			Height:        size.h,
			SequenceIndex: i,
		})
	}

	r.opts.logInfo("Extracted %d image(s) with %d warning(s)", len(res.Images), len(res.Warnings))
	return res, nil
}

// collectFloating adds the resolvable pictures of the sheet's drawing.
func (r *run) collectFloating(sheet models.SheetDescriptor) int {
	drawingPath, err := parser.ResolveSheetDrawing(r.wb, sheet)
	if err != nil {
		r.warn(models.Warning{Sheet: sheet.Name, Part: sheet.Path, Err: err})
		return 0
	}
	if drawingPath == "" {
		return 0
	}

	anchors, warnings, err := parser.ParseDrawing(r.wb, sheet, drawingPath)
	if err != nil {
		r.warn(models.Warning{Sheet: sheet.Name, Part: drawingPath, Err: err})
		return 0
	}
	for _, w := range warnings {
		r.warn(w)
	}

	n := 0
	for _, a := range anchors {
		media, err := r.resolveMedia(a.Owner, a.RelID)
		if err != nil {
			r.warn(models.Warning{Sheet: sheet.Name, Part: a.Owner, Ref: a.RelID, Err: err})
			continue
		}
		a.Media = media
		r.anchors = append(r.anchors, a)
		n++
	}
	return n
}

// collectEmbedded adds one anchor per DISPIMG formula cell. Ids repeated in
// several cells are extracted once per cell.
func (r *run) collectEmbedded(sheet models.SheetDescriptor, wanted, referenced map[string]bool) int {
	refs, err := parser.ScanCellFormulas(r.wb, sheet.Path)
	if err != nil {
		r.warn(models.Warning{Sheet: sheet.Name, Part: sheet.Path, Err: err})
	}

	n := 0
	for _, ref := range refs {
		if r.opts.Mode == ModeIDs && !wanted[ref.ImageID] {
			continue
		}
		referenced[ref.ImageID] = true

		if r.index == nil {
			if !r.indexWarned {
				r.indexWarned = true
				r.warn(models.Warning{Sheet: sheet.Name, Ref: ref.Cell.Name(), Err: r.indexErr})
			}
			continue
		}

		relID, ok := r.index.RelIDs[ref.ImageID]
		if !ok {
			r.warn(models.Warning{
				Sheet: sheet.Name, Part: r.index.Part, Ref: ref.Cell.Name() + " " + ref.ImageID,
				Err: ErrImageIDNotFound,
			})
			continue
		}

		media, err := r.resolveMedia(r.index.Part, relID)
		if err != nil {
			r.warn(models.Warning{Sheet: sheet.Name, Part: r.index.Part, Ref: ref.ImageID, Err: err})
			continue
		}

		r.anchors = append(r.anchors, models.Anchor{
			Kind:    models.KindEmbedded,
			Sheet:   sheet,
			Cell:    ref.Cell,
			ImageID: ref.ImageID,
			RelID:   relID,
			Owner:   r.index.Part,
			Media:   media,
		})
		n++
	}
	return n
}

// collectUnreferenced handles requested ids that no cell references: ids
// declared in the index are still extracted without a sheet, the others are
// reported as not found.
func (r *run) collectUnreferenced(referenced map[string]bool) {
	seen := make(map[string]bool)
	for _, id := range r.opts.IDs {
		if seen[id] || referenced[id] {
			continue
		}
		seen[id] = true

		if !r.index.Has(id) {
			r.warn(models.Warning{Ref: id, Err: ErrImageIDNotFound})
			continue
		}

		relID := r.index.RelIDs[id]
		media, err := r.resolveMedia(r.index.Part, relID)
		if err != nil {
			r.warn(models.Warning{Part: r.index.Part, Ref: id, Err: err})
			continue
		}
		r.anchors = append(r.anchors, models.Anchor{
			Kind:    models.KindEmbedded,
			Sheet:   models.SheetDescriptor{Index: -1},
			ImageID: id,
			RelID:   relID,
			Owner:   r.index.Part,
			Media:   media,
		})
	}
}

// filterColumns keeps anchors whose cell column was requested and reports
// requested columns that matched nothing.
func (r *run) filterColumns() {
	matched := make(map[int]bool)
	requested := make(map[int]bool)
	var order []int
	for _, c := range r.opts.Columns {
		n, _ := parser.ParseColumn(c) // validated before the run
		if !requested[n] {
			requested[n] = true
			order = append(order, n)
		}
	}

	kept := r.anchors[:0]
	for _, a := range r.anchors {
		if requested[a.Cell.Col] {
			matched[a.Cell.Col] = true
			kept = append(kept, a)
		}
	}
	r.anchors = kept

	for _, n := range order {
		if !matched[n] {
			r.warn(models.Warning{Sheet: r.opts.Sheet, Ref: "column " + parser.ColumnName(n), Err: ErrColumnNotFound})
		}
	}
}

// resolveMedia resolves relID in owner's relationships. Media parts are
// shared by every anchor that targets the same path.
func (r *run) resolveMedia(owner, relID string) (*models.MediaPart, error) {
	rels, ok := r.rels[owner]
	if !ok {
		var err error
		rels, err = parser.ReadRelationships(r.wb, owner)
		if err != nil {
			return nil, err
		}
		r.rels[owner] = rels
	}

	target, err := rels.Resolve(relID)
	if err != nil {
		return nil, err
	}
	if m, ok := r.media[target]; ok {
		return m, nil
	}

	m, err := parser.ResolveMediaFrom(r.wb, rels, relID)
	if err != nil {
		return nil, err
	}
	r.media[m.Path] = m
	return m, nil
}

func (r *run) sizeOf(m *models.MediaPart) imageSize {
	if s, ok := r.sizes[m.Path]; ok {
		return s
	}
	w, h := parser.ImageSize(m.Data)
	s := imageSize{w, h}
	r.sizes[m.Path] = s
	return s
}

func (r *run) warn(w models.Warning) {
	if w.Err == nil {
		w.Err = errors.New("unknown problem")
	}
	r.warnings = append(r.warnings, w)
	r.opts.logWarn("%v", &w)
}

// compareAnchors orders by sheet, floating before embedded, row, then column.
// Sheet-less anchors sort last.
func compareAnchors(a, b models.Anchor) int {
	return cmp.Or(
		cmp.Compare(sheetOrder(a), sheetOrder(b)),
		cmp.Compare(kindOrder(a.Kind), kindOrder(b.Kind)),
		cmp.Compare(a.Cell.Row, b.Cell.Row),
		cmp.Compare(a.Cell.Col, b.Cell.Col),
	)
}

func sheetOrder(a models.Anchor) int {
	if a.Sheet.Index < 0 {
		return math.MaxInt
	}
	return a.Sheet.Index
}

func kindOrder(k models.AnchorKind) int {
	if k == models.KindFloating {
		return 0
	}
	return 1
}
