package models

// AnchorKind distinguishes how an image is attached to a sheet.
type AnchorKind string

const (
	// KindFloating is a picture placed on the sheet's drawing canvas.
	KindFloating AnchorKind = "floating"
	// KindEmbedded is a picture referenced by id from a DISPIMG cell formula.
	KindEmbedded AnchorKind = "embedded"
)

// MediaPart is a package part holding raw image bytes.
type MediaPart struct {
	// Path is the part name, e.g. "xl/media/image1.png".
	Path string `json:"path"`
	// Data is the raw image bytes.
	Data []byte `json:"-"`
	// Ext is the lower-case suffix of Path without the dot.
	Ext string `json:"ext"`
}

// Anchor links a media part to its origin within the workbook.
type Anchor struct {
	Kind  AnchorKind      `json:"kind"`
	Sheet SheetDescriptor `json:"sheet"`
	// Cell is the top-left cell for floating images, or the formula cell for embedded ones.
	Cell CellRef `json:"cell"`
	// To is the bottom-right cell of a two-cell floating anchor.
	To *CellRef `json:"to,omitempty"`
	// Offset is the placement offset inside Cell, in pixels.
	Offset Offset `json:"offset"`
	// Name and Descr come from the picture's non-visual properties.
	Name  string `json:"name,omitempty"`
	Descr string `json:"descr,omitempty"`
	// ImageID is the DISPIMG id (embedded only).
	ImageID string `json:"image_id,omitempty"`
	// RelID is the relationship id, in Owner's relationship part, of the media.
	RelID string `json:"rel_id,omitempty"`
	// Owner is the part whose relationships resolve RelID (drawing or cell image index).
	Owner string     `json:"owner,omitempty"`
	Media *MediaPart `json:"media,omitempty"`
}

// ExtractedImage is one image produced by an extraction run.
type ExtractedImage struct {
	Anchor Anchor `json:"anchor"`
	// Data is the raw image bytes, shared with Anchor.Media.
	Data []byte `json:"-"`
	// Ext is the file extension inferred from the media part path.
	Ext      string `json:"ext"`
	MIMEType string `json:"mime_type,omitempty"`
	// Width and Height are decoded from the image header; 0 when unknown.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
	// SequenceIndex is the 0-based position in the run's output.
	SequenceIndex int `json:"sequence_index"`
}

// SheetName returns the originating sheet name.
func (e ExtractedImage) SheetName() string {
	return e.Anchor.Sheet.Name
}

// ImageID returns the embedded image id, or "" for floating images.
func (e ExtractedImage) ImageID() string {
	return e.Anchor.ImageID
}
