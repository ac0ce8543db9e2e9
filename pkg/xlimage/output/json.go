package output

import (
	"encoding/json"

	"github.com/ukaji3/xlimage-go/pkg/xlimage"
)

// ManifestEntry describes one written image.
type ManifestEntry struct {
	SequenceIndex int    `json:"sequence_index"`
	File          string `json:"file,omitempty"`
	Kind          string `json:"kind"`
	Sheet         string `json:"sheet,omitempty"`
	Cell          string `json:"cell,omitempty"`
	ImageID       string `json:"image_id,omitempty"`
	Media         string `json:"media"`
	MIMEType      string `json:"mime_type,omitempty"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
}

// Manifest summarizes an extraction run and its written files.
type Manifest struct {
	BookName string          `json:"book_name"`
	Images   []ManifestEntry `json:"images"`
	Warnings []string        `json:"warnings,omitempty"`
	Errors   []string        `json:"errors,omitempty"`
}

// NewManifest builds a manifest. wr may be nil when nothing was written.
func NewManifest(res *xlimage.Result, wr *WriteResult) Manifest {
	files := make(map[int]string)
	m := Manifest{BookName: res.BookName, Images: make([]ManifestEntry, 0, len(res.Images))}
	if wr != nil {
		for _, f := range wr.Files {
			files[f.SequenceIndex] = f.Path
		}
		for _, err := range wr.Errors {
			m.Errors = append(m.Errors, err.Error())
		}
	}

	for _, img := range res.Images {
		m.Images = append(m.Images, ManifestEntry{
			SequenceIndex: img.SequenceIndex,
			File:          files[img.SequenceIndex],
			Kind:          string(img.Anchor.Kind),
			Sheet:         img.Anchor.Sheet.Name,
			Cell:          img.Anchor.Cell.Name(),
			ImageID:       img.Anchor.ImageID,
			Media:         img.Anchor.Media.Path,
			MIMEType:      img.MIMEType,
			Width:         img.Width,
			Height:        img.Height,
		})
	}
	for _, w := range res.Warnings {
		m.Warnings = append(m.Warnings, w.Error())
	}
	return m
}

// ToJSON serializes v, indented when pretty is set.
func ToJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
