package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

const defaultCellImagesPart = "xl/cellimages.xml"

// ErrEmbeddedIndexMissing indicates the workbook has no cell image index part.
var ErrEmbeddedIndexMissing = errors.New("embedded image index missing")

// EmbeddedIndex maps DISPIMG ids to media relationship ids of the index part.
type EmbeddedIndex struct {
	// Part is the index part name, whose relationships resolve the ids.
	Part string
	// RelIDs maps image id to relationship id.
	RelIDs map[string]string
	// Order lists image ids in declaration order.
	Order []string
}

// Has reports whether id is declared in the index.
func (x *EmbeddedIndex) Has(id string) bool {
	if x == nil {
		return false
	}
	_, ok := x.RelIDs[id]
	return ok
}

// FindEmbeddedIndexPart locates the cell image index part, either through a
// workbook relationship or at its conventional location.
func FindEmbeddedIndexPart(r PartReader) (string, error) {
	if wbPart, err := WorkbookPart(r); err == nil {
		rels, err := ReadRelationships(r, wbPart)
		if err != nil {
			return "", err
		}
		if rel, ok := rels.FindByType("/cellimage"); ok {
			if p, err := rels.Resolve(rel.ID); err == nil && r.HasPart(p) {
				return p, nil
			}
		}
	}
	if r.HasPart(defaultCellImagesPart) {
		return defaultCellImagesPart, nil
	}
	return "", ErrEmbeddedIndexMissing
}

// ResolveEmbeddedIndex parses the cell image index part. Each picture's
// non-visual name is the id used by DISPIMG formulas.
func ResolveEmbeddedIndex(r PartReader) (*EmbeddedIndex, error) {
	part, err := FindEmbeddedIndexPart(r)
	if err != nil {
		return nil, err
	}
	data, err := r.ReadPart(part)
	if err != nil {
		return nil, err
	}

	index := &EmbeddedIndex{Part: part, RelIDs: make(map[string]string)}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", part, err)
		}

		se, ok := token.(xml.StartElement)
		if !ok || se.Name.Local != "pic" {
			continue
		}
		pic, err := parsePicture(decoder)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", part, err)
		}
		if pic.name == "" || pic.embed == "" {
			slog.Debug("xlimage: incomplete cell image entry", "part", part, "name", pic.name)
			continue
		}
		if _, dup := index.RelIDs[pic.name]; dup {
			slog.Debug("xlimage: duplicate cell image id", "part", part, "id", pic.name)
			continue
		}
		index.RelIDs[pic.name] = pic.embed
		index.Order = append(index.Order, pic.name)
	}

	return index, nil
}
