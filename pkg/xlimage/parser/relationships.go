// Package parser reads the OOXML parts of a workbook package: relationships,
// drawings, cell formulas and the cell image index.
package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ukaji3/xlimage-go/pkg/xlimage/container"
	"github.com/ukaji3/xlimage-go/pkg/xlimage/models"
)

// XML namespaces matched by attribute or element
const (
	nsR  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsMC = "http://schemas.openxmlformats.org/markup-compatibility/2006"
)

const defaultWorkbookPart = "xl/workbook.xml"

// ErrRelationshipBroken indicates a relationship id with no usable target.
var ErrRelationshipBroken = errors.New("relationship broken")

// PartReader is the subset of *container.Workbook the parsers need.
type PartReader interface {
	ReadPart(name string) ([]byte, error)
	HasPart(name string) bool
}

// Relationship is one entry of a relationship part.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// Relationships holds the parsed relationship part of Owner.
type Relationships struct {
	Owner string
	List  []Relationship
	byID  map[string]int
}

type relationshipsXML struct {
	XMLName xml.Name       `xml:"Relationships"`
	Rels    []Relationship `xml:"Relationship"`
}

// RelsPathFor returns the relationship part name for owner,
// e.g. "xl/worksheets/_rels/sheet1.xml.rels". An empty owner is the package root.
func RelsPathFor(owner string) string {
	if owner == "" {
		return "_rels/.rels"
	}
	dir, file := path.Split(owner)
	return dir + "_rels/" + file + ".rels"
}

// ResolveTarget resolves a relationship target against the owner part.
func ResolveTarget(owner, target string) string {
	target = strings.ReplaceAll(target, "\\", "/")
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	resolved := path.Join(path.Dir(owner), target)
	return strings.TrimPrefix(resolved, "/")
}

// ReadRelationships parses the relationship part of owner. A missing part
// yields an empty set: a part without relationships is not an error.
func ReadRelationships(r PartReader, owner string) (*Relationships, error) {
	rels := &Relationships{Owner: owner, byID: make(map[string]int)}

	relsPath := RelsPathFor(owner)
	if !r.HasPart(relsPath) {
		return rels, nil
	}
	data, err := r.ReadPart(relsPath)
	if err != nil {
		return nil, err
	}

	var doc relationshipsXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", relsPath, err)
	}
	for _, rel := range doc.Rels {
		if _, dup := rels.byID[rel.ID]; dup {
			continue
		}
		rels.byID[rel.ID] = len(rels.List)
		rels.List = append(rels.List, rel)
	}
	return rels, nil
}

// Get returns the relationship with the given id.
func (r *Relationships) Get(id string) (Relationship, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Relationship{}, false
	}
	return r.List[i], true
}

// Resolve returns the package part targeted by id.
func (r *Relationships) Resolve(id string) (string, error) {
	rel, ok := r.Get(id)
	switch {
	case !ok:
		return "", fmt.Errorf("%w: %s has no target in %s", ErrRelationshipBroken, id, RelsPathFor(r.Owner))
	case strings.EqualFold(rel.TargetMode, "External"):
		return "", fmt.Errorf("%w: %s targets external %s", ErrRelationshipBroken, id, rel.Target)
	case rel.Target == "":
		return "", fmt.Errorf("%w: %s has an empty target", ErrRelationshipBroken, id)
	}
	return ResolveTarget(r.Owner, rel.Target), nil
}

// FindByType returns the first internal relationship whose type ends with
// suffix, compared case-insensitively.
func (r *Relationships) FindByType(suffix string) (Relationship, bool) {
	suffix = strings.ToLower(suffix)
	for _, rel := range r.List {
		if strings.EqualFold(rel.TargetMode, "External") {
			continue
		}
		if strings.HasSuffix(strings.ToLower(rel.Type), suffix) {
			return rel, true
		}
	}
	return Relationship{}, false
}

// WorkbookPart locates the workbook part through the package relationships.
func WorkbookPart(r PartReader) (string, error) {
	rootRels, err := ReadRelationships(r, "")
	if err != nil {
		return "", err
	}
	if rel, ok := rootRels.FindByType("/officedocument"); ok && rel.Target != "" {
		p := ResolveTarget("", rel.Target)
		if r.HasPart(p) {
			return p, nil
		}
	}
	if r.HasPart(defaultWorkbookPart) {
		return defaultWorkbookPart, nil
	}
	return "", fmt.Errorf("%w: workbook part", container.ErrPartNotFound)
}

// ListSheets returns the sheets declared in the workbook part, in
// declaration order, joined to their part paths.
func ListSheets(r PartReader) ([]models.SheetDescriptor, error) {
	wbPart, err := WorkbookPart(r)
	if err != nil {
		return nil, err
	}
	data, err := r.ReadPart(wbPart)
	if err != nil {
		return nil, err
	}

	sheets, err := parseWorkbookSheets(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", wbPart, err)
	}

	rels, err := ReadRelationships(r, wbPart)
	if err != nil {
		return nil, err
	}
	for i := range sheets {
		if p, err := rels.Resolve(sheets[i].RelID); err == nil {
			sheets[i].Path = p
		}
	}
	return sheets, nil
}

// ResolveSheetDrawing returns the drawing part of sheet, or "" when the sheet
// has none.
func ResolveSheetDrawing(r PartReader, sheet models.SheetDescriptor) (string, error) {
	if sheet.Path == "" {
		return "", fmt.Errorf("%w: sheet %q has no part", ErrRelationshipBroken, sheet.Name)
	}
	rels, err := ReadRelationships(r, sheet.Path)
	if err != nil {
		return "", err
	}
	// vmlDrawing (legacy comments) also ends in "drawing"; match the full segment.
	rel, ok := rels.FindByType("/drawing")
	if !ok {
		return "", nil
	}
	return rels.Resolve(rel.ID)
}

// ResolveMedia follows relID in owner's relationships to a media part.
func ResolveMedia(r PartReader, owner, relID string) (*models.MediaPart, error) {
	rels, err := ReadRelationships(r, owner)
	if err != nil {
		return nil, err
	}
	return ResolveMediaFrom(r, rels, relID)
}

// ResolveMediaFrom is ResolveMedia with already parsed relationships.
func ResolveMediaFrom(r PartReader, rels *Relationships, relID string) (*models.MediaPart, error) {
	target, err := rels.Resolve(relID)
	if err != nil {
		return nil, err
	}
	data, err := r.ReadPart(target)
	if err != nil {
		return nil, err
	}
	return &models.MediaPart{
		Path: target,
		Data: data,
		Ext:  ExtFromPath(target),
	}, nil
}

func parseWorkbookSheets(data []byte) ([]models.SheetDescriptor, error) {
	var sheets []models.SheetDescriptor
	decoder := xml.NewDecoder(bytes.NewReader(data))

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sheets, err
		}
		se, ok := token.(xml.StartElement)
		if !ok || se.Name.Local != "sheet" {
			continue
		}

		var name, rID string
		for _, attr := range se.Attr {
			switch {
			case attr.Name.Local == "name":
				name = attr.Value
			case attr.Name.Local == "id" && (attr.Name.Space == nsR || attr.Name.Space == "r" || strings.HasSuffix(attr.Name.Space, "/relationships")):
				rID = attr.Value
			}
		}
		if name == "" {
			continue
		}
		sheets = append(sheets, models.SheetDescriptor{
			Name:  name,
			Index: len(sheets),
			RelID: rID,
		})
	}

	return sheets, nil
}
