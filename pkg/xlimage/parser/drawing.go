package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ukaji3/xlimage-go/pkg/xlimage/models"
)

// EMUPerPixel is the number of EMUs (English Metric Units) per pixel at 96 DPI.
// 914400 EMU = 1 inch = 96 pixels.
const EMUPerPixel = 9525

// ErrAnchorPosition indicates an anchor without a usable grid position.
var ErrAnchorPosition = errors.New("anchor has no usable position")

// EMUToPixels converts EMU to pixels at 96 DPI.
func EMUToPixels(emu int64) int {
	return int(emu / EMUPerPixel)
}

// gridPos is an xdr:from / xdr:to marker. Col and Row are 0-based.
type gridPos struct {
	col, row       int
	colOff, rowOff int64
	ok             bool
}

type picRef struct {
	name, descr string
	embed, link string
}

type anchorParseResult struct {
	from, to *gridPos
	pics     []picRef
}

// ParseDrawing returns the floating picture anchors of a drawing part in
// document order. Media is left unresolved: each anchor carries the
// relationship id of its blip. Anchors without a usable from position are
// placed at A1 with a warning.
func ParseDrawing(r PartReader, sheet models.SheetDescriptor, drawingPath string) ([]models.Anchor, []models.Warning, error) {
	data, err := r.ReadPart(drawingPath)
	if err != nil {
		return nil, nil, err
	}

	results, err := parseDrawingXML(data)
	var warnings []models.Warning
	if err != nil {
		warnings = append(warnings, models.Warning{Sheet: sheet.Name, Part: drawingPath, Err: fmt.Errorf("malformed drawing: %w", err)})
	}

	var anchors []models.Anchor
	for _, res := range results {
		for _, pic := range res.pics {
			ref := pic.name
			if ref == "" {
				ref = "picture"
			}
			if pic.embed == "" {
				target := "no blip"
				if pic.link != "" {
					target = "linked image " + pic.link
				}
				warnings = append(warnings, models.Warning{
					Sheet: sheet.Name, Part: drawingPath, Ref: ref,
					Err: fmt.Errorf("%w: %s", ErrRelationshipBroken, target),
				})
				continue
			}

			anchor := models.Anchor{
				Kind:  models.KindFloating,
				Sheet: sheet,
				Cell:  models.CellRef{Col: 1, Row: 1},
				Name:  pic.name,
				Descr: pic.descr,
				RelID: pic.embed,
				Owner: drawingPath,
			}
			if res.from != nil && res.from.ok {
				anchor.Cell = models.CellRef{Col: res.from.col + 1, Row: res.from.row + 1}
				anchor.Offset = models.Offset{X: EMUToPixels(res.from.colOff), Y: EMUToPixels(res.from.rowOff)}
			} else {
				warnings = append(warnings, models.Warning{
					Sheet: sheet.Name, Part: drawingPath, Ref: ref,
					Err: fmt.Errorf("%w, placed at A1", ErrAnchorPosition),
				})
			}
			if res.to != nil && res.to.ok {
				anchor.To = &models.CellRef{Col: res.to.col + 1, Row: res.to.row + 1}
			}
			anchors = append(anchors, anchor)
		}
	}

	return anchors, warnings, nil
}

// parseDrawingXML returns the anchors parsed before any syntax error.
func parseDrawingXML(data []byte) ([]anchorParseResult, error) {
	var results []anchorParseResult

	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return results, err
		}

		if se, ok := token.(xml.StartElement); ok {
			switch se.Name.Local {
			case "twoCellAnchor", "oneCellAnchor", "absoluteAnchor":
				res, err := parseAnchor(decoder)
				results = append(results, res)
				if err != nil {
					return results, err
				}
			case "Fallback":
				if isMarkupCompat(se) {
					if err := decoder.Skip(); err != nil {
						return results, err
					}
				}
			}
		}
	}

	return results, nil
}

// parseAnchor consumes an anchor element. Pictures may sit directly under the
// anchor or inside group shapes; both are collected in document order.
func parseAnchor(decoder *xml.Decoder) (anchorParseResult, error) {
	var res anchorParseResult
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return res, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "from":
				pos, err := parseGridPos(decoder)
				if err != nil {
					return res, err
				}
				res.from = &pos
				depth--
			case "to":
				pos, err := parseGridPos(decoder)
				if err != nil {
					return res, err
				}
				res.to = &pos
				depth--
			case "pic":
				pic, err := parsePicture(decoder)
				if err != nil {
					return res, err
				}
				res.pics = append(res.pics, pic)
				depth--
			case "Fallback":
				if isMarkupCompat(t) {
					if err := decoder.Skip(); err != nil {
						return res, err
					}
					depth--
				}
			}
		case xml.EndElement:
			depth--
		}
	}

	return res, nil
}

// parseGridPos parses the col/colOff/row/rowOff children of a marker.
func parseGridPos(decoder *xml.Decoder) (gridPos, error) {
	var pos gridPos
	var haveCol, haveRow bool
	valid := true

	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return pos, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			text, err := readElementText(decoder)
			if err != nil {
				return pos, err
			}
			depth--
			n, convErr := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
			switch t.Name.Local {
			case "col":
				haveCol = true
				valid = valid && convErr == nil && n >= 0
				pos.col = int(n)
			case "row":
				haveRow = true
				valid = valid && convErr == nil && n >= 0
				pos.row = int(n)
			case "colOff":
				if convErr == nil {
					pos.colOff = n
				}
			case "rowOff":
				if convErr == nil {
					pos.rowOff = n
				}
			}
		case xml.EndElement:
			depth--
		}
	}

	pos.ok = valid && haveCol && haveRow
	if !pos.ok {
		pos.col, pos.row = 0, 0
	}
	return pos, nil
}

// parsePicture parses a pic element for its name and blip reference.
func parsePicture(decoder *xml.Decoder) (picRef, error) {
	var pic picRef

	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return pic, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "cNvPr":
				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "name":
						pic.name = attr.Value
					case "descr":
						pic.descr = attr.Value
					}
				}
			case "blip":
				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "embed":
						pic.embed = attr.Value
					case "link":
						pic.link = attr.Value
					}
				}
			case "extLst":
				// svgBlip and other extensions carry their own r:embed.
				if err := decoder.Skip(); err != nil {
					return pic, err
				}
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}

	if pic.embed == "" {
		slog.Debug("xlimage: picture without embedded blip", "name", pic.name, "link", pic.link)
	}
	return pic, nil
}

func isMarkupCompat(se xml.StartElement) bool {
	return se.Name.Space == nsMC || se.Name.Space == "mc"
}

func readElementText(decoder *xml.Decoder) (string, error) {
	var text strings.Builder
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return text.String(), err
		}
		switch t := token.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return text.String(), nil
}
