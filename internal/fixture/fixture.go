// Package fixture builds small OOXML workbook packages for tests.
package fixture

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CellImageRelType is the relationship type WPS uses for the cell image index.
const CellImageRelType = "http://www.wps.cn/officeDocument/2020/cellImage"

// Cell is a formula cell.
type Cell struct {
	Ref     string // e.g. "B2"
	Formula string // stored without the leading '='
}

// Picture is a floating picture on a sheet's drawing.
type Picture struct {
	FromCol, FromRow int // 0-based, as stored in drawing XML
	ToCol, ToRow     int
	Media            string // file name under xl/media
	Name             string
	Absolute         bool // emit an absoluteAnchor without a from position
	MissingRel       bool // reference an r:embed id that has no relationship
}

// Sheet describes one worksheet.
type Sheet struct {
	Name     string
	Cells    []Cell
	Pictures []Picture
}

// CellImage is an entry of the cell image index part.
type CellImage struct {
	ID    string
	Media string
}

// Workbook describes a whole package.
type Workbook struct {
	Sheets     []Sheet
	CellImages []CellImage
	Media      map[string][]byte // file name under xl/media -> bytes
}

// Builder accumulates named parts and writes them as a zip.
type Builder struct {
	parts map[string][]byte
	order []string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{parts: make(map[string][]byte)}
}

// Add stores a part, replacing any previous content under the same name.
func (b *Builder) Add(name string, data []byte) *Builder {
	if _, ok := b.parts[name]; !ok {
		b.order = append(b.order, name)
	}
	b.parts[name] = data
	return b
}

// Remove deletes a part.
func (b *Builder) Remove(name string) *Builder {
	delete(b.parts, name)
	for i, n := range b.order {
		if n == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return b
}

// Bytes returns the zip encoding of the parts.
func (b *Builder) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range b.order {
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(b.parts[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the zip to path.
func (b *Builder) WriteFile(path string) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Build lays out wb as an OOXML package.
func Build(wb Workbook) *Builder {
	b := NewBuilder()
	b.Add("[Content_Types].xml", []byte(contentTypes))
	b.Add("_rels/.rels", []byte(rootRels))

	var sheetsXML, wbRels strings.Builder
	for i, sh := range wb.Sheets {
		n := i + 1
		fmt.Fprintf(&sheetsXML, `<sheet name="%s" sheetId="%d" r:id="rId%d"/>`, sh.Name, n, n)
		fmt.Fprintf(&wbRels, `<Relationship Id="rId%d" Type="%s/worksheet" Target="worksheets/sheet%d.xml"/>`, n, relNS, n)
	}
	if len(wb.CellImages) > 0 {
		fmt.Fprintf(&wbRels, `<Relationship Id="rId%d" Type="%s" Target="cellimages.xml"/>`, len(wb.Sheets)+1, CellImageRelType)
	}

	b.Add("xl/workbook.xml", []byte(fmt.Sprintf(workbookTmpl, sheetsXML.String())))
	b.Add("xl/_rels/workbook.xml.rels", []byte(relationships(wbRels.String())))

	for i, sh := range wb.Sheets {
		n := i + 1
		drawing := ""
		if len(sh.Pictures) > 0 {
			drawing = `<drawing r:id="rId1"/>`
			b.Add(fmt.Sprintf("xl/worksheets/_rels/sheet%d.xml.rels", n), []byte(relationships(
				fmt.Sprintf(`<Relationship Id="rId1" Type="%s/drawing" Target="../drawings/drawing%d.xml"/>`, relNS, n))))
			drawingXML, drawingRels := buildDrawing(sh.Pictures)
			b.Add(fmt.Sprintf("xl/drawings/drawing%d.xml", n), []byte(drawingXML))
			b.Add(fmt.Sprintf("xl/drawings/_rels/drawing%d.xml.rels", n), []byte(relationships(drawingRels)))
		}
		b.Add(fmt.Sprintf("xl/worksheets/sheet%d.xml", n), []byte(fmt.Sprintf(sheetTmpl, buildSheetData(sh.Cells), drawing)))
	}

	if len(wb.CellImages) > 0 {
		var pics, rels strings.Builder
		for i, ci := range wb.CellImages {
			rid := fmt.Sprintf("rId%d", i+1)
			fmt.Fprintf(&pics, cellImageTmpl, i+1, ci.ID, rid)
			fmt.Fprintf(&rels, `<Relationship Id="%s" Type="%s/image" Target="media/%s"/>`, rid, relNS, ci.Media)
		}
		b.Add("xl/cellimages.xml", []byte(fmt.Sprintf(cellImagesTmpl, pics.String())))
		b.Add("xl/_rels/cellimages.xml.rels", []byte(relationships(rels.String())))
	}

	names := make([]string, 0, len(wb.Media))
	for name := range wb.Media {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.Add("xl/media/"+name, wb.Media[name])
	}

	return b
}

func buildSheetData(cells []Cell) string {
	type placed struct {
		col, row int
		Cell
	}
	var all []placed
	for _, c := range cells {
		col, row, err := excelize.CellNameToCoordinates(c.Ref)
		if err != nil {
			panic(fmt.Sprintf("fixture: bad cell ref %q", c.Ref))
		}
		all = append(all, placed{col, row, c})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].row != all[j].row {
			return all[i].row < all[j].row
		}
		return all[i].col < all[j].col
	})

	var sb strings.Builder
	for i := 0; i < len(all); {
		row := all[i].row
		fmt.Fprintf(&sb, `<row r="%d">`, row)
		for ; i < len(all) && all[i].row == row; i++ {
			fmt.Fprintf(&sb, `<c r="%s" t="str"><f>%s</f><v></v></c>`, all[i].Ref, xmlEscape(all[i].Formula))
		}
		sb.WriteString(`</row>`)
	}
	return sb.String()
}

func buildDrawing(pics []Picture) (string, string) {
	var anchors, rels strings.Builder
	for i, p := range pics {
		rid := fmt.Sprintf("rId%d", i+1)
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("Picture %d", i+1)
		}
		pic := fmt.Sprintf(picTmpl, i+2, name, rid)
		if p.Absolute {
			fmt.Fprintf(&anchors, `<xdr:absoluteAnchor><xdr:pos x="0" y="0"/><xdr:ext cx="952500" cy="952500"/>%s<xdr:clientData/></xdr:absoluteAnchor>`, pic)
		} else {
			fmt.Fprintf(&anchors, `<xdr:twoCellAnchor editAs="oneCell"><xdr:from><xdr:col>%d</xdr:col><xdr:colOff>9525</xdr:colOff><xdr:row>%d</xdr:row><xdr:rowOff>19050</xdr:rowOff></xdr:from><xdr:to><xdr:col>%d</xdr:col><xdr:colOff>0</xdr:colOff><xdr:row>%d</xdr:row><xdr:rowOff>0</xdr:rowOff></xdr:to>%s<xdr:clientData/></xdr:twoCellAnchor>`,
				p.FromCol, p.FromRow, p.ToCol, p.ToRow, pic)
		}
		if !p.MissingRel {
			fmt.Fprintf(&rels, `<Relationship Id="%s" Type="%s/image" Target="../media/%s"/>`, rid, relNS, p.Media)
		}
	}
	return fmt.Sprintf(drawingTmpl, anchors.String()), rels.String()
}

// PNG returns an encoded w×h image.
func PNG(w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func relationships(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` + body + `</Relationships>`
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}

const relNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Default Extension="png" ContentType="image/png"/><Default Extension="jpeg" ContentType="image/jpeg"/></Types>`

const rootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/></Relationships>`

const workbookTmpl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets>%s</sheets></workbook>`

const sheetTmpl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheetData>%s</sheetData>%s</worksheet>`

const drawingTmpl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<xdr:wsDr xmlns:xdr="http://schemas.openxmlformats.org/drawingml/2006/spreadsheetDrawing" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">%s</xdr:wsDr>`

const picTmpl = `<xdr:pic><xdr:nvPicPr><xdr:cNvPr id="%d" name="%s"/><xdr:cNvPicPr/></xdr:nvPicPr><xdr:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></xdr:blipFill><xdr:spPr><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></xdr:spPr></xdr:pic>`

const cellImagesTmpl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<etc:cellImages xmlns:xdr="http://schemas.openxmlformats.org/drawingml/2006/spreadsheetDrawing" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:etc="http://www.wps.cn/officeDocument/2017/etCustomData">%s</etc:cellImages>`

const cellImageTmpl = `<etc:cellImage><xdr:pic><xdr:nvPicPr><xdr:cNvPr id="%d" name="%s" descr=""/><xdr:cNvPicPr><a:picLocks noChangeAspect="1"/></xdr:cNvPicPr></xdr:nvPicPr><xdr:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></xdr:blipFill><xdr:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="952500" cy="952500"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></xdr:spPr></xdr:pic></etc:cellImage>`
