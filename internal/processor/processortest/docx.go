// Package processortest builds small DOCX packages in memory for tests.
package processortest

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"html"
	"image"
	"image/color"
	"image/png"
	"strings"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" ` +
	`xmlns:w14="http://schemas.microsoft.com/office/word/2010/wordml"`

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/header1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"/>
<Override PartName="/word/footer1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"/>
</Types>`

const packageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/header" Target="header1.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer" Target="footer1.xml"/>
</Relationships>`

// Template is the XML content of a test document. Body, Header and Footer hold the children
// of w:body, w:hdr and w:ftr.
type Template struct {
	Body   string
	Header string
	Footer string
}

// Build zips t into a DOCX package.
func Build(t Template) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct{ name, content string }{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", packageRels},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			"\n<w:document " + wordNS + "><w:body>" + t.Body + "</w:body></w:document>"},
		{"word/_rels/document.xml.rels", documentRels},
		{"word/header1.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			"\n<w:hdr " + wordNS + ">" + t.Header + "</w:hdr>"},
		{"word/footer1.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			"\n<w:ftr " + wordNS + ">" + t.Footer + "</w:ftr>"},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Run is one text fragment of a paragraph.
type Run struct {
	Text      string
	Bold      bool
	Highlight string
}

func (r Run) XML() string {
	var props strings.Builder
	if r.Bold {
		props.WriteString("<w:b/>")
	}
	if r.Highlight != "" {
		fmt.Fprintf(&props, `<w:highlight w:val="%s"/>`, r.Highlight)
	}
	rPr := ""
	if props.Len() > 0 {
		rPr = "<w:rPr>" + props.String() + "</w:rPr>"
	}
	return "<w:r>" + rPr + `<w:t xml:space="preserve">` + html.EscapeString(r.Text) + "</w:t></w:r>"
}

// P renders a paragraph made of one plain run per fragment.
func P(fragments ...string) string {
	runs := make([]Run, 0, len(fragments))
	for _, f := range fragments {
		runs = append(runs, Run{Text: f})
	}
	return Para(runs...)
}

func Para(runs ...Run) string {
	var sb strings.Builder
	sb.WriteString(`<w:p w14:paraId="1A2B3C4D">`)
	for _, r := range runs {
		sb.WriteString(r.XML())
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

// Table renders rows of single-paragraph cells.
func Table(rows ...[]string) string {
	var sb strings.Builder
	sb.WriteString(`<w:tbl><w:tblPr><w:tblBorders><w:top w:val="single"/></w:tblBorders></w:tblPr>`)
	for _, row := range rows {
		sb.WriteString("<w:tr>")
		for _, cell := range row {
			sb.WriteString(`<w:tc><w:tcPr><w:tcW w:w="1000" w:type="dxa"/></w:tcPr>` + P(cell) + "</w:tc>")
		}
		sb.WriteString("</w:tr>")
	}
	sb.WriteString("</w:tbl>")
	return sb.String()
}

// PricingHeader is the header row of the quotation pricing table.
var PricingHeader = []string{"Sr. No.", "Description", "Image", "Qty", "Rate", "Per", "Amount"}

// PricingTable returns the two-fixture pricing table of the quotation template, optionally
// with a custom header and trailing rows (totals).
func PricingTable(header []string, trailing ...[]string) string {
	if header == nil {
		header = PricingHeader
	}
	rows := [][]string{
		header,
		{"1", "Fixture 1 Holding minitop connector", "", "1", "26,879/-", "Each", "26,879/-"},
		{"", "In words: Twenty-Six Thousand Eight Hundred Seventy-Nine INR Only PER EACH", "", "", "", "", ""},
		{"2", "Fixture 2 pulling minitop PCBA", "", "1", "29,546/-", "Each", "29,546/-"},
		{"", "In words: Twenty-Nine Thousand Five Hundred Forty-Six INR Only PER EACH", "", "", "", "", ""},
	}
	rows = append(rows, trailing...)
	return Table(rows...)
}

// QuotationTemplate mimics the layout of the production quotation template: a customer
// table, the pricing table, tagged sections and a header carrying the quote number.
func QuotationTemplate() []byte {
	body := P("Quotation No: ", "KEC005JN2025", " ", "Rev A") +
		P("Date: Wednesday, September 24, 2025") +
		Table(
			[]string{"To", "Mr. Mohak Dholakia"},
			[]string{"Company", "Schneider Electric India Private Limited"},
		) +
		Para(Run{Text: "Payment: 45 Days from delivery ", Highlight: "yellow"}, Run{Text: "(Being an MSME)", Highlight: "yellow"}) +
		PricingTable(nil, []string{"", "Total", "", "", "", "", "56,425/-"}) +
		P("Inclusions:") +
		P("[INCLUSIONS]") +
		P("Scope:") +
		P("[SCOPE]") +
		P("Specifications:") +
		P("[SPECIFICATIONS]") +
		`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1440" w:right="1080" w:bottom="1440" w:left="1080"/></w:sectPr>`
	return Build(Template{
		Body:   body,
		Header: P("Quote ", "KEC005JN2025"),
		Footer: P("Schneider Electric India Private Limited"),
	})
}

// PNG encodes a solid w×h image with transparency.
func PNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 128})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// PNGHeader returns only the signature and IHDR chunk of an 8-bit grayscale w×h PNG. It is
// enough for image.DecodeConfig but carries no pixel data.
func PNGHeader(w, h int) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	chunk := make([]byte, 0, 17)
	chunk = append(chunk, "IHDR"...)
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(w))
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(h))
	chunk = append(chunk, 8, 0, 0, 0, 0) // depth, grayscale, deflate, no filter, no interlace

	_ = binary.Write(&buf, binary.BigEndian, uint32(len(chunk)-4))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}
