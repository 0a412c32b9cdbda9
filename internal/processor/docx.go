package processor

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	documentPart     = "word/document.xml"
	documentRelsPart = "word/_rels/document.xml.rels"
	contentTypesPart = "[Content_Types].xml"

	relTypeImage = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relsNS       = "http://schemas.openxmlformats.org/package/2006/relationships"
)

var (
	ErrNotDocx          = errors.New("not a docx package")
	headerFooterPattern = regexp.MustCompile(`^word/(header|footer)\d*\.xml$`)
	mediaPattern        = regexp.MustCompile(`^word/media/image(\d+)\.\w+$`)
	relIDPattern        = regexp.MustCompile(`^rId(\d+)$`)
)

type part struct {
	name   string
	method uint16
	data   []byte
	tree   *etree.Document
}

func (p *part) bytes() ([]byte, error) {
	if p.tree == nil {
		return p.data, nil
	}
	return p.tree.WriteToBytes()
}

// Document is an in-memory DOCX package. The main document, headers and footers are parsed
// into mutable XML trees; every other part is kept as raw bytes.
type Document struct {
	parts   []*part
	index   map[string]*part
	body    *etree.Element
	headers []*etree.Element

	nextDocPrID int
}

func OpenFile(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read docx file: %w", err)
	}
	return Open(data)
}

func Open(data []byte) (*Document, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}

	doc := &Document{index: make(map[string]*part)}
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		content, err := readZipFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", file.Name, err)
		}
		p := &part{name: file.Name, method: file.Method, data: content}
		doc.parts = append(doc.parts, p)
		doc.index[file.Name] = p
	}

	main, ok := doc.index[documentPart]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrNotDocx, documentPart)
	}
	root, err := doc.parse(main)
	if err != nil {
		return nil, err
	}
	doc.body = root.SelectElement("w:body")
	if doc.body == nil {
		return nil, fmt.Errorf("%w: document has no body", ErrNotDocx)
	}

	for _, p := range doc.parts {
		if !headerFooterPattern.MatchString(p.name) {
			continue
		}
		hdr, err := doc.parse(p)
		if err != nil {
			return nil, err
		}
		doc.headers = append(doc.headers, hdr)
	}

	return doc, nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (d *Document) parse(p *part) (*etree.Element, error) {
	if p.tree == nil {
		tree := etree.NewDocument()
		if err := tree.ReadFromBytes(p.data); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", p.name, err)
		}
		p.tree = tree
		p.data = nil
	}
	root := p.tree.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: %s has no root element", ErrNotDocx, p.name)
	}
	return root, nil
}

// Bytes serializes the package. Parts that were never parsed are written back unchanged.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Document) WriteTo(w io.Writer) (int64, error) {
	counter := &countingWriter{w: w}
	zw := zip.NewWriter(counter)
	for _, p := range d.parts {
		data, err := p.bytes()
		if err != nil {
			return counter.n, fmt.Errorf("failed to serialize %s: %w", p.name, err)
		}
		method := p.method
		if method != zip.Store {
			method = zip.Deflate
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: method})
		if err != nil {
			return counter.n, err
		}
		if _, err := fw.Write(data); err != nil {
			return counter.n, err
		}
	}
	if err := zw.Close(); err != nil {
		return counter.n, err
	}
	return counter.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Paragraphs returns the top-level body paragraphs.
func (d *Document) Paragraphs() []*Paragraph {
	return paragraphsOf(d.body)
}

// Tables returns the top-level body tables in document order.
func (d *Document) Tables() []*Table {
	return tablesOf(d.body)
}

// HeaderFooterParagraphs returns the direct paragraphs of every header and footer part.
func (d *Document) HeaderFooterParagraphs() []*Paragraph {
	var out []*Paragraph
	for _, hdr := range d.headers {
		out = append(out, paragraphsOf(hdr)...)
	}
	return out
}

// HeaderFooterTables returns the tables placed in headers and footers.
func (d *Document) HeaderFooterTables() []*Table {
	var out []*Table
	for _, hdr := range d.headers {
		out = append(out, tablesOf(hdr)...)
	}
	return out
}

func (d *Document) HasPart(name string) bool {
	_, ok := d.index[name]
	return ok
}

// AddImage stores data as a new media part of the main document and returns the
// relationship id that references it.
func (d *Document) AddImage(data []byte, ext string) (string, error) {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		return "", errors.New("image extension is required")
	}

	next := 1
	for _, p := range d.parts {
		if m := mediaPattern.FindStringSubmatch(p.name); m != nil {
			if n, _ := strconv.Atoi(m[1]); n >= next {
				next = n + 1
			}
		}
	}
	name := fmt.Sprintf("word/media/image%d.%s", next, ext)

	rels, err := d.relationships()
	if err != nil {
		return "", err
	}
	relID := nextRelID(rels)
	rel := rels.CreateElement("Relationship")
	rel.CreateAttr("Id", relID)
	rel.CreateAttr("Type", relTypeImage)
	rel.CreateAttr("Target", path.Join("media", path.Base(name)))

	if err := d.ensureContentType(ext); err != nil {
		return "", err
	}

	p := &part{name: name, method: zip.Deflate, data: data}
	d.parts = append(d.parts, p)
	d.index[name] = p
	return relID, nil
}

func (d *Document) relationships() (*etree.Element, error) {
	p, ok := d.index[documentRelsPart]
	if !ok {
		tree := etree.NewDocument()
		tree.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
		root := tree.CreateElement("Relationships")
		root.CreateAttr("xmlns", relsNS)
		p = &part{name: documentRelsPart, method: zip.Deflate, tree: tree}
		d.parts = append(d.parts, p)
		d.index[documentRelsPart] = p
	}
	return d.parse(p)
}

func nextRelID(rels *etree.Element) string {
	max := 0
	for _, rel := range rels.SelectElements("Relationship") {
		if m := relIDPattern.FindStringSubmatch(rel.SelectAttrValue("Id", "")); m != nil {
			if n, _ := strconv.Atoi(m[1]); n > max {
				max = n
			}
		}
	}
	return fmt.Sprintf("rId%d", max+1)
}

func (d *Document) ensureContentType(ext string) error {
	p, ok := d.index[contentTypesPart]
	if !ok {
		return fmt.Errorf("%w: missing %s", ErrNotDocx, contentTypesPart)
	}
	types, err := d.parse(p)
	if err != nil {
		return err
	}
	for _, def := range types.SelectElements("Default") {
		if strings.EqualFold(def.SelectAttrValue("Extension", ""), ext) {
			return nil
		}
	}
	def := types.CreateElement("Default")
	def.CreateAttr("Extension", ext)
	def.CreateAttr("ContentType", mimeForExtension(ext))
	return nil
}

func mimeForExtension(ext string) string {
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	default:
		return "image/" + ext
	}
}

// docPrID hands out drawing ids that do not collide with pictures already in the template.
// Ids are unique across the whole package, so headers and footers count too.
func (d *Document) docPrID() int {
	if d.nextDocPrID == 0 {
		max := 0
		for _, root := range append([]*etree.Element{d.body}, d.headers...) {
			for _, el := range root.FindElements(".//wp:docPr") {
				if n, err := strconv.Atoi(el.SelectAttrValue("id", "")); err == nil && n > max {
					max = n
				}
			}
		}
		d.nextDocPrID = max + 1
	}
	id := d.nextDocPrID
	d.nextDocPrID++
	return id
}

// AllParagraphs returns every paragraph in the body and in headers and footers, at any depth.
func (d *Document) AllParagraphs() []*Paragraph {
	var out []*Paragraph
	roots := append([]*etree.Element{d.body}, d.headers...)
	for _, root := range roots {
		for _, el := range root.FindElements(".//w:p") {
			out = append(out, &Paragraph{el: el})
		}
	}
	return out
}

// ParagraphsContaining returns the paragraphs whose text includes substr.
func (d *Document) ParagraphsContaining(substr string) []*Paragraph {
	var out []*Paragraph
	for _, p := range d.AllParagraphs() {
		if strings.Contains(p.Text(), substr) {
			out = append(out, p)
		}
	}
	return out
}
