package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	emuPerMM = 36000

	// CellImageWidthEMU is 38.1 mm, the picture width inside pricing table cells.
	CellImageWidthEMU int64 = 381 * emuPerMM / 10
	// InlineImageWidthEMU is 35 mm, used for pictures placed in narrative paragraphs.
	InlineImageWidthEMU int64 = 35 * emuPerMM

	DefaultMaxImageWidth = 800
	DefaultJPEGQuality   = 85
	// MaxImagePixels bounds an upload's decoded size; the header is checked before decoding.
	MaxImagePixels = 40_000_000
)

var (
	ErrImagesUnsupported = errors.New("image embedding is not supported")
	ErrImageTooLarge     = errors.New("image exceeds the pixel limit")
)

// NormalizedImage is an upload re-encoded into a format every Word version renders.
type NormalizedImage struct {
	Data   []byte
	Ext    string
	Width  int
	Height int
}

// ImageProcessor turns arbitrary uploads into embeddable pictures.
type ImageProcessor interface {
	Normalize(raw []byte) (*NormalizedImage, error)
}

type jpegProcessor struct {
	maxWidth int
	quality  int
}

// NewImageProcessor decodes png, jpeg, gif, bmp, tiff and webp uploads, flattens them onto
// white, scales anything wider than maxWidth and re-encodes as JPEG.
func NewImageProcessor(maxWidth, quality int) ImageProcessor {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxImageWidth
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &jpegProcessor{maxWidth: maxWidth, quality: quality}
}

func (p *jpegProcessor) Normalize(raw []byte) (*NormalizedImage, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty image")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image %s has no pixels", format)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, fmt.Errorf("%w: %s image is %dx%d", ErrImageTooLarge, format, cfg.Width, cfg.Height)
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("image %s has no pixels", format)
	}

	flat := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(flat, flat.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), src, bounds.Min, draw.Over)

	var out image.Image = flat
	if bounds.Dx() > p.maxWidth {
		height := bounds.Dy() * p.maxWidth / bounds.Dx()
		if height < 1 {
			height = 1
		}
		scaled := image.NewRGBA(image.Rect(0, 0, p.maxWidth, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), flat, flat.Bounds(), draw.Src, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	b := out.Bounds()
	return &NormalizedImage{Data: buf.Bytes(), Ext: "jpeg", Width: b.Dx(), Height: b.Dy()}, nil
}

type unsupportedImages struct{}

// UnsupportedImages is the processor used when image embedding is switched off.
func UnsupportedImages() ImageProcessor { return unsupportedImages{} }

func (unsupportedImages) Normalize([]byte) (*NormalizedImage, error) {
	return nil, ErrImagesUnsupported
}

// Embedder places normalized pictures into cells and paragraphs. Failures are reported as
// false so callers can fall back to placeholder text.
type Embedder struct {
	images ImageProcessor
	onFail func(err error)
}

func NewEmbedder(images ImageProcessor) *Embedder {
	if images == nil {
		images = UnsupportedImages()
	}
	return &Embedder{images: images}
}

// OnFailure registers a callback that receives every embedding error.
func (e *Embedder) OnFailure(fn func(err error)) {
	e.onFail = fn
}

func (e *Embedder) fail(err error) bool {
	if e.onFail != nil {
		e.onFail(err)
	}
	return false
}

// EmbedInCell replaces the cell's content with one centered picture 38.1 mm wide.
func (e *Embedder) EmbedInCell(doc *Document, cell *Cell, raw []byte) bool {
	drawing, err := e.prepare(doc, raw, CellImageWidthEMU)
	if err != nil {
		return e.fail(err)
	}
	cell.clearParagraphs()
	p := cell.addParagraph()
	p.SetAlignment(centerJustify)
	r := p.AddRun(nil)
	r.el.AddChild(drawing)
	return true
}

// EmbedInline swaps marker inside paragraph for a 35 mm picture.
func (e *Embedder) EmbedInline(doc *Document, p *Paragraph, marker string, raw []byte) bool {
	var host *Run
	for _, r := range p.Runs() {
		if strings.Contains(r.Text(), marker) {
			host = r
			break
		}
	}
	if host == nil {
		return e.fail(fmt.Errorf("marker %q not found in a single run", marker))
	}
	drawing, err := e.prepare(doc, raw, InlineImageWidthEMU)
	if err != nil {
		return e.fail(err)
	}

	before, after, _ := strings.Cut(host.Text(), marker)
	host.SetText(before)
	pic := p.insertRunAfter(host)
	pic.el.AddChild(drawing)
	if after != "" {
		tail := p.insertRunAfter(pic)
		tail.SetText(after)
	}
	return true
}

func (e *Embedder) prepare(doc *Document, raw []byte, widthEMU int64) (*etree.Element, error) {
	img, err := e.images.Normalize(raw)
	if err != nil {
		return nil, err
	}
	relID, err := doc.AddImage(img.Data, img.Ext)
	if err != nil {
		return nil, fmt.Errorf("failed to add image part: %w", err)
	}
	heightEMU := widthEMU * int64(img.Height) / int64(img.Width)
	id := doc.docPrID()
	return inlineDrawing(relID, id, fmt.Sprintf("image%d.%s", id, img.Ext), widthEMU, heightEMU), nil
}

const (
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

func inlineDrawing(relID string, id int, name string, cx, cy int64) *etree.Element {
	w, h := strconv.FormatInt(cx, 10), strconv.FormatInt(cy, 10)
	docID := strconv.Itoa(id)

	drawing := etree.NewElement("w:drawing")
	inline := drawing.CreateElement("wp:inline")
	inline.CreateAttr("xmlns:wp", nsWP)
	inline.CreateAttr("xmlns:a", nsA)
	inline.CreateAttr("xmlns:pic", nsPic)
	inline.CreateAttr("xmlns:r", nsR)
	for _, k := range []string{"distT", "distB", "distL", "distR"} {
		inline.CreateAttr(k, "0")
	}

	extent := inline.CreateElement("wp:extent")
	extent.CreateAttr("cx", w)
	extent.CreateAttr("cy", h)
	effect := inline.CreateElement("wp:effectExtent")
	for _, k := range []string{"l", "t", "r", "b"} {
		effect.CreateAttr(k, "0")
	}
	docPr := inline.CreateElement("wp:docPr")
	docPr.CreateAttr("id", docID)
	docPr.CreateAttr("name", "Picture "+docID)
	locks := inline.CreateElement("wp:cNvGraphicFramePr").CreateElement("a:graphicFrameLocks")
	locks.CreateAttr("noChangeAspect", "1")

	data := inline.CreateElement("a:graphic").CreateElement("a:graphicData")
	data.CreateAttr("uri", nsPic)
	pic := data.CreateElement("pic:pic")

	nv := pic.CreateElement("pic:nvPicPr")
	cNvPr := nv.CreateElement("pic:cNvPr")
	cNvPr.CreateAttr("id", "0")
	cNvPr.CreateAttr("name", name)
	nv.CreateElement("pic:cNvPicPr")

	fill := pic.CreateElement("pic:blipFill")
	fill.CreateElement("a:blip").CreateAttr("r:embed", relID)
	fill.CreateElement("a:stretch").CreateElement("a:fillRect")

	spPr := pic.CreateElement("pic:spPr")
	xfrm := spPr.CreateElement("a:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", "0")
	off.CreateAttr("y", "0")
	ext := xfrm.CreateElement("a:ext")
	ext.CreateAttr("cx", w)
	ext.CreateAttr("cy", h)
	geom := spPr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")

	return drawing
}

// DrawingWidths returns the cx extent of every picture inside cell, in EMU.
func DrawingWidths(cell *Cell) []int64 {
	var out []int64
	for _, ext := range cell.el.FindElements(".//wp:extent") {
		if cx, err := strconv.ParseInt(ext.SelectAttrValue("cx", ""), 10, 64); err == nil {
			out = append(out, cx)
		}
	}
	return out
}
