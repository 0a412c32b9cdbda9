package processor

import (
	"strings"

	"github.com/beevik/etree"
)

// Paragraph wraps a w:p element.
type Paragraph struct{ el *etree.Element }

// Run wraps a w:r element.
type Run struct{ el *etree.Element }

// Table wraps a w:tbl element.
type Table struct{ el *etree.Element }

// Row wraps a w:tr element.
type Row struct{ el *etree.Element }

// Cell wraps a w:tc element.
type Cell struct{ el *etree.Element }

func paragraphsOf(parent *etree.Element) []*Paragraph {
	els := parent.SelectElements("w:p")
	out := make([]*Paragraph, 0, len(els))
	for _, el := range els {
		out = append(out, &Paragraph{el: el})
	}
	return out
}

func tablesOf(parent *etree.Element) []*Table {
	els := parent.SelectElements("w:tbl")
	out := make([]*Table, 0, len(els))
	for _, el := range els {
		out = append(out, &Table{el: el})
	}
	return out
}

func (p *Paragraph) Runs() []*Run {
	els := p.el.SelectElements("w:r")
	out := make([]*Run, 0, len(els))
	for _, el := range els {
		out = append(out, &Run{el: el})
	}
	return out
}

func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs() {
		sb.WriteString(r.Text())
	}
	return sb.String()
}

// SetAlignment writes w:pPr/w:jc.
func (p *Paragraph) SetAlignment(val string) {
	pPr := p.el.SelectElement("w:pPr")
	if pPr == nil {
		pPr = etree.NewElement("w:pPr")
		p.el.InsertChildAt(0, pPr)
	}
	jc := pPr.SelectElement("w:jc")
	if jc == nil {
		jc = pPr.CreateElement("w:jc")
	}
	jc.CreateAttr("w:val", val)
}

// AddRun appends an empty run, optionally copying the formatting of like.
func (p *Paragraph) AddRun(like *Run) *Run {
	r := p.el.CreateElement("w:r")
	if like != nil {
		if rPr := like.el.SelectElement("w:rPr"); rPr != nil {
			r.AddChild(rPr.Copy())
		}
	}
	return &Run{el: r}
}

// insertRunAfter places a new run right after anchor inside the paragraph.
func (p *Paragraph) insertRunAfter(anchor *Run) *Run {
	r := etree.NewElement("w:r")
	if rPr := anchor.el.SelectElement("w:rPr"); rPr != nil {
		r.AddChild(rPr.Copy())
	}
	p.el.InsertChildAt(anchor.el.Index()+1, r)
	return &Run{el: r}
}

func (p *Paragraph) removeRun(r *Run) {
	p.el.RemoveChild(r.el)
}

// Text renders the run the way Word shows it: tabs and breaks become \t and \n.
func (r *Run) Text() string {
	var sb strings.Builder
	for _, c := range r.el.ChildElements() {
		switch c.Tag {
		case "t":
			sb.WriteString(c.Text())
		case "tab":
			sb.WriteByte('\t')
		case "br", "cr":
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// SetText replaces the run content, keeping only its w:rPr.
func (r *Run) SetText(text string) {
	r.clearContent()
	var buf strings.Builder
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		t := r.el.CreateElement("w:t")
		t.CreateAttr("xml:space", "preserve")
		t.SetText(buf.String())
		buf.Reset()
	}
	for _, ch := range text {
		switch ch {
		case '\t':
			flush()
			r.el.CreateElement("w:tab")
		case '\n':
			flush()
			r.el.CreateElement("w:br")
		case '\r':
		default:
			buf.WriteRune(ch)
		}
	}
	flush()
}

func (r *Run) clearContent() {
	for _, c := range r.el.ChildElements() {
		if c.Tag != "rPr" {
			r.el.RemoveChild(c)
		}
	}
}

// Highlighted reports whether the run carries a highlight other than "none".
func (r *Run) Highlighted() bool {
	rPr := r.el.SelectElement("w:rPr")
	if rPr == nil {
		return false
	}
	hl := rPr.SelectElement("w:highlight")
	if hl == nil {
		return false
	}
	val := hl.SelectAttrValue("w:val", "")
	return val != "" && val != "none"
}

// HasDrawing reports whether the run holds an embedded picture.
func (r *Run) HasDrawing() bool {
	return r.el.SelectElement("w:drawing") != nil
}

func (t *Table) Rows() []*Row {
	els := t.el.SelectElements("w:tr")
	out := make([]*Row, 0, len(els))
	for _, el := range els {
		out = append(out, &Row{el: el})
	}
	return out
}

// insertRowAfter inserts row into the table right after anchor.
func (t *Table) insertRowAfter(row, anchor *Row) {
	t.el.InsertChildAt(anchor.el.Index()+1, row.el)
}

func (r *Row) Cells() []*Cell {
	els := r.el.SelectElements("w:tc")
	out := make([]*Cell, 0, len(els))
	for _, el := range els {
		out = append(out, &Cell{el: el})
	}
	return out
}

// Text joins the cell texts of the row with a tab.
func (r *Row) Text() string {
	cells := r.Cells()
	parts := make([]string, 0, len(cells))
	for _, c := range cells {
		parts = append(parts, c.Text())
	}
	return strings.Join(parts, "\t")
}

func (c *Cell) Paragraphs() []*Paragraph {
	return paragraphsOf(c.el)
}

func (c *Cell) Tables() []*Table {
	return tablesOf(c.el)
}

func (c *Cell) Text() string {
	paras := c.Paragraphs()
	lines := make([]string, 0, len(paras))
	for _, p := range paras {
		lines = append(lines, p.Text())
	}
	return strings.Join(lines, "\n")
}

// HasDrawing reports whether any run in the cell holds a picture.
func (c *Cell) HasDrawing() bool {
	return len(c.el.FindElements(".//w:drawing")) > 0
}

// SetText writes text into the first paragraph's first run and drops everything else,
// so the cell keeps its paragraph and character formatting.
func (c *Cell) SetText(text string) {
	paras := c.Paragraphs()
	var first *etree.Element
	if len(paras) == 0 {
		first = c.el.CreateElement("w:p")
	} else {
		first = paras[0].el
	}
	for _, child := range c.el.ChildElements() {
		if child != first && (child.Tag == "p" || child.Tag == "tbl") {
			c.el.RemoveChild(child)
		}
	}

	var run *etree.Element
	for _, child := range first.ChildElements() {
		switch {
		case child.Tag == "pPr":
		case child.Tag == "r" && run == nil:
			run = child
		default:
			first.RemoveChild(child)
		}
	}
	if run == nil {
		run = first.CreateElement("w:r")
		if mark := first.FindElement("./w:pPr/w:rPr"); mark != nil {
			run.AddChild(mark.Copy())
		}
	}
	(&Run{el: run}).SetText(text)
}

// clearParagraphs removes every paragraph and nested table, keeping w:tcPr.
func (c *Cell) clearParagraphs() {
	for _, child := range c.el.ChildElements() {
		if child.Tag == "p" || child.Tag == "tbl" {
			c.el.RemoveChild(child)
		}
	}
}

func (c *Cell) addParagraph() *Paragraph {
	return &Paragraph{el: c.el.CreateElement("w:p")}
}
