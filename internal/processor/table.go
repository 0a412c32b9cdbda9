package processor

import (
	"fmt"
	"strconv"
	"strings"
)

// PricingTableIndex is the position of the line-items table among the body tables.
const PricingTableIndex = 1

// TemplateCapacity is the number of fixture rows the quotation template ships with.
const TemplateCapacity = 2

const (
	wordsMarker   = "in words:"
	wordsPrefix   = "In Words: "
	annexureNote  = "(as per annexure)"
	hsnPrefix     = "HSN Code: "
	specPrefix    = "Specification: "
	imagePrefix   = "[Image: "
	imageNoName   = "[Image]"
	centerJustify = "center"
	paraIDAttr    = "w14:paraId"
	textIDAttr    = "w14:textId"
)

// Fixture is one priced line item rendered into the pricing table.
type Fixture struct {
	Name          string
	Description   string
	HSNCode       string
	Quantity      string
	Unit          string
	Rate          string
	Amount        string
	AmountInWords string
	Specification string
	Image         []byte
}

// IsBlank reports whether the fixture carries no data at all (a padding entry).
func (f Fixture) IsBlank() bool {
	return f.Name == "" && f.Description == "" && f.Quantity == "" && f.Rate == "" &&
		f.Amount == "" && len(f.Image) == 0
}

// DescriptionText is the multi-line text written into the description column.
func (f Fixture) DescriptionText() string {
	lines := []string{strings.TrimSpace(f.Name + " " + f.Description), annexureNote}
	if code := strings.TrimSpace(f.HSNCode); code != "" {
		lines = append(lines, hsnPrefix+code)
	}
	if spec := strings.TrimSpace(f.Specification); spec != "" {
		lines = append(lines, specPrefix+spec)
	}
	return strings.Join(lines, "\n")
}

// ImagePlaceholder is the text shown where a picture could not be embedded.
func ImagePlaceholder(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return imageNoName
	}
	return imagePrefix + name + "]"
}

type ColumnRole string

const (
	ColumnSerial      ColumnRole = "serial"
	ColumnDescription ColumnRole = "description"
	ColumnImage       ColumnRole = "image"
	ColumnQuantity    ColumnRole = "quantity"
	ColumnRate        ColumnRole = "rate"
	ColumnAmount      ColumnRole = "amount"
	ColumnUnit        ColumnRole = "unit"
)

// columnKeywords is checked in order; a header cell takes the first role that matches.
var columnKeywords = []struct {
	role     ColumnRole
	keywords []string
}{
	{ColumnSerial, []string{"sr"}},
	{ColumnDescription, []string{"description"}},
	{ColumnImage, []string{"image"}},
	{ColumnQuantity, []string{"qty", "quantity"}},
	{ColumnRate, []string{"rate"}},
	{ColumnAmount, []string{"amount"}},
	{ColumnUnit, []string{"per", "unit"}},
}

// ColumnMap holds the cell index of every role found in the header row.
type ColumnMap map[ColumnRole]int

func (c ColumnMap) Has(role ColumnRole) bool {
	_, ok := c[role]
	return ok
}

// ScanColumns infers column roles from the header row's text.
func ScanColumns(header *Row) ColumnMap {
	cols := make(ColumnMap)
	for idx, cell := range header.Cells() {
		text := strings.ToLower(cell.Text())
		for _, ck := range columnKeywords {
			if cols.Has(ck.role) {
				continue
			}
			if containsAny(text, ck.keywords) {
				cols[ck.role] = idx
				break
			}
		}
	}
	return cols
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isWordsRow(row *Row) bool {
	return strings.Contains(strings.ToLower(row.Text()), wordsMarker)
}

type itemRows struct {
	data  *Row
	words *Row
}

// findItemRows pairs every non-header row that is directly followed by an "in words" row.
func findItemRows(rows []*Row) []itemRows {
	var pairs []itemRows
	for i := 1; i+1 < len(rows); i++ {
		if isWordsRow(rows[i]) || !isWordsRow(rows[i+1]) {
			continue
		}
		pairs = append(pairs, itemRows{data: rows[i], words: rows[i+1]})
		i++
	}
	return pairs
}

// RowCloner copies a structural template row and places the copy after anchor.
type RowCloner interface {
	CloneAfter(table *Table, src, anchor *Row) *Row
}

type xmlRowCloner struct{}

// XMLRowCloner deep-copies the w:tr element, so borders, merges and run styles survive.
func XMLRowCloner() RowCloner { return xmlRowCloner{} }

func (xmlRowCloner) CloneAfter(table *Table, src, anchor *Row) *Row {
	clone := &Row{el: src.el.Copy()}
	for _, el := range append(clone.el.FindElements(".//w:p"), clone.el) {
		el.RemoveAttr(paraIDAttr)
		el.RemoveAttr(textIDAttr)
	}
	table.insertRowAfter(clone, anchor)
	return clone
}

type PopulateResult struct {
	Filled         int      `json:"filled"`
	Cloned         int      `json:"cloned"`
	ImagesEmbedded int      `json:"images_embedded"`
	ImageFailures  int      `json:"image_failures"`
	Diagnostics    []string `json:"diagnostics,omitempty"`
}

func (r *PopulateResult) diagnose(format string, args ...interface{}) {
	r.Diagnostics = append(r.Diagnostics, fmt.Sprintf(format, args...))
}

type TablePopulator struct {
	embedder *Embedder
	cloner   RowCloner
}

func NewTablePopulator(embedder *Embedder, cloner RowCloner) *TablePopulator {
	if cloner == nil {
		cloner = XMLRowCloner()
	}
	return &TablePopulator{embedder: embedder, cloner: cloner}
}

// Populate writes fixtures into table. Template rows are filled in place; extra fixtures get
// cloned row pairs appended after the last "in words" row.
func (tp *TablePopulator) Populate(doc *Document, table *Table, fixtures []Fixture) PopulateResult {
	var result PopulateResult
	rows := table.Rows()
	if len(rows) == 0 {
		result.diagnose("pricing table has no rows")
		return result
	}
	cols := ScanColumns(rows[0])
	if len(cols) == 0 {
		result.diagnose("pricing table header has no recognised columns")
	}

	pairs := findItemRows(rows)
	if len(fixtures) > len(pairs) {
		if len(pairs) < TemplateCapacity {
			result.diagnose("pricing table has %d fixture rows, need at least %d to clone; %d fixtures not rendered",
				len(pairs), TemplateCapacity, len(fixtures)-len(pairs))
		} else {
			src := pairs[len(pairs)-1]
			for len(pairs) < len(fixtures) {
				anchor := pairs[len(pairs)-1].words
				data := tp.cloner.CloneAfter(table, src.data, anchor)
				words := tp.cloner.CloneAfter(table, src.words, data)
				pairs = append(pairs, itemRows{data: data, words: words})
				result.Cloned++
			}
		}
	}

	// Words rows come from the pairing above; filled text may itself read "in words:".
	for i, fixture := range fixtures {
		if i >= len(pairs) {
			break
		}
		tp.fillRow(doc, pairs[i].data, cols, i+1, fixture, &result)
		fillWordsRow(pairs[i].words, cols, fixture.AmountInWords)
		result.Filled++
	}

	return result
}

func (tp *TablePopulator) fillRow(doc *Document, row *Row, cols ColumnMap, serial int, f Fixture, result *PopulateResult) {
	cells := row.Cells()
	cell := func(role ColumnRole) *Cell {
		idx, ok := cols[role]
		if !ok || idx >= len(cells) {
			return nil
		}
		return cells[idx]
	}

	for role, idx := range cols {
		if role == ColumnImage || idx >= len(cells) {
			continue
		}
		cells[idx].SetText("")
	}

	if c := cell(ColumnSerial); c != nil {
		c.SetText(strconv.Itoa(serial))
	}
	if c := cell(ColumnDescription); c != nil {
		c.SetText(f.DescriptionText())
	}
	if c := cell(ColumnImage); c != nil {
		embedded := false
		if len(f.Image) > 0 && tp.embedder != nil {
			embedded = tp.embedder.EmbedInCell(doc, c, f.Image)
			if embedded {
				result.ImagesEmbedded++
			} else {
				result.ImageFailures++
				result.diagnose("fixture %d: image could not be embedded", serial)
			}
		}
		if !embedded {
			c.SetText(ImagePlaceholder(f.Name))
		}
	}
	if c := cell(ColumnQuantity); c != nil {
		c.SetText(f.Quantity)
	}
	if c := cell(ColumnRate); c != nil {
		c.SetText(f.Rate)
	}
	if c := cell(ColumnUnit); c != nil {
		c.SetText(f.Unit)
	}
	if c := cell(ColumnAmount); c != nil {
		c.SetText(f.Amount)
	}
}

func fillWordsRow(row *Row, cols ColumnMap, words string) {
	cells := row.Cells()
	if len(cells) == 0 {
		return
	}
	start := 0
	if idx, ok := cols[ColumnSerial]; ok && idx < len(cells) {
		cells[idx].SetText("")
		start = idx + 1
	}
	if idx, ok := cols[ColumnDescription]; ok {
		start = idx
	}
	if start >= len(cells) {
		start = len(cells) - 1
	}
	for _, c := range cells[start:] {
		c.SetText(wordsPrefix + words)
	}
}
