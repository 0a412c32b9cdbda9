package processor

import (
	"fmt"
	"strconv"
	"strings"
)

// Replacement maps a literal template snippet to its run-time value.
type Replacement struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// ReplacementMap is applied in order. Entries with an empty New value are ignored so that
// blank form fields leave the template's default text in place.
type ReplacementMap []Replacement

// Set adds or updates the entry for old, keeping its original position.
func (m *ReplacementMap) Set(old, new string) {
	for i := range *m {
		if (*m)[i].Old == old {
			(*m)[i].New = new
			return
		}
	}
	*m = append(*m, Replacement{Old: old, New: new})
}

func (m ReplacementMap) Get(old string) (string, bool) {
	for _, r := range m {
		if r.Old == old {
			return r.New, true
		}
	}
	return "", false
}

// Apply runs every entry over text.
func (m ReplacementMap) Apply(text string) string {
	for _, r := range m {
		if r.New == "" || r.Old == "" {
			continue
		}
		if strings.Contains(text, r.Old) {
			text = strings.ReplaceAll(text, r.Old, r.New)
		}
	}
	return text
}

// Validate rejects entries that map a key onto itself. A value may contain its key: each
// entry is applied in a single pass and never rescans its own output.
func (m ReplacementMap) Validate() error {
	for _, r := range m {
		if r.Old == "" || r.New == "" {
			continue
		}
		if r.New == r.Old {
			return fmt.Errorf("replacement for %q maps the key onto itself", r.Old)
		}
	}
	return nil
}

type ReplaceOptions struct {
	// PricingTable is the index of the body table holding the line items. Negative disables
	// the pricing table rules.
	PricingTable int
}

func DefaultReplaceOptions() ReplaceOptions {
	return ReplaceOptions{PricingTable: PricingTableIndex}
}

// SeekAndReplace applies m to every paragraph of the body, of every table cell (nested
// tables included) and of every header and footer. It returns how many paragraphs changed.
func SeekAndReplace(doc *Document, m ReplacementMap, opts ReplaceOptions) int {
	changed := 0
	for _, p := range doc.Paragraphs() {
		if replaceInParagraph(p, m) {
			changed++
		}
	}
	for i, t := range doc.Tables() {
		if i == opts.PricingTable {
			changed += replaceInPricingTable(t, m)
			continue
		}
		changed += replaceInTable(t, m)
	}
	for _, p := range doc.HeaderFooterParagraphs() {
		if replaceInParagraph(p, m) {
			changed++
		}
	}
	for _, t := range doc.HeaderFooterTables() {
		changed += replaceInTable(t, m)
	}
	return changed
}

func replaceInTable(t *Table, m ReplacementMap) int {
	changed := 0
	for _, row := range t.Rows() {
		for _, cell := range row.Cells() {
			changed += replaceInCell(cell, m)
		}
	}
	return changed
}

func replaceInCell(cell *Cell, m ReplacementMap) int {
	changed := 0
	for _, p := range cell.Paragraphs() {
		if replaceInParagraph(p, m) {
			changed++
		}
	}
	for _, inner := range cell.Tables() {
		changed += replaceInTable(inner, m)
	}
	return changed
}

// replaceInPricingTable never touches the serial column and leaves the image cell of real
// item rows alone.
func replaceInPricingTable(t *Table, m ReplacementMap) int {
	rows := t.Rows()
	if len(rows) == 0 {
		return 0
	}
	cols := ScanColumns(rows[0])

	changed := 0
	for _, row := range rows {
		cells := row.Cells()
		itemRow := len(cells) > 0 && isSerial(cells[0].Text())
		for idx, cell := range cells {
			if idx == 0 {
				continue
			}
			if itemRow && cols.Has(ColumnImage) && idx == cols[ColumnImage] {
				continue
			}
			changed += replaceInCell(cell, m)
		}
	}
	return changed
}

func isSerial(text string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(text))
	return err == nil
}

func replaceInParagraph(p *Paragraph, m ReplacementMap) bool {
	runs := p.Runs()
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.Text())
	}
	full := sb.String()
	replaced := m.Apply(full)
	if replaced == full {
		return false
	}

	var target *Run
	highlighted := false
	for _, r := range runs {
		if r.Highlighted() {
			highlighted = true
		}
		if target == nil && !r.HasDrawing() {
			target = r
		}
	}
	if target == nil {
		return false
	}

	target.SetText(replaced)
	for _, r := range runs {
		if r == target || r.HasDrawing() {
			continue
		}
		if highlighted {
			r.SetText("")
		} else {
			p.removeRun(r)
		}
	}
	return true
}
