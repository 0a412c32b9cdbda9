package processor

import (
	"errors"
	"fmt"
)

var ErrPricingTableMissing = errors.New("pricing table not found")

// TemplateReport describes how well a template matches the structure the quotation
// generator relies on: the pricing table by position and tag markers by literal text.
type TemplateReport struct {
	Tables      int       `json:"tables"`
	Columns     ColumnMap `json:"columns"`
	FixtureRows int       `json:"fixture_rows"`
	MissingTags []string  `json:"missing_tags,omitempty"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// CanGrow reports whether the pricing table has enough template rows to clone from.
func (r *TemplateReport) CanGrow() bool {
	return r.FixtureRows >= TemplateCapacity
}

// InspectTemplate validates the structural contract of a quotation template. A missing
// pricing table is an error; everything else is reported as a warning.
func InspectTemplate(doc *Document, tags []string) (*TemplateReport, error) {
	tables := doc.Tables()
	report := &TemplateReport{Tables: len(tables)}
	if len(tables) <= PricingTableIndex {
		return report, fmt.Errorf("%w: template has %d tables, expected at least %d",
			ErrPricingTableMissing, len(tables), PricingTableIndex+1)
	}

	rows := tables[PricingTableIndex].Rows()
	if len(rows) == 0 {
		return report, fmt.Errorf("%w: pricing table has no rows", ErrPricingTableMissing)
	}
	report.Columns = ScanColumns(rows[0])
	report.FixtureRows = len(findItemRows(rows))

	for _, role := range []ColumnRole{ColumnSerial, ColumnDescription, ColumnQuantity, ColumnRate, ColumnAmount} {
		if !report.Columns.Has(role) {
			report.Warnings = append(report.Warnings, fmt.Sprintf("pricing table has no %s column", role))
		}
	}
	if !report.CanGrow() {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("pricing table has %d fixture rows, extra fixtures cannot be added", report.FixtureRows))
	}

	for _, tag := range tags {
		if len(doc.ParagraphsContaining(tag)) == 0 {
			report.MissingTags = append(report.MissingTags, tag)
		}
	}
	return report, nil
}
