package processor

import (
	"fmt"
)

// InlineImage is a picture that replaces Marker wherever it appears in narrative text.
type InlineImage struct {
	Marker string
	Name   string
	Data   []byte
}

// Job is everything needed to turn a template into a finished quotation.
type Job struct {
	Replacements ReplacementMap
	Fixtures     []Fixture
	InlineImages []InlineImage
}

type FillReport struct {
	ParagraphsReplaced int            `json:"paragraphs_replaced"`
	Table              PopulateResult `json:"table"`
	InlineEmbedded     int            `json:"inline_embedded"`
	InlineFailures     int            `json:"inline_failures"`
}

func (r *FillReport) ImageFailures() int {
	return r.Table.ImageFailures + r.InlineFailures
}

// Engine runs substitution, table population and inline images in that order. Table
// population must follow substitution, otherwise freshly written serials and placeholders
// would be exposed to the literal replacements.
type Engine struct {
	embedder  *Embedder
	populator *TablePopulator
	opts      ReplaceOptions
}

func NewEngine(images ImageProcessor, cloner RowCloner) *Engine {
	embedder := NewEmbedder(images)
	return &Engine{
		embedder:  embedder,
		populator: NewTablePopulator(embedder, cloner),
		opts:      DefaultReplaceOptions(),
	}
}

// Embedder exposes the engine's picture helper, mostly so callers can hook failures.
func (e *Engine) Embedder() *Embedder {
	return e.embedder
}

func (e *Engine) Fill(doc *Document, job Job) (*FillReport, error) {
	if err := job.Replacements.Validate(); err != nil {
		return nil, fmt.Errorf("invalid replacements: %w", err)
	}

	report := &FillReport{}
	report.ParagraphsReplaced = SeekAndReplace(doc, job.Replacements, e.opts)

	tables := doc.Tables()
	if len(tables) > e.opts.PricingTable && e.opts.PricingTable >= 0 {
		report.Table = e.populator.Populate(doc, tables[e.opts.PricingTable], job.Fixtures)
	} else {
		report.Table.diagnose("%v: document has %d tables", ErrPricingTableMissing, len(tables))
	}

	for _, img := range job.InlineImages {
		for _, p := range doc.ParagraphsContaining(img.Marker) {
			if e.embedder.EmbedInline(doc, p, img.Marker, img.Data) {
				report.InlineEmbedded++
				continue
			}
			report.InlineFailures++
			replaceInParagraph(p, ReplacementMap{{Old: img.Marker, New: ImagePlaceholder(img.Name)}})
		}
	}

	return report, nil
}
