package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"KEC-QUOTE/internal/logger"
	"KEC-QUOTE/internal/metrics"
	"KEC-QUOTE/internal/models"
	"KEC-QUOTE/internal/processor"
)

const DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// minFixtures is the number of fixture entries the generator always renders.
const minFixtures = processor.TemplateCapacity

// FixtureInput is one line item as submitted by the quotation form.
type FixtureInput struct {
	Name          string `json:"name"`
	Description   string `json:"desc"`
	HSNCode       string `json:"hsn"`
	Quantity      string `json:"qty"`
	Unit          string `json:"unit"`
	Price         string `json:"price"`
	Total         string `json:"total"`
	Words         string `json:"words"`
	Inclusions    string `json:"inclusions"`
	Scope         string `json:"scope"`
	Specification string `json:"spec"`

	Image            []byte `json:"-"`
	ImageName        string `json:"image_name,omitempty"`
	ImageContentType string `json:"-"`
}

func (f FixtureInput) HasImage() bool {
	return len(f.Image) > 0
}

func (f FixtureInput) record() models.FixtureRecord {
	return models.FixtureRecord{
		Name:          f.Name,
		Description:   f.Description,
		HSNCode:       f.HSNCode,
		Quantity:      f.Quantity,
		Unit:          f.Unit,
		Price:         f.Price,
		Total:         f.Total,
		Words:         f.Words,
		Inclusions:    f.Inclusions,
		Scope:         f.Scope,
		Specification: f.Specification,
		ImageName:     f.ImageName,
	}
}

func fixtureFromRecord(r models.FixtureRecord) FixtureInput {
	return FixtureInput{
		Name:          r.Name,
		Description:   r.Description,
		HSNCode:       r.HSNCode,
		Quantity:      r.Quantity,
		Unit:          r.Unit,
		Price:         r.Price,
		Total:         r.Total,
		Words:         r.Words,
		Inclusions:    r.Inclusions,
		Scope:         r.Scope,
		Specification: r.Specification,
		ImageName:     r.ImageName,
	}
}

// QuotationForm is the typed record behind one quotation document.
type QuotationForm struct {
	QuoteNo          string         `json:"quote_no"`
	Revision         string         `json:"revision"`
	Date             string         `json:"date"`
	ToPerson         string         `json:"to_person"`
	Firm             string         `json:"firm"`
	Address          string         `json:"address"`
	PaymentTerms     string         `json:"payment_terms"`
	DeliveryTerms    string         `json:"delivery_terms"`
	ScopeDescription string         `json:"scope_desc"`
	Scope1           string         `json:"scope_1"`
	Scope2           string         `json:"scope_2"`
	Status           string         `json:"status"`
	Fixtures         []FixtureInput `json:"fixtures"`
}

// Filename is the download name of the generated document.
func (f *QuotationForm) Filename(ext string) string {
	quoteNo := strings.TrimSpace(f.QuoteNo)
	return fmt.Sprintf("Updated_Quotation_%s.%s", quoteNo, ext)
}

// BuildReplacements maps the literal text of the template to the submitted values. Blank
// fields and values identical to the template text keep the template text.
func BuildReplacements(profile *TemplateProfile, form *QuotationForm) processor.ReplacementMap {
	var m processor.ReplacementMap
	set := func(old, value string) {
		if old == "" || strings.TrimSpace(value) == "" || value == old {
			return
		}
		m.Set(old, value)
	}

	d := profile.Defaults
	set(d.QuoteNo, form.QuoteNo)
	set(d.Revision, form.Revision)
	set(d.Date, form.Date)
	set(d.ToPerson, form.ToPerson)
	set(d.Firm, form.Firm)
	set(d.Address, form.Address)
	set(d.PaymentTerms, form.PaymentTerms)
	set(d.DeliveryTerms, form.DeliveryTerms)
	set(d.ScopeDescription, form.ScopeDescription)
	set(d.Scope1, form.Scope1)
	set(d.Scope2, form.Scope2)

	for i, f := range form.Fixtures {
		if i >= len(profile.Fixtures) {
			break
		}
		def := profile.Fixtures[i]
		if name := strings.TrimSpace(f.Name); name != "" {
			set(def.Name, name+" ")
		}
		set(def.Description, f.Description)
		if strings.TrimSpace(f.Price) != "" {
			set(def.Price, displayPrice(f.Price))
		}
		set(def.Words, fixtureWords(profile, f))
	}

	// Tags are always replaced so no bracketed marker survives into the document.
	sections := TaggedSections(profile, form.Fixtures)
	for _, tag := range profile.Tags.All() {
		if text := sections[tag]; text != "" {
			set(tag, text)
		} else {
			m.Set(tag, " ")
		}
	}

	return m
}

// TaggedSections builds the narrative for each section tag from the per-fixture texts.
// Blocks are numbered by fixture position and separated by a blank line. A fixture with an
// image gets the inline image marker at the end of its specification block.
func TaggedSections(profile *TemplateProfile, fixtures []FixtureInput) map[string]string {
	var inclusions, scope, specs []string
	for i, f := range fixtures {
		n := i + 1
		title := fmt.Sprintf("%d. %s", n, fixtureTitle(f, n))
		if text := strings.TrimSpace(f.Inclusions); text != "" {
			inclusions = append(inclusions, title+"\n"+text)
		}
		if text := strings.TrimSpace(f.Scope); text != "" {
			scope = append(scope, title+"\n"+text)
		}
		spec := strings.TrimSpace(f.Specification)
		if spec == "" && !f.HasImage() {
			continue
		}
		block := title
		if spec != "" {
			block += "\n" + spec
		}
		if f.HasImage() {
			block += "\n" + profile.Marker(n)
		}
		specs = append(specs, block)
	}
	return map[string]string{
		profile.Tags.Inclusions:     strings.Join(inclusions, "\n\n"),
		profile.Tags.Scope:          strings.Join(scope, "\n\n"),
		profile.Tags.Specifications: strings.Join(specs, "\n\n"),
	}
}

func fixtureTitle(f FixtureInput, n int) string {
	if name := strings.TrimSpace(f.Name); name != "" {
		return name
	}
	return "Fixture " + strconv.Itoa(n)
}

// BuildFixtures converts the form lines into pricing table entries, deriving the line total
// and amount in words when the form left them blank. The result holds at least two entries.
func BuildFixtures(profile *TemplateProfile, inputs []FixtureInput) []processor.Fixture {
	fixtures := make([]processor.Fixture, 0, max(len(inputs), minFixtures))
	for _, in := range inputs {
		fixtures = append(fixtures, processor.Fixture{
			Name:          strings.TrimSpace(in.Name),
			Description:   strings.TrimSpace(in.Description),
			HSNCode:       in.HSNCode,
			Quantity:      strings.TrimSpace(in.Quantity),
			Unit:          strings.TrimSpace(in.Unit),
			Rate:          displayPrice(in.Price),
			Amount:        fixtureTotal(in),
			AmountInWords: fixtureWords(profile, in),
			Specification: in.Specification,
			Image:         in.Image,
		})
	}
	for len(fixtures) < minFixtures {
		fixtures = append(fixtures, processor.Fixture{})
	}
	return fixtures
}

func displayPrice(price string) string {
	price = strings.TrimSpace(price)
	if v, ok := ParseAmount(price); ok {
		return FormatRupees(v)
	}
	return price
}

func fixtureTotal(f FixtureInput) string {
	if total := strings.TrimSpace(f.Total); total != "" {
		return displayPrice(total)
	}
	qty, okQty := ParseAmount(f.Quantity)
	price, okPrice := ParseAmount(f.Price)
	if !okQty || !okPrice {
		return ""
	}
	return FormatRupees(qty * price)
}

func fixtureWords(profile *TemplateProfile, f FixtureInput) string {
	if words := strings.TrimSpace(f.Words); words != "" {
		return words
	}
	price, ok := ParseAmount(f.Price)
	if !ok {
		return ""
	}
	return AmountInWords(price) + profile.WordsSuffix
}

// GeneratedQuotation is a filled document ready for download.
type GeneratedQuotation struct {
	Data      []byte
	Filename  string
	Landscape bool
	Report    *processor.FillReport
	Warnings  []string
}

// QuotationGenerator fills the quotation template for a form.
type QuotationGenerator struct {
	templates *TemplateService
	engine    *processor.Engine
	profile   *TemplateProfile
	metrics   *metrics.Metrics
	log       *logger.Logger
}

func NewQuotationGenerator(templates *TemplateService, engine *processor.Engine, m *metrics.Metrics, log *logger.Logger) *QuotationGenerator {
	if log == nil {
		log = logger.Nop()
	}
	return &QuotationGenerator{
		templates: templates,
		engine:    engine,
		profile:   templates.Profile(),
		metrics:   m,
		log:       log.With("component", "quotation_generator"),
	}
}

var ErrEmptyQuotation = errors.New("quotation has no content")

// Generate runs substitution, table population and inline images against a fresh copy of
// the template. Any error aborts the whole generation; image problems only degrade.
func (g *QuotationGenerator) Generate(ctx context.Context, form *QuotationForm) (*GeneratedQuotation, error) {
	if form == nil {
		return nil, ErrEmptyQuotation
	}
	start := time.Now()
	out, err := g.generate(ctx, form)
	g.metrics.RecordGeneration(err == nil, time.Since(start))
	if err != nil {
		g.log.Error("quotation generation failed", "quote_no", form.QuoteNo, "error", err)
		return nil, err
	}
	g.metrics.RecordFill(out.Report.Table.Cloned, out.Report.Table.ImageFailures, out.Report.InlineFailures)
	g.log.Info("quotation generated",
		"quote_no", form.QuoteNo,
		"fixtures", len(form.Fixtures),
		"cloned", out.Report.Table.Cloned,
		"image_failures", out.Report.ImageFailures(),
		"duration", time.Since(start))
	return out, nil
}

func (g *QuotationGenerator) generate(ctx context.Context, form *QuotationForm) (*GeneratedQuotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := g.templates.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}

	replacements := BuildReplacements(g.profile, form)
	var warnings []string

	job := processor.Job{
		Replacements: replacements,
		Fixtures:     BuildFixtures(g.profile, form.Fixtures),
	}
	for i, f := range form.Fixtures {
		if !f.HasImage() {
			continue
		}
		job.InlineImages = append(job.InlineImages, processor.InlineImage{
			Marker: g.profile.Marker(i + 1),
			Name:   strings.TrimSpace(f.Name),
			Data:   f.Image,
		})
	}

	report, err := g.engine.Fill(doc, job)
	if err != nil {
		return nil, fmt.Errorf("failed to fill template: %w", err)
	}
	for _, d := range report.Table.Diagnostics {
		warnings = append(warnings, d)
		g.log.Warn("pricing table diagnostic", "quote_no", form.QuoteNo, "detail", d)
	}

	data, err := doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}

	return &GeneratedQuotation{
		Data:      data,
		Filename:  form.Filename("docx"),
		Landscape: doc.DetectOrientation(),
		Report:    report,
		Warnings:  warnings,
	}, nil
}
