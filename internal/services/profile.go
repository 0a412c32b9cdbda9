package services

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profile.yaml
var defaultProfileYAML []byte

// TemplateProfile describes the literal text a quotation template ships with. The generator
// uses these literals as replacement keys, so a new template only needs a new profile.
type TemplateProfile struct {
	TemplatePath string            `yaml:"template_path"`
	Tags         SectionTags       `yaml:"tags"`
	ImageMarker  string            `yaml:"image_marker"`
	WordsSuffix  string            `yaml:"words_suffix"`
	Defaults     HeaderDefaults    `yaml:"defaults"`
	Fixtures     []FixtureDefaults `yaml:"fixtures"`
}

type SectionTags struct {
	Inclusions     string `yaml:"inclusions"`
	Scope          string `yaml:"scope"`
	Specifications string `yaml:"specifications"`
}

func (t SectionTags) All() []string {
	return []string{t.Inclusions, t.Scope, t.Specifications}
}

type HeaderDefaults struct {
	QuoteNo          string `yaml:"quote_no"`
	Revision         string `yaml:"revision"`
	Date             string `yaml:"date"`
	ToPerson         string `yaml:"to_person"`
	Firm             string `yaml:"firm"`
	Address          string `yaml:"address"`
	PaymentTerms     string `yaml:"payment_terms"`
	DeliveryTerms    string `yaml:"delivery_terms"`
	ScopeDescription string `yaml:"scope_description"`
	Scope1           string `yaml:"scope_1"`
	Scope2           string `yaml:"scope_2"`
}

type FixtureDefaults struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	HSNCode     string `yaml:"hsn"`
	Price       string `yaml:"price"`
	Words       string `yaml:"words"`
}

// DefaultProfile returns the profile of the stock quotation template.
func DefaultProfile() *TemplateProfile {
	profile, err := ParseProfile(defaultProfileYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in template profile is invalid: %v", err))
	}
	return profile
}

// LoadProfile reads a profile from path, or returns the built-in one when path is empty.
func LoadProfile(path string) (*TemplateProfile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template profile: %w", err)
	}
	return ParseProfile(data)
}

func ParseProfile(data []byte) (*TemplateProfile, error) {
	var profile TemplateProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse template profile: %w", err)
	}
	if err := profile.validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (p *TemplateProfile) validate() error {
	if p.TemplatePath == "" {
		return errors.New("template profile: template_path is required")
	}
	for _, tag := range p.Tags.All() {
		if strings.TrimSpace(tag) == "" {
			return errors.New("template profile: every section tag must be set")
		}
	}
	if strings.Count(p.ImageMarker, "%d") != 1 {
		return fmt.Errorf("template profile: image_marker %q must contain exactly one %%d", p.ImageMarker)
	}
	return nil
}

// Marker returns the inline image marker for fixture n (1-based).
func (p *TemplateProfile) Marker(n int) string {
	return fmt.Sprintf(p.ImageMarker, n)
}
