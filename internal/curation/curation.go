// Package curation loads and validates the curation document: the ontology,
// per-category templates, and per-venue policies that drive the enrichment
// pipeline. The document is read once at startup and is read-only afterward.
package curation

import (
	"bytes"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ErrConfig marks a malformed or incomplete curation document. It is fatal at
// load time and never recovered.
var ErrConfig = eris.New("curation: invalid configuration")

// ZipRulePairwise requires the date and time arrays to have equal lengths.
const ZipRulePairwise = "pairwise_equal_length"

// Document is the full curation configuration.
type Document struct {
	Style        Style                       `yaml:"style"`
	DateTimeSpec DateTimeSpec                `yaml:"date_time_spec"`
	Ontology     Ontology                    `yaml:"ontology"`
	Templates    map[string]CategoryTemplate `yaml:"templates"`
	Venues       map[string]VenuePolicy      `yaml:"venues"`
}

// Style holds document-wide conventions.
type Style struct {
	FieldNaming string `yaml:"field_naming"`
}

// DateTimeSpec declares which fields carry dates and times and how they are
// formatted. Formats use YYYY/MM/DD/HH/mm tokens.
type DateTimeSpec struct {
	DateField  string `yaml:"date_field"`
	TimeField  string `yaml:"time_field"`
	DateFormat string `yaml:"date_format"`
	TimeFormat string `yaml:"time_format"`
	ZipRule    string `yaml:"zip_rule"`
}

var layoutReplacer = strings.NewReplacer(
	"YYYY", "2006",
	"MM", "01",
	"DD", "02",
	"HH", "15",
	"mm", "04",
)

// DateLayout converts the token-style date format to a Go time layout.
func (s DateTimeSpec) DateLayout() string {
	return layoutReplacer.Replace(s.DateFormat)
}

// Ontology is the fixed, ordered, closed set of valid category labels.
type Ontology struct {
	Labels []string `yaml:"labels"`
}

// Contains reports whether label is a member of the ontology.
func (o Ontology) Contains(label string) bool {
	for _, l := range o.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// FieldDefinition is the base definition of a template field.
type FieldDefinition struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// CategoryTemplate declares the recognized fields for one ontology label.
type CategoryTemplate struct {
	Fields            []string                   `yaml:"fields"`
	FieldDefinitions  map[string]FieldDefinition `yaml:"field_definitions"`
	RequiredOnPublish []string                   `yaml:"required_on_publish"`
}

// Required reports whether field is in the template's required_on_publish set.
func (t CategoryTemplate) Required(field string) bool {
	for _, f := range t.RequiredOnPublish {
		if f == field {
			return true
		}
	}
	return false
}

// ClassificationPolicy controls whether a venue's events are classified by
// the LLM or assigned a fixed category.
type ClassificationPolicy struct {
	Enabled              bool   `yaml:"enabled"`
	AssumedEventCategory string `yaml:"assumed_event_category"`
}

// EnrichmentPolicy controls whether missing required fields are filled in.
type EnrichmentPolicy struct {
	Enabled bool `yaml:"enabled"`
}

// FieldOverride adjusts one template field for a specific venue.
type FieldOverride struct {
	Required          *bool  `yaml:"required"`
	Description       string `yaml:"description"`
	DescriptionAppend string `yaml:"description_append"`
	DefaultValue      any    `yaml:"default_value"`
	DynamicGuidance   string `yaml:"dynamic_guidance"`
}

// VenuePolicy is the per-venue configuration. Immutable once loaded.
type VenuePolicy struct {
	Classification   ClassificationPolicy     `yaml:"classification"`
	Enrichment       EnrichmentPolicy         `yaml:"enrichment"`
	FailFast         bool                     `yaml:"fail_fast"`
	BatchDescription string                   `yaml:"batch_description"`
	FieldOverrides   map[string]FieldOverride `yaml:"field_overrides"`
}

// Load reads and validates a curation document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "curation: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a curation document.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "curation: decode document")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the document's internal consistency. Every violation is a
// ConfigError: the pipeline must never start on a malformed document.
func (d *Document) Validate() error {
	if d.Style.FieldNaming != "snake_case" {
		return eris.Wrapf(ErrConfig, "style.field_naming must be %q, got %q", "snake_case", d.Style.FieldNaming)
	}
	if d.DateTimeSpec.DateField == "" || d.DateTimeSpec.TimeField == "" {
		return eris.Wrap(ErrConfig, "date_time_spec must declare date_field and time_field")
	}
	if d.DateTimeSpec.DateFormat == "" || d.DateTimeSpec.TimeFormat == "" {
		return eris.Wrap(ErrConfig, "date_time_spec must declare date_format and time_format")
	}
	if d.DateTimeSpec.ZipRule == "" {
		d.DateTimeSpec.ZipRule = ZipRulePairwise
	}
	if d.DateTimeSpec.ZipRule != ZipRulePairwise && d.DateTimeSpec.ZipRule != "none" {
		return eris.Wrapf(ErrConfig, "unknown zip_rule %q", d.DateTimeSpec.ZipRule)
	}
	if len(d.Ontology.Labels) == 0 {
		return eris.Wrap(ErrConfig, "ontology.labels must not be empty")
	}
	seen := make(map[string]bool, len(d.Ontology.Labels))
	for _, label := range d.Ontology.Labels {
		if seen[label] {
			return eris.Wrapf(ErrConfig, "duplicate ontology label %q", label)
		}
		seen[label] = true
	}
	// Classification can yield any ontology label, so each one must resolve
	// to a usable template. A gap here would surface mid-batch as a schema
	// resolution failure driven by model output.
	for _, label := range d.Ontology.Labels {
		tpl, ok := d.Templates[label]
		if !ok {
			return eris.Wrapf(ErrConfig, "ontology label %q has no template", label)
		}
		if len(tpl.FieldDefinitions) == 0 {
			return eris.Wrapf(ErrConfig, "template %q has no field definitions", label)
		}
	}
	for label, tpl := range d.Templates {
		if !d.Ontology.Contains(label) {
			return eris.Wrapf(ErrConfig, "template %q is not an ontology label", label)
		}
		known := make(map[string]bool, len(tpl.Fields))
		for _, f := range tpl.Fields {
			known[f] = true
		}
		for _, f := range tpl.RequiredOnPublish {
			if !known[f] {
				return eris.Wrapf(ErrConfig, "template %q requires undeclared field %q", label, f)
			}
		}
		for f := range tpl.FieldDefinitions {
			if !known[f] {
				return eris.Wrapf(ErrConfig, "template %q defines undeclared field %q", label, f)
			}
		}
	}
	for key, venue := range d.Venues {
		assumed := venue.Classification.AssumedEventCategory
		if assumed != "" && !d.Ontology.Contains(assumed) {
			return eris.Wrapf(ErrConfig, "venue %q assumed category %q is not an ontology label", key, assumed)
		}
	}
	return nil
}

// Venue returns the policy for key. Unknown venues are a ConfigError: event
// records always arrive tagged with a venue the document must know about.
func (d *Document) Venue(key string) (*VenuePolicy, error) {
	venue, ok := d.Venues[key]
	if !ok {
		return nil, eris.Wrapf(ErrConfig, "unknown venue %q", key)
	}
	return &venue, nil
}

// Template returns the category template for label.
func (d *Document) Template(label string) (*CategoryTemplate, error) {
	tpl, ok := d.Templates[label]
	if !ok {
		return nil, eris.Wrapf(ErrConfig, "no template for category %q", label)
	}
	return &tpl, nil
}
