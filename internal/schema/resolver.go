// Package schema merges category templates with venue field overrides into
// executable extraction schemas.
package schema

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/culturefeed/curator-cli/internal/curation"
)

// FieldSpec is the final definition of one field after overrides.
type FieldSpec struct {
	Type            string
	Description     string
	Required        bool
	DefaultValue    any
	DynamicGuidance string
}

// ExtractionSchema is the merged, executable schema for one (venue, category)
// pair. Derived on demand, never persisted.
type ExtractionSchema struct {
	Category         string
	Fields           map[string]FieldSpec
	Order            []string // template field order, for deterministic prompts
	FieldOverrides   map[string]curation.FieldOverride
	BatchDescription string
}

// RequiredFields returns the required field names in template order.
func (s *ExtractionSchema) RequiredFields() []string {
	var out []string
	for _, f := range s.Order {
		if s.Fields[f].Required {
			out = append(out, f)
		}
	}
	return out
}

// Resolver builds extraction schemas from the curation document.
type Resolver struct {
	doc *curation.Document
}

// NewResolver creates a Resolver over a loaded curation document.
func NewResolver(doc *curation.Document) *Resolver {
	return &Resolver{doc: doc}
}

// Resolve merges the category template with the venue's field overrides.
// When category is empty, the venue's assumed category is used instead.
func (r *Resolver) Resolve(venueKey, category string) (*ExtractionSchema, error) {
	venue, err := r.doc.Venue(venueKey)
	if err != nil {
		return nil, err
	}

	if category == "" {
		category = venue.Classification.AssumedEventCategory
	}
	if category == "" {
		return nil, eris.Wrapf(curation.ErrConfig, "venue %q: no category to resolve and no assumed category", venueKey)
	}

	tpl, err := r.doc.Template(category)
	if err != nil {
		return nil, err
	}
	// A template with fields but no field definitions is a configuration bug,
	// not a data bug.
	if len(tpl.FieldDefinitions) == 0 {
		return nil, eris.Wrapf(curation.ErrConfig, "template %q has no field definitions", category)
	}

	out := &ExtractionSchema{
		Category:       category,
		Fields:         make(map[string]FieldSpec, len(tpl.Fields)),
		Order:          append([]string(nil), tpl.Fields...),
		FieldOverrides: venue.FieldOverrides,
	}

	for _, name := range tpl.Fields {
		def := tpl.FieldDefinitions[name]
		spec := FieldSpec{
			Type:        def.Type,
			Description: def.Description,
			Required:    tpl.Required(name),
		}

		if ov, ok := venue.FieldOverrides[name]; ok {
			if ov.Required != nil {
				spec.Required = *ov.Required
			}
			if ov.Description != "" {
				spec.Description = ov.Description
			}
			if ov.DescriptionAppend != "" {
				spec.Description += ov.DescriptionAppend
			}
			if ov.DefaultValue != nil {
				spec.DefaultValue = ov.DefaultValue
			}
			if ov.DynamicGuidance != "" {
				spec.DynamicGuidance = ov.DynamicGuidance
			}
		}

		out.Fields[name] = spec
	}

	out.BatchDescription = venue.BatchDescription
	if out.BatchDescription == "" {
		out.BatchDescription = fmt.Sprintf("%s events from venue %s", category, venueKey)
	}

	return out, nil
}
