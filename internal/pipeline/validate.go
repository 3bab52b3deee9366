package pipeline

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/culturefeed/curator-cli/internal/model"
	"github.com/culturefeed/curator-cli/internal/schema"
)

// snakeCaseRe is the configured field naming convention: lowercase, digits,
// underscores, starting with a letter or underscore.
var snakeCaseRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// validate checks the event against every invariant and accumulates all
// violations in one pass; the caller needs the full list, so no check
// short-circuits. The category schema checks (required fields, date/time
// arity) only apply when a category was determined; uncategorized events are
// validated for basic shape only.
func (o *Orchestrator) validate(evt model.Event, sch *schema.ExtractionSchema) []string {
	var errs []string

	spec := o.doc.DateTimeSpec
	dates := evt.Strings(spec.DateField)
	times := evt.Strings(spec.TimeField)

	if sch != nil {
		for _, name := range sch.RequiredFields() {
			if evt.Empty(name) {
				errs = append(errs, fmt.Sprintf("Missing required field: %s", name))
			}
		}

		if len(dates) == 0 {
			errs = append(errs, fmt.Sprintf("Missing or empty %s field", spec.DateField))
		}
		if len(times) == 0 {
			errs = append(errs, fmt.Sprintf("Missing or empty %s field", spec.TimeField))
		}
		if spec.ZipRule == zipRulePairwise && len(dates) > 0 && len(times) > 0 && len(dates) != len(times) {
			errs = append(errs, fmt.Sprintf("Mismatched lengths: %d %s != %d %s",
				len(dates), spec.DateField, len(times), spec.TimeField))
		}
	}

	layout := spec.DateLayout()
	for _, d := range dates {
		if !validDate(d, layout) {
			errs = append(errs, fmt.Sprintf("Invalid date format: %q (expected %s)", d, spec.DateFormat))
		}
	}

	// Guards against camelCase leaking from an LLM response.
	keys := make([]string, 0, len(evt))
	for k := range evt {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !snakeCaseRe.MatchString(k) {
			errs = append(errs, fmt.Sprintf("Invalid field name: %q", k))
		}
	}

	return errs
}

// validDate requires a strict parse: the value must round-trip through the
// layout unchanged, so non-padded or partial dates are rejected.
func validDate(value, layout string) bool {
	t, err := time.Parse(layout, value)
	if err != nil {
		return false
	}
	return t.Format(layout) == value
}
