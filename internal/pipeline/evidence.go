package pipeline

import (
	"fmt"
	"strings"
)

// Evidence kinds a field candidate may claim.
const (
	EvidenceSubstring = "substring"
	EvidenceCitation  = "citation"
)

// acceptEvidence decides whether a candidate field value is admissible.
// Substring evidence requires the value to appear verbatim (case-sensitive,
// whitespace-collapsed) in the source context; citation evidence requires at
// least one URL. Unknown evidence kinds are rejected: the check fails closed
// so enrichment can never fabricate facts.
func acceptEvidence(value any, evidenceKind string, citations []string, context string) bool {
	if isEmptyValue(value) {
		return false
	}

	switch evidenceKind {
	case EvidenceSubstring:
		needle := collapseWhitespace(stringify(value))
		haystack := collapseWhitespace(context)
		return needle != "" && strings.Contains(haystack, needle)
	case EvidenceCitation:
		return len(citations) > 0
	default:
		return false
	}
}

func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case bool:
		return !v
	case float64:
		return v == 0
	case int:
		return v == 0
	}
	return false
}

// stringify renders a candidate value the way it would appear in source text.
// Arrays join with single spaces so multi-word values still substring-match.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, " ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		return strings.Join(parts, " ")
	}
	return fmt.Sprintf("%v", value)
}

// collapseWhitespace folds every whitespace run into a single space.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
