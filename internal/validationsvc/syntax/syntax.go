// Package syntax validates configuration content against its declared
// wire format. It replaces the original service's hand-rolled
// bracket-depth scanner with a real parser: encoding/json for JSON,
// gopkg.in/yaml.v3 for YAML, decoded into map[string]any so downstream
// rule evaluation (see validationsvc.ApplyCustomRules) can walk dotted
// field paths instead of grepping raw text.
package syntax

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/codec404/Konfig/internal/model"
)

// ValidateJSON parses content as JSON. On success it returns the decoded
// document for rule evaluation; on failure it returns a single syntax
// ValidationError describing where the parser gave up.
func ValidateJSON(content []byte) (map[string]any, []model.ValidationError) {
	var doc map[string]any
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, []model.ValidationError{{
			ErrorType: "syntax",
			Message:   fmt.Sprintf("invalid JSON: %v", err),
		}}
	}
	return doc, nil
}

// ValidateYAML parses content as YAML, returning errors analogous to
// ValidateJSON.
func ValidateYAML(content []byte) (map[string]any, []model.ValidationError) {
	var doc map[string]any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, []model.ValidationError{{
			ErrorType: "syntax",
			Message:   fmt.Sprintf("invalid YAML: %v", err),
		}}
	}
	return doc, nil
}

// ValidateStructure performs the additional YAML structural check the
// original service ran after syntax passed: a document that parses but
// is empty gets a warning rather than a hard error since it may still be
// intentional (an empty config). A top level that is not a mapping never
// reaches this check: ValidateJSON and ValidateYAML report it as a syntax
// error because they decode into map[string]any.
func ValidateStructure(doc map[string]any) []model.ValidationWarning {
	if len(doc) == 0 {
		return []model.ValidationWarning{{
			WarningType: "structure",
			Message:     "document has no top-level keys",
		}}
	}
	return nil
}
