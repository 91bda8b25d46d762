package validationsvc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/codec404/Konfig/internal/model"
)

// ApplyCustomRules runs a service's registered rules against the parsed
// document. Unlike the original's text-scanning findKey/range logic, it
// walks the decoded map directly, and a "cel" rule compiles and
// evaluates a boolean CEL expression against the document — grounded on
// flo's celfilter.go pattern, repurposed from stream filtering to
// config-field validation.
func ApplyCustomRules(rules []model.ValidationRule, doc map[string]any) []model.ValidationError {
	var errors []model.ValidationError
	for _, rule := range rules {
		switch rule.RuleType {
		case "required":
			if _, ok := lookupPath(doc, rule.FieldPath); !ok {
				errors = append(errors, model.ValidationError{
					Field: rule.FieldPath, ErrorType: "required", Message: ruleMessage(rule, "required field is missing"),
				})
			}
		case "range":
			if err := checkRange(rule, doc); err != nil {
				errors = append(errors, *err)
			}
		case "cel":
			ok, err := evalCELRule(rule.CELExpr, doc)
			if err != nil || !ok {
				errors = append(errors, model.ValidationError{
					Field: rule.FieldPath, ErrorType: "cel", Message: ruleMessage(rule, "custom expression rejected this value"),
				})
			}
		}
	}
	return errors
}

func ruleMessage(rule model.ValidationRule, fallback string) string {
	if rule.ErrorMessage != "" {
		return rule.ErrorMessage
	}
	return fmt.Sprintf("%s: %s", rule.FieldPath, fallback)
}

// lookupPath walks a dotted field path ("database.host") through nested
// maps produced by encoding/json or yaml.v3.
func lookupPath(doc map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	cur := any(doc)
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, exists := m[key]
		if !exists {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

type rangeConfig struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

func checkRange(rule model.ValidationRule, doc map[string]any) *model.ValidationError {
	v, ok := lookupPath(doc, rule.FieldPath)
	if !ok {
		return nil // absent field: "required" rules cover presence, range is silent
	}
	num, ok := toFloat(v)
	if !ok {
		return &model.ValidationError{
			Field: rule.FieldPath, ErrorType: "range",
			Message: ruleMessage(rule, "expected a numeric value"),
		}
	}

	var cfg rangeConfig
	if rule.RuleConfig != "" {
		if err := json.Unmarshal([]byte(rule.RuleConfig), &cfg); err != nil {
			return &model.ValidationError{
				Field: rule.FieldPath, ErrorType: "range",
				Message: fmt.Sprintf("invalid rule_config for %s: %v", rule.FieldPath, err),
			}
		}
	}
	if cfg.Min != nil && num < *cfg.Min {
		return &model.ValidationError{Field: rule.FieldPath, ErrorType: "range", Message: ruleMessage(rule, "value below minimum")}
	}
	if cfg.Max != nil && num > *cfg.Max {
		return &model.ValidationError{Field: rule.FieldPath, ErrorType: "range", Message: ruleMessage(rule, "value above maximum")}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func evalCELRule(expr string, doc map[string]any) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	env, err := cel.NewEnv(cel.Variable("config", cel.DynType))
	if err != nil {
		return false, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return false, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return false, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return false, err
	}
	out, _, err := prog.Eval(map[string]any{"config": doc})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("cel expression did not evaluate to bool")
	}
	return b, nil
}
