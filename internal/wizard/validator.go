// internal/wizard/validator.go
package wizard

import (
	"fmt"
	"regexp"
	"strings"
)

// RuleType enumerates the step-local checks a flow definition can declare.
// Validation is synchronous and local; the only cross-field rules are simple
// pairs (matches_field, min_price_lte_max).
type RuleType string

const (
	RuleRequired     RuleType = "required"
	RuleRequireTrue  RuleType = "require_true"
	RuleMinLength    RuleType = "min_length"
	RuleMatchesField RuleType = "matches_field"
	RuleEmail        RuleType = "email"
	RuleDigits       RuleType = "digits"
	RuleMinValue     RuleType = "min_value"
	RuleLTEField     RuleType = "lte_field"
)

// Rule is one declared check for one field of one step.
type Rule struct {
	Field   string   `json:"field"`
	Type    RuleType `json:"type"`
	Param   string   `json:"param,omitempty"`
	Message string   `json:"message,omitempty"`
}

// StepDefinition declares one wizard step and its checks.
type StepDefinition struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Rules []Rule `json:"rules,omitempty"`
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateStep runs a step's rules against the store and returns a
// field->message map. An empty map means the step is advance-eligible.
// The store is never mutated here; the controller applies the result.
func ValidateStep(step StepDefinition, store *FieldStore) map[string]string {
	errs := map[string]string{}

	for _, rule := range step.Rules {
		if _, taken := errs[rule.Field]; taken {
			continue // first failing rule per field wins
		}
		if msg := checkRule(rule, store); msg != "" {
			errs[rule.Field] = msg
		}
	}

	return errs
}

func checkRule(rule Rule, store *FieldStore) string {
	value, present := store.Get(rule.Field)

	switch rule.Type {
	case RuleRequired:
		if !present || value.Blank() {
			return message(rule, fmt.Sprintf("%s is required", label(rule.Field)))
		}

	case RuleRequireTrue:
		if !store.GetBool(rule.Field) {
			return message(rule, fmt.Sprintf("You must accept %s", label(rule.Field)))
		}

	case RuleMinLength:
		// Skip when blank; RuleRequired owns the missing case.
		if present && !value.Blank() && len(value.Str) < atoiOrZero(rule.Param) {
			return message(rule, fmt.Sprintf("%s must be at least %s characters long", label(rule.Field), rule.Param))
		}

	case RuleMatchesField:
		other := store.GetString(rule.Param)
		if value.Str != other {
			return message(rule, fmt.Sprintf("%s does not match %s", label(rule.Field), label(rule.Param)))
		}

	case RuleEmail:
		if present && !value.Blank() && !emailPattern.MatchString(value.Str) {
			return message(rule, "Please enter a valid email address")
		}

	case RuleDigits:
		if present && !value.Blank() {
			want := atoiOrZero(rule.Param)
			if len(value.Str) != want || strings.Trim(value.Str, "0123456789") != "" {
				return message(rule, fmt.Sprintf("%s must be %s digits", label(rule.Field), rule.Param))
			}
		}

	case RuleMinValue:
		if num, ok := store.GetNumber(rule.Field); ok && num < float64(atoiOrZero(rule.Param)) {
			return message(rule, fmt.Sprintf("%s must be at least %s", label(rule.Field), rule.Param))
		}

	case RuleLTEField:
		lhs, lok := store.GetNumber(rule.Field)
		rhs, rok := store.GetNumber(rule.Param)
		if lok && rok && lhs > rhs {
			return message(rule, fmt.Sprintf("%s must not exceed %s", label(rule.Field), label(rule.Param)))
		}
	}

	return ""
}

func message(rule Rule, fallback string) string {
	if rule.Message != "" {
		return rule.Message
	}
	return fallback
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// label turns a camelCase field name into a human readable one, e.g.
// "confirmPassword" -> "confirm password".
func label(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
