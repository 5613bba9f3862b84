// Package rules evaluates quick-send rules against the current page.
package rules

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Fields a rule can test.
const (
	FieldURL   = "url"
	FieldTitle = "title"
)

// Operators understood by Match. Anything else never matches.
const (
	OpContains   = "contains"
	OpEquals     = "equals"
	OpStartsWith = "startsWith"
	OpEndsWith   = "endsWith"
	OpMatches    = "matches"
)

// Fields lists the supported rule fields in display order.
var Fields = []string{FieldURL, FieldTitle}

// Operators lists the supported operators in display order.
var Operators = []string{OpContains, OpEquals, OpStartsWith, OpEndsWith, OpMatches}

// Rule is a page condition bound to a template.
type Rule struct {
	ID         string `json:"id"`
	Field      string `json:"field" validate:"required,oneof=url title"`
	Operator   string `json:"operator" validate:"required,oneof=contains equals startsWith endsWith matches"`
	Value      string `json:"value"`
	TemplateID string `json:"templateId" validate:"required"`
	Enabled    bool   `json:"enabled"`
}

// UnmarshalJSON treats a missing "enabled" as enabled; only an explicit false
// disables a rule.
func (r *Rule) UnmarshalJSON(data []byte) error {
	type alias Rule
	aux := struct {
		*alias
		Enabled *bool `json:"enabled"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Enabled = aux.Enabled == nil || *aux.Enabled
	return nil
}

// Page is the part of the page context rules look at.
type Page struct {
	URL   string
	Title string
}

// Get returns the page attribute named by field, or "" for unknown fields.
func (p Page) Get(field string) string {
	switch field {
	case FieldURL:
		return p.URL
	case FieldTitle:
		return p.Title
	}
	return ""
}

// Match reports whether a single rule matches the page. Empty rule values
// never match.
func Match(rule Rule, page Page) bool {
	if rule.Value == "" {
		return false
	}

	fieldValue := page.Get(rule.Field)
	if fieldValue == "" {
		return false
	}

	lower := strings.ToLower(fieldValue)
	target := strings.ToLower(rule.Value)

	switch rule.Operator {
	case OpContains:
		return strings.Contains(lower, target)
	case OpEquals:
		return lower == target
	case OpStartsWith:
		return strings.HasPrefix(lower, target)
	case OpEndsWith:
		return strings.HasSuffix(lower, target)
	case OpMatches:
		re, ok := compilePattern(rule.Value)
		return ok && re.MatchString(fieldValue)
	}
	return false
}

// compilePattern builds a case-insensitive regexp from user input. A pattern
// that does not compile yields ok == false and is treated as a non-match.
func compilePattern(source string) (re *regexp.Regexp, ok bool) {
	re, err := regexp.Compile("(?i)" + source)
	if err != nil {
		return nil, false
	}
	return re, true
}

// ValidPattern reports whether source compiles as a matches-operator pattern.
func ValidPattern(source string) bool {
	_, ok := compilePattern(source)
	return ok
}

// FindFirstMatch returns the first enabled rule matching the page in list
// order, or nil.
func FindFirstMatch(rules []Rule, page Page) *Rule {
	for i := range rules {
		if !rules[i].Enabled {
			continue
		}
		if Match(rules[i], page) {
			return &rules[i]
		}
	}
	return nil
}
