// Package masking implements the policy-driven field and pattern redaction
// applied to captured API records before they are serialized into an
// archive artifact.
package masking

import (
	"fmt"
	"regexp"
	"strings"
)

// Policy configures the masking engine. It mirrors the dataMasking
// configuration group: field-name rules, pattern rules, and the
// replacement strategy applied to every match.
type Policy struct {
	Enabled     bool
	MaskingChar rune
	// PreserveLength, if true, replaces every character of a matched
	// value with MaskingChar; otherwise the literal token "[MASKED]" is
	// substituted.
	PreserveLength bool
	// ShowLastChars keeps this many trailing characters of a matched
	// value verbatim.
	ShowLastChars int

	MaskEmails             bool
	MaskIPs                bool
	MaskConnectionStrings  bool

	CustomFields  []string          // field names (case-insensitive) that are always redacted
	ExemptFields  []string          // field names (case-insensitive, not exact) that are never redacted, wins over CustomFields
	CustomPatterns map[string]string // label -> regular expression; any matching substring is replaced
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	ipv4Pattern  = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	ipv6Pattern  = regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`)
	// connection strings: scheme://[user[:pass]@]host[:port][/db][?opts]
	connStringPattern = regexp.MustCompile(`\b[A-Za-z][A-Za-z0-9+.-]*://[^\s"']+\b`)
)

// Engine is a compiled, ready-to-use masking policy. It is safe for
// concurrent use and holds no mutable state once built, so a single
// Engine may be shared across window-processing goroutines.
type Engine struct {
	policy         Policy
	maskingChar    rune
	customFields   map[string]struct{}
	exemptFields   map[string]struct{}
	customPatterns map[string]*regexp.Regexp
	builtins       []*regexp.Regexp
}

// ValidationError reports a rejected masking policy.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid masking policy: %s", strings.Join(e.Messages, "; "))
}

// New compiles a Policy into an Engine. It rejects negative
// ShowLastChars and invalid custom regular expressions; MaskingChar is
// a single rune, and a zero value falls back to '*'. A field name present in both CustomFields and
// ExemptFields is resolved in favor of the exemption; the caller
// should treat the returned warnings as non-fatal operator feedback.
func New(p Policy) (*Engine, []string, error) {
	var errs []string
	if p.ShowLastChars < 0 {
		errs = append(errs, "showLastChars must be >= 0")
	}
	if p.MaskingChar == 0 {
		p.MaskingChar = '*'
	}

	e := &Engine{
		policy:         p,
		maskingChar:    p.MaskingChar,
		customFields:   make(map[string]struct{}, len(p.CustomFields)),
		exemptFields:   make(map[string]struct{}, len(p.ExemptFields)),
		customPatterns: make(map[string]*regexp.Regexp, len(p.CustomPatterns)),
	}

	for _, f := range p.ExemptFields {
		e.exemptFields[strings.ToLower(f)] = struct{}{}
	}
	var warnings []string
	for _, f := range p.CustomFields {
		key := strings.ToLower(f)
		if _, exempt := e.exemptFields[key]; exempt {
			warnings = append(warnings, fmt.Sprintf("field %q is both custom and exempt; exempt wins", f))
			continue
		}
		e.customFields[key] = struct{}{}
	}

	for label, pattern := range p.CustomPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			errs = append(errs, fmt.Sprintf("custom pattern %q: %v", label, err))
			continue
		}
		e.customPatterns[label] = re
	}

	if p.MaskEmails {
		e.builtins = append(e.builtins, emailPattern)
	}
	if p.MaskIPs {
		e.builtins = append(e.builtins, ipv4Pattern, ipv6Pattern)
	}
	if p.MaskConnectionStrings {
		e.builtins = append(e.builtins, connStringPattern)
	}

	if len(errs) > 0 {
		return nil, warnings, &ValidationError{Messages: errs}
	}
	return e, warnings, nil
}

// Mask applies the engine's policy to a record tree (typically the
// result of unmarshalling a JSON document into map[string]interface{}).
// It is a pure, structure-preserving, idempotent transform: maps,
// slices, and non-string scalars pass through unchanged in shape; only
// string values are rewritten, and only once a value has already been
// fully masked, re-masking it is a no-op.
func (e *Engine) Mask(value interface{}) interface{} {
	if e == nil || !e.policy.Enabled {
		return value
	}
	return e.maskValue("", value)
}

// MaskRecord masks a single api-record's payload map in place of a
// fresh copy, preserving all non-string scalar fields untouched.
func (e *Engine) MaskRecord(rec map[string]interface{}) map[string]interface{} {
	if e == nil || !e.policy.Enabled {
		return rec
	}
	out := e.maskValue("", rec)
	m, _ := out.(map[string]interface{})
	return m
}

func (e *Engine) maskValue(fieldName string, value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = e.maskField(k, val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = e.maskValue(fieldName, item)
		}
		return out
	case string:
		return e.maskString(fieldName, v)
	default:
		// numeric, boolean, nil, timestamp scalars pass through unchanged
		return value
	}
}

func (e *Engine) maskField(name string, value interface{}) interface{} {
	lower := strings.ToLower(name)
	if _, exempt := e.exemptFields[lower]; exempt {
		return value
	}
	if _, isCustom := e.customFields[lower]; isCustom {
		switch v := value.(type) {
		case string:
			return e.redact(v)
		default:
			// a custom field naming a nested structure masks every string
			// scalar beneath it, since the field itself is sensitive.
			return e.maskAllStrings(value)
		}
	}
	return e.maskValue(name, value)
}

func (e *Engine) maskAllStrings(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = e.maskAllStrings(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = e.maskAllStrings(item)
		}
		return out
	case string:
		return e.redact(v)
	default:
		return value
	}
}

// maskString applies built-in and custom pattern rules to a plain
// string value that did not come from a CustomFields-flagged key.
func (e *Engine) maskString(_ string, s string) string {
	result := s
	for label, re := range e.customPatterns {
		result = re.ReplaceAllStringFunc(result, func(string) string {
			return "[MASKED]"
		})
		_ = label
	}
	for _, re := range e.builtins {
		result = re.ReplaceAllStringFunc(result, func(match string) string {
			return e.redact(match)
		})
	}
	return result
}

// redact renders a single matched/flagged value per the policy's
// PreserveLength / ShowLastChars settings.
func (e *Engine) redact(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	keep := e.policy.ShowLastChars
	if keep > len(runes) {
		keep = len(runes)
	}
	tail := runes[len(runes)-keep:]

	if !e.policy.PreserveLength {
		if keep == 0 {
			return "[MASKED]"
		}
		return "[MASKED]" + string(tail)
	}

	maskLen := len(runes) - keep
	masked := strings.Repeat(string(e.maskingChar), maskLen)
	return masked + string(tail)
}

// DetectionCounts reports how many matches each built-in/custom
// pattern found in s, useful for masking diagnostics; it never mutates
// s and is independent of Policy.Enabled.
func (e *Engine) DetectionCounts(s string) map[string]int {
	counts := make(map[string]int)
	add := func(label string, re *regexp.Regexp) {
		if n := len(re.FindAllString(s, -1)); n > 0 {
			counts[label] = n
		}
	}
	if e.policy.MaskEmails {
		add("email", emailPattern)
	}
	if e.policy.MaskIPs {
		add("ipv4", ipv4Pattern)
		add("ipv6", ipv6Pattern)
	}
	if e.policy.MaskConnectionStrings {
		add("connection_string", connStringPattern)
	}
	for label, re := range e.customPatterns {
		add(label, re)
	}
	return counts
}
