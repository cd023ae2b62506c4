// Package validation checks request parameters before they reach the rule
// parser or the store.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxRuleLength is the maximum rule text length in bytes when
	// none is configured.
	DefaultMaxRuleLength = 4096
	// MaxRuleIDs is the maximum number of rule ids in one combine or batch request
	MaxRuleIDs = 100
	// MaxRecordFields is the maximum number of attributes in an input record
	MaxRecordFields = 1000
)

// ValidationResult holds the result of validation
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a new validation result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a field error and marks the result as invalid
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Merge combines another validation result into this one
func (v *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		v.AddError(field, message)
	}
}

// Error returns the messages joined in field order, or "" when valid.
func (v *ValidationResult) Error() string {
	if v.Valid {
		return ""
	}
	var parts []string
	for _, field := range sortedKeys(v.Errors) {
		parts = append(parts, field+": "+v.Errors[field])
	}
	return strings.Join(parts, "; ")
}

// ValidateRuleText validates a rule's source text. maxLength <= 0 means
// DefaultMaxRuleLength. Syntax is checked by the parser, not here.
func ValidateRuleText(field, text string, maxLength int) *ValidationResult {
	result := NewValidationResult()
	if maxLength <= 0 {
		maxLength = DefaultMaxRuleLength
	}

	if len(text) > maxLength {
		result.AddError(field, fmt.Sprintf("Rule must not exceed %d bytes", maxLength))
		return result
	}
	if !utf8.ValidString(text) {
		result.AddError(field, "Rule must be valid UTF-8")
		return result
	}
	return result
}

// ValidateRuleIDs validates a list of rule ids for combine or batch
// evaluation. Duplicates are allowed.
func ValidateRuleIDs(field string, ids []int64) *ValidationResult {
	result := NewValidationResult()

	if len(ids) == 0 {
		result.AddError(field, "At least one rule id is required")
		return result
	}
	if len(ids) > MaxRuleIDs {
		result.AddError(field, fmt.Sprintf("At most %d rule ids are allowed", MaxRuleIDs))
		return result
	}
	for i, id := range ids {
		if id <= 0 {
			result.AddError(fmt.Sprintf("%s[%d]", field, i), "Rule id must be positive")
		}
	}
	return result
}

// ValidateRuleID validates a single rule id.
func ValidateRuleID(field string, id int64) *ValidationResult {
	result := NewValidationResult()
	if id <= 0 {
		result.AddError(field, "Rule id must be positive")
	}
	return result
}

// ValidateRecord validates an input record's shape. A nil record is
// rejected; an empty one is allowed.
func ValidateRecord(field string, record map[string]any) *ValidationResult {
	result := NewValidationResult()

	if record == nil {
		result.AddError(field, "Data is required")
		return result
	}
	if len(record) > MaxRecordFields {
		result.AddError(field, fmt.Sprintf("Data must not have more than %d attributes", MaxRecordFields))
		return result
	}
	for key := range record {
		if strings.TrimSpace(key) == "" {
			result.AddError(field, "Attribute names must not be empty")
			break
		}
	}
	return result
}
