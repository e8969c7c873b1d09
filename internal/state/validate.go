package state

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/five82/tern/internal/operate"
)

// ValidationCode identifies a client-side validation failure.
type ValidationCode string

const (
	CodeEmptyName     ValidationCode = "EMPTY_NAME"
	CodeInvalidName   ValidationCode = "INVALID_NAME"
	CodeDuplicateName ValidationCode = "DUPLICATE_NAME"
	CodeInvalidValue  ValidationCode = "INVALID_VALUE"
)

// Form fields a ValidationError can refer to.
const (
	FieldName  = "name"
	FieldValue = "value"
)

// ValidationError is a field-level problem detected before any request is made.
type ValidationError struct {
	Field string
	Code  ValidationCode
}

// Message is the text shown next to the offending field.
func (e ValidationError) Message() string {
	switch e.Code {
	case CodeEmptyName:
		return "Name has to be filled"
	case CodeInvalidName:
		return "Name is invalid"
	case CodeDuplicateName:
		return "Name should be unique"
	case CodeInvalidValue:
		return "Value has to be JSON"
	default:
		return string(e.Code)
	}
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message()
}

// ValidationErrors collects every failing field. A nil or empty value means
// the input is valid.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether code is among the errors.
func (v ValidationErrors) Has(code ValidationCode) bool {
	for _, e := range v {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Field returns the first error for field.
func (v ValidationErrors) Field(field string) (ValidationError, bool) {
	for _, e := range v {
		if e.Field == field {
			return e, true
		}
	}
	return ValidationError{}, false
}

// Validate checks a new variable against the confirmed items of the current
// scope. It is pure: calling it twice with the same input gives the same
// result.
func Validate(name, value string, existing []operate.Variable) ValidationErrors {
	var errs ValidationErrors
	if e, ok := validateName(name, existing); !ok {
		errs = append(errs, e)
	}
	errs = append(errs, ValidateValue(value)...)
	return errs
}

// ValidateValue reports CodeInvalidValue unless value is well-formed JSON text.
func ValidateValue(value string) ValidationErrors {
	if strings.TrimSpace(value) == "" || !json.Valid([]byte(value)) {
		return ValidationErrors{{Field: FieldValue, Code: CodeInvalidValue}}
	}
	return nil
}

func validateName(name string, existing []operate.Variable) (ValidationError, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ValidationError{Field: FieldName, Code: CodeEmptyName}, false
	}
	if strings.ContainsFunc(trimmed, func(r rune) bool { return unicode.IsSpace(r) || r == '"' }) {
		return ValidationError{Field: FieldName, Code: CodeInvalidName}, false
	}
	for _, v := range existing {
		if v.Name == trimmed {
			return ValidationError{Field: FieldName, Code: CodeDuplicateName}, false
		}
	}
	return ValidationError{}, true
}

// sameJSON reports whether a and b encode the same JSON text once
// insignificant whitespace is removed.
func sameJSON(a, b string) bool {
	if a == b {
		return true
	}
	return compactJSON(a) == compactJSON(b)
}

func compactJSON(s string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
