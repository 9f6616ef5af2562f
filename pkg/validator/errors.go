package validator

import (
	"fmt"
	"strings"
)

// ValidationErrors is a collection of field-level validation failures.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// FieldError is a single field's validation failure.
type FieldError struct {
	Field   string      `json:"field"`
	Tag     string      `json:"tag"`
	Value   interface{} `json:"value,omitempty"`
	Param   string      `json:"param,omitempty"`
	Message string      `json:"message"`
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("validation failed: ")
	for i, fe := range v.Errors {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fe.Message)
	}
	return sb.String()
}

// HasErrors reports whether any field failed validation.
func (v *ValidationErrors) HasErrors() bool {
	return v != nil && len(v.Errors) > 0
}

// Messages returns every error message in order.
func (v *ValidationErrors) Messages() []string {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	messages := make([]string, len(v.Errors))
	for i, fe := range v.Errors {
		messages[i] = fe.Message
	}
	return messages
}

// Format implements fmt.Formatter for a verbose %+v rendering.
func (v *ValidationErrors) Format(f fmt.State, verb rune) {
	switch verb {
	case 'v':
		if f.Flag('+') {
			_, _ = fmt.Fprintf(f, "ValidationErrors(%d):\n", len(v.Errors))
			for i, fe := range v.Errors {
				_, _ = fmt.Fprintf(f, "  [%d] %s: %s (tag=%s)\n", i, fe.Field, fe.Message, fe.Tag)
			}
			return
		}
		_, _ = fmt.Fprint(f, v.Error())
	case 's':
		_, _ = fmt.Fprint(f, v.Error())
	}
}

// NewValidationError builds a ValidationErrors with a single field error.
func NewValidationError(field, tag, message string) *ValidationErrors {
	return &ValidationErrors{Errors: []FieldError{{Field: field, Tag: tag, Message: message}}}
}
