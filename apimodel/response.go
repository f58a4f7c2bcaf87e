package apimodel

import "strings"

// Response is the envelope of every viáticos backend reply.
// Success responses carry Data; error responses carry Message, an optional machine
// readable Error code and, for validation failures, a list of field errors in Data.
type Response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FieldError is one per-field validation failure. The backend serialises the
// validator's struct field names, hence the capitalised JSON keys.
type FieldError struct {
	Field   string `json:"Field"`
	Message string `json:"Message"`
}

// ErrorResponse is the error form of Response.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Error   string       `json:"error,omitempty"`
	Data    []FieldError `json:"data,omitempty"`
}

// FormatFieldErrors joins field errors as "Field: Message, Field: Message".
func FormatFieldErrors(fields []FieldError) string {
	if len(fields) == 0 {
		return "validation error"
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, ", ")
}
