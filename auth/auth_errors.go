package auth

import (
	"sort"
	"strings"
)

// User-facing messages for failures that are not field validation
const (
	MsgLoginFailed    = "No se pudo iniciar sesión"
	MsgRegisterFailed = "No se pudo registrar"
	MsgNetwork        = "Error de red: no se pudo conectar al servidor"
	MsgTooManyTries   = "Demasiados intentos, espera un momento"
	MsgSubmitting     = "Procesando, espera un momento"
)

// Form field names, as the templates name the inputs
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldDocumentNumber  = "documentNumber"
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldPhone           = "phone"
	FieldBalance         = "balance"
)

// FieldErrors holds one message per form field. It is returned as an error when a form
// cannot be submitted, and rendered inline next to each input.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for k := range f {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, k := range fields {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Get returns the message for field, "" when the field is fine. Safe on a nil map.
func (f FieldErrors) Get(field string) string {
	return f[field]
}

// First returns the message of the alphabetically first failing field
func (f FieldErrors) First() string {
	first := ""
	for k := range f {
		if first == "" || k < first {
			first = k
		}
	}
	return f[first]
}

func (f FieldErrors) set(field, msg string) {
	if msg != "" {
		f[field] = msg
	}
}
