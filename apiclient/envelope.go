package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/cienspay/cienspay-web/internal/errors"
)

const maxBodyBytes = 4 << 20

// genericMessage is shown when the backend sent nothing readable
const genericMessage = "Error inesperado del servidor"

// FieldErrors maps a backend field name to its messages
type FieldErrors map[string][]string

// First returns the first message for field, or ""
func (f FieldErrors) First(field string) string {
	if msgs := f[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Fields returns the field names in a stable order
func (f FieldErrors) Fields() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// UnmarshalJSON accepts {"field": "msg"}, {"field": ["a", "b"]}, a bare list or a bare string.
// Bare values land under non_field_errors.
func (f *FieldErrors) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	out := FieldErrors{}
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = nil
		return nil
	case data[0] == '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		for field, v := range raw {
			if msgs := messages(v); len(msgs) > 0 {
				out[field] = msgs
			}
		}
	default:
		if msgs := messages(data); len(msgs) > 0 {
			out["non_field_errors"] = msgs
		}
	}
	*f = out
	return nil
}

func messages(raw json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		var out []string
		for _, item := range list {
			out = append(out, messages(item)...)
		}
		return out
	}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err == nil {
		var out []string
		for _, v := range nested {
			out = append(out, messages(v)...)
		}
		return out
	}
	if s := strings.TrimSpace(string(raw)); s != "" && s != "null" {
		return []string{s}
	}
	return nil
}

// Error is a backend failure: a non-2xx status or an envelope with success:false
type Error struct {
	Status      int
	Message     string
	FieldErrors FieldErrors
	kind        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error %d", e.Status)
}

func (e *Error) Unwrap() error {
	if e.kind != nil {
		return e.kind
	}
	switch e.Status {
	case http.StatusUnauthorized:
		return errors.ErrUnauthorized
	case http.StatusNotFound:
		return errors.ErrNotFound
	}
	return nil
}

type envelope struct {
	Success *bool       `json:"success"`
	Message string      `json:"message"`
	Error   string      `json:"error"`
	Detail  string      `json:"detail"`
	Errors  FieldErrors `json:"errors"`
}

func (e envelope) message() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Error != "":
		return e.Error
	default:
		return e.Detail
	}
}

// Decode reads and closes resp.Body. A non-2xx status or success:false yields *Error;
// otherwise the body is decoded into out (which may be nil).
func Decode(resp *http.Response, out any) error {
	defer drainAndClose(resp)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Status: resp.StatusCode, Message: genericMessage, kind: errors.ErrNetwork}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return &Error{Status: resp.StatusCode, Message: genericMessage, kind: errors.ErrBadEnvelope}
		}
	} else if ok && out != nil {
		return &Error{Status: resp.StatusCode, Message: genericMessage, kind: errors.ErrBadEnvelope}
	}

	if !ok || (env.Success != nil && !*env.Success) {
		return &Error{Status: resp.StatusCode, Message: env.message(), FieldErrors: env.Errors}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Status: resp.StatusCode, Message: genericMessage, kind: errors.ErrBadEnvelope}
	}
	return nil
}

// MessageOf returns the user-facing message carried by err, or fallback
func MessageOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Message != genericMessage {
		return apiErr.Message
	}
	return fallback
}
