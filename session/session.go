package session

import (
	"bytes"
	"encoding/json"
)

// Key names one of the three values held by a Store
type Key string

const (
	KeyAccess  Key = "access"
	KeyRefresh Key = "refresh"
	KeyUser    Key = "user"
)

// AllKeys lists every key a session occupies
var AllKeys = []Key{KeyAccess, KeyRefresh, KeyUser}

// Store persists the session values. Reads and writes are synchronous for the caller.
type Store interface {
	Get(key Key) (string, bool)
	Set(key Key, value string) error
	Clear(keys ...Key) error
}

// Session is the tuple held client side: the two bearer tokens and the cached user
type Session struct {
	Access  string
	Refresh string
	User    User
}

// User is the denormalised snapshot of the principal written at login
type User struct {
	ID             int64      `json:"id,omitempty"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name,omitempty"`
	DocumentType   string     `json:"document_type,omitempty"`
	DocumentNumber string     `json:"document_number,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Status         string     `json:"status,omitempty"`
	Rol            bool       `json:"rol,omitempty"`
	Balance        FlexString `json:"balance,omitempty"`
	HasCard        bool       `json:"has_card,omitempty"`
}

// FlexString accepts a JSON string or number; the backend sends balances both ways
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}
