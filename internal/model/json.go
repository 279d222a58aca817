package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList is an order-preserving list of strings stored as a JSON-encoded
// text column. Decoding is defensive: malformed or unexpected column content
// scans to an empty list instead of propagating a parse error, so one bad row
// never breaks a whole listing.
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	*l = StringList{}
	raw, ok := columnBytes(value)
	if !ok || len(raw) == 0 {
		return nil
	}
	var parsed []string
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// Fallback: keep the empty list
		return nil
	}
	*l = parsed
	return nil
}

// RouteConfig is the nested model-routing configuration stored as a
// JSON-encoded object column. Same fallback behavior as StringList.
type RouteConfig struct {
	Model string `json:"model"`
	Route string `json:"route"`
}

// Value implements driver.Valuer
func (c RouteConfig) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (c *RouteConfig) Scan(value interface{}) error {
	*c = RouteConfig{}
	raw, ok := columnBytes(value)
	if !ok || len(raw) == 0 {
		return nil
	}
	var parsed RouteConfig
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil
	}
	*c = parsed
	return nil
}

// columnBytes normalizes the driver value of a text column to a byte slice
func columnBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return []byte(fmt.Sprint(v)), true
	}
}
