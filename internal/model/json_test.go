package model

import (
	"reflect"
	"testing"
)

func TestStringList_Scan(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  StringList
	}{
		{"valid json bytes", []byte(`["a","b","c"]`), StringList{"a", "b", "c"}},
		{"valid json string", `["ref-1"]`, StringList{"ref-1"}},
		{"preserves order", []byte(`["z","a","m"]`), StringList{"z", "a", "m"}},
		{"malformed json", []byte(`[not json`), StringList{}},
		{"wrong json shape", []byte(`{"a":1}`), StringList{}},
		{"empty column", []byte(nil), StringList{}},
		{"null column", nil, StringList{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l StringList
			if err := l.Scan(tt.value); err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if !reflect.DeepEqual(l, tt.want) {
				t.Errorf("Scan() = %#v, want %#v", l, tt.want)
			}
		})
	}
}

func TestStringList_Value_NilEncodesAsEmptyArray(t *testing.T) {
	var l StringList
	v, err := l.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v != "[]" {
		t.Errorf("Value() = %v, want %q", v, "[]")
	}
}

func TestRouteConfig_Scan(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  RouteConfig
	}{
		{"valid object", []byte(`{"model":"gpt-4o","route":"support"}`), RouteConfig{Model: "gpt-4o", Route: "support"}},
		{"partial object", []byte(`{"model":"gpt-4o"}`), RouteConfig{Model: "gpt-4o"}},
		{"malformed json", []byte(`{{`), RouteConfig{}},
		{"wrong json shape", []byte(`["a"]`), RouteConfig{}},
		{"null column", nil, RouteConfig{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c RouteConfig
			if err := c.Scan(tt.value); err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if c != tt.want {
				t.Errorf("Scan() = %+v, want %+v", c, tt.want)
			}
		})
	}
}

func TestStringList_RoundTrip(t *testing.T) {
	in := StringList{"https://a.example.com", "https://b.example.com"}
	v, err := in.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	var out StringList
	if err := out.Scan(v); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("round trip = %#v, want %#v", out, in)
	}
}
