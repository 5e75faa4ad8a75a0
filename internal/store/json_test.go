package store

import (
	"testing"
	"time"
)

func TestNormalizeMetadata(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("JST", 9*3600))
	in := map[string]any{
		"created_at": ts,
		"nested":     map[string]any{"at": &ts},
		"list":       []any{ts, "x"},
		"plain":      1,
	}
	out := NormalizeMetadata(in)
	if out["created_at"] != "2024-03-01T03:30:00.000000000Z" {
		t.Errorf("created_at = %v", out["created_at"])
	}
	if out["nested"].(map[string]any)["at"] != "2024-03-01T03:30:00.000000000Z" {
		t.Errorf("nested = %v", out["nested"])
	}
	if out["list"].([]any)[0] != "2024-03-01T03:30:00.000000000Z" {
		t.Errorf("list = %v", out["list"])
	}
	if _, ok := in["created_at"].(time.Time); !ok {
		t.Error("input map was modified")
	}
	if m := NormalizeMetadata(nil); m == nil || len(m) != 0 {
		t.Errorf("NormalizeMetadata(nil) = %v", m)
	}
}

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		wantKey string
		wantErr bool
	}{
		{"nil", nil, "", false},
		{"empty string", "", "", false},
		{"decoded map", map[string]any{"a": 1}, "a", false},
		{"json string", `{"a":1}`, "a", false},
		{"json bytes", []byte(`{"a":1}`), "a", false},
		{"double encoded", `"{\"a\":1}"`, "a", false},
		{"json null", "null", "", false},
		{"array", `[1,2]`, "", true},
		{"garbage", "{not json", "", true},
		{"triple encoded", `"\"{}\""`, "", true},
		{"number column", int64(3), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeObject(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeObject(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got == nil {
				t.Fatal("nil map")
			}
			if tt.wantKey != "" {
				if _, ok := got[tt.wantKey]; !ok {
					t.Errorf("missing key %q in %v", tt.wantKey, got)
				}
			}
		})
	}
}

func TestAsString(t *testing.T) {
	if AsString([]byte("x")) != "x" || AsString(nil) != "" || AsString(int64(7)) != "7" {
		t.Error("AsString conversions")
	}
	if AsInt64([]byte("12")) != 12 || AsInt64(int64(3)) != 3 || AsInt64(nil) != 0 {
		t.Error("AsInt64 conversions")
	}
}
