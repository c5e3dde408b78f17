package conv

import (
	"reflect"
	"testing"
)

func TestToFloat64(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{1.5, 1.5, true},
		{float32(2), 2, true},
		{3, 3, true},
		{int64(4), 4, true},
		{"5", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToFloat64(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ToFloat64(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSliceAnyToString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"any list", []any{"a", 12, 3.0, true}, []string{"a", "12", "3"}},
		{"string list", []string{"x"}, []string{"x"}},
		{"single", "cf", []string{"cf"}},
		{"empty string", "", nil},
		{"other", 42, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SliceAnyToString(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SliceAnyToString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigGet(t *testing.T) {
	m := map[string]any{"name": "hot", "dedup": false, "n": 3, "timeout": 1.0, "k": "7", "bad": "x"}
	if got := ConfigGet(m, "name", ""); got != "hot" {
		t.Errorf("name = %q", got)
	}
	if got := ConfigGet(m, "dedup", true); got {
		t.Error("dedup should be false")
	}
	if got := ConfigGet(m, "n", "def"); got != "def" {
		t.Errorf("type mismatch = %q, want default", got)
	}
	if got := ConfigGet[string](nil, "name", "def"); got != "def" {
		t.Errorf("nil map = %q", got)
	}
	for key, want := range map[string]int64{"n": 3, "timeout": 1, "k": 7, "bad": -1, "missing": -1} {
		if got := ConfigGetInt64(m, key, -1); got != want {
			t.Errorf("ConfigGetInt64(%s) = %d, want %d", key, got, want)
		}
	}
}
