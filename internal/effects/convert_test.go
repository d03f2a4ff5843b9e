package effects

import (
	"testing"

	"lumen/internal/vm"
)

func TestValueToJSONScalars(t *testing.T) {
	cases := []struct {
		name string
		v    vm.Value
		want any
	}{
		{"null", vm.Null, nil},
		{"bool", vm.BoxBool(true), true},
		{"int", vm.BoxInt(42), int64(42)},
		{"string", vm.BoxString("hi"), "hi"},
	}
	for _, c := range cases {
		got, err := valueToJSON(c.v)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestValueToJSONList(t *testing.T) {
	list := vm.BoxList(&vm.List{Elems: []vm.Value{vm.BoxInt(1), vm.BoxInt(2)}})
	got, err := valueToJSON(list)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr, ok := got.([]any)
	if !ok || len(arr) != 2 || arr[0] != int64(1) || arr[1] != int64(2) {
		t.Fatalf("unexpected conversion: %v", got)
	}
}

func TestJSONToValueRoundTripsScalars(t *testing.T) {
	if v := jsonToValue(nil); !v.IsNull() {
		t.Fatalf("expected null")
	}
	if v := jsonToValue(true); !v.IsBool() || !v.AsBool() {
		t.Fatalf("expected true")
	}
	if v := jsonToValue(int64(7)); !v.IsInt() || v.AsInt() != 7 {
		t.Fatalf("expected int 7")
	}
	if v := jsonToValue("hi"); !v.IsPointer() || v.AsObject().AsString() != "hi" {
		t.Fatalf("expected string hi")
	}
}

func TestValuesToJSONBuildsPositionalArray(t *testing.T) {
	args := []vm.Value{vm.BoxInt(1), vm.BoxString("two")}
	got, err := valuesToJSON(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr, ok := got.([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("unexpected result: %v", got)
	}
	if arr[0] != int64(1) || arr[1] != "two" {
		t.Fatalf("unexpected elements: %v", arr)
	}
}
