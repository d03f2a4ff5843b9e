package effects

import (
	"fmt"
	"math/big"

	"lumen/internal/vm"
)

// valueToJSON converts a VM Value into a plain Go value suitable for
// JSON encoding, so a ToolProvider can operate over Args/Result as a
// decoded JSON value per spec.md §4.12 rather than a boxed Value.
func valueToJSON(v vm.Value) (any, error) {
	switch {
	case v.IsNull():
		return nil, nil
	case v.IsBool():
		return v.AsBool(), nil
	case v.IsInt():
		return v.AsInt(), nil
	case v.IsPointer():
		return objectToJSON(v.AsObject())
	default:
		return nil, fmt.Errorf("effects: value of unknown tag cannot be converted to JSON")
	}
}

func objectToJSON(o *vm.Object) (any, error) {
	switch o.Kind {
	case vm.ObjFloat:
		return o.AsFloat(), nil
	case vm.ObjBigInt:
		return o.AsBigInt().String(), nil
	case vm.ObjString:
		return o.AsString(), nil
	case vm.ObjBytes:
		return o.AsBytes(), nil
	case vm.ObjList:
		elems := o.AsList().Elems
		out := make([]any, len(elems))
		for i, e := range elems {
			j, err := valueToJSON(e)
			if err != nil {
				return nil, err
			}
			out[i] = j
		}
		return out, nil
	case vm.ObjTuple:
		elems := o.AsTuple()
		out := make([]any, len(elems))
		for i, e := range elems {
			j, err := valueToJSON(e)
			if err != nil {
				return nil, err
			}
			out[i] = j
		}
		return out, nil
	case vm.ObjRecord:
		rec := o.AsRecord()
		out := make(map[string]any, len(rec.Fields))
		for k, fv := range rec.Fields {
			j, err := valueToJSON(fv)
			if err != nil {
				return nil, err
			}
			out[k] = j
		}
		return out, nil
	default:
		return nil, fmt.Errorf("effects: value of kind %v has no JSON conversion", o.Kind)
	}
}

// jsonToValue converts a decoded JSON value back into a VM Value. Only
// the scalar and list/object subset round-trips; a ToolProvider result
// is not expected to carry live heap references back across the effect
// boundary.
func jsonToValue(j any) vm.Value {
	switch x := j.(type) {
	case nil:
		return vm.Null
	case bool:
		return vm.BoxBool(x)
	case int64:
		return vm.BoxInt(x)
	case int:
		return vm.BoxInt(int64(x))
	case float64:
		if x == float64(int64(x)) {
			return vm.BoxInt(int64(x))
		}
		return vm.BoxFloat(x)
	case *big.Int:
		return vm.BoxBigInt(x)
	case string:
		return vm.BoxString(x)
	case []byte:
		return vm.BoxBytes(x)
	case []any:
		elems := make([]vm.Value, len(x))
		for i, e := range x {
			elems[i] = jsonToValue(e)
		}
		return vm.BoxList(&vm.List{Elems: elems})
	case map[string]any:
		fields := make(map[string]vm.Value, len(x))
		for k, fv := range x {
			fields[k] = jsonToValue(fv)
		}
		return vm.BoxRecord(&vm.Record{TypeName: "ToolResult", Fields: fields})
	default:
		return vm.BoxString(fmt.Sprintf("%v", x))
	}
}

// valuesToJSON converts a slice of argument Values into a JSON-ready
// slice, the shape a ToolRequest's Args field takes for a positional
// call.
func valuesToJSON(args []vm.Value) (any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		j, err := valueToJSON(a)
		if err != nil {
			return nil, err
		}
		out[i] = j
	}
	return out, nil
}
