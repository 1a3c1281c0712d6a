package scriptengine

import (
	"fmt"

	"github.com/risor-io/risor/object"
)

// ToGoValue converts a Risor object into a plain Go value suitable for
// JSON encoding, using the same concrete-type switch the host-API
// builtins use to unwrap arguments. Unrecognized object kinds render as
// their fmt "%v" string. This is only used by the CLI's `engine run` to
// print a module's final result,
// which is always built from the primitives listed below.
func ToGoValue(obj object.Object) any {
	switch v := obj.(type) {
	case nil:
		return nil
	case *object.NilType:
		return nil
	case *object.Int:
		return v.Value()
	case *object.Float:
		return v.Value()
	case *object.String:
		return v.Value()
	case *object.Bool:
		return v.Value()
	case *object.List:
		items := v.Value()
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = ToGoValue(it)
		}
		return out
	case *object.Map:
		m := v.Value()
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = ToGoValue(val)
		}
		return out
	default:
		return fmt.Sprintf("%v", obj)
	}
}
