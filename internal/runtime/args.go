package runtime

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
	"github.com/conneroisu/nxml/internal/types"
)

// coerceArgs checks the supplied arguments against the tool's declarations.
// Required arguments must be present, declared scalars are converted to
// their declared type, defaults fill the gaps, and arguments no declaration
// names are rejected.
func coerceArgs(tool *types.ToolDecl, supplied map[string]any) (map[string]any, error) {
	args := make(map[string]any, len(tool.Args))
	declared := make(map[string]struct{}, len(tool.Args))

	for i := range tool.Args {
		decl := &tool.Args[i]
		declared[decl.Name] = struct{}{}

		raw, ok := supplied[decl.Name]
		if !ok {
			if decl.Required {
				return nil, nxmlerrors.NewRuntimeError(nxmlerrors.ErrCodeMissingArgument,
					fmt.Sprintf("tool %q requires argument %q", tool.Name, decl.Name), nil)
			}
			if decl.Default != nil {
				args[decl.Name] = decl.Default
			}
			continue
		}

		value, err := coerceValue(raw, decl.Type)
		if err != nil {
			return nil, nxmlerrors.NewRuntimeError(nxmlerrors.ErrCodeBadArgument,
				fmt.Sprintf("tool %q argument %q: %v", tool.Name, decl.Name, err), nil)
		}
		args[decl.Name] = value
	}

	var unknown []string
	for name := range supplied {
		if _, ok := declared[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, nxmlerrors.NewRuntimeError(nxmlerrors.ErrCodeBadArgument,
			fmt.Sprintf("tool %q has no argument named: %s", tool.Name, strings.Join(unknown, ", ")), nil)
	}
	return args, nil
}

// CoerceState shapes externally supplied state values against the panel's
// state declarations. Values convert to their declared types the same way
// tool arguments do; names the panel never declares are rejected.
func CoerceState(panel *types.Panel, supplied map[string]any) (map[string]any, error) {
	if len(supplied) == 0 {
		return map[string]any{}, nil
	}

	declared := make(map[string]string)
	if panel.Data != nil {
		for _, decl := range panel.Data.States {
			declared[decl.Name] = decl.Type
		}
	}

	state := make(map[string]any, len(supplied))
	var unknown []string
	for name, raw := range supplied {
		typeName, ok := declared[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		value, err := coerceValue(raw, typeName)
		if err != nil {
			return nil, nxmlerrors.NewRuntimeError(nxmlerrors.ErrCodeBadArgument,
				fmt.Sprintf("panel %q state %q: %v", panel.Meta.ID, name, err), nil)
		}
		state[name] = value
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, nxmlerrors.NewRuntimeError(nxmlerrors.ErrCodeBadArgument,
			fmt.Sprintf("panel %q declares no state named: %s", panel.Meta.ID, strings.Join(unknown, ", ")), nil)
	}
	return state, nil
}

// coerceValue converts value to the declared type. Scalars go through cty
// so the usual cross-type conversions apply ("42" becomes the number 42,
// true becomes "true" and so on). Containers are shape-checked without
// touching their elements; any and unrecognized types pass through.
func coerceValue(value any, typeName string) (any, error) {
	switch typeName {
	case types.TypeString, types.TypeNumber, types.TypeBoolean:
		given, ok := ctyScalarOf(value)
		if !ok {
			return nil, fmt.Errorf("cannot convert %T to %s", value, typeName)
		}
		converted, err := convert.Convert(given, ctyScalarType(typeName))
		if err != nil {
			return nil, fmt.Errorf("cannot convert %v to %s", value, typeName)
		}
		return goScalarOf(converted), nil
	case types.TypeArray, types.TypeList:
		if _, ok := value.([]any); !ok {
			return nil, fmt.Errorf("expected an array, got %T", value)
		}
		return value, nil
	case types.TypeObject:
		if _, ok := value.(map[string]any); !ok {
			return nil, fmt.Errorf("expected an object, got %T", value)
		}
		return value, nil
	default:
		return value, nil
	}
}

func ctyScalarType(name string) cty.Type {
	switch name {
	case types.TypeString:
		return cty.String
	case types.TypeNumber:
		return cty.Number
	default:
		return cty.Bool
	}
}

func ctyScalarOf(v any) (cty.Value, bool) {
	switch value := v.(type) {
	case string:
		return cty.StringVal(value), true
	case bool:
		return cty.BoolVal(value), true
	case int:
		return cty.NumberIntVal(int64(value)), true
	case int64:
		return cty.NumberIntVal(value), true
	case float64:
		return cty.NumberFloatVal(value), true
	}
	return cty.NilVal, false
}

// goScalarOf unwraps a converted scalar. Whole numbers come back as int64
// so handler arithmetic stays integral.
func goScalarOf(v cty.Value) any {
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		bf := v.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return i
		}
		f, _ := bf.Float64()
		return f
	default:
		return v.True()
	}
}
