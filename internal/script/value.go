package script

import (
	"sort"
	"strconv"
	"strings"
)

// ValueTag discriminates the runtime value kinds.
type ValueTag int

const (
	TagNull ValueTag = iota
	TagBool
	TagInt
	TagNum
	TagStr
	TagArray
	TagObject
)

var tagNames = [...]string{"null", "boolean", "integer", "number", "string", "array", "object"}

// Name returns the lowercase kind name used in fault messages.
func (t ValueTag) Name() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "unknown"
}

// Value is a boxed script value. Arrays and objects carry pointers, so
// copies of a Value share the same underlying container.
type Value struct {
	Tag  ValueTag
	Data any
}

// Null is the null value.
var Null = Value{Tag: TagNull}

func Bool(b bool) Value   { return Value{Tag: TagBool, Data: b} }
func Int(n int64) Value   { return Value{Tag: TagInt, Data: n} }
func Num(f float64) Value { return Value{Tag: TagNum, Data: f} }
func Str(s string) Value  { return Value{Tag: TagStr, Data: s} }

// ArrayObject is the mutable backing store of an array value.
type ArrayObject struct {
	Elems []Value
}

// Arr wraps elems in an array value. The slice is owned by the result.
func Arr(elems []Value) Value {
	return Value{Tag: TagArray, Data: &ArrayObject{Elems: elems}}
}

// MapObject is the mutable backing store of an object value. Keys
// preserves insertion order for rendering and keys().
type MapObject struct {
	Entries map[string]Value
	Keys    []string
}

// NewMapObject returns an empty object store.
func NewMapObject() *MapObject {
	return &MapObject{Entries: make(map[string]Value)}
}

// Get looks up a key.
func (o *MapObject) Get(key string) (Value, bool) {
	v, ok := o.Entries[key]
	return v, ok
}

// Set writes a key, appending it to the insertion order when new.
func (o *MapObject) Set(key string, v Value) {
	if _, ok := o.Entries[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Entries[key] = v
}

// Obj wraps a map store in an object value.
func Obj(o *MapObject) Value { return Value{Tag: TagObject, Data: o} }

// renderDepthLimit stops cyclic structures from hanging ToString and
// Interface.
const renderDepthLimit = 64

// Truthy implements the conditional test: null and false are falsy, as
// are zero numbers and empty strings; arrays and objects are always
// truthy.
func (v Value) Truthy() bool {
	switch v.Tag {
	case TagNull:
		return false
	case TagBool:
		return v.Data.(bool)
	case TagInt:
		return v.Data.(int64) != 0
	case TagNum:
		return v.Data.(float64) != 0
	case TagStr:
		return v.Data.(string) != ""
	default:
		return true
	}
}

// ToString renders the value as plain text: strings unquoted at the top
// level, nested values in JSON-like form.
func (v Value) ToString() string {
	if v.Tag == TagStr {
		return v.Data.(string)
	}
	var b strings.Builder
	v.render(&b, 0)
	return b.String()
}

// String renders a debug form with strings quoted.
func (v Value) String() string {
	var b strings.Builder
	v.render(&b, 0)
	return b.String()
}

func (v Value) render(b *strings.Builder, depth int) {
	if depth > renderDepthLimit {
		b.WriteString("...")
		return
	}
	switch v.Tag {
	case TagNull:
		b.WriteString("null")
	case TagBool:
		b.WriteString(strconv.FormatBool(v.Data.(bool)))
	case TagInt:
		b.WriteString(strconv.FormatInt(v.Data.(int64), 10))
	case TagNum:
		b.WriteString(strconv.FormatFloat(v.Data.(float64), 'g', -1, 64))
	case TagStr:
		b.WriteString(strconv.Quote(v.Data.(string)))
	case TagArray:
		arr := v.Data.(*ArrayObject)
		b.WriteByte('[')
		for i, elem := range arr.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			elem.render(b, depth+1)
		}
		b.WriteByte(']')
	case TagObject:
		obj := v.Data.(*MapObject)
		b.WriteByte('{')
		for i, key := range obj.Keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(key)
			b.WriteString(": ")
			obj.Entries[key].render(b, depth+1)
		}
		b.WriteByte('}')
	}
}

// Equal implements the script's equality: numerics compare across the
// int/float divide, strings and booleans by value, arrays and objects
// by identity.
func Equal(a, b Value) bool {
	if isNumeric(a) && isNumeric(b) {
		if a.Tag == TagInt && b.Tag == TagInt {
			return a.Data.(int64) == b.Data.(int64)
		}
		return asFloat(a) == asFloat(b)
	}
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case TagNull:
		return true
	case TagBool:
		return a.Data.(bool) == b.Data.(bool)
	case TagStr:
		return a.Data.(string) == b.Data.(string)
	case TagArray:
		return a.Data.(*ArrayObject) == b.Data.(*ArrayObject)
	case TagObject:
		return a.Data.(*MapObject) == b.Data.(*MapObject)
	default:
		return false
	}
}

func isNumeric(v Value) bool { return v.Tag == TagInt || v.Tag == TagNum }

func asFloat(v Value) float64 {
	if v.Tag == TagInt {
		return float64(v.Data.(int64))
	}
	return v.Data.(float64)
}

// FromGo converts a JSON-shaped Go value (as found in state snapshots
// and argument maps) into a script value. Map keys are sorted so the
// object's iteration order is deterministic. Unsupported types become
// null.
func FromGo(x any) Value {
	return fromGo(x, 0)
}

func fromGo(x any, depth int) Value {
	if depth > renderDepthLimit {
		return Null
	}
	switch v := x.(type) {
	case nil:
		return Null
	case bool:
		return Bool(v)
	case int:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case int64:
		return Int(v)
	case float32:
		return Num(float64(v))
	case float64:
		return Num(v)
	case string:
		return Str(v)
	case []any:
		elems := make([]Value, len(v))
		for i, e := range v {
			elems[i] = fromGo(e, depth+1)
		}
		return Arr(elems)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewMapObject()
		for _, k := range keys {
			obj.Set(k, fromGo(v[k], depth+1))
		}
		return Obj(obj)
	default:
		return Null
	}
}

// Interface converts a script value back to its JSON-shaped Go form:
// int64, float64, bool, string, []any and map[string]any. Structures
// deeper than the render limit are cut off as nil.
func (v Value) Interface() any {
	return v.toGo(0)
}

func (v Value) toGo(depth int) any {
	if depth > renderDepthLimit {
		return nil
	}
	switch v.Tag {
	case TagNull:
		return nil
	case TagBool:
		return v.Data.(bool)
	case TagInt:
		return v.Data.(int64)
	case TagNum:
		return v.Data.(float64)
	case TagStr:
		return v.Data.(string)
	case TagArray:
		arr := v.Data.(*ArrayObject)
		out := make([]any, len(arr.Elems))
		for i, elem := range arr.Elems {
			out[i] = elem.toGo(depth + 1)
		}
		return out
	case TagObject:
		obj := v.Data.(*MapObject)
		out := make(map[string]any, len(obj.Entries))
		for key, entry := range obj.Entries {
			out[key] = entry.toGo(depth + 1)
		}
		return out
	default:
		return nil
	}
}
