package script

import (
	"math"
	"strconv"
	"time"
	"unicode/utf8"
)

func (ip *Interp) evalUnary(x *UnaryExpr, env *Env) Value {
	v := ip.eval(x.X, env)
	if x.Op == NOT {
		return Bool(!v.Truthy())
	}
	switch v.Tag {
	case TagInt:
		return Int(-v.Data.(int64))
	case TagNum:
		return Num(-v.Data.(float64))
	}
	ip.fail("unary '-' expects a number, got %s", v.Tag.Name())
	return Null
}

func (ip *Interp) evalBinary(x *BinaryExpr, env *Env) Value {
	a := ip.eval(x.L, env)
	b := ip.eval(x.R, env)
	switch x.Op {
	case PLUS:
		return ip.opAdd(a, b)
	case MINUS, STAR, SLASH, PERCENT:
		return ip.opArith(x.Op, a, b)
	case EQ:
		return Bool(Equal(a, b))
	case NEQ:
		return Bool(!Equal(a, b))
	case LT, LT_EQ, GT, GT_EQ:
		return ip.opCompare(x.Op, a, b)
	}
	ip.fail("unknown operator %q", x.Op.String())
	return Null
}

// opAdd adds numbers, concatenates strings and arrays, and stringifies
// the other operand when one side is a string.
func (ip *Interp) opAdd(a, b Value) Value {
	if isNumeric(a) && isNumeric(b) {
		if a.Tag == TagInt && b.Tag == TagInt {
			return Int(a.Data.(int64) + b.Data.(int64))
		}
		return Num(asFloat(a) + asFloat(b))
	}
	if a.Tag == TagStr || b.Tag == TagStr {
		s := a.ToString() + b.ToString()
		ip.charge(int64(len(s)))
		return Str(s)
	}
	if a.Tag == TagArray && b.Tag == TagArray {
		left := a.Data.(*ArrayObject).Elems
		right := b.Data.(*ArrayObject).Elems
		ip.charge(int64(len(left)+len(right)) * valueCost)
		merged := make([]Value, 0, len(left)+len(right))
		merged = append(merged, left...)
		merged = append(merged, right...)
		return Arr(merged)
	}
	ip.fail("unsupported operands for '+': %s and %s", a.Tag.Name(), b.Tag.Name())
	return Null
}

func (ip *Interp) opArith(op TokenType, a, b Value) Value {
	if !isNumeric(a) || !isNumeric(b) {
		ip.fail("'%s' expects numbers, got %s and %s", op.String(), a.Tag.Name(), b.Tag.Name())
	}
	bothInt := a.Tag == TagInt && b.Tag == TagInt
	switch op {
	case MINUS:
		if bothInt {
			return Int(a.Data.(int64) - b.Data.(int64))
		}
		return Num(asFloat(a) - asFloat(b))
	case STAR:
		if bothInt {
			return Int(a.Data.(int64) * b.Data.(int64))
		}
		return Num(asFloat(a) * asFloat(b))
	case SLASH:
		if asFloat(b) == 0 {
			ip.fail("division by zero")
		}
		if bothInt {
			x, y := a.Data.(int64), b.Data.(int64)
			if x%y == 0 {
				return Int(x / y)
			}
		}
		return Num(asFloat(a) / asFloat(b))
	case PERCENT:
		if asFloat(b) == 0 {
			ip.fail("modulo by zero")
		}
		if bothInt {
			return Int(a.Data.(int64) % b.Data.(int64))
		}
		return Num(math.Mod(asFloat(a), asFloat(b)))
	}
	return Null
}

func (ip *Interp) opCompare(op TokenType, a, b Value) Value {
	if a.Tag == TagInt && b.Tag == TagInt {
		return orderResult(op, compareInt(a.Data.(int64), b.Data.(int64)))
	}
	if isNumeric(a) && isNumeric(b) {
		return orderResult(op, compareFloat(asFloat(a), asFloat(b)))
	}
	if a.Tag == TagStr && b.Tag == TagStr {
		return orderResult(op, compareString(a.Data.(string), b.Data.(string)))
	}
	ip.fail("'%s' cannot compare %s and %s", op.String(), a.Tag.Name(), b.Tag.Name())
	return Null
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func orderResult(op TokenType, cmp int) Value {
	switch op {
	case LT:
		return Bool(cmp < 0)
	case LT_EQ:
		return Bool(cmp <= 0)
	case GT:
		return Bool(cmp > 0)
	default:
		return Bool(cmp >= 0)
	}
}

// ---- builtins ----

type builtinFunc func(ip *Interp, args []Value) Value

var builtins = map[string]builtinFunc{
	"len":  builtinLen,
	"keys": builtinKeys,
	"push": builtinPush,
	"now":  builtinNow,
	"str":  builtinStr,
	"num":  builtinNum,
	"fail": builtinFail,
}

func (ip *Interp) wantArgs(name string, args []Value, n int) {
	if len(args) != n {
		ip.fail("%s expects %d argument(s), got %d", name, n, len(args))
	}
}

func builtinLen(ip *Interp, args []Value) Value {
	ip.wantArgs("len", args, 1)
	switch x := args[0]; x.Tag {
	case TagStr:
		return Int(int64(utf8.RuneCountInString(x.Data.(string))))
	case TagArray:
		return Int(int64(len(x.Data.(*ArrayObject).Elems)))
	case TagObject:
		return Int(int64(len(x.Data.(*MapObject).Entries)))
	default:
		ip.fail("len expects a string, array or object, got %s", x.Tag.Name())
		return Null
	}
}

func builtinKeys(ip *Interp, args []Value) Value {
	ip.wantArgs("keys", args, 1)
	if args[0].Tag != TagObject {
		ip.fail("keys expects an object, got %s", args[0].Tag.Name())
	}
	obj := args[0].Data.(*MapObject)
	ip.charge(int64(len(obj.Keys)) * valueCost)
	out := make([]Value, len(obj.Keys))
	for i, key := range obj.Keys {
		out[i] = Str(key)
	}
	return Arr(out)
}

// builtinPush appends to an array in place and returns the new length.
func builtinPush(ip *Interp, args []Value) Value {
	if len(args) < 2 {
		ip.fail("push expects an array and at least one value")
	}
	if args[0].Tag != TagArray {
		ip.fail("push expects an array, got %s", args[0].Tag.Name())
	}
	arr := args[0].Data.(*ArrayObject)
	ip.charge(int64(len(args)-1) * valueCost)
	arr.Elems = append(arr.Elems, args[1:]...)
	return Int(int64(len(arr.Elems)))
}

func builtinNow(ip *Interp, args []Value) Value {
	ip.wantArgs("now", args, 0)
	return Int(time.Now().UnixMilli())
}

func builtinStr(ip *Interp, args []Value) Value {
	ip.wantArgs("str", args, 1)
	s := args[0].ToString()
	ip.charge(int64(len(s)))
	return Str(s)
}

// builtinNum narrows a value to a number: strings parse as integer then
// float, booleans map to 0/1, null to 0, and everything unparseable
// yields null.
func builtinNum(ip *Interp, args []Value) Value {
	ip.wantArgs("num", args, 1)
	switch x := args[0]; x.Tag {
	case TagInt, TagNum:
		return x
	case TagBool:
		if x.Data.(bool) {
			return Int(1)
		}
		return Int(0)
	case TagNull:
		return Int(0)
	case TagStr:
		s := x.Data.(string)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(n)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Num(f)
		}
		return Null
	default:
		return Null
	}
}

// builtinFail raises a runtime fault carrying the handler's message.
func builtinFail(ip *Interp, args []Value) Value {
	if len(args) == 0 {
		ip.fail("handler failed")
	}
	ip.fail("%s", joinLogParts(args))
	return Null
}
