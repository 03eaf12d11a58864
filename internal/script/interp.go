// Package script implements the handler scripting language: an ES-like
// subset compiled to an AST and run by a tree-walking interpreter.
//
// The interpreter has no ambient authority. Every effect flows through
// the Host interface, and execution is bounded by a step-fuel counter,
// an allocation budget and the run context. Blown budgets surface as
// *AbortError; script-level failures as *FaultError; errors returned by
// the Host pass through Run verbatim.
package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Host is the interpreter's only door to the outside world. The sandbox
// implementation gates every method on the granted capability set.
type Host interface {
	// GetState reads one state key from the execution snapshot.
	GetState(key string) (Value, error)

	// SetState records a state mutation.
	SetState(key string, value Value) error

	// GetArg reads one caller-supplied argument.
	GetArg(key string) (Value, bool)

	// Emit records an emitted event.
	Emit(event string, payload Value) error

	// Log records a handler log line. Levels are debug, info, warn and
	// error; logging never requires a capability.
	Log(level, message string)

	// CallExtension invokes method on a registered extension.
	CallExtension(name, method string, args []Value) (Value, error)
}

// Abort kinds reported by AbortError.
const (
	AbortTimeout   = "timeout"
	AbortMemory    = "memory"
	AbortCancelled = "cancelled"
)

// AbortError reports a blown execution budget or a cancelled run
// context. Handlers cannot observe or suppress aborts.
type AbortError struct {
	Kind string
	Msg  string
}

func (e *AbortError) Error() string { return e.Kind + ": " + e.Msg }

// FaultError is a script-level failure: a type error, an undefined
// variable, division by zero and the like.
type FaultError struct {
	Msg string
}

func (e *FaultError) Error() string { return e.Msg }

// Options configures one interpreter.
type Options struct {
	// MaxSteps caps evaluated AST nodes; 0 disables the cap.
	MaxSteps int64

	// MaxAllocBytes caps tracked allocations; 0 disables the cap.
	MaxAllocBytes int64

	// PanelID, WorkspaceID and HandlerName back the $panel, $workspace
	// and $handler metadata reads.
	PanelID     string
	WorkspaceID string
	HandlerName string
}

// Interp runs one handler at a time. It is not safe for concurrent use;
// create one per execution.
type Interp struct {
	host Host
	opts Options

	ctx   context.Context
	steps int64
	alloc int64
}

// New returns an interpreter bound to the given host.
func New(host Host, opts Options) *Interp {
	return &Interp{host: host, opts: opts}
}

// Steps reports the number of AST nodes evaluated by the last Run.
func (ip *Interp) Steps() int64 { return ip.steps }

// AllocBytes reports the tracked allocation total of the last Run.
func (ip *Interp) AllocBytes() int64 { return ip.alloc }

// Control-flow signals travel as panics and are caught by the loop
// driver or the Run boundary. Faults and aborts use the same channel.
type (
	returnSignal   struct{ value Value }
	breakSignal    struct{}
	continueSignal struct{}
	faultSignal    struct{ msg string }
	abortSignal    struct{ kind, msg string }
	hostSignal     struct{ err error }
)

func (ip *Interp) fail(format string, args ...any) {
	panic(faultSignal{msg: fmt.Sprintf(format, args...)})
}

// Run executes a compiled program. The context must be non-nil; its
// deadline drives the timeout abort and its cancellation the cancelled
// abort. A handler without an explicit return yields null.
func (ip *Interp) Run(ctx context.Context, prog *Program) (result Value, err error) {
	ip.ctx = ctx
	ip.steps = 0
	ip.alloc = 0

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch sig := r.(type) {
		case returnSignal:
			result, err = sig.value, nil
		case breakSignal:
			result, err = Null, &FaultError{Msg: "break outside of a loop"}
		case continueSignal:
			result, err = Null, &FaultError{Msg: "continue outside of a loop"}
		case faultSignal:
			result, err = Null, &FaultError{Msg: sig.msg}
		case abortSignal:
			result, err = Null, &AbortError{Kind: sig.kind, Msg: sig.msg}
		case hostSignal:
			result, err = Null, sig.err
		default:
			result, err = Null, &FaultError{Msg: fmt.Sprintf("runtime panic: %v", r)}
		}
	}()

	env := NewEnv(nil)
	env.Define("$panel", Str(ip.opts.PanelID), true)
	env.Define("$workspace", Str(ip.opts.WorkspaceID), true)
	env.Define("$handler", Str(ip.opts.HandlerName), true)

	for _, stmt := range prog.Stmts {
		ip.execStmt(stmt, env)
	}
	return Null, nil
}

// step burns one unit of fuel and periodically polls the run context.
func (ip *Interp) step() {
	ip.steps++
	if ip.opts.MaxSteps > 0 && ip.steps > ip.opts.MaxSteps {
		panic(abortSignal{kind: AbortTimeout, msg: fmt.Sprintf("step budget exhausted (%d steps)", ip.opts.MaxSteps)})
	}
	if ip.steps&255 == 0 {
		ip.pollContext()
	}
}

func (ip *Interp) pollContext() {
	select {
	case <-ip.ctx.Done():
		kind := AbortCancelled
		if errors.Is(ip.ctx.Err(), context.DeadlineExceeded) {
			kind = AbortTimeout
		}
		panic(abortSignal{kind: kind, msg: ip.ctx.Err().Error()})
	default:
	}
}

// valueCost approximates the boxed size of one Value.
const valueCost = 32

func (ip *Interp) charge(n int64) {
	ip.alloc += n
	if ip.opts.MaxAllocBytes > 0 && ip.alloc > ip.opts.MaxAllocBytes {
		panic(abortSignal{kind: AbortMemory, msg: fmt.Sprintf("allocation budget exhausted (%d bytes)", ip.opts.MaxAllocBytes)})
	}
}

// ---- environments ----

// Env is a lexical scope chained to its parent.
type Env struct {
	parent *Env
	table  map[string]Value
	consts map[string]struct{}
}

// NewEnv returns a scope under parent.
func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, table: make(map[string]Value)}
}

// Define binds a new name in this scope.
func (e *Env) Define(name string, v Value, isConst bool) {
	e.table[name] = v
	if isConst {
		if e.consts == nil {
			e.consts = make(map[string]struct{})
		}
		e.consts[name] = struct{}{}
	}
}

// Has reports whether name is bound in this scope, ignoring parents.
func (e *Env) Has(name string) bool {
	_, ok := e.table[name]
	return ok
}

// Get resolves name through the scope chain.
func (e *Env) Get(name string) (Value, bool) {
	for scope := e; scope != nil; scope = scope.parent {
		if v, ok := scope.table[name]; ok {
			return v, true
		}
	}
	return Null, false
}

// Set overwrites the nearest binding of name.
func (e *Env) Set(name string, v Value) error {
	for scope := e; scope != nil; scope = scope.parent {
		if _, ok := scope.table[name]; ok {
			if _, isConst := scope.consts[name]; isConst {
				return fmt.Errorf("assignment to constant %q", name)
			}
			scope.table[name] = v
			return nil
		}
	}
	return fmt.Errorf("undefined variable: %s", name)
}

// ---- statements ----

func (ip *Interp) execStmt(stmt Stmt, env *Env) {
	ip.step()
	switch s := stmt.(type) {
	case *LetStmt:
		if _, ok := reservedNames[s.Name]; ok {
			ip.fail("cannot declare reserved name %q", s.Name)
		}
		if env.Has(s.Name) {
			ip.fail("variable %q already declared", s.Name)
		}
		if s.Const && s.Init == nil {
			ip.fail("const %q requires an initializer", s.Name)
		}
		v := Null
		if s.Init != nil {
			v = ip.eval(s.Init, env)
		}
		env.Define(s.Name, v, s.Const)
	case *BlockStmt:
		inner := NewEnv(env)
		for _, st := range s.Stmts {
			ip.execStmt(st, inner)
		}
	case *IfStmt:
		if ip.eval(s.Cond, env).Truthy() {
			ip.execStmt(s.Then, env)
		} else if s.Else != nil {
			ip.execStmt(s.Else, env)
		}
	case *WhileStmt:
		for ip.eval(s.Cond, env).Truthy() {
			if ip.runLoopBody(s.Body, env) {
				break
			}
		}
	case *ForStmt:
		forEnv := NewEnv(env)
		if s.Init != nil {
			ip.execStmt(s.Init, forEnv)
		}
		for s.Cond == nil || ip.eval(s.Cond, forEnv).Truthy() {
			if ip.runLoopBody(s.Body, forEnv) {
				break
			}
			if s.Post != nil {
				ip.eval(s.Post, forEnv)
			}
		}
	case *ForOfStmt:
		if _, ok := reservedNames[s.Name]; ok {
			ip.fail("cannot declare reserved name %q", s.Name)
		}
		v := ip.eval(s.Iterable, env)
		if v.Tag != TagArray {
			ip.fail("for-of expects an array, got %s", v.Tag.Name())
		}
		arr := v.Data.(*ArrayObject)
		for i := 0; i < len(arr.Elems); i++ {
			iterEnv := NewEnv(env)
			iterEnv.Define(s.Name, arr.Elems[i], s.Const)
			if ip.runLoopBody(s.Body, iterEnv) {
				break
			}
		}
	case *ReturnStmt:
		v := Null
		if s.Value != nil {
			v = ip.eval(s.Value, env)
		}
		panic(returnSignal{value: v})
	case *BreakStmt:
		panic(breakSignal{})
	case *ContinueStmt:
		panic(continueSignal{})
	case *ExprStmt:
		ip.eval(s.X, env)
	default:
		ip.fail("unknown statement %T", stmt)
	}
}

// runLoopBody executes one loop iteration, absorbing break and continue
// signals. The return value reports whether the loop should stop.
func (ip *Interp) runLoopBody(body *BlockStmt, env *Env) (stop bool) {
	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case breakSignal:
				stop = true
			case continueSignal:
				stop = false
			default:
				panic(r)
			}
		}
	}()
	ip.execStmt(body, env)
	return false
}

// ---- expressions ----

// Names resolved through the host bridge rather than the environment.
const (
	bridgeState     = "$state"
	bridgeArgs      = "$args"
	bridgeExt       = "$ext"
	bridgeEmit      = "$emit"
	bridgeLog       = "$log"
	bridgePanel     = "$panel"
	bridgeWorkspace = "$workspace"
	bridgeHandler   = "$handler"
)

// reservedNames cannot be declared or shadowed by handler code, so a
// bridge reference always means the bridge.
var reservedNames = map[string]struct{}{
	bridgeState:     {},
	bridgeArgs:      {},
	bridgeExt:       {},
	bridgeEmit:      {},
	bridgeLog:       {},
	bridgePanel:     {},
	bridgeWorkspace: {},
	bridgeHandler:   {},
}

func (ip *Interp) eval(expr Expr, env *Env) Value {
	ip.step()
	switch x := expr.(type) {
	case *NullLit:
		return Null
	case *BoolLit:
		return Bool(x.Value)
	case *IntLit:
		return Int(x.Value)
	case *NumLit:
		return Num(x.Value)
	case *StringLit:
		ip.charge(int64(len(x.Value)))
		return Str(x.Value)
	case *Ident:
		return ip.evalIdent(x, env)
	case *ArrayLit:
		ip.charge(valueCost + int64(len(x.Elems))*valueCost)
		elems := make([]Value, len(x.Elems))
		for i, e := range x.Elems {
			elems[i] = ip.eval(e, env)
		}
		return Arr(elems)
	case *ObjectLit:
		ip.charge(valueCost + int64(len(x.Keys))*valueCost)
		obj := NewMapObject()
		for i, key := range x.Keys {
			ip.charge(int64(len(key)))
			obj.Set(key, ip.eval(x.Values[i], env))
		}
		return Obj(obj)
	case *MemberExpr:
		return ip.evalMember(x, env)
	case *IndexExpr:
		return ip.evalIndex(x, env)
	case *CallExpr:
		return ip.evalCall(x, env)
	case *UnaryExpr:
		return ip.evalUnary(x, env)
	case *BinaryExpr:
		return ip.evalBinary(x, env)
	case *LogicalExpr:
		left := ip.eval(x.L, env)
		if x.Op == AND {
			if !left.Truthy() {
				return left
			}
			return ip.eval(x.R, env)
		}
		if left.Truthy() {
			return left
		}
		return ip.eval(x.R, env)
	case *CondExpr:
		if ip.eval(x.Cond, env).Truthy() {
			return ip.eval(x.Then, env)
		}
		return ip.eval(x.Else, env)
	case *AssignExpr:
		return ip.evalAssign(x, env)
	default:
		ip.fail("unknown expression %T", expr)
		return Null
	}
}

func (ip *Interp) evalIdent(x *Ident, env *Env) Value {
	if v, ok := env.Get(x.Name); ok {
		return v
	}
	switch x.Name {
	case bridgeState, bridgeArgs:
		ip.fail("%s requires a property access, like %s.key", x.Name, x.Name)
	case bridgeExt:
		ip.fail("extension calls look like $ext.name.method(...)")
	case bridgeEmit:
		ip.fail("%s is a function, call it like %s(...)", x.Name, x.Name)
	case bridgeLog:
		ip.fail("$log is called like $log(message) or $log.info(message)")
	}
	if _, ok := builtins[x.Name]; ok {
		ip.fail("%s is a builtin function and cannot be used as a value", x.Name)
	}
	ip.fail("undefined variable: %s", x.Name)
	return Null
}

func (ip *Interp) evalMember(x *MemberExpr, env *Env) Value {
	if root, ok := x.Object.(*Ident); ok {
		switch root.Name {
		case bridgeState:
			return ip.hostGetState(x.Property)
		case bridgeArgs:
			if v, ok := ip.host.GetArg(x.Property); ok {
				return v
			}
			return Null
		case bridgeExt:
			ip.fail("extension calls look like $ext.%s.method(...)", x.Property)
		}
	}
	obj := ip.eval(x.Object, env)
	switch obj.Tag {
	case TagObject:
		if v, ok := obj.Data.(*MapObject).Get(x.Property); ok {
			return v
		}
		return Null
	case TagArray:
		if x.Property == "length" {
			return Int(int64(len(obj.Data.(*ArrayObject).Elems)))
		}
		ip.fail("arrays have no property %q", x.Property)
	case TagStr:
		if x.Property == "length" {
			return Int(int64(len([]rune(obj.Data.(string)))))
		}
		ip.fail("strings have no property %q", x.Property)
	case TagNull:
		ip.fail("cannot read property %q of null", x.Property)
	}
	ip.fail("cannot read property %q of %s", x.Property, obj.Tag.Name())
	return Null
}

func (ip *Interp) evalIndex(x *IndexExpr, env *Env) Value {
	obj := ip.eval(x.Object, env)
	idx := ip.eval(x.Index, env)
	switch obj.Tag {
	case TagArray:
		elems := obj.Data.(*ArrayObject).Elems
		i := ip.arrayIndex(idx)
		if i < 0 || i >= int64(len(elems)) {
			return Null
		}
		return elems[i]
	case TagObject:
		if idx.Tag != TagStr {
			ip.fail("object index must be a string, got %s", idx.Tag.Name())
		}
		if v, ok := obj.Data.(*MapObject).Get(idx.Data.(string)); ok {
			return v
		}
		return Null
	case TagStr:
		runes := []rune(obj.Data.(string))
		i := ip.arrayIndex(idx)
		if i < 0 || i >= int64(len(runes)) {
			return Null
		}
		return Str(string(runes[i]))
	case TagNull:
		ip.fail("cannot index null")
	}
	ip.fail("cannot index %s", obj.Tag.Name())
	return Null
}

// arrayIndex narrows an index value to an integer; whole floats are
// accepted.
func (ip *Interp) arrayIndex(idx Value) int64 {
	switch idx.Tag {
	case TagInt:
		return idx.Data.(int64)
	case TagNum:
		f := idx.Data.(float64)
		if f == float64(int64(f)) {
			return int64(f)
		}
	}
	ip.fail("index must be an integer, got %s", idx.Tag.Name())
	return 0
}

func (ip *Interp) evalCall(x *CallExpr, env *Env) Value {
	// $ext.name.method(args...)
	if name, method, ok := extCallTarget(x.Callee); ok {
		args := make([]Value, len(x.Args))
		for i, a := range x.Args {
			args[i] = ip.eval(a, env)
		}
		return ip.hostCallExtension(name, method, args)
	}

	// $log.level(args...)
	if member, ok := x.Callee.(*MemberExpr); ok {
		if root, ok := member.Object.(*Ident); ok && root.Name == bridgeLog {
			switch member.Property {
			case "debug", "info", "warn", "error":
			default:
				ip.fail("$log has no method %q", member.Property)
			}
			if len(x.Args) == 0 {
				ip.fail("$log.%s expects at least one argument", member.Property)
			}
			args := make([]Value, len(x.Args))
			for i, a := range x.Args {
				args[i] = ip.eval(a, env)
			}
			ip.host.Log(member.Property, joinLogParts(args))
			return Null
		}
	}

	callee, ok := x.Callee.(*Ident)
	if !ok {
		ip.fail("not a function")
	}
	if _, bound := env.Get(callee.Name); bound {
		ip.fail("%q is not a function", callee.Name)
	}

	switch callee.Name {
	case bridgeEmit:
		if len(x.Args) < 1 || len(x.Args) > 2 {
			ip.fail("$emit expects an event name and an optional payload")
		}
		name := ip.eval(x.Args[0], env)
		if name.Tag != TagStr {
			ip.fail("$emit event name must be a string, got %s", name.Tag.Name())
		}
		payload := Null
		if len(x.Args) == 2 {
			payload = ip.eval(x.Args[1], env)
		}
		ip.hostEmit(name.Data.(string), payload)
		return Null
	case bridgeLog:
		ip.evalLogCall(x, env)
		return Null
	}

	if fn, ok := builtins[callee.Name]; ok {
		args := make([]Value, len(x.Args))
		for i, a := range x.Args {
			args[i] = ip.eval(a, env)
		}
		return fn(ip, args)
	}
	ip.fail("unknown function %q", callee.Name)
	return Null
}

// evalLogCall implements the plain $log(...) form. A leading level
// string (debug, info, warn, error) selects the level; everything else
// is joined into the message at info. $log.level(...) is handled in
// evalCall.
func (ip *Interp) evalLogCall(x *CallExpr, env *Env) {
	if len(x.Args) == 0 {
		ip.fail("$log expects at least one argument")
	}
	args := make([]Value, len(x.Args))
	for i, a := range x.Args {
		args[i] = ip.eval(a, env)
	}
	level := "info"
	if len(args) >= 2 && args[0].Tag == TagStr {
		switch args[0].Data.(string) {
		case "debug", "info", "warn", "error":
			level = args[0].Data.(string)
			args = args[1:]
		}
	}
	ip.host.Log(level, joinLogParts(args))
}

func joinLogParts(args []Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.ToString()
	}
	return strings.Join(parts, " ")
}

// extCallTarget recognizes the $ext.name.method callee shape.
func extCallTarget(callee Expr) (name, method string, ok bool) {
	outer, ok := callee.(*MemberExpr)
	if !ok {
		return "", "", false
	}
	inner, ok := outer.Object.(*MemberExpr)
	if !ok {
		return "", "", false
	}
	root, ok := inner.Object.(*Ident)
	if !ok || root.Name != bridgeExt {
		return "", "", false
	}
	return inner.Property, outer.Property, true
}

func (ip *Interp) evalAssign(x *AssignExpr, env *Env) Value {
	value := ip.eval(x.Value, env)
	if x.Op != ASSIGN {
		current := ip.readTarget(x.Target, env)
		if x.Op == PLUS_ASSIGN {
			value = ip.opAdd(current, value)
		} else {
			value = ip.opArith(MINUS, current, value)
		}
	}
	ip.writeTarget(x.Target, value, env)
	return value
}

func (ip *Interp) readTarget(target Expr, env *Env) Value {
	switch t := target.(type) {
	case *Ident:
		return ip.evalIdent(t, env)
	case *MemberExpr:
		return ip.evalMember(t, env)
	case *IndexExpr:
		return ip.evalIndex(t, env)
	}
	ip.fail("invalid assignment target")
	return Null
}

func (ip *Interp) writeTarget(target Expr, value Value, env *Env) {
	switch t := target.(type) {
	case *Ident:
		switch t.Name {
		case bridgeState:
			ip.fail("cannot replace $state, assign to $state.key instead")
		case bridgeArgs:
			ip.fail("$args is read-only")
		}
		if err := env.Set(t.Name, value); err != nil {
			ip.fail("%s", err.Error())
		}
	case *MemberExpr:
		if root, ok := t.Object.(*Ident); ok {
			switch root.Name {
			case bridgeState:
				ip.hostSetState(t.Property, value)
				return
			case bridgeArgs:
				ip.fail("$args is read-only")
			}
		}
		obj := ip.eval(t.Object, env)
		if obj.Tag != TagObject {
			ip.fail("cannot set property %q on %s", t.Property, obj.Tag.Name())
		}
		ip.charge(int64(len(t.Property)) + valueCost)
		obj.Data.(*MapObject).Set(t.Property, value)
	case *IndexExpr:
		obj := ip.eval(t.Object, env)
		idx := ip.eval(t.Index, env)
		switch obj.Tag {
		case TagArray:
			arr := obj.Data.(*ArrayObject)
			i := ip.arrayIndex(idx)
			switch {
			case i >= 0 && i < int64(len(arr.Elems)):
				arr.Elems[i] = value
			case i == int64(len(arr.Elems)):
				ip.charge(valueCost)
				arr.Elems = append(arr.Elems, value)
			default:
				ip.fail("array index %d out of range (len %d)", i, len(arr.Elems))
			}
		case TagObject:
			if idx.Tag != TagStr {
				ip.fail("object index must be a string, got %s", idx.Tag.Name())
			}
			key := idx.Data.(string)
			ip.charge(int64(len(key)) + valueCost)
			obj.Data.(*MapObject).Set(key, value)
		default:
			ip.fail("cannot index-assign into %s", obj.Tag.Name())
		}
	default:
		ip.fail("invalid assignment target")
	}
}

// ---- host bridge ----

func (ip *Interp) hostGetState(key string) Value {
	v, err := ip.host.GetState(key)
	if err != nil {
		panic(hostSignal{err: err})
	}
	return v
}

func (ip *Interp) hostSetState(key string, value Value) {
	if err := ip.host.SetState(key, value); err != nil {
		panic(hostSignal{err: err})
	}
}

func (ip *Interp) hostEmit(event string, payload Value) {
	if err := ip.host.Emit(event, payload); err != nil {
		panic(hostSignal{err: err})
	}
}

func (ip *Interp) hostCallExtension(name, method string, args []Value) Value {
	v, err := ip.host.CallExtension(name, method, args)
	if err != nil {
		panic(hostSignal{err: err})
	}
	return v
}
