// Package runtime implements the interpreter and runtime value system for Lox.
package runtime

import (
	"fmt"
	"math"
	"strconv"

	"lox-lang/internal/ast"
)

// Value is the interface for all runtime values. String returns the display
// form used by print.
type Value interface {
	TypeName() string
	String() string
}

// ---- Primitive values ----

// NilVal represents nil.
type NilVal struct{}

func (v NilVal) TypeName() string { return "nil" }
func (v NilVal) String() string   { return "nil" }

// BoolVal represents a boolean value.
type BoolVal bool

func (v BoolVal) TypeName() string { return "boolean" }
func (v BoolVal) String() string   { return strconv.FormatBool(bool(v)) }

// NumberVal represents a number. All Lox numbers are float64.
type NumberVal float64

func (v NumberVal) TypeName() string { return "number" }
func (v NumberVal) String() string   { return FormatNumber(float64(v)) }

// StringVal represents a string value.
type StringVal string

func (v StringVal) TypeName() string { return "string" }
func (v StringVal) String() string   { return string(v) }

// FormatNumber renders a number for display: integral values print without
// a fractional part.
func FormatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ---- Callable values ----

// Callable is implemented by every value that can appear before '(' in a call.
type Callable interface {
	Value
	Arity() int
}

// NativeFn is the Go signature for native functions.
type NativeFn func(args []Value) (Value, error)

// NativeVal represents a native function implemented in Go.
type NativeVal struct {
	Name   string
	Params int
	Fn     NativeFn
}

func (v *NativeVal) TypeName() string { return "function" }
func (v *NativeVal) String() string   { return fmt.Sprintf("<fn %s>", v.Name) }
func (v *NativeVal) Arity() int       { return v.Params }

// FuncVal represents a user-defined function or method (closure).
type FuncVal struct {
	Decl          *ast.FunctionStmt
	Closure       *Environment
	IsInitializer bool
}

func (v *FuncVal) TypeName() string { return "function" }
func (v *FuncVal) String() string   { return fmt.Sprintf("<fn %s>", v.Decl.Name.Lexeme) }
func (v *FuncVal) Arity() int       { return len(v.Decl.Params) }

// Bind returns a copy of the method whose closure has 'this' bound to inst.
func (v *FuncVal) Bind(inst *InstanceVal) *FuncVal {
	env := NewEnvironment(v.Closure)
	env.Define("this", inst)
	return &FuncVal{Decl: v.Decl, Closure: env, IsInitializer: v.IsInitializer}
}

// ---- OOP values ----

// ClassVal represents a class. Calling it constructs an instance.
type ClassVal struct {
	Name    string
	Super   *ClassVal // may be nil
	Methods map[string]*FuncVal
}

func (v *ClassVal) TypeName() string { return "class" }
func (v *ClassVal) String() string   { return v.Name }

// Arity is the arity of the class's initializer, or zero without one.
func (v *ClassVal) Arity() int {
	if initializer := v.FindMethod("init"); initializer != nil {
		return initializer.Arity()
	}
	return 0
}

// FindMethod looks a method up on the class and then on each ancestor.
func (v *ClassVal) FindMethod(name string) *FuncVal {
	for c := v; c != nil; c = c.Super {
		if m, ok := c.Methods[name]; ok {
			return m
		}
	}
	return nil
}

// InstanceVal represents an instance of a class. Fields are created on
// first assignment.
type InstanceVal struct {
	Class  *ClassVal
	Fields map[string]Value
}

// NewInstance allocates an instance with no fields.
func NewInstance(class *ClassVal) *InstanceVal {
	return &InstanceVal{Class: class, Fields: make(map[string]Value)}
}

func (v *InstanceVal) TypeName() string { return "instance" }
func (v *InstanceVal) String() string   { return v.Class.Name + " instance" }

// Get returns a field, or else a method bound to the instance.
func (v *InstanceVal) Get(name string) (Value, bool) {
	if val, ok := v.Fields[name]; ok {
		return val, true
	}
	if m := v.Class.FindMethod(name); m != nil {
		return m.Bind(v), true
	}
	return nil, false
}

// Set writes a field, creating it if needed.
func (v *InstanceVal) Set(name string, val Value) {
	v.Fields[name] = val
}

// ---- Truthiness and equality ----

// IsTruthy reports whether v counts as true: only nil and false are falsey.
func IsTruthy(v Value) bool {
	switch val := v.(type) {
	case NilVal:
		return false
	case BoolVal:
		return bool(val)
	default:
		return true
	}
}

// ValuesEqual compares two values without coercion. Values of different
// kinds are never equal; objects compare by identity.
func ValuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case NilVal:
		_, ok := b.(NilVal)
		return ok
	case BoolVal:
		bv, ok := b.(BoolVal)
		return ok && av == bv
	case NumberVal:
		bv, ok := b.(NumberVal)
		return ok && av == bv
	case StringVal:
		bv, ok := b.(StringVal)
		return ok && av == bv
	default:
		return a == b
	}
}

// literalValue converts a parsed literal to a runtime value.
func literalValue(v any) Value {
	switch val := v.(type) {
	case bool:
		return BoolVal(val)
	case float64:
		return NumberVal(val)
	case string:
		return StringVal(val)
	default:
		return NilVal{}
	}
}
