package runtime

import (
	"fmt"
	"io"
	"time"

	"lox-lang/internal/ast"
	"lox-lang/internal/token"
)

// ============================================================
// Control flow signals
// ============================================================

// ExecSignal represents a control flow signal from statement execution.
type ExecSignal int

const (
	SigNone   ExecSignal = iota
	SigReturn            // return from function
)

// ExecResult carries a control flow signal and an optional value (for return).
type ExecResult struct {
	Signal ExecSignal
	Value  Value
}

var resultNone = ExecResult{Signal: SigNone}

// ============================================================
// Runtime error
// ============================================================

// RuntimeError is a fatal error raised while executing a program. Token is
// the token responsible, used to report the line.
type RuntimeError struct {
	Message string
	Token   token.Token
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Line returns the source line the error is attributed to.
func (e *RuntimeError) Line() int {
	return e.Token.Line
}

// Report renders the error the way it is shown to users: the message, then
// the line on its own.
func (e *RuntimeError) Report() string {
	return fmt.Sprintf("%s\n[line %d]", e.Message, e.Token.Line)
}

func runtimeErr(tok token.Token, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...), Token: tok}
}

// ============================================================
// Interpreter
// ============================================================

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMaxCallDepth limits nested calls; deeper calls fail with
// "Stack overflow.". Zero means no limit.
func WithMaxCallDepth(n int) Option {
	return func(i *Interpreter) { i.maxDepth = n }
}

// WithClock replaces the wall clock used by the clock() native.
func WithClock(now func() time.Time) Option {
	return func(i *Interpreter) { i.now = now }
}

// Interpreter walks the AST and executes it.
type Interpreter struct {
	global *Environment
	env    *Environment
	locals map[ast.Expr]int
	output io.Writer

	now      func() time.Time
	maxDepth int
	depth    int
}

// NewInterpreter creates a new interpreter with native functions registered.
// print statements write to output.
func NewInterpreter(output io.Writer, opts ...Option) *Interpreter {
	i := &Interpreter{
		global: NewEnvironment(nil),
		locals: make(map[ast.Expr]int),
		output: output,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.env = i.global
	RegisterBuiltins(i.global, func() time.Time { return i.now() })
	return i
}

// Interpret executes a resolved program. locals is the resolver's table for
// stmts; it is merged into the tables of earlier calls so that functions
// declared by a previous call keep working. The first runtime error stops
// execution and is returned as a *RuntimeError.
func (i *Interpreter) Interpret(stmts []ast.Stmt, locals map[ast.Expr]int) error {
	for expr, depth := range locals {
		i.locals[expr] = depth
	}
	for _, stmt := range stmts {
		if _, err := i.execStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate evaluates a single expression in the global scope.
func (i *Interpreter) Evaluate(expr ast.Expr) (Value, error) {
	return i.evalExpr(expr)
}

// Globals returns the global environment (used by the REPL).
func (i *Interpreter) Globals() *Environment {
	return i.global
}

// ============================================================
// Statement execution
// ============================================================

func (i *Interpreter) execStmt(stmt ast.Stmt) (ExecResult, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		_, err := i.evalExpr(s.Expr)
		return resultNone, err

	case *ast.PrintStmt:
		val, err := i.evalExpr(s.Expr)
		if err != nil {
			return resultNone, err
		}
		fmt.Fprintln(i.output, val.String())
		return resultNone, nil

	case *ast.VarStmt:
		var val Value = NilVal{}
		if s.Init != nil {
			v, err := i.evalExpr(s.Init)
			if err != nil {
				return resultNone, err
			}
			val = v
		}
		i.env.Define(s.Name.Lexeme, val)
		return resultNone, nil

	case *ast.BlockStmt:
		return i.execBlock(s.Stmts, NewEnvironment(i.env))

	case *ast.IfStmt:
		return i.execIf(s)

	case *ast.WhileStmt:
		return i.execWhile(s)

	case *ast.FunctionStmt:
		i.env.Define(s.Name.Lexeme, &FuncVal{Decl: s, Closure: i.env})
		return resultNone, nil

	case *ast.ReturnStmt:
		var val Value = NilVal{}
		if s.Value != nil {
			v, err := i.evalExpr(s.Value)
			if err != nil {
				return resultNone, err
			}
			val = v
		}
		return ExecResult{Signal: SigReturn, Value: val}, nil

	case *ast.ClassStmt:
		return i.execClass(s)

	default:
		return resultNone, fmt.Errorf("unsupported statement type %T", stmt)
	}
}

func (i *Interpreter) execIf(s *ast.IfStmt) (ExecResult, error) {
	cond, err := i.evalExpr(s.Condition)
	if err != nil {
		return resultNone, err
	}
	if IsTruthy(cond) {
		return i.execStmt(s.Then)
	}
	if s.Else != nil {
		return i.execStmt(s.Else)
	}
	return resultNone, nil
}

func (i *Interpreter) execWhile(s *ast.WhileStmt) (ExecResult, error) {
	for {
		cond, err := i.evalExpr(s.Condition)
		if err != nil {
			return resultNone, err
		}
		if !IsTruthy(cond) {
			return resultNone, nil
		}
		result, err := i.execStmt(s.Body)
		if err != nil || result.Signal == SigReturn {
			return result, err
		}
	}
}

// execBlock runs stmts in blockEnv and restores the current environment on
// every exit path.
func (i *Interpreter) execBlock(stmts []ast.Stmt, blockEnv *Environment) (ExecResult, error) {
	prevEnv := i.env
	i.env = blockEnv
	defer func() { i.env = prevEnv }()

	for _, stmt := range stmts {
		result, err := i.execStmt(stmt)
		if err != nil {
			return resultNone, err
		}
		if result.Signal != SigNone {
			return result, nil
		}
	}
	return resultNone, nil
}

func (i *Interpreter) execClass(s *ast.ClassStmt) (ExecResult, error) {
	var superclass *ClassVal
	if s.Superclass != nil {
		v, err := i.evalExpr(s.Superclass)
		if err != nil {
			return resultNone, err
		}
		cls, ok := v.(*ClassVal)
		if !ok {
			return resultNone, runtimeErr(s.Superclass.Name, "Superclass must be a class.")
		}
		superclass = cls
	}

	i.env.Define(s.Name.Lexeme, NilVal{})

	// methods of a subclass close over a scope binding 'super'
	methodEnv := i.env
	if superclass != nil {
		methodEnv = NewEnvironment(i.env)
		methodEnv.Define("super", superclass)
	}

	methods := make(map[string]*FuncVal, len(s.Methods))
	for _, m := range s.Methods {
		methods[m.Name.Lexeme] = &FuncVal{
			Decl:          m,
			Closure:       methodEnv,
			IsInitializer: m.Name.Lexeme == "init",
		}
	}

	i.env.Assign(s.Name.Lexeme, &ClassVal{Name: s.Name.Lexeme, Super: superclass, Methods: methods})
	return resultNone, nil
}

// ============================================================
// Expression evaluation
// ============================================================

func (i *Interpreter) evalExpr(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return literalValue(e.Value), nil
	case *ast.Grouping:
		return i.evalExpr(e.Inner)
	case *ast.Unary:
		return i.evalUnary(e)
	case *ast.Binary:
		return i.evalBinary(e)
	case *ast.Logical:
		return i.evalLogical(e)
	case *ast.Variable:
		return i.lookUpVariable(e.Name, e)
	case *ast.Assign:
		return i.evalAssign(e)
	case *ast.Call:
		return i.evalCall(e)
	case *ast.Get:
		return i.evalGet(e)
	case *ast.Set:
		return i.evalSet(e)
	case *ast.This:
		return i.lookUpVariable(e.Keyword, e)
	case *ast.Super:
		return i.evalSuper(e)
	default:
		return nil, fmt.Errorf("unsupported expression type %T", expr)
	}
}

// lookUpVariable reads a resolved local at its recorded distance, or a global.
func (i *Interpreter) lookUpVariable(name token.Token, expr ast.Expr) (Value, error) {
	if distance, ok := i.locals[expr]; ok {
		return i.env.GetAt(distance, name.Lexeme), nil
	}
	if val, ok := i.global.Get(name.Lexeme); ok {
		return val, nil
	}
	return nil, runtimeErr(name, "Undefined variable '%s'.", name.Lexeme)
}

func (i *Interpreter) evalAssign(e *ast.Assign) (Value, error) {
	val, err := i.evalExpr(e.Value)
	if err != nil {
		return nil, err
	}
	if distance, ok := i.locals[e]; ok {
		i.env.AssignAt(distance, e.Name.Lexeme, val)
		return val, nil
	}
	if !i.global.Assign(e.Name.Lexeme, val) {
		return nil, runtimeErr(e.Name, "Undefined variable '%s'.", e.Name.Lexeme)
	}
	return val, nil
}

func (i *Interpreter) evalUnary(e *ast.Unary) (Value, error) {
	operand, err := i.evalExpr(e.Operand)
	if err != nil {
		return nil, err
	}

	switch e.Operator.Kind {
	case token.MINUS:
		n, ok := operand.(NumberVal)
		if !ok {
			return nil, runtimeErr(e.Operator, "Operand must be a number.")
		}
		return -n, nil
	case token.BANG:
		return BoolVal(!IsTruthy(operand)), nil
	default:
		return nil, runtimeErr(e.Operator, "unknown unary operator '%s'", e.Operator.Lexeme)
	}
}

func (i *Interpreter) evalBinary(e *ast.Binary) (Value, error) {
	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := i.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}

	op := e.Operator
	switch op.Kind {
	case token.EQUAL_EQUAL:
		return BoolVal(ValuesEqual(left, right)), nil
	case token.BANG_EQUAL:
		return BoolVal(!ValuesEqual(left, right)), nil

	case token.PLUS:
		if l, ok := left.(NumberVal); ok {
			if r, ok := right.(NumberVal); ok {
				return l + r, nil
			}
		}
		if l, ok := left.(StringVal); ok {
			if r, ok := right.(StringVal); ok {
				return l + r, nil
			}
		}
		return nil, runtimeErr(op, "Operands must be two numbers or two strings.")
	}

	l, lok := left.(NumberVal)
	r, rok := right.(NumberVal)
	if !lok || !rok {
		return nil, runtimeErr(op, "Operands must be numbers.")
	}

	switch op.Kind {
	case token.MINUS:
		return l - r, nil
	case token.STAR:
		return l * r, nil
	case token.SLASH:
		// IEEE semantics: division by zero yields an infinity or NaN
		return l / r, nil
	case token.GREATER:
		return BoolVal(l > r), nil
	case token.GREATER_EQUAL:
		return BoolVal(l >= r), nil
	case token.LESS:
		return BoolVal(l < r), nil
	case token.LESS_EQUAL:
		return BoolVal(l <= r), nil
	default:
		return nil, runtimeErr(op, "unknown binary operator '%s'", op.Lexeme)
	}
}

// evalLogical short-circuits and yields the operand that decided the result.
func (i *Interpreter) evalLogical(e *ast.Logical) (Value, error) {
	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	if e.Operator.Kind == token.OR {
		if IsTruthy(left) {
			return left, nil
		}
	} else if !IsTruthy(left) {
		return left, nil
	}
	return i.evalExpr(e.Right)
}

// ============================================================
// Calls
// ============================================================

func (i *Interpreter) evalCall(e *ast.Call) (Value, error) {
	callee, err := i.evalExpr(e.Callee)
	if err != nil {
		return nil, err
	}

	args := make([]Value, 0, len(e.Args))
	for _, argExpr := range e.Args {
		arg, err := i.evalExpr(argExpr)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	return i.callValue(callee, args, e.Paren)
}

// callValue invokes a callable value. paren locates errors.
func (i *Interpreter) callValue(callee Value, args []Value, paren token.Token) (Value, error) {
	callable, ok := callee.(Callable)
	if !ok {
		return nil, runtimeErr(paren, "Can only call functions and classes.")
	}
	if len(args) != callable.Arity() {
		return nil, runtimeErr(paren, "Expected %d arguments but got %d.", callable.Arity(), len(args))
	}

	switch fn := callable.(type) {
	case *NativeVal:
		val, err := fn.Fn(args)
		if err != nil {
			return nil, runtimeErr(paren, "%s", err.Error())
		}
		return val, nil

	case *FuncVal:
		return i.callFunction(fn, args, paren)

	case *ClassVal:
		inst := NewInstance(fn)
		if initializer := fn.FindMethod("init"); initializer != nil {
			if _, err := i.callFunction(initializer.Bind(inst), args, paren); err != nil {
				return nil, err
			}
		}
		return inst, nil

	default:
		return nil, runtimeErr(paren, "Can only call functions and classes.")
	}
}

// callFunction runs fn's body in a fresh environment whose parent is the
// function's closure, not the caller's environment.
func (i *Interpreter) callFunction(fn *FuncVal, args []Value, paren token.Token) (Value, error) {
	if i.maxDepth > 0 && i.depth >= i.maxDepth {
		return nil, runtimeErr(paren, "Stack overflow.")
	}
	i.depth++
	defer func() { i.depth-- }()

	callEnv := NewEnvironment(fn.Closure)
	for idx, param := range fn.Decl.Params {
		callEnv.Define(param.Lexeme, args[idx])
	}

	result, err := i.execBlock(fn.Decl.Body, callEnv)
	if err != nil {
		return nil, err
	}

	// an initializer always yields its instance, even on a bare 'return;'
	if fn.IsInitializer {
		return fn.Closure.GetAt(0, "this"), nil
	}
	if result.Signal == SigReturn {
		return result.Value, nil
	}
	return NilVal{}, nil
}

// ============================================================
// Properties
// ============================================================

func (i *Interpreter) evalGet(e *ast.Get) (Value, error) {
	obj, err := i.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*InstanceVal)
	if !ok {
		return nil, runtimeErr(e.Name, "Only instances have properties.")
	}
	if val, ok := inst.Get(e.Name.Lexeme); ok {
		return val, nil
	}
	return nil, runtimeErr(e.Name, "Undefined property '%s'.", e.Name.Lexeme)
}

func (i *Interpreter) evalSet(e *ast.Set) (Value, error) {
	obj, err := i.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*InstanceVal)
	if !ok {
		return nil, runtimeErr(e.Name, "Only instances have fields.")
	}
	val, err := i.evalExpr(e.Value)
	if err != nil {
		return nil, err
	}
	inst.Set(e.Name.Lexeme, val)
	return val, nil
}

// evalSuper looks the method up starting at the superclass and binds it to
// the current 'this', which lives one scope inside the 'super' scope.
func (i *Interpreter) evalSuper(e *ast.Super) (Value, error) {
	distance, ok := i.locals[e]
	if !ok {
		return nil, runtimeErr(e.Keyword, "Can't use 'super' outside of a class.")
	}
	superclass, _ := i.env.GetAt(distance, "super").(*ClassVal)
	inst, _ := i.env.GetAt(distance-1, "this").(*InstanceVal)
	if superclass == nil || inst == nil {
		return nil, runtimeErr(e.Keyword, "Can't use 'super' outside of a class.")
	}

	method := superclass.FindMethod(e.Method.Lexeme)
	if method == nil {
		return nil, runtimeErr(e.Method, "Undefined property '%s'.", e.Method.Lexeme)
	}
	return method.Bind(inst), nil
}
