// Package driver runs the Lox pipeline (scan, parse, resolve, execute) and
// reports the outcome of each entry point as an explicit Result.
package driver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tliron/commonlog"

	"lox-lang/internal/ast"
	"lox-lang/internal/diag"
	"lox-lang/internal/lexer"
	"lox-lang/internal/parser"
	"lox-lang/internal/resolver"
	"lox-lang/internal/runtime"
	"lox-lang/internal/token"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitDataErr = 65 // scan, parse or resolve errors
	ExitRuntime = 70 // runtime error
)

var (
	// ErrSyntax reports lexical or syntax diagnostics.
	ErrSyntax = errors.New("syntax error")
	// ErrResolve reports static resolution diagnostics.
	ErrResolve = errors.New("resolution error")
)

var log = commonlog.GetLogger("lox.driver")

// Result is the outcome of one pipeline run. Evaluation never starts when
// Diagnostics holds an error.
type Result struct {
	Diagnostics  []diag.Diagnostic
	RuntimeError *runtime.RuntimeError
}

// Failed reports whether the run produced a diagnostic error or a runtime error.
func (r Result) Failed() bool {
	return diag.HasErrors(r.Diagnostics) || r.RuntimeError != nil
}

// ExitCode maps the result to the process exit status.
func (r Result) ExitCode() int {
	switch {
	case diag.HasErrors(r.Diagnostics):
		return ExitDataErr
	case r.RuntimeError != nil:
		return ExitRuntime
	default:
		return ExitOK
	}
}

// Err summarizes the result as an error wrapping ErrSyntax, ErrResolve or the
// runtime error. It returns nil for a clean run.
func (r Result) Err() error {
	if diag.HasErrors(r.Diagnostics) {
		sentinel := ErrResolve
		for _, d := range r.Diagnostics {
			if !strings.HasPrefix(d.Code, "E3") {
				sentinel = ErrSyntax
				break
			}
		}
		return fmt.Errorf("%w: %d diagnostic(s), first: %s", sentinel, len(r.Diagnostics), r.Diagnostics[0])
	}
	if r.RuntimeError != nil {
		return r.RuntimeError
	}
	return nil
}

// Messages returns the user-facing error lines in reporting order:
// diagnostics first, then the runtime error.
func (r Result) Messages() []string {
	msgs := make([]string, 0, len(r.Diagnostics)+1)
	for _, d := range r.Diagnostics {
		msgs = append(msgs, d.String())
	}
	if r.RuntimeError != nil {
		msgs = append(msgs, r.RuntimeError.Report())
	}
	return msgs
}

// Tokenize scans source. The tokens are returned even when scanning
// reported errors.
func Tokenize(source, filename string) ([]token.Token, Result) {
	tokens, diags := lexer.New(source, filename).Tokenize()
	log.Debugf("%s: scanned %d tokens, %d diagnostics", filename, len(tokens), len(diags))
	return tokens, Result{Diagnostics: diags}
}

// ParseExpression scans and parses source as a single expression.
func ParseExpression(source, filename string) (ast.Expr, Result) {
	tokens, res := Tokenize(source, filename)
	expr, parseDiags := parser.New(tokens).ParseExpression()
	res.Diagnostics = append(res.Diagnostics, parseDiags...)
	return expr, res
}

// Parse scans and parses source as a program.
func Parse(source, filename string) ([]ast.Stmt, Result) {
	tokens, res := Tokenize(source, filename)
	stmts, parseDiags := parser.New(tokens).Parse()
	res.Diagnostics = append(res.Diagnostics, parseDiags...)
	log.Debugf("%s: parsed %d statements", filename, len(stmts))
	return stmts, res
}

// Check scans, parses and resolves source without executing it. Resolution
// is skipped when scanning or parsing failed.
func Check(source, filename string) ([]ast.Stmt, resolver.Locals, Result) {
	return check(resolver.New(), source, filename)
}

func check(r *resolver.Resolver, source, filename string) ([]ast.Stmt, resolver.Locals, Result) {
	stmts, res := Parse(source, filename)
	if res.Failed() {
		return stmts, nil, res
	}
	locals, resolveDiags := r.Resolve(stmts)
	res.Diagnostics = append(res.Diagnostics, resolveDiags...)
	return stmts, locals, res
}

// Evaluate parses source as one expression and evaluates it with interp.
// The value is nil when the result failed.
func Evaluate(source, filename string, interp *runtime.Interpreter) (runtime.Value, Result) {
	expr, res := ParseExpression(source, filename)
	if res.Failed() {
		return nil, res
	}
	val, err := interp.Evaluate(expr)
	if err != nil {
		res.RuntimeError = asRuntimeError(err)
		return nil, res
	}
	return val, res
}

// Run checks source and, when it is free of errors, executes it with interp.
func Run(source, filename string, interp *runtime.Interpreter) Result {
	return run(resolver.New(), source, filename, interp)
}

func run(r *resolver.Resolver, source, filename string, interp *runtime.Interpreter) Result {
	stmts, locals, res := check(r, source, filename)
	if res.Failed() {
		log.Infof("%s: not executed, %d diagnostics", filename, len(res.Diagnostics))
		return res
	}
	if err := interp.Interpret(stmts, locals); err != nil {
		res.RuntimeError = asRuntimeError(err)
		log.Infof("%s: runtime error at line %d", filename, res.RuntimeError.Line())
	}
	return res
}

func asRuntimeError(err error) *runtime.RuntimeError {
	var rtErr *runtime.RuntimeError
	if errors.As(err, &rtErr) {
		return rtErr
	}
	return &runtime.RuntimeError{Message: err.Error()}
}

// Session keeps an interpreter and resolver alive across inputs so later
// entries can use what earlier ones declared.
type Session struct {
	interp   *runtime.Interpreter
	resolver *resolver.Resolver
}

// NewSession creates a session around interp.
func NewSession(interp *runtime.Interpreter) *Session {
	return &Session{interp: interp, resolver: resolver.New()}
}

// Run executes one input in the session.
func (s *Session) Run(source, filename string) Result {
	return run(s.resolver, source, filename, s.interp)
}

// Evaluate evaluates one expression in the session's global scope.
func (s *Session) Evaluate(source, filename string) (runtime.Value, Result) {
	return Evaluate(source, filename, s.interp)
}

// Globals lists the names bound in the session's global scope.
func (s *Session) Globals() []string {
	return s.interp.Globals().Names()
}
