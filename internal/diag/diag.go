// Package diag provides diagnostic (error/warning) types for the interpreter front end.
package diag

import (
	"fmt"

	"lox-lang/internal/span"
	"lox-lang/internal/token"
)

// Severity indicates the severity of a diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Stable diagnostic codes. E1xxx are lexical, E2xxx syntax, E3xxx resolution.
const (
	CodeUnexpectedChar     = "E1001"
	CodeUnterminatedString = "E1002"

	CodeExpectExpression = "E2001"
	CodeExpectToken      = "E2002"
	CodeInvalidTarget    = "E2003"
	CodeTooManyArgs      = "E2004"
	CodeTooManyParams    = "E2005"

	CodeSelfInitializer = "E3001"
	CodeRedeclared      = "E3002"
	CodeTopLevelReturn  = "E3003"
	CodeInitReturnValue = "E3004"
	CodeThisOutside     = "E3005"
	CodeSuperOutside    = "E3006"
	CodeSuperNoParent   = "E3007"
	CodeSelfInherit     = "E3008"
)

// Diagnostic represents a front-end diagnostic message.
type Diagnostic struct {
	Code     string    `json:"code"`            // stable error code, e.g. "E1001"
	Severity Severity  `json:"severity"`        // error or warning
	Message  string    `json:"message"`         // human-readable description
	Line     int       `json:"line"`            // 1-based source line
	Where    string    `json:"where,omitempty"` // " at 'x'", " at end", or empty
	Span     span.Span `json:"span"`            // source location
}

// String renders the diagnostic as "[line N] Error<where>: <message>".
func (d Diagnostic) String() string {
	return fmt.Sprintf("[line %d] Error%s: %s", d.Line, d.Where, d.Message)
}

// Errorf creates an error diagnostic at a bare source position, with no token context.
func Errorf(code string, s span.Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
		Line:     s.Start.Line,
		Span:     s,
	}
}

// AtToken creates an error diagnostic located at tok.
func AtToken(code string, tok token.Token, format string, args ...interface{}) Diagnostic {
	where := " at '" + tok.Lexeme + "'"
	if tok.Kind == token.EOF {
		where = " at end"
	}
	return Diagnostic{
		Code:     code,
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
		Line:     tok.Line,
		Where:    where,
		Span:     tok.Span,
	}
}

// HasErrors reports whether any diagnostic in diags is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
