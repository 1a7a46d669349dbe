// Package ast defines the abstract syntax tree for Lox.
package ast

import (
	"lox-lang/internal/span"
	"lox-lang/internal/token"
)

// ============================================================
// Node interfaces
// ============================================================

// Node is the interface implemented by all AST nodes.
type Node interface {
	nodeNode()
	GetSpan() span.Span
}

// Expr is the interface for expression nodes. Expression nodes are always
// handled through pointers, so an Expr value doubles as the node's identity
// (the resolver keys its side table on it).
type Expr interface {
	Node
	exprNode()
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// ============================================================
// Base types (embedded to provide common fields)
// ============================================================

// NodeBase provides the common Span field for all AST nodes.
type NodeBase struct {
	Span span.Span
}

func (n NodeBase) nodeNode()          {}
func (n NodeBase) GetSpan() span.Span { return n.Span }

// ExprBase is embedded by all expression nodes.
type ExprBase struct{ NodeBase }

func (ExprBase) exprNode() {}

// StmtBase is embedded by all statement nodes.
type StmtBase struct{ NodeBase }

func (StmtBase) stmtNode() {}

// ============================================================
// Expressions
// ============================================================

// Literal is a constant: nil, a bool, a float64 or a string.
type Literal struct {
	ExprBase
	Value any
}

// Grouping is a parenthesized expression.
type Grouping struct {
	ExprBase
	Inner Expr
}

// Unary represents !x or -x.
type Unary struct {
	ExprBase
	Operator token.Token
	Operand  Expr
}

// Binary represents an arithmetic, comparison or equality operation.
type Binary struct {
	ExprBase
	Operator token.Token
	Left     Expr
	Right    Expr
}

// Logical represents a short-circuiting 'and' / 'or'.
type Logical struct {
	ExprBase
	Operator token.Token
	Left     Expr
	Right    Expr
}

// Variable is a reference to a named binding.
type Variable struct {
	ExprBase
	Name token.Token
}

// Assign stores into a named binding: name = value.
type Assign struct {
	ExprBase
	Name  token.Token
	Value Expr
}

// Call represents callee(args). Paren is the closing parenthesis, used to
// locate runtime errors.
type Call struct {
	ExprBase
	Callee Expr
	Paren  token.Token
	Args   []Expr
}

// Get reads a property: object.name.
type Get struct {
	ExprBase
	Object Expr
	Name   token.Token
}

// Set writes a property: object.name = value.
type Set struct {
	ExprBase
	Object Expr
	Name   token.Token
	Value  Expr
}

// This is the 'this' keyword inside a method.
type This struct {
	ExprBase
	Keyword token.Token
}

// Super is a superclass method access: super.method.
type Super struct {
	ExprBase
	Keyword token.Token
	Method  token.Token
}

// ============================================================
// Statements
// ============================================================

// ExprStmt wraps an expression evaluated for its side effects.
type ExprStmt struct {
	StmtBase
	Expr Expr
}

// PrintStmt writes the display string of its expression.
type PrintStmt struct {
	StmtBase
	Expr Expr
}

// VarStmt declares a variable: var name [= init];
type VarStmt struct {
	StmtBase
	Name token.Token
	Init Expr // may be nil
}

// BlockStmt is a braced statement list with its own scope.
type BlockStmt struct {
	StmtBase
	Stmts []Stmt
}

// IfStmt represents if (cond) then [else else].
type IfStmt struct {
	StmtBase
	Condition Expr
	Then      Stmt
	Else      Stmt // may be nil
}

// WhileStmt represents while (cond) body. For loops are desugared into it.
type WhileStmt struct {
	StmtBase
	Condition Expr
	Body      Stmt
}

// FunctionStmt declares a function or, inside a class body, a method.
type FunctionStmt struct {
	StmtBase
	Name   token.Token
	Params []token.Token
	Body   []Stmt
}

// ReturnStmt represents return [value];
type ReturnStmt struct {
	StmtBase
	Keyword token.Token
	Value   Expr // may be nil
}

// ClassStmt declares a class with an optional superclass.
type ClassStmt struct {
	StmtBase
	Name       token.Token
	Superclass *Variable // may be nil
	Methods    []*FunctionStmt
}
