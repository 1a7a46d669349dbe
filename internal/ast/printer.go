package ast

import (
	"fmt"
	"strings"

	"lox-lang/internal/token"
)

// Print renders a node in fully-parenthesized prefix form, e.g. (+ 1.0 2.0).
func Print(node Node) string {
	var b strings.Builder
	write(&b, node)
	return b.String()
}

func write(b *strings.Builder, node Node) {
	switch n := node.(type) {
	case nil:
		b.WriteString("nil")

	// ---- Expressions ----
	case *Literal:
		b.WriteString(literalString(n.Value))
	case *Grouping:
		parenthesize(b, "group", n.Inner)
	case *Unary:
		parenthesize(b, n.Operator.Lexeme, n.Operand)
	case *Binary:
		parenthesize(b, n.Operator.Lexeme, n.Left, n.Right)
	case *Logical:
		parenthesize(b, n.Operator.Lexeme, n.Left, n.Right)
	case *Variable:
		b.WriteString(n.Name.Lexeme)
	case *Assign:
		parenthesize(b, "assign "+n.Name.Lexeme, n.Value)
	case *Call:
		nodes := append([]Node{n.Callee}, exprNodes(n.Args)...)
		parenthesize(b, "call", nodes...)
	case *Get:
		parenthesize(b, "get "+n.Name.Lexeme, n.Object)
	case *Set:
		parenthesize(b, "set "+n.Name.Lexeme, n.Object, n.Value)
	case *This:
		b.WriteString("this")
	case *Super:
		b.WriteString("(super " + n.Method.Lexeme + ")")

	// ---- Statements ----
	case *ExprStmt:
		parenthesize(b, "expression", n.Expr)
	case *PrintStmt:
		parenthesize(b, "print", n.Expr)
	case *VarStmt:
		if n.Init == nil {
			b.WriteString("(var " + n.Name.Lexeme + ")")
			return
		}
		parenthesize(b, "var "+n.Name.Lexeme, n.Init)
	case *BlockStmt:
		parenthesize(b, "block", stmtNodes(n.Stmts)...)
	case *IfStmt:
		if n.Else == nil {
			parenthesize(b, "if", n.Condition, n.Then)
			return
		}
		parenthesize(b, "if-else", n.Condition, n.Then, n.Else)
	case *WhileStmt:
		parenthesize(b, "while", n.Condition, n.Body)
	case *FunctionStmt:
		writeFunction(b, n)
	case *ReturnStmt:
		if n.Value == nil {
			b.WriteString("(return)")
			return
		}
		parenthesize(b, "return", n.Value)
	case *ClassStmt:
		b.WriteString("(class " + n.Name.Lexeme)
		if n.Superclass != nil {
			b.WriteString(" < " + n.Superclass.Name.Lexeme)
		}
		for _, m := range n.Methods {
			b.WriteByte(' ')
			writeFunction(b, m)
		}
		b.WriteByte(')')

	default:
		fmt.Fprintf(b, "<unknown %T>", node)
	}
}

func writeFunction(b *strings.Builder, fn *FunctionStmt) {
	b.WriteString("(fun " + fn.Name.Lexeme + "(")
	for i, p := range fn.Params {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.Lexeme)
	}
	b.WriteString(")")
	for _, s := range fn.Body {
		b.WriteByte(' ')
		write(b, s)
	}
	b.WriteByte(')')
}

func parenthesize(b *strings.Builder, name string, parts ...Node) {
	b.WriteByte('(')
	b.WriteString(name)
	for _, p := range parts {
		b.WriteByte(' ')
		write(b, p)
	}
	b.WriteByte(')')
}

func literalString(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case float64:
		return token.FormatNumberLiteral(val)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func exprNodes(exprs []Expr) []Node {
	nodes := make([]Node, len(exprs))
	for i, e := range exprs {
		nodes[i] = e
	}
	return nodes
}

func stmtNodes(stmts []Stmt) []Node {
	nodes := make([]Node, len(stmts))
	for i, s := range stmts {
		nodes[i] = s
	}
	return nodes
}
