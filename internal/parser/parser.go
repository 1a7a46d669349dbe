// Package parser implements the syntax analysis for Lox.
// It uses Pratt parsing for expressions and recursive descent for statements/declarations.
package parser

import (
	"errors"

	"lox-lang/internal/ast"
	"lox-lang/internal/diag"
	"lox-lang/internal/span"
	"lox-lang/internal/token"
)

// maxArgs bounds both call arguments and declared parameters.
const maxArgs = 255

// errSyntax unwinds the current declaration after a diagnostic has been
// recorded. It never escapes the parser.
var errSyntax = errors.New("syntax error")

// ============================================================
// Binding power (precedence) levels
// ============================================================

const (
	bpNone       = 0
	bpOr         = 10 // or
	bpAnd        = 20 // and
	bpEquality   = 30 // == !=
	bpComparison = 40 // < <= > >=
	bpTerm       = 50 // + -
	bpFactor     = 60 // * /
	bpPrefix     = 70 // ! -
	bpPostfix    = 80 // () .
)

// infixBP returns the left binding power for an infix/postfix operator.
func infixBP(kind token.Kind) int {
	switch kind {
	case token.OR:
		return bpOr
	case token.AND:
		return bpAnd
	case token.EQUAL_EQUAL, token.BANG_EQUAL:
		return bpEquality
	case token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL:
		return bpComparison
	case token.PLUS, token.MINUS:
		return bpTerm
	case token.STAR, token.SLASH:
		return bpFactor
	case token.LEFT_PAREN, token.DOT:
		return bpPostfix
	default:
		return bpNone
	}
}

// ============================================================
// Parser
// ============================================================

// Parser performs syntax analysis on a stream of tokens.
type Parser struct {
	tokens []token.Token
	pos    int
	diags  []diag.Diagnostic
}

// New creates a new parser from a token slice.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens, pos: 0}
}

// Parse parses a whole program. Declarations that fail to parse are dropped
// after their error is recorded, so the returned list holds only complete
// statements.
func (p *Parser) Parse() ([]ast.Stmt, []diag.Diagnostic) {
	var stmts []ast.Stmt
	for !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, p.diags
}

// ParseExpression parses a single expression, optionally followed by ';'.
// It returns a nil expression when the expression is malformed.
func (p *Parser) ParseExpression() (ast.Expr, []diag.Diagnostic) {
	expr, err := p.expression()
	if err != nil {
		return nil, p.diags
	}
	if p.check(token.SEMICOLON) {
		p.advance()
	}
	return expr, p.diags
}

// ---- navigation helpers ----

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		if len(p.tokens) > 0 {
			return p.tokens[len(p.tokens)-1]
		}
		return token.Token{Kind: token.EOF, Line: 1}
	}
	return p.tokens[p.pos]
}

func (p *Parser) previous() token.Token {
	if p.pos == 0 {
		return p.peek()
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) peekKind() token.Kind {
	return p.peek().Kind
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) && tok.Kind != token.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind token.Kind) bool {
	return p.peekKind() == kind
}

// match consumes the current token if it is one of kinds.
func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

// expect consumes a token of the given kind or reports msg at the current token.
func (p *Parser) expect(kind token.Kind, msg string) (token.Token, error) {
	if p.check(kind) {
		return p.advance(), nil
	}
	return p.peek(), p.errorAt(p.peek(), diag.CodeExpectToken, msg)
}

func (p *Parser) isAtEnd() bool {
	return p.peekKind() == token.EOF
}

// errorAt records a diagnostic located at tok and returns errSyntax so the
// caller can unwind to the nearest declaration.
func (p *Parser) errorAt(tok token.Token, code, msg string) error {
	p.diags = append(p.diags, diag.AtToken(code, tok, "%s", msg))
	return errSyntax
}

// ============================================================
// Error recovery
// ============================================================

// synchronize discards tokens until just after a ';' or just before a token
// that starts a statement.
func (p *Parser) synchronize() {
	p.advance()
	for !p.isAtEnd() {
		if p.previous().Kind == token.SEMICOLON {
			return
		}
		switch p.peekKind() {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF,
			token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}

// ============================================================
// Declaration parsing
// ============================================================

// declaration parses one declaration or statement. On a syntax error it
// resynchronizes and returns nil.
func (p *Parser) declaration() ast.Stmt {
	var (
		stmt ast.Stmt
		err  error
	)
	switch {
	case p.match(token.CLASS):
		stmt, err = p.classDeclaration()
	case p.match(token.FUN):
		stmt, err = p.function("function")
	case p.match(token.VAR):
		stmt, err = p.varDeclaration()
	default:
		stmt, err = p.statement()
	}
	if err != nil {
		p.synchronize()
		return nil
	}
	return stmt
}

// classDeclaration parses: class IDENT [ < IDENT ] { methods }
func (p *Parser) classDeclaration() (ast.Stmt, error) {
	start := p.previous()
	name, err := p.expect(token.IDENTIFIER, "Expect class name.")
	if err != nil {
		return nil, err
	}

	decl := &ast.ClassStmt{Name: name}
	if p.match(token.LESS) {
		superName, err := p.expect(token.IDENTIFIER, "Expect superclass name.")
		if err != nil {
			return nil, err
		}
		decl.Superclass = &ast.Variable{
			ExprBase: makeExprBase(superName.Span.Start, superName.Span.End),
			Name:     superName,
		}
	}

	if _, err := p.expect(token.LEFT_BRACE, "Expect '{' before class body."); err != nil {
		return nil, err
	}
	for !p.check(token.RIGHT_BRACE) && !p.isAtEnd() {
		method, err := p.function("method")
		if err != nil {
			return nil, err
		}
		decl.Methods = append(decl.Methods, method)
	}
	if _, err := p.expect(token.RIGHT_BRACE, "Expect '}' after class body."); err != nil {
		return nil, err
	}

	decl.Span = p.makeSpan(start.Span.Start)
	return decl, nil
}

// function parses: IDENT ( params ) block. kind is "function" or "method"
// and only affects messages.
func (p *Parser) function(kind string) (*ast.FunctionStmt, error) {
	start := p.peek().Span.Start
	if kind == "function" {
		start = p.previous().Span.Start // the 'fun' keyword
	}
	name, err := p.expect(token.IDENTIFIER, "Expect "+kind+" name.")
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.LEFT_PAREN, "Expect '(' after "+kind+" name."); err != nil {
		return nil, err
	}
	params, err := p.parameters()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.LEFT_BRACE, "Expect '{' before "+kind+" body."); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.FunctionStmt{
		StmtBase: makeStmtBase(start, p.prevEnd()),
		Name:     name,
		Params:   params,
		Body:     body,
	}, nil
}

// parameters parses the rest of a parameter list after '('.
func (p *Parser) parameters() ([]token.Token, error) {
	var params []token.Token
	if !p.check(token.RIGHT_PAREN) {
		for {
			if len(params) >= maxArgs {
				// reported but not fatal: parsing carries on
				p.errorAt(p.peek(), diag.CodeTooManyParams, "Can't have more than 255 parameters.")
			}
			param, err := p.expect(token.IDENTIFIER, "Expect parameter name.")
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(token.RIGHT_PAREN, "Expect ')' after parameters."); err != nil {
		return nil, err
	}
	return params, nil
}

// varDeclaration parses: var IDENT [ = expr ] ;
func (p *Parser) varDeclaration() (ast.Stmt, error) {
	start := p.previous()
	name, err := p.expect(token.IDENTIFIER, "Expect variable name.")
	if err != nil {
		return nil, err
	}

	stmt := &ast.VarStmt{Name: name}
	if p.match(token.EQUAL) {
		if stmt.Init, err = p.expression(); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(token.SEMICOLON, "Expect ';' after variable declaration."); err != nil {
		return nil, err
	}
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt, nil
}

// ============================================================
// Statement parsing
// ============================================================

func (p *Parser) statement() (ast.Stmt, error) {
	switch {
	case p.match(token.FOR):
		return p.forStatement()
	case p.match(token.IF):
		return p.ifStatement()
	case p.match(token.PRINT):
		return p.printStatement()
	case p.match(token.RETURN):
		return p.returnStatement()
	case p.match(token.WHILE):
		return p.whileStatement()
	case p.match(token.LEFT_BRACE):
		start := p.previous()
		stmts, err := p.block()
		if err != nil {
			return nil, err
		}
		return &ast.BlockStmt{StmtBase: makeStmtBase(start.Span.Start, p.prevEnd()), Stmts: stmts}, nil
	default:
		return p.expressionStatement()
	}
}

// forStatement parses: for ( [init] ; [cond] ; [incr] ) body
// and desugars it into
//
//	{ init; while (cond) { body; incr; } }
func (p *Parser) forStatement() (ast.Stmt, error) {
	start := p.previous()
	if _, err := p.expect(token.LEFT_PAREN, "Expect '(' after 'for'."); err != nil {
		return nil, err
	}

	var (
		initializer ast.Stmt
		err         error
	)
	switch {
	case p.match(token.SEMICOLON):
		// no initializer
	case p.match(token.VAR):
		initializer, err = p.varDeclaration()
	default:
		initializer, err = p.expressionStatement()
	}
	if err != nil {
		return nil, err
	}

	var cond ast.Expr
	if !p.check(token.SEMICOLON) {
		if cond, err = p.expression(); err != nil {
			return nil, err
		}
	}
	condEnd, err := p.expect(token.SEMICOLON, "Expect ';' after loop condition.")
	if err != nil {
		return nil, err
	}

	var incr ast.Expr
	if !p.check(token.RIGHT_PAREN) {
		if incr, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.RIGHT_PAREN, "Expect ')' after for clauses."); err != nil {
		return nil, err
	}

	body, err := p.statement()
	if err != nil {
		return nil, err
	}

	if incr != nil {
		body = &ast.BlockStmt{
			StmtBase: makeStmtBase(body.GetSpan().Start, p.prevEnd()),
			Stmts: []ast.Stmt{
				body,
				&ast.ExprStmt{StmtBase: makeStmtBase(incr.GetSpan().Start, incr.GetSpan().End), Expr: incr},
			},
		}
	}
	if cond == nil {
		cond = &ast.Literal{ExprBase: makeExprBase(condEnd.Span.Start, condEnd.Span.Start), Value: true}
	}
	var loop ast.Stmt = &ast.WhileStmt{
		StmtBase:  makeStmtBase(start.Span.Start, p.prevEnd()),
		Condition: cond,
		Body:      body,
	}
	if initializer != nil {
		loop = &ast.BlockStmt{
			StmtBase: makeStmtBase(start.Span.Start, p.prevEnd()),
			Stmts:    []ast.Stmt{initializer, loop},
		}
	}
	return loop, nil
}

// ifStatement parses: if ( expr ) stmt [ else stmt ]
func (p *Parser) ifStatement() (ast.Stmt, error) {
	start := p.previous()
	if _, err := p.expect(token.LEFT_PAREN, "Expect '(' after 'if'."); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RIGHT_PAREN, "Expect ')' after if condition."); err != nil {
		return nil, err
	}

	stmt := &ast.IfStmt{Condition: cond}
	if stmt.Then, err = p.statement(); err != nil {
		return nil, err
	}
	// a dangling else binds to the nearest if
	if p.match(token.ELSE) {
		if stmt.Else, err = p.statement(); err != nil {
			return nil, err
		}
	}
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt, nil
}

// printStatement parses: print expr ;
func (p *Parser) printStatement() (ast.Stmt, error) {
	start := p.previous()
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON, "Expect ';' after value."); err != nil {
		return nil, err
	}
	return &ast.PrintStmt{StmtBase: makeStmtBase(start.Span.Start, p.prevEnd()), Expr: value}, nil
}

// returnStatement parses: return [expr] ;
func (p *Parser) returnStatement() (ast.Stmt, error) {
	keyword := p.previous()
	stmt := &ast.ReturnStmt{Keyword: keyword}
	if !p.check(token.SEMICOLON) {
		value, err := p.expression()
		if err != nil {
			return nil, err
		}
		stmt.Value = value
	}
	if _, err := p.expect(token.SEMICOLON, "Expect ';' after return value."); err != nil {
		return nil, err
	}
	stmt.Span = p.makeSpan(keyword.Span.Start)
	return stmt, nil
}

// whileStatement parses: while ( expr ) stmt
func (p *Parser) whileStatement() (ast.Stmt, error) {
	start := p.previous()
	if _, err := p.expect(token.LEFT_PAREN, "Expect '(' after 'while'."); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RIGHT_PAREN, "Expect ')' after condition."); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{
		StmtBase:  makeStmtBase(start.Span.Start, p.prevEnd()),
		Condition: cond,
		Body:      body,
	}, nil
}

// block parses the statements of a block after '{', through the closing '}'.
// Errors inside the block are recovered locally by declaration.
func (p *Parser) block() ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for !p.check(token.RIGHT_BRACE) && !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	if _, err := p.expect(token.RIGHT_BRACE, "Expect '}' after block."); err != nil {
		return nil, err
	}
	return stmts, nil
}

// expressionStatement parses: expr ;
func (p *Parser) expressionStatement() (ast.Stmt, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON, "Expect ';' after expression."); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{
		StmtBase: makeStmtBase(expr.GetSpan().Start, p.prevEnd()),
		Expr:     expr,
	}, nil
}

// ============================================================
// Expression parsing (Pratt / precedence climbing)
// ============================================================

func (p *Parser) expression() (ast.Expr, error) {
	return p.assignment()
}

// assignment parses the right-associative assignment level that sits above
// the Pratt-parsed operators. Only a variable or a property access may be
// assigned; any other target is reported without unwinding.
func (p *Parser) assignment() (ast.Expr, error) {
	expr, err := p.parseExpr(bpNone)
	if err != nil {
		return nil, err
	}
	if !p.match(token.EQUAL) {
		return expr, nil
	}

	equals := p.previous()
	value, err := p.assignment()
	if err != nil {
		return nil, err
	}
	base := makeExprBase(expr.GetSpan().Start, value.GetSpan().End)

	switch target := expr.(type) {
	case *ast.Variable:
		return &ast.Assign{ExprBase: base, Name: target.Name, Value: value}, nil
	case *ast.Get:
		return &ast.Set{ExprBase: base, Object: target.Object, Name: target.Name, Value: value}, nil
	}
	p.errorAt(equals, diag.CodeInvalidTarget, "Invalid assignment target.")
	return expr, nil
}

// parseExpr parses an expression with the given minimum binding power.
func (p *Parser) parseExpr(minBP int) (ast.Expr, error) {
	left, err := p.nud()
	if err != nil {
		return nil, err
	}

	for infixBP(p.peekKind()) > minBP {
		if left, err = p.led(left); err != nil {
			return nil, err
		}
	}
	return left, nil
}

// nud handles prefix (null denotation) parsing.
func (p *Parser) nud() (ast.Expr, error) {
	tok := p.peek()
	base := makeExprBase(tok.Span.Start, tok.Span.End)

	switch tok.Kind {
	case token.FALSE:
		p.advance()
		return &ast.Literal{ExprBase: base, Value: false}, nil
	case token.TRUE:
		p.advance()
		return &ast.Literal{ExprBase: base, Value: true}, nil
	case token.NIL:
		p.advance()
		return &ast.Literal{ExprBase: base, Value: nil}, nil
	case token.NUMBER, token.STRING:
		p.advance()
		return &ast.Literal{ExprBase: base, Value: tok.Literal}, nil

	case token.THIS:
		p.advance()
		return &ast.This{ExprBase: base, Keyword: tok}, nil

	case token.SUPER:
		p.advance()
		if _, err := p.expect(token.DOT, "Expect '.' after 'super'."); err != nil {
			return nil, err
		}
		method, err := p.expect(token.IDENTIFIER, "Expect superclass method name.")
		if err != nil {
			return nil, err
		}
		return &ast.Super{
			ExprBase: makeExprBase(tok.Span.Start, method.Span.End),
			Keyword:  tok,
			Method:   method,
		}, nil

	case token.IDENTIFIER:
		p.advance()
		return &ast.Variable{ExprBase: base, Name: tok}, nil

	case token.LEFT_PAREN:
		// Grouped expression: ( expr )
		p.advance()
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		end, err := p.expect(token.RIGHT_PAREN, "Expect ')' after expression.")
		if err != nil {
			return nil, err
		}
		return &ast.Grouping{ExprBase: makeExprBase(tok.Span.Start, end.Span.End), Inner: inner}, nil

	case token.BANG, token.MINUS:
		p.advance()
		operand, err := p.parseExpr(bpPrefix)
		if err != nil {
			return nil, err
		}
		return &ast.Unary{
			ExprBase: makeExprBase(tok.Span.Start, operand.GetSpan().End),
			Operator: tok,
			Operand:  operand,
		}, nil

	default:
		return nil, p.errorAt(tok, diag.CodeExpectExpression, "Expect expression.")
	}
}

// led handles infix/postfix (left denotation) parsing.
func (p *Parser) led(left ast.Expr) (ast.Expr, error) {
	tok := p.advance()

	switch tok.Kind {
	case token.LEFT_PAREN:
		return p.finishCall(left)

	case token.DOT:
		name, err := p.expect(token.IDENTIFIER, "Expect property name after '.'.")
		if err != nil {
			return nil, err
		}
		return &ast.Get{
			ExprBase: makeExprBase(left.GetSpan().Start, name.Span.End),
			Object:   left,
			Name:     name,
		}, nil

	case token.AND, token.OR:
		right, err := p.parseExpr(infixBP(tok.Kind))
		if err != nil {
			return nil, err
		}
		return &ast.Logical{
			ExprBase: makeExprBase(left.GetSpan().Start, right.GetSpan().End),
			Operator: tok,
			Left:     left,
			Right:    right,
		}, nil

	default:
		// Binary infix operator (left-associative)
		right, err := p.parseExpr(infixBP(tok.Kind))
		if err != nil {
			return nil, err
		}
		return &ast.Binary{
			ExprBase: makeExprBase(left.GetSpan().Start, right.GetSpan().End),
			Operator: tok,
			Left:     left,
			Right:    right,
		}, nil
	}
}

// finishCall parses the argument list after '(' of callee ( args ).
func (p *Parser) finishCall(callee ast.Expr) (ast.Expr, error) {
	var args []ast.Expr
	if !p.check(token.RIGHT_PAREN) {
		for {
			if len(args) >= maxArgs {
				p.errorAt(p.peek(), diag.CodeTooManyArgs, "Can't have more than 255 arguments.")
			}
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	paren, err := p.expect(token.RIGHT_PAREN, "Expect ')' after arguments.")
	if err != nil {
		return nil, err
	}

	return &ast.Call{
		ExprBase: makeExprBase(callee.GetSpan().Start, paren.Span.End),
		Callee:   callee,
		Paren:    paren,
		Args:     args,
	}, nil
}

// ============================================================
// Span helpers
// ============================================================

func (p *Parser) prevEnd() span.Position {
	if p.pos > 0 && p.pos-1 < len(p.tokens) {
		return p.tokens[p.pos-1].Span.End
	}
	return p.peek().Span.Start
}

func (p *Parser) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: p.prevEnd()}
}

func makeExprBase(start, end span.Position) ast.ExprBase {
	return ast.ExprBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}

func makeStmtBase(start, end span.Position) ast.StmtBase {
	return ast.StmtBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}
