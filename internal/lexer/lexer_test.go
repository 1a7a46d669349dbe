package lexer

import (
	"strings"
	"testing"

	"lox-lang/internal/token"
)

func expectKinds(t *testing.T, source string, expected ...token.Kind) []token.Token {
	t.Helper()
	l := New(source, "test.lox")
	tokens, diags := l.Tokenize()

	if len(diags) > 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(tokens), tokens)
	}
	for i, exp := range expected {
		if tokens[i].Kind != exp {
			t.Errorf("token[%d]: expected %s, got %s (%q)", i, exp, tokens[i].Kind, tokens[i].Lexeme)
		}
	}
	return tokens
}

func TestTokenizeSimple(t *testing.T) {
	expectKinds(t, `var x = 1 + 2;`,
		token.VAR, token.IDENTIFIER, token.EQUAL,
		token.NUMBER, token.PLUS, token.NUMBER, token.SEMICOLON, token.EOF,
	)
}

func TestTokenizeKeywords(t *testing.T) {
	expectKinds(t, `and class else false for fun if nil or print return super this true var while`,
		token.AND, token.CLASS, token.ELSE, token.FALSE, token.FOR, token.FUN,
		token.IF, token.NIL, token.OR, token.PRINT, token.RETURN, token.SUPER,
		token.THIS, token.TRUE, token.VAR, token.WHILE,
		token.EOF,
	)
}

func TestTokenizeKeywordPrefixIsIdentifier(t *testing.T) {
	tokens := expectKinds(t, `classy _or or_ fun1`,
		token.IDENTIFIER, token.IDENTIFIER, token.IDENTIFIER, token.IDENTIFIER, token.EOF)
	if tokens[3].Lexeme != "fun1" {
		t.Errorf("expected lexeme 'fun1', got %q", tokens[3].Lexeme)
	}
}

func TestTokenizeOperators(t *testing.T) {
	expectKinds(t, `= == ! != < <= > >= + - * /`,
		token.EQUAL, token.EQUAL_EQUAL, token.BANG, token.BANG_EQUAL,
		token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL,
		token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.EOF,
	)
}

func TestTokenizeMaximalMunch(t *testing.T) {
	expectKinds(t, `!===`, token.BANG_EQUAL, token.EQUAL_EQUAL, token.EOF)
}

func TestTokenizeDelimiters(t *testing.T) {
	expectKinds(t, `( ) { } , . ;`,
		token.LEFT_PAREN, token.RIGHT_PAREN, token.LEFT_BRACE, token.RIGHT_BRACE,
		token.COMMA, token.DOT, token.SEMICOLON,
		token.EOF,
	)
}

func TestTokenizeString(t *testing.T) {
	tokens := expectKinds(t, "\"hello\" \"line1\nline2\"", token.STRING, token.STRING, token.EOF)

	if tokens[0].Lexeme != `"hello"` || tokens[0].Literal != "hello" {
		t.Errorf("expected STRING \"hello\", got %q %v", tokens[0].Lexeme, tokens[0].Literal)
	}
	if tokens[1].Literal != "line1\nline2" {
		t.Errorf("expected literal with newline, got %q", tokens[1].Literal)
	}
	if tokens[1].Line != 2 {
		t.Errorf("multi-line string should end on line 2, got %d", tokens[1].Line)
	}
	if tokens[2].Line != 2 {
		t.Errorf("EOF should be on line 2, got %d", tokens[2].Line)
	}
}

func TestTokenizeNumbers(t *testing.T) {
	tokens := expectKinds(t, `123 3.14 0`, token.NUMBER, token.NUMBER, token.NUMBER, token.EOF)

	if tokens[0].Lexeme != "123" || tokens[0].Literal != 123.0 {
		t.Errorf("token[0]: expected NUMBER 123, got %q %v", tokens[0].Lexeme, tokens[0].Literal)
	}
	if tokens[1].Lexeme != "3.14" || tokens[1].Literal != 3.14 {
		t.Errorf("token[1]: expected NUMBER 3.14, got %q %v", tokens[1].Lexeme, tokens[1].Literal)
	}
}

func TestTokenizeTrailingDot(t *testing.T) {
	tokens := expectKinds(t, `123.`, token.NUMBER, token.DOT, token.EOF)
	if tokens[0].Lexeme != "123" {
		t.Errorf("trailing dot must not be consumed, got %q", tokens[0].Lexeme)
	}

	tokens = expectKinds(t, `.5`, token.DOT, token.NUMBER, token.EOF)
	if tokens[1].Literal != 5.0 {
		t.Errorf("expected 5, got %v", tokens[1].Literal)
	}
}

func TestTokenizeComment(t *testing.T) {
	tokens := expectKinds(t, "x // this is a comment ( ) \"\ny", token.IDENTIFIER, token.IDENTIFIER, token.EOF)
	if tokens[1].Line != 2 {
		t.Errorf("expected 'y' on line 2, got %d", tokens[1].Line)
	}
}

func TestTokenizeUnexpectedCharacter(t *testing.T) {
	l := New(",.$(#", "test.lox")
	tokens, diags := l.Tokenize()

	if len(diags) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d: %v", len(diags), diags)
	}
	if got := diags[0].String(); got != "[line 1] Error: Unexpected character: $" {
		t.Errorf("unexpected diagnostic text: %q", got)
	}
	want := []token.Kind{token.COMMA, token.DOT, token.LEFT_PAREN, token.EOF}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(tokens))
	}
	for i, k := range want {
		if tokens[i].Kind != k {
			t.Errorf("token[%d]: expected %s, got %s", i, k, tokens[i].Kind)
		}
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	l := New("print \"abc\n", "test.lox")
	tokens, diags := l.Tokenize()

	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diags))
	}
	if got := diags[0].String(); got != "[line 2] Error: Unterminated string." {
		t.Errorf("unexpected diagnostic text: %q", got)
	}
	if len(tokens) != 2 || tokens[0].Kind != token.PRINT || tokens[1].Kind != token.EOF {
		t.Errorf("no token should be emitted for the unterminated string, got %v", tokens)
	}
}

func TestTokenizePositions(t *testing.T) {
	l := New("var x = 1;\n  print x;", "test.lox")
	tokens, _ := l.Tokenize()

	if tokens[1].Span.Start.Line != 1 || tokens[1].Span.Start.Column != 5 {
		t.Errorf("'x' position: expected 1:5, got %s", tokens[1].Span.Start)
	}
	if tokens[5].Kind != token.PRINT || tokens[5].Span.Start.Line != 2 || tokens[5].Span.Start.Column != 3 {
		t.Errorf("'print' position: expected 2:3, got %s", tokens[5].Span.Start)
	}
}

func TestTokenString(t *testing.T) {
	l := New(`123 "hi" foo 4.5`, "test.lox")
	tokens, _ := l.Tokenize()

	var lines []string
	for _, tok := range tokens {
		lines = append(lines, tok.String())
	}
	got := strings.Join(lines, "\n")
	want := "NUMBER 123 123.0\nSTRING \"hi\" hi\nIDENTIFIER foo null\nNUMBER 4.5 4.5\nEOF  null"
	if got != want {
		t.Errorf("token output mismatch:\nexpected: %q\ngot:      %q", want, got)
	}
}
