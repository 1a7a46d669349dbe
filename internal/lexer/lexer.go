// Package lexer implements the lexical analysis (tokenization) for Lox.
package lexer

import (
	"strconv"
	"unicode/utf8"

	"lox-lang/internal/diag"
	"lox-lang/internal/span"
	"lox-lang/internal/token"
)

// Lexer tokenizes source code into a sequence of tokens.
type Lexer struct {
	source   string
	filename string

	pos  int // current read position in source
	line int // current line (1-based)
	col  int // current column (1-based)

	tokens []token.Token
	diags  []diag.Diagnostic
}

// New creates a new Lexer for the given source text.
func New(source, filename string) *Lexer {
	return &Lexer{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

// Tokenize scans the entire source and returns all tokens and diagnostics.
// It never fails: bad input is reported and skipped, and the sequence always
// ends with a single EOF token.
func (l *Lexer) Tokenize() ([]token.Token, []diag.Diagnostic) {
	for !l.isAtEnd() {
		l.scanToken()
	}
	start := l.curPos()
	l.tokens = append(l.tokens, token.Token{
		Kind: token.EOF,
		Line: l.line,
		Span: span.Span{Start: start, End: start},
	})
	return l.tokens, l.diags
}

// ---- internal helpers ----

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

// peek returns the current character without advancing, or 0 if at end.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

// peekNext returns the character after current, or 0 if at end.
func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

// advance consumes the current character and returns it.
func (l *Lexer) advance() byte {
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// match consumes the current character if it equals expected.
func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

// curPos returns the current position as a span.Position.
func (l *Lexer) curPos() span.Position {
	return span.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// makeSpan returns a span from start to current position.
func (l *Lexer) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: l.curPos()}
}

func (l *Lexer) addToken(kind token.Kind, start span.Position, literal any) {
	l.tokens = append(l.tokens, token.Token{
		Kind:    kind,
		Lexeme:  l.source[start.Offset:l.pos],
		Literal: literal,
		Line:    l.line,
		Span:    l.makeSpan(start),
	})
}

// addError records a diagnostic error on the current line.
func (l *Lexer) addError(code string, start span.Position, format string, args ...interface{}) {
	d := diag.Errorf(code, l.makeSpan(start), format, args...)
	d.Line = l.line
	l.diags = append(l.diags, d)
}

// skipLineComment skips from // to end of line.
func (l *Lexer) skipLineComment() {
	for l.pos < len(l.source) && l.source[l.pos] != '\n' {
		l.advance()
	}
}

// ---- token reading ----

func (l *Lexer) scanToken() {
	start := l.curPos()
	ch := l.advance()

	switch {
	case isDigit(ch):
		l.readNumber(start)
		return
	case isIdentStart(ch):
		l.readIdentifier(start)
		return
	}

	switch ch {
	case ' ', '\r', '\t', '\n':
		// whitespace; advance already counted the newline
	case '(':
		l.addToken(token.LEFT_PAREN, start, nil)
	case ')':
		l.addToken(token.RIGHT_PAREN, start, nil)
	case '{':
		l.addToken(token.LEFT_BRACE, start, nil)
	case '}':
		l.addToken(token.RIGHT_BRACE, start, nil)
	case ',':
		l.addToken(token.COMMA, start, nil)
	case '.':
		l.addToken(token.DOT, start, nil)
	case '-':
		l.addToken(token.MINUS, start, nil)
	case '+':
		l.addToken(token.PLUS, start, nil)
	case ';':
		l.addToken(token.SEMICOLON, start, nil)
	case '*':
		l.addToken(token.STAR, start, nil)
	case '!':
		l.addToken(pick(l.match('='), token.BANG_EQUAL, token.BANG), start, nil)
	case '=':
		l.addToken(pick(l.match('='), token.EQUAL_EQUAL, token.EQUAL), start, nil)
	case '<':
		l.addToken(pick(l.match('='), token.LESS_EQUAL, token.LESS), start, nil)
	case '>':
		l.addToken(pick(l.match('='), token.GREATER_EQUAL, token.GREATER), start, nil)
	case '/':
		if l.peek() == '/' {
			l.skipLineComment()
			return
		}
		l.addToken(token.SLASH, start, nil)
	case '"':
		l.readString(start)
	default:
		l.readUnexpected(start, ch)
	}
}

// readString reads a string literal. Strings may span lines; the decoded
// value keeps the embedded newlines.
func (l *Lexer) readString(start span.Position) {
	for !l.isAtEnd() && l.peek() != '"' {
		l.advance()
	}

	if l.isAtEnd() {
		l.addError(diag.CodeUnterminatedString, start, "Unterminated string.")
		return
	}

	l.advance() // closing "
	value := l.source[start.Offset+1 : l.pos-1]
	l.addToken(token.STRING, start, value)
}

// readNumber reads an integer or decimal literal. A trailing '.' that is not
// followed by a digit is left for the next token.
func (l *Lexer) readNumber(start span.Position) {
	for isDigit(l.peek()) {
		l.advance()
	}

	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance() // skip '.'
		for isDigit(l.peek()) {
			l.advance()
		}
	}

	// ParseFloat only fails on overflow, where it still yields ±Inf
	val, _ := strconv.ParseFloat(l.source[start.Offset:l.pos], 64)
	l.addToken(token.NUMBER, start, val)
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier(start span.Position) {
	for isIdentPart(l.peek()) {
		l.advance()
	}
	lexeme := l.source[start.Offset:l.pos]
	l.addToken(token.LookupIdent(lexeme), start, nil)
}

// readUnexpected reports a character that starts no token. Multi-byte
// characters are skipped whole so the message shows the full rune.
func (l *Lexer) readUnexpected(start span.Position, ch byte) {
	if ch < utf8.RuneSelf {
		l.addError(diag.CodeUnexpectedChar, start, "Unexpected character: %c", ch)
		return
	}
	r, size := utf8.DecodeRuneInString(l.source[start.Offset:])
	for i := 1; i < size && !l.isAtEnd(); i++ {
		l.advance()
	}
	l.addError(diag.CodeUnexpectedChar, start, "Unexpected character: %c", r)
}

// ---- character classification ----

func pick(cond bool, yes, no token.Kind) token.Kind {
	if cond {
		return yes
	}
	return no
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
