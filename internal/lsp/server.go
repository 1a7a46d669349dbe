// Package lsp serves Lox diagnostics and document symbols to editors over
// the Language Server Protocol.
package lsp

import (
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"lox-lang/internal/ast"
	"lox-lang/internal/diag"
	"lox-lang/internal/driver"
	"lox-lang/internal/span"
)

const lspName = "lox-lsp"

var log = commonlog.GetLogger("lox.lsp")

// Server keeps the open documents and answers editor requests about them.
type Server struct {
	mu   sync.Mutex
	docs map[string]string // full document content by URI

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// New creates a language server. debug enables protocol tracing.
func New(version string, debug bool) *Server {
	s := &Server{
		docs:    make(map[string]string),
		version: version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, debug)
	return s
}

// Run serves on stdio until the client disconnects.
func (s *Server) Run() error {
	return s.server.RunStdio()
}

// --- lifecycle ---

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("initializing")

	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// --- document synchronization ---

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[uri] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	if len(params.ContentChanges) == 0 {
		return nil
	}

	// with full sync the last change carries the whole text
	whole, ok := params.ContentChanges[len(params.ContentChanges)-1].(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return fmt.Errorf("%s: incremental change events are not supported", uri)
	}

	s.mu.Lock()
	s.docs[uri] = whole.Text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, whole.Text)
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- language features ---

func (s *Server) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	s.mu.Lock()
	text, ok := s.docs[params.TextDocument.URI]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	stmts, _ := driver.Parse(text, params.TextDocument.URI)
	return DocumentSymbols(stmts), nil
}

func (s *Server) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	_, _, res := driver.Check(text, uri)
	log.Debugf("%s: %d diagnostics", uri, len(res.Diagnostics))

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: Diagnostics(res.Diagnostics),
	})
}

// --- conversions ---

// Diagnostics converts front-end diagnostics to their protocol form.
func Diagnostics(diags []diag.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		severity := protocol.DiagnosticSeverityError
		if d.Severity == diag.Warning {
			severity = protocol.DiagnosticSeverityWarning
		}
		source := lspName
		out = append(out, protocol.Diagnostic{
			Range:    Range(d.Span),
			Severity: &severity,
			Code:     &protocol.IntegerOrString{Value: d.Code},
			Source:   &source,
			Message:  d.Message,
		})
	}
	return out
}

// Range converts a 1-based span to a 0-based protocol range. Columns count
// bytes.
func Range(s span.Span) protocol.Range {
	return protocol.Range{
		Start: position(s.Start),
		End:   position(s.End),
	}
}

func position(p span.Position) protocol.Position {
	line, col := p.Line-1, p.Column-1
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

// DocumentSymbols lists top-level classes (with their methods), functions
// and variables.
func DocumentSymbols(stmts []ast.Stmt) []protocol.DocumentSymbol {
	var symbols []protocol.DocumentSymbol
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.ClassStmt:
			sym := symbol(s.Name.Lexeme, protocol.SymbolKindClass, s.GetSpan(), s.Name.Span)
			if s.Superclass != nil {
				detail := "< " + s.Superclass.Name.Lexeme
				sym.Detail = &detail
			}
			for _, m := range s.Methods {
				child := symbol(m.Name.Lexeme, protocol.SymbolKindMethod, m.GetSpan(), m.Name.Span)
				child.Detail = signature(m)
				sym.Children = append(sym.Children, child)
			}
			symbols = append(symbols, sym)
		case *ast.FunctionStmt:
			sym := symbol(s.Name.Lexeme, protocol.SymbolKindFunction, s.GetSpan(), s.Name.Span)
			sym.Detail = signature(s)
			symbols = append(symbols, sym)
		case *ast.VarStmt:
			symbols = append(symbols, symbol(s.Name.Lexeme, protocol.SymbolKindVariable, s.GetSpan(), s.Name.Span))
		}
	}
	return symbols
}

func symbol(name string, kind protocol.SymbolKind, full, selection span.Span) protocol.DocumentSymbol {
	return protocol.DocumentSymbol{
		Name:           name,
		Kind:           kind,
		Range:          Range(full),
		SelectionRange: Range(selection),
	}
}

func signature(fn *ast.FunctionStmt) *string {
	sig := "("
	for i, p := range fn.Params {
		if i > 0 {
			sig += ", "
		}
		sig += p.Lexeme
	}
	sig += ")"
	return &sig
}

func boolPtr(b bool) *bool {
	return &b
}
