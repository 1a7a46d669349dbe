package token

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Record is the flat, serializable form of a token used by the tokenize
// command's machine-readable output formats.
type Record struct {
	Kind    string `json:"kind" cbor:"kind"`
	Lexeme  string `json:"lexeme" cbor:"lexeme"`
	Literal string `json:"literal" cbor:"literal"`
	Line    int    `json:"line" cbor:"line"`
	Column  int    `json:"column" cbor:"column"`
	Offset  int    `json:"offset" cbor:"offset"`
}

// Stream is a serialized token sequence.
type Stream struct {
	Tokens []Record `json:"tokens" cbor:"tokens"`
}

// canonical mode gives byte-identical output for identical token streams.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("token: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// NewStream converts tokens into their serializable records.
func NewStream(tokens []Token) *Stream {
	s := &Stream{Tokens: make([]Record, len(tokens))}
	for i, tok := range tokens {
		s.Tokens[i] = Record{
			Kind:    tok.Kind.String(),
			Lexeme:  tok.Lexeme,
			Literal: FormatLiteral(tok.Literal),
			Line:    tok.Line,
			Column:  tok.Span.Start.Column,
			Offset:  tok.Span.Start.Offset,
		}
	}
	return s
}

// MarshalIndentJSON encodes the stream as indented JSON.
func (s *Stream) MarshalIndentJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// MarshalCBOR encodes tokens as canonical CBOR.
func MarshalCBOR(tokens []Token) ([]byte, error) {
	return cborEncMode.Marshal(NewStream(tokens))
}

// UnmarshalCBOR decodes a CBOR token stream.
func UnmarshalCBOR(data []byte) (*Stream, error) {
	var s Stream
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("token: unmarshal stream: %w", err)
	}
	return &s, nil
}
