package main

import (
	"encoding/json"
	"fmt"
	"os"

	"lox-lang/internal/diag"
	"lox-lang/internal/driver"
	"lox-lang/internal/token"
)

// ---- output helpers ----

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: JSON encoding failed: %v\n", err)
	}
}

func printDiags(diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.String())
	}
}

// printResult writes every error line of res to stderr.
func printResult(res driver.Result) {
	for _, msg := range res.Messages() {
		fmt.Fprintln(os.Stderr, msg)
	}
}

func diagsToSlice(diags []diag.Diagnostic) []map[string]interface{} {
	result := make([]map[string]interface{}, len(diags))
	for i, d := range diags {
		result[i] = map[string]interface{}{
			"code":     d.Code,
			"severity": d.Severity.String(),
			"message":  d.Message,
			"line":     d.Line,
			"column":   d.Span.Start.Column,
			"offset":   d.Span.Start.Offset,
		}
		if d.Where != "" {
			result[i]["where"] = d.Where
		}
	}
	return result
}

// ---- token output helpers ----

func printTokensText(tokens []token.Token) {
	for _, tok := range tokens {
		fmt.Println(tok.String())
	}
}

func printTokensJSON(tokens []token.Token, diags []diag.Diagnostic) {
	data, err := token.NewStream(tokens).MarshalIndentJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: JSON encoding failed: %v\n", err)
		return
	}
	printJSON(map[string]interface{}{
		"tokens":      json.RawMessage(data),
		"diagnostics": diagsToSlice(diags),
	})
}
