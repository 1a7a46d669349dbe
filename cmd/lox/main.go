// Command lox is the CLI entry point for the Lox interpreter.
//
// Usage:
//
//	lox [global flags] tokenize <file> [--format text|json|cbor]
//	lox [global flags] parse    <file> [--program] [--json]
//	lox [global flags] evaluate <file>
//	lox [global flags] run      <file>
//	lox [global flags] repl
//	lox [global flags] lsp
//
// Global flags:
//
//	--config <path>   Use this lox.toml instead of searching for one
//	-v                Raise log verbosity (repeatable)
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tliron/commonlog"

	"lox-lang/internal/ast"
	"lox-lang/internal/config"
	"lox-lang/internal/driver"
	"lox-lang/internal/lsp"
	"lox-lang/internal/runtime"
	"lox-lang/internal/token"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

// exitUsage is returned for bad invocations and unreadable files.
const exitUsage = 1

var log = commonlog.GetLogger("lox.cli")

// countFlag counts how often a boolean flag was given.
type countFlag int

func (c *countFlag) String() string   { return strconv.Itoa(int(*c)) }
func (c *countFlag) Set(string) error { *c++; return nil }
func (c *countFlag) IsBoolFlag() bool { return true }

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	global := flag.NewFlagSet("lox", flag.ContinueOnError)
	global.Usage = usage
	configPath := global.String("config", "", "path to lox.toml")
	var verbose countFlag
	global.Var(&verbose, "v", "raise log verbosity (repeatable)")
	if err := global.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitUsage
	}
	configureLogging(cfg, int(verbose))

	rest := global.Args()
	if len(rest) == 0 {
		usage()
		return exitUsage
	}
	command, rest := rest[0], rest[1:]
	log.Debugf("command %s, config %q", command, cfg.Path)

	switch command {
	case "tokenize":
		return cmdTokenize(rest)
	case "parse":
		return cmdParse(rest)
	case "evaluate":
		return cmdEvaluate(rest, cfg)
	case "run":
		return cmdRun(rest, cfg)
	case "repl":
		return cmdRepl(cfg)
	case "lsp":
		return cmdLSP(int(verbose) > 0)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command '%s'\n", command)
		usage()
		return exitUsage
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  lox [--config file] [-v] <command> [args]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  tokenize <file> [--format text|json|cbor]   Print tokens")
	fmt.Fprintln(os.Stderr, "  parse    <file> [--program] [--json]        Print the syntax tree")
	fmt.Fprintln(os.Stderr, "  evaluate <file>                             Evaluate one expression")
	fmt.Fprintln(os.Stderr, "  run      <file>                             Run a program")
	fmt.Fprintln(os.Stderr, "  repl                                        Start interactive REPL")
	fmt.Fprintln(os.Stderr, "  lsp                                         Serve the language server on stdio")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Default(), nil
	}
	return config.FindAndLoad(wd)
}

// configureLogging applies [log] settings; each -v raises verbosity one
// level above the configured one.
func configureLogging(cfg *config.Config, verbose int) {
	verbosity := cfg.Log.Verbosity + verbose
	if cfg.Log.File != "" {
		commonlog.Configure(verbosity, &cfg.Log.File)
		return
	}
	commonlog.Configure(verbosity, nil)
}

// newInterpreter builds an interpreter printing to w with the [runtime]
// settings applied.
func newInterpreter(w io.Writer, cfg *config.Config) *runtime.Interpreter {
	return runtime.NewInterpreter(w, runtime.WithMaxCallDepth(cfg.Runtime.MaxCallDepth))
}

// fileArgs parses a subcommand's flags and returns its single file argument.
func fileArgs(fs *flag.FlagSet, args []string) (string, bool) {
	// allow flags after the file name
	var positional []string
	for len(args) > 0 {
		if err := fs.Parse(args); err != nil {
			return "", false
		}
		args = fs.Args()
		if len(args) > 0 {
			positional = append(positional, args[0])
			args = args[1:]
		}
	}
	if len(positional) != 1 {
		fmt.Fprintf(os.Stderr, "error: %s expects exactly one file argument\n", fs.Name())
		return "", false
	}
	return positional[0], true
}

func readFile(filename string) (string, bool) {
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot read file %s: %v\n", filename, err)
		return "", false
	}
	return string(source), true
}

// ---- tokenize command ----

func cmdTokenize(args []string) int {
	fs := flag.NewFlagSet("tokenize", flag.ContinueOnError)
	format := fs.String("format", "text", "output format: text, json or cbor")
	filename, ok := fileArgs(fs, args)
	if !ok {
		return exitUsage
	}
	source, ok := readFile(filename)
	if !ok {
		return exitUsage
	}

	tokens, res := driver.Tokenize(source, filename)
	switch *format {
	case "text":
		printDiags(res.Diagnostics)
		printTokensText(tokens)
	case "json":
		printTokensJSON(tokens, res.Diagnostics)
	case "cbor":
		printDiags(res.Diagnostics)
		data, err := token.MarshalCBOR(tokens)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: CBOR encoding failed: %v\n", err)
			return exitUsage
		}
		os.Stdout.Write(data)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown format '%s'\n", *format)
		return exitUsage
	}
	return res.ExitCode()
}

// ---- parse command ----

func cmdParse(args []string) int {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	program := fs.Bool("program", false, "parse a whole program instead of one expression")
	jsonMode := fs.Bool("json", false, "print the tree as JSON")
	filename, ok := fileArgs(fs, args)
	if !ok {
		return exitUsage
	}
	source, ok := readFile(filename)
	if !ok {
		return exitUsage
	}

	if *program {
		stmts, res := driver.Parse(source, filename)
		if *jsonMode {
			printJSON(map[string]interface{}{
				"ast":         ast.StmtsToSlice(stmts),
				"diagnostics": diagsToSlice(res.Diagnostics),
			})
			return res.ExitCode()
		}
		printDiags(res.Diagnostics)
		if !res.Failed() {
			for _, stmt := range stmts {
				fmt.Println(ast.Print(stmt))
			}
		}
		return res.ExitCode()
	}

	expr, res := driver.ParseExpression(source, filename)
	if *jsonMode {
		var tree interface{}
		if expr != nil {
			tree = ast.NodeToMap(expr)
		}
		printJSON(map[string]interface{}{
			"ast":         tree,
			"diagnostics": diagsToSlice(res.Diagnostics),
		})
		return res.ExitCode()
	}
	printDiags(res.Diagnostics)
	if !res.Failed() {
		fmt.Println(ast.Print(expr))
	}
	return res.ExitCode()
}

// ---- evaluate command ----

func cmdEvaluate(args []string, cfg *config.Config) int {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	filename, ok := fileArgs(fs, args)
	if !ok {
		return exitUsage
	}
	source, ok := readFile(filename)
	if !ok {
		return exitUsage
	}

	val, res := driver.Evaluate(source, filename, newInterpreter(os.Stdout, cfg))
	if val != nil {
		fmt.Println(val.String())
	}
	printResult(res)
	return res.ExitCode()
}

// ---- run command ----

func cmdRun(args []string, cfg *config.Config) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	filename, ok := fileArgs(fs, args)
	if !ok {
		return exitUsage
	}
	source, ok := readFile(filename)
	if !ok {
		return exitUsage
	}

	res := driver.Run(source, filename, newInterpreter(os.Stdout, cfg))
	printResult(res)
	return res.ExitCode()
}

// ---- lsp command ----

func cmdLSP(debug bool) int {
	log.Info("starting language server")
	if err := lsp.New(version, debug).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: language server: %v\n", err)
		return exitUsage
	}
	return 0
}
