package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/tliron/commonlog"

	"lox-lang/internal/config"
	"lox-lang/internal/driver"
)

// ---- ANSI colors ----

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// palette holds the escape sequences used by the REPL; all empty when color
// is disabled.
type palette struct {
	reset, red, green, cyan, gray, bold string
}

func newPalette(enabled bool) palette {
	if !enabled {
		return palette{}
	}
	return palette{colorReset, colorRed, colorGreen, colorCyan, colorGray, colorBold}
}

var replLog = commonlog.GetLogger("lox.repl")

// ---- repl command ----

func cmdRepl(cfg *config.Config) int {
	colors := newPalette(cfg.Repl.Color)
	prompt := colors.green + cfg.Repl.Prompt + colors.reset
	continuation := colors.gray + "... " + colors.reset

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       cfg.Repl.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init failed: %v\n", err)
		return exitUsage
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "%s%sLox REPL%s %s(type 'exit' or Ctrl+D to quit, '.globals' to list globals)%s\n\n",
		colors.bold, colors.cyan, colors.reset, colors.gray, colors.reset)

	session := driver.NewSession(newInterpreter(rl.Stdout(), cfg))
	var accumulated strings.Builder
	braceDepth := 0

	for {
		if braceDepth > 0 {
			rl.SetPrompt(continuation)
		} else {
			rl.SetPrompt(prompt)
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if braceDepth > 0 {
					// cancel multi-line input
					accumulated.Reset()
					braceDepth = 0
					continue
				}
				fmt.Fprintf(rl.Stdout(), "\n%s(use 'exit' or Ctrl+D to quit)%s\n", colors.gray, colors.reset)
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(rl.Stdout())
			}
			break
		}

		if braceDepth == 0 {
			switch strings.TrimSpace(line) {
			case "exit":
				return 0
			case ".globals":
				fmt.Fprintln(rl.Stdout(), strings.Join(session.Globals(), " "))
				continue
			}
		}

		braceDepth += strings.Count(line, "{") - strings.Count(line, "}")
		accumulated.WriteString(line)
		accumulated.WriteString("\n")
		if braceDepth > 0 {
			continue
		}
		braceDepth = 0

		source := accumulated.String()
		accumulated.Reset()
		if strings.TrimSpace(source) == "" {
			continue
		}

		replEval(rl, session, source, colors)
	}
	return 0
}

// replEval runs one complete input. Input without a trailing ';' or '}' is
// first tried as a bare expression whose value is echoed.
func replEval(rl *readline.Instance, session *driver.Session, source string, colors palette) {
	trimmed := strings.TrimSpace(source)
	if !strings.HasSuffix(trimmed, ";") && !strings.HasSuffix(trimmed, "}") {
		val, res := session.Evaluate(source, "<repl>")
		if res.RuntimeError != nil || !res.Failed() {
			if val != nil {
				fmt.Fprintf(rl.Stdout(), "%s%s%s\n", colors.gray, val.String(), colors.reset)
			}
			printMessages(rl.Stderr(), res, colors)
			return
		}
		replLog.Debugf("not an expression, running as statements: %s", trimmed)
	}

	res := session.Run(source, "<repl>")
	printMessages(rl.Stderr(), res, colors)
}

// printMessages prints the errors of res in red.
func printMessages(w io.Writer, res driver.Result, colors palette) {
	for _, msg := range res.Messages() {
		fmt.Fprintf(w, "%s%s%s\n", colors.red, msg, colors.reset)
	}
}
