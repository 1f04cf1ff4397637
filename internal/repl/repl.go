// Package repl is the interactive shell: read a line, lex it, parse
// it, expand macros, evaluate it, print the result. It is one of the
// spec's external collaborators around the evaluator core, not part
// of the core itself.
package repl

import (
	"bufio"
	"fmt"
	"io"

	"mico/internal/config"
	"mico/internal/evaluator"
	"mico/internal/lexer"
	"mico/internal/macro"
	"mico/internal/object"
	"mico/internal/parser"
)

const defaultPrompt = ">> "

// Start reads lines from in until an empty line, evaluating each one
// against a single shared root environment so bindings persist across
// lines. It returns the value of the last line evaluated (Null when no
// line was evaluated), mainly so the caller can report an exit code
// from it.
func Start(in io.Reader, out io.Writer, cfg config.Configuration, hist *History) object.Value {
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = defaultPrompt
	}

	env := object.NewRootEnvironment()
	evaluator.RegisterBuiltins(env, out)
	defer env.Teardown()

	scanner := bufio.NewScanner(in)
	var last object.Value = object.NULL

	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			break
		}
		if hist != nil {
			if err := hist.Append(line); err != nil {
				fmt.Fprintf(out, "history: %s\n", err)
			}
		}

		l := lexer.New(line)
		p := parser.New(l)
		program := p.ParseProgram()
		if errs := p.Errors(); len(errs) > 0 {
			printParserErrors(out, errs)
			continue
		}

		macro.Process(program)

		if cfg.DebugAST {
			fmt.Fprintln(out, program.String())
		}

		last = evaluator.Eval(program, env)
		if last != object.NULL {
			fmt.Fprintln(out, last.Inspect())
		}
	}

	return last
}

func printParserErrors(out io.Writer, errors []string) {
	fmt.Fprintln(out, "parse error:")
	for _, msg := range errors {
		fmt.Fprintln(out, "\t"+msg)
	}
}
