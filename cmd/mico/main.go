// Command mico is the interpreter's CLI: a repl mode with no
// arguments, a file mode given one path, flag-driven logging and an
// optional TOML config file.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"mico/internal/config"
	"mico/internal/evaluator"
	"mico/internal/lexer"
	"mico/internal/macro"
	"mico/internal/object"
	"mico/internal/parser"
	"mico/internal/repl"
)

var (
	version   = "dev"
	buildDate = "unknown"
	commit    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mico", flag.ContinueOnError)
	fs.SetOutput(stderr)

	showVersion := fs.Bool("version", false, "print version and exit")
	configPath := fs.String("config", "", "path to a TOML config file")
	historyPath := fs.String("history", "", "path to a sqlite3 history database (repl mode only)")
	debugAST := fs.Bool("debug-ast", false, "print the parsed, macro-expanded AST before evaluating")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	logFile := fs.String("log-file", "", "write logs to this file instead of stderr")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "mico %s (%s, %s)\n", version, commit, buildDate)
		return 0
	}

	logWriter, closeLog := configureLogWriter(*logFile, stderr)
	defer closeLog()
	logger := slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: logLevelFromString(*logLevel)}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "mico: loading config: %s\n", err)
		return 1
	}
	if *debugAST {
		cfg.DebugAST = true
	}
	if *historyPath != "" {
		cfg.HistoryPath = *historyPath
	}
	cfg.Version, cfg.BuildDate, cfg.Commit = version, buildDate, commit

	rest := fs.Args()
	if len(rest) == 0 {
		slog.Info("starting repl", "config", *configPath, "history", cfg.HistoryPath != "")
		return runRepl(stdin, stdout, stderr, cfg)
	}
	slog.Info("evaluating file", "path", rest[0], "config", *configPath)
	return runFile(rest[0], stdout, stderr, cfg)
}

func runRepl(stdin io.Reader, stdout, stderr io.Writer, cfg config.Configuration) int {
	var hist *repl.History
	if cfg.HistoryPath != "" {
		h, err := repl.OpenHistory(cfg.HistoryPath)
		if err != nil {
			slog.Warn("opening history database failed, continuing without history", "path", cfg.HistoryPath, "error", err)
			fmt.Fprintf(stderr, "mico: opening history: %s\n", err)
		} else {
			hist = h
			defer hist.Close()
		}
	}

	result := repl.Start(stdin, stdout, cfg, hist)
	if errVal, ok := result.(*object.Error); ok {
		slog.Error("repl session ended with an error", "message", errVal.Message, "pos", errVal.Pos)
		fmt.Fprintln(stderr, errVal.Inspect())
		return 1
	}
	return 0
}

func runFile(path string, stdout, stderr io.Writer, cfg config.Configuration) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "mico: %s\n", err)
		return 1
	}

	l := lexer.New(string(src))
	p := parser.New(l)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		for _, msg := range errs {
			slog.Warn("parse error", "message", msg)
			fmt.Fprintln(stderr, msg)
		}
		return 1
	}

	macro.Process(program)
	if cfg.DebugAST {
		fmt.Fprintln(stdout, program.String())
	}

	env := object.NewRootEnvironment()
	evaluator.RegisterBuiltins(env, stdout)
	defer env.Teardown()

	result := evaluator.Eval(program, env)
	if errVal, ok := result.(*object.Error); ok {
		slog.Error("evaluation ended with an error", "message", errVal.Message, "pos", errVal.Pos)
		fmt.Fprintln(stderr, errVal.Inspect())
		return 1
	}
	return 0
}

func configureLogWriter(path string, fallback io.Writer) (io.Writer, func()) {
	if path == "" {
		return fallback, func() {}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(fallback, "mico: opening log file %s: %s, logging to stderr\n", path, err)
		return fallback, func() {}
	}
	return f, func() { f.Close() }
}

func logLevelFromString(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
