// Package config loads the interpreter's ambient settings from an
// optional TOML file, the same way the wider example pack configures
// its CLI tools, rather than hard-coding every knob as a flag default.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Configuration holds everything the CLI driver needs beyond the
// per-invocation flags: build metadata for `--version` and the knobs
// that shape REPL behavior.
type Configuration struct {
	Version   string
	BuildDate string
	Commit    string

	// HistoryPath is where the REPL persists its line history, a
	// sqlite3 database. Empty disables history persistence.
	HistoryPath string `toml:"history_path"`

	// DebugAST, when true, makes the REPL and file driver print the
	// parsed (post-macro-expansion) AST before evaluating it.
	DebugAST bool `toml:"debug_ast"`

	// Prompt is the REPL's line prompt.
	Prompt string `toml:"prompt"`
}

// Default returns the configuration used when no config file is given
// or found.
func Default() Configuration {
	return Configuration{
		Prompt:      ">> ",
		HistoryPath: "",
		DebugAST:    false,
	}
}

// Load reads a TOML config file at path, overlaying it onto Default().
// A missing file is not an error: callers pass a path they already
// know to be optional (e.g. derived from a --config flag or a well
// known location probed with os.Stat first).
func Load(path string) (Configuration, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
