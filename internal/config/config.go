// Package config loads lox.toml settings for the lox command.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
)

// FileName is the name of the configuration file searched for.
const FileName = "lox.toml"

var log = commonlog.GetLogger("lox.config")

// Config represents a lox.toml file.
type Config struct {
	Repl    Repl    `toml:"repl"`
	Runtime Runtime `toml:"runtime"`
	Log     Log     `toml:"log"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

// Repl configures the interactive prompt.
type Repl struct {
	Prompt      string `toml:"prompt"`
	HistoryFile string `toml:"history_file"`
	Color       bool   `toml:"color"`
}

// Runtime configures the interpreter.
type Runtime struct {
	// MaxCallDepth bounds nested calls. Zero means unlimited.
	MaxCallDepth int `toml:"max_call_depth"`
}

// Log configures commonlog output. Verbosity follows commonlog: -3 logs
// critical messages only, 0 notices, 2 and above debug output.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no lox.toml exists.
func Default() *Config {
	return &Config{
		Repl: Repl{
			Prompt:      "> ",
			HistoryFile: defaultHistoryFile(),
			Color:       true,
		},
		Log: Log{Verbosity: -3},
	}
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lox_history")
}

// Load parses the file at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if c.Runtime.MaxCallDepth < 0 {
		return nil, fmt.Errorf("%s: max_call_depth must not be negative", path)
	}

	c.Path = path
	log.Debugf("loaded %s", path)
	return c, nil
}

// FindAndLoad walks up from startDir looking for lox.toml. Without one it
// returns the defaults.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}
