package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config drives a corpus run. Every field has a workable default; a YAML
// file given with -config overrides the defaults, and explicit flags
// override the file.
type Config struct {
	// Capacity is the chronicle ring buffer capacity in slots.
	Capacity int `yaml:"capacity"`

	// GapLimit triggers a compaction once that many holes accumulate.
	GapLimit int `yaml:"gap_limit"`

	// ArenaWords bounds the pattern storage: total identity words
	// available for expanded pattern sequences.
	ArenaWords int `yaml:"arena_words"`

	// Unconnectable lists the symbols whose atoms never start a fusion
	// (spacing and punctuation, typically).
	Unconnectable string `yaml:"unconnectable"`

	// Top is the number of longest patterns echoed after a run.
	Top int `yaml:"top"`

	// PatternsPath, SequelPath and StatsPath name the report files; an
	// empty path skips that report.
	PatternsPath string `yaml:"patterns"`
	SequelPath   string `yaml:"sequel"`
	StatsPath    string `yaml:"stats"`

	// Sources lists input text files; command-line arguments append.
	Sources []string `yaml:"sources"`
}

func defaultConfig() Config {
	return Config{
		Capacity:      512 * 1024,
		GapLimit:      16 * 1024,
		ArenaWords:    256 * 1024,
		Unconnectable: " .,:!?'\"",
		Top:           100,
		PatternsPath:  "patterns.txt",
		SequelPath:    "sequel.txt",
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
