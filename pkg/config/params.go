package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadParams reads a legacy parameter file of key=value lines, e.g.
//
//	indexPath=data/index.spdx
//	retrievalAlgorithm=BM25
//	BM25:k_1=1.2
//
// Keys not listed in paramSetters are rejected so that typos surface early.
// Environment overrides are applied afterwards, as with Load.
func LoadParams(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameter file %s: %w", path, err)
	}
	defer f.Close()

	cfg := defaultConfig()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("parameter file %s line %d: expected key=value", path, lineNo)
		}
		key = strings.TrimSpace(key)
		set, known := paramSetters[key]
		if !known {
			return nil, fmt.Errorf("parameter file %s line %d: unknown parameter %q", path, lineNo, key)
		}
		if err := set(cfg, strings.TrimSpace(value)); err != nil {
			return nil, fmt.Errorf("parameter file %s line %d: %s: %w", path, lineNo, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading parameter file %s: %w", path, err)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var paramSetters = map[string]func(*Config, string) error{
	"indexPath":          func(c *Config, v string) error { c.Index.Path = v; return nil },
	"queryFilePath":      func(c *Config, v string) error { c.Batch.QueryFile = v; return nil },
	"trecEvalOutputPath": func(c *Config, v string) error { c.Batch.OutputFile = v; return nil },
	"retrievalAlgorithm": func(c *Config, v string) error { c.Retrieval.Algorithm = v; return nil },
	"runTag":             func(c *Config, v string) error { c.Search.RunTag = v; return nil },
	"numDocs": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Retrieval.NumDocs = n
		return nil
	},
	"BM25:b":             floatParam(func(c *Config) *float64 { return &c.Retrieval.BM25.B }),
	"BM25:k_1":           floatParam(func(c *Config) *float64 { return &c.Retrieval.BM25.K1 }),
	"BM25:k_3":           floatParam(func(c *Config) *float64 { return &c.Retrieval.BM25.K3 }),
	"Indri:mu":           floatParam(func(c *Config) *float64 { return &c.Retrieval.Indri.Mu }),
	"Indri:lambda":       floatParam(func(c *Config) *float64 { return &c.Retrieval.Indri.Lambda }),
	"Indri:fieldExpansion": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Retrieval.FieldExpansion = b
		return nil
	},
}

func floatParam(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}
