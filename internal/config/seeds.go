package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed is a target registered on first run.
type Seed struct {
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

type seedFile struct {
	Targets []Seed `yaml:"targets"`
}

// LoadSeeds parses a seed file:
//
//	targets:
//	  - url: https://example.com
//	    name: Example
//	    category: clientes
//
// An empty path yields no seeds. ${VAR} references are expanded from the
// environment before parsing.
func LoadSeeds(path string) ([]Seed, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seeds: %w", err)
	}
	return ParseSeeds(b)
}

// ParseSeeds is LoadSeeds for in-memory data.
func ParseSeeds(data []byte) ([]Seed, error) {
	var f seedFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return nil, fmt.Errorf("parse seeds: %w", err)
	}
	for i, s := range f.Targets {
		if strings.TrimSpace(s.URL) == "" {
			return nil, fmt.Errorf("seed %d: url is required", i+1)
		}
	}
	return f.Targets, nil
}
