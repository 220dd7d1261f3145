// Package samples provides the built-in catalog of example snippets.
//
// The catalog is embedded into the binary from samples.toml and parsed once
// on first access. Samples keep the order in which they are declared.
package samples

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

//go:embed samples.toml
var catalogTOML []byte

// Sample is a named example snippet.
type Sample struct {
	Name  string `toml:"name" json:"name"`
	Title string `toml:"title" json:"title"`
	Code  string `toml:"code" json:"code"`
}

// Catalog is an ordered set of samples with a default.
type Catalog struct {
	Default string   `toml:"default"`
	Samples []Sample `toml:"sample"`
}

// Parse decodes a catalog from TOML and checks that names are unique and the
// default exists. An empty default selects the first sample.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse samples: %w", err)
	}
	if len(c.Samples) == 0 {
		return nil, fmt.Errorf("parse samples: no samples")
	}

	seen := make(map[string]bool, len(c.Samples))
	for i := range c.Samples {
		s := &c.Samples[i]
		if s.Name == "" {
			return nil, fmt.Errorf("parse samples: sample %d has no name", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("parse samples: duplicate sample %q", s.Name)
		}
		seen[s.Name] = true
		s.Code = strings.TrimLeft(s.Code, "\n")
		if s.Title == "" {
			s.Title = s.Name
		}
	}

	if c.Default == "" {
		c.Default = c.Samples[0].Name
	}
	if !seen[c.Default] {
		return nil, fmt.Errorf("parse samples: default %q not found", c.Default)
	}
	return &c, nil
}

// Lookup returns the sample with the given name.
func (c *Catalog) Lookup(name string) (Sample, bool) {
	for _, s := range c.Samples {
		if s.Name == name {
			return s, true
		}
	}
	return Sample{}, false
}

// DefaultSample returns the catalog's default sample.
func (c *Catalog) DefaultSample() Sample {
	s, _ := c.Lookup(c.Default)
	return s
}

// Names returns the sample names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Samples))
	for i, s := range c.Samples {
		names[i] = s.Name
	}
	return names
}

var (
	builtin     *Catalog
	builtinOnce sync.Once
)

// Builtin returns the embedded catalog. It panics if the embedded file is
// malformed, which the package tests rule out.
func Builtin() *Catalog {
	builtinOnce.Do(func() {
		c, err := Parse(catalogTOML)
		if err != nil {
			panic(err)
		}
		builtin = c
	})
	return builtin
}

// All returns the embedded samples in order.
func All() []Sample { return Builtin().Samples }

// Default returns the embedded default sample.
func Default() Sample { return Builtin().DefaultSample() }

// Lookup finds an embedded sample by name.
func Lookup(name string) (Sample, bool) { return Builtin().Lookup(name) }
