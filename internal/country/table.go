// Package country provides an ISO 3166-1 lookup table used to normalize the
// country fields of payment charges.
//
// The table is embedded in the binary (countries.yaml) and parsed once per
// Load call. A *Table is immutable after Load and safe for concurrent use.
package country

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var countriesYAML []byte

// Info describes a single country entry.
type Info struct {
	Alpha2  string   `yaml:"alpha2"`
	Alpha3  string   `yaml:"alpha3"`
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Table maps codes and names to countries.
type Table struct {
	byAlpha2 map[string]Info
	byName   map[string]string
}

// Load parses the embedded country table.
func Load() (*Table, error) {
	return Parse(countriesYAML)
}

// Parse builds a table from YAML data in the countries.yaml format.
func Parse(data []byte) (*Table, error) {
	const op = "Parse"

	var entries []Info
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%s: failed to decode country table: %w", op, err)
	}

	t := &Table{
		byAlpha2: make(map[string]Info, len(entries)),
		byName:   make(map[string]string, len(entries)*3),
	}
	for i, entry := range entries {
		code := strings.ToUpper(strings.TrimSpace(entry.Alpha2))
		if len(code) != 2 {
			return nil, fmt.Errorf("%s: entry %d (%q) has invalid alpha2 code %q", op, i, entry.Name, entry.Alpha2)
		}
		if _, dup := t.byAlpha2[code]; dup {
			return nil, fmt.Errorf("%s: duplicate alpha2 code %s", op, code)
		}
		entry.Alpha2 = code
		t.byAlpha2[code] = entry

		t.addName(entry.Name, code)
		t.addName(entry.Alpha3, code)
		for _, alias := range entry.Aliases {
			t.addName(alias, code)
		}
	}

	return t, nil
}

func (t *Table) addName(name, code string) {
	key := normalizeName(name)
	if key == "" {
		return
	}
	// First entry wins on alias collisions.
	if _, exists := t.byName[key]; !exists {
		t.byName[key] = code
	}
}

// IsCode reports whether s is a known alpha-2 code. Matching is case-insensitive.
func (t *Table) IsCode(s string) bool {
	_, ok := t.byAlpha2[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}

// CodeByName returns the alpha-2 code for a country name, alias or alpha-3 code.
func (t *Table) CodeByName(name string) (string, bool) {
	code, ok := t.byName[normalizeName(name)]
	return code, ok
}

// Get returns the entry for an alpha-2 code.
func (t *Table) Get(code string) (Info, bool) {
	info, ok := t.byAlpha2[strings.ToUpper(strings.TrimSpace(code))]
	return info, ok
}

// Len returns the number of countries in the table.
func (t *Table) Len() int {
	return len(t.byAlpha2)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
