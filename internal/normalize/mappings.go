// Package normalize canonicalizes scraped field values against an injected
// synonym-mapping table and prepares display names for catalog matching.
package normalize

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rule maps one recognized synonym to its canonical value.
type Rule struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Mappings holds the value-mapping table, keyed by record field name.
// Rules per field are ordered; the first synonym match wins.
type Mappings struct {
	Fields map[string][]Rule `yaml:"fields"`
}

// LoadMappings reads a mapping table from a YAML file. A missing path is not
// an error so deployments without a table run with pass-through values.
func LoadMappings(path string) (Mappings, error) {
	if path == "" {
		return Mappings{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Mappings{}, nil
		}
		return Mappings{}, eris.Wrapf(err, "normalize: read mappings %s", path)
	}
	var m Mappings
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Mappings{}, eris.Wrapf(err, "normalize: parse mappings %s", path)
	}
	return m, nil
}
