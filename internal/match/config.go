package match

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Thresholds holds the acceptance scores for fuzzy matches.
type Thresholds struct {
	// Name is the minimum first-name OR last-name ratio for a fuzzy
	// contact match.
	Name int `yaml:"name"`
	// Property is the minimum property-name score for deal and
	// directory matches. Boundary inclusive: a score equal to the
	// threshold is accepted.
	Property int `yaml:"property"`
}

// DefaultThresholds returns the production acceptance scores.
func DefaultThresholds() Thresholds {
	return Thresholds{Name: 80, Property: 70}
}

// LoadThresholds reads threshold overrides from a YAML file. An empty
// path returns the defaults.
func LoadThresholds(path string) (Thresholds, error) {
	th := DefaultThresholds()
	if path == "" {
		return th, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return th, eris.Wrapf(err, "match: read config %s", path)
	}

	var wrapper struct {
		Thresholds Thresholds `yaml:"thresholds"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return th, eris.Wrap(err, "match: parse config")
	}

	if wrapper.Thresholds.Name > 0 {
		th.Name = wrapper.Thresholds.Name
	}
	if wrapper.Thresholds.Property > 0 {
		th.Property = wrapper.Thresholds.Property
	}
	return th, nil
}
