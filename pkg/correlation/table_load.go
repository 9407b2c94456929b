package correlation

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTable indicates the correlation table document could not
// be parsed or fails validation.
var ErrInvalidTable = errors.New("correlation: invalid correlation table")

// tableDoc is the YAML shape of a correlation table document.
type tableDoc struct {
	Mappings map[string]Entry `yaml:"mappings"`
}

// LoadTable parses a correlation table from YAML. Each mapping entry
// must carry a primary identifier with both value and target set.
func LoadTable(data []byte) (*Table, error) {
	var doc tableDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if len(doc.Mappings) == 0 {
		return nil, fmt.Errorf("%w: no mappings section", ErrInvalidTable)
	}
	for id, e := range doc.Mappings {
		if e.Primary.Value == "" || e.Primary.Target == "" {
			return nil, fmt.Errorf("%w: entry %q missing primary value or target", ErrInvalidTable, id)
		}
		for i, s := range e.Supporting {
			if s.Value == "" || s.Target == "" {
				return nil, fmt.Errorf("%w: entry %q supporting identifier %d missing value or target", ErrInvalidTable, id, i)
			}
		}
	}
	return NewTable(doc.Mappings), nil
}
