package dataset

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/pokecompanion/namesync/pkg/errors"
)

// schemaFile is the on-disk layout of a datasets file.
type schemaFile struct {
	Datasets []*Schema `yaml:"datasets"`
}

// LoadSchemas reads and validates dataset schemas from a YAML file.
func LoadSchemas(path string) ([]*Schema, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	schemas, err := ParseSchemas(data)
	if err != nil {
		if errors.IsValidationError(err) {
			return nil, err
		}
		return nil, errors.WrapParse("yaml", path, err)
	}
	return schemas, nil
}

// ParseSchemas decodes and validates dataset schemas from YAML.
//
//	datasets:
//	  - name: moves
//	    collection: moves
//	    sort_key: move_id
//	    id_field: move_id
//	    artifact_path: src/lib/data/moves.json
//	    label: Move
//	    locales:
//	      - {code: en, field: en}
func ParseSchemas(data []byte) ([]*Schema, error) {
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Datasets) == 0 {
		return nil, errors.NewValidationError("datasets", nil, "no datasets defined")
	}

	seen := make(map[string]bool, len(file.Datasets))
	for _, s := range file.Datasets {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if seen[s.Name] {
			return nil, errors.NewValidationError("name", s.Name, fmt.Sprintf("duplicate dataset %q", s.Name))
		}
		seen[s.Name] = true
	}
	return file.Datasets, nil
}
