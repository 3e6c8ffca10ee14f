package dataset

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/pokecompanion/namesync/pkg/errors"
)

// Layout selects where locale and metadata values are found in a raw record.
type Layout int

const (
	// StoreLayout reads flat store fields, e.g. ja_hrkt for ja-hrkt.
	StoreLayout Layout = iota
	// ArtifactLayout reads the published form: id, metadata by canonical
	// name, and a names array of single-key objects in any order. Entries
	// that break that shape are recorded in Entity.Irregular.
	ArtifactLayout
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case StoreLayout:
		return "store"
	case ArtifactLayout:
		return "artifact"
	default:
		return "unknown"
	}
}

// artifactNamesKey holds the locale list in the published form.
const artifactNamesKey = "names"

// Normalize maps a raw record onto the canonical entity form. Every declared
// locale appears in schema order; absent locales become null. Only an
// unresolvable id or a non-string locale value is an error.
func Normalize(record Record, schema *Schema, layout Layout) (Entity, error) {
	idKey := schema.IDField
	if layout == ArtifactLayout {
		idKey = "id"
	}

	id, err := resolveID(record[idKey])
	if err != nil {
		return Entity{}, &errors.MalformedRecordError{Dataset: schema.Name, Field: idKey, Message: err.Error()}
	}

	var (
		locales   Locales
		irregular []string
	)
	switch layout {
	case StoreLayout:
		locales, err = storeLocales(record, schema)
	case ArtifactLayout:
		locales, irregular, err = artifactLocales(record, schema)
	default:
		err = &errors.MalformedRecordError{Field: "layout", Message: fmt.Sprintf("unsupported layout %d", layout)}
	}
	if err != nil {
		if mre, ok := err.(*errors.MalformedRecordError); ok {
			mre.Dataset = schema.Name
		}
		return Entity{}, err
	}

	var metadata []Field
	if len(schema.Metadata) > 0 {
		metadata = make([]Field, len(schema.Metadata))
		for i, m := range schema.Metadata {
			key := m.Field
			if layout == ArtifactLayout {
				key = m.Name
			}
			metadata[i] = Field{Name: m.Name, Value: record[key]}
		}
	}

	return Entity{ID: id, Locales: locales, Metadata: metadata, Irregular: irregular}, nil
}

// NormalizeAll normalizes records in order and stops at the first malformed
// one, reporting its 1-based position.
func NormalizeAll(records []Record, schema *Schema, layout Layout) ([]Entity, error) {
	entities := make([]Entity, 0, len(records))
	for i, r := range records {
		e, err := Normalize(r, schema, layout)
		if err != nil {
			if mre, ok := err.(*errors.MalformedRecordError); ok {
				mre.Position = i + 1
			}
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func storeLocales(record Record, schema *Schema) (Locales, error) {
	locales := make(Locales, len(schema.Locales))
	for i, lf := range schema.Locales {
		name, err := localeValue(record[lf.Field])
		if err != nil {
			return nil, &errors.MalformedRecordError{Field: lf.Field, Message: err.Error()}
		}
		locales[i] = Locale{Code: lf.Code, Name: name}
	}
	return locales, nil
}

// artifactLocales reads the names array. Entries may come in any order;
// shape problems are reported as irregularities rather than dropped.
func artifactLocales(record Record, schema *Schema) (Locales, []string, error) {
	declared := make(map[string]bool, len(schema.Locales))
	for _, lf := range schema.Locales {
		declared[lf.Code] = true
	}
	found := make(map[string]*string, len(schema.Locales))
	var irregular []string

	if raw, ok := record[artifactNamesKey]; ok && raw != nil {
		entries, ok := raw.([]any)
		if !ok {
			return nil, nil, &errors.MalformedRecordError{Field: artifactNamesKey, Message: fmt.Sprintf("expected an array, got %T", raw)}
		}
		for i, entry := range entries {
			obj, ok := entry.(map[string]any)
			if !ok {
				return nil, nil, &errors.MalformedRecordError{Field: artifactNamesKey, Message: fmt.Sprintf("expected single-key objects, got %T", entry)}
			}
			if len(obj) != 1 {
				irregular = append(irregular, fmt.Sprintf("entry %d has %d keys", i+1, len(obj)))
			}
			for _, code := range slices.Sorted(maps.Keys(obj)) {
				name, err := localeValue(obj[code])
				if err != nil {
					return nil, nil, &errors.MalformedRecordError{Field: artifactNamesKey + "." + code, Message: err.Error()}
				}
				_, seen := found[code]
				switch {
				case !declared[code]:
					irregular = append(irregular, fmt.Sprintf("undeclared code %q", code))
				case seen:
					irregular = append(irregular, fmt.Sprintf("repeated code %q", code))
				default:
					found[code] = name
				}
			}
		}
	}

	locales := make(Locales, len(schema.Locales))
	for i, lf := range schema.Locales {
		locales[i] = Locale{Code: lf.Code, Name: found[lf.Code]}
	}
	return locales, irregular, nil
}

func localeValue(v any) (*string, error) {
	switch name := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &name, nil
	default:
		return nil, fmt.Errorf("locale value must be a string or null, got %T", v)
	}
}

// resolveID converts a decoded JSON value to an integer id.
func resolveID(v any) (int64, error) {
	switch id := v.(type) {
	case nil:
		return 0, fmt.Errorf("id is missing")
	case int:
		return int64(id), nil
	case int8:
		return int64(id), nil
	case int16:
		return int64(id), nil
	case int32:
		return int64(id), nil
	case int64:
		return id, nil
	case uint8:
		return int64(id), nil
	case uint16:
		return int64(id), nil
	case uint32:
		return int64(id), nil
	case uint:
		if uint64(id) > math.MaxInt64 {
			return 0, fmt.Errorf("id %d overflows int64", id)
		}
		return int64(id), nil
	case uint64:
		if id > math.MaxInt64 {
			return 0, fmt.Errorf("id %d overflows int64", id)
		}
		return int64(id), nil
	case float32:
		return integralFloat(float64(id))
	case float64:
		return integralFloat(id)
	case json.Number:
		if n, err := id.Int64(); err == nil {
			return n, nil
		}
		f, err := id.Float64()
		if err != nil {
			return 0, fmt.Errorf("id %q is not a number", id.String())
		}
		return integralFloat(f)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("id %q is not an integer", id)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("id has unsupported type %T", v)
	}
}

func integralFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("id %v is not an integer", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("id %v overflows int64", f)
	}
	return int64(f), nil
}
