package dataset

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/pokecompanion/namesync/pkg/constants"
	"github.com/pokecompanion/namesync/pkg/errors"
)

// LocaleField maps a canonical locale code to the flat store field holding it.
type LocaleField struct {
	Code  string `yaml:"code" json:"code"`
	Field string `yaml:"field" json:"field"`
}

// MetadataField maps a canonical metadata name to the store field holding it.
type MetadataField struct {
	Name  string `yaml:"name" json:"name"`
	Field string `yaml:"field" json:"field"`
}

// Schema describes one dataset kind: where its records live, how they are
// keyed and which locale and metadata fields they carry.
type Schema struct {
	Name         string          `yaml:"name" json:"name"`
	Collection   string          `yaml:"collection" json:"collection"`
	SortKey      string          `yaml:"sort_key" json:"sort_key"`
	IDField      string          `yaml:"id_field" json:"id_field"`
	Locales      []LocaleField   `yaml:"locales" json:"locales"`
	Metadata     []MetadataField `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	ArtifactPath string          `yaml:"artifact_path" json:"artifact_path"`
	Label        string          `yaml:"label" json:"label"`
}

// Built-in dataset names.
const (
	PokemonName = "pokemon"
	MovesName   = "moves"
)

// DefaultLocales returns the locale order shared by the built-in datasets.
func DefaultLocales() []LocaleField {
	return []LocaleField{
		{Code: "en", Field: "en"},
		{Code: "de", Field: "de"},
		{Code: "es", Field: "es"},
		{Code: "fr", Field: "fr"},
		{Code: "it", Field: "it"},
		{Code: "ja-hrkt", Field: "ja_hrkt"},
		{Code: "zh-hans", Field: "zh_hans"},
	}
}

// Pokemon returns the schema for the pokemon names dataset.
func Pokemon() *Schema {
	return &Schema{
		Name:       PokemonName,
		Collection: "pokemon_names",
		SortKey:    "national_dex",
		IDField:    "national_dex",
		Locales:    DefaultLocales(),
		Metadata: []MetadataField{
			{Name: "generation", Field: "generation"},
			{Name: "redirect", Field: "redirect"},
		},
		ArtifactPath: constants.DefaultDataFolder + "/pokemonNames.json",
		Label:        "Pokemon",
	}
}

// Moves returns the schema for the moves dataset.
func Moves() *Schema {
	return &Schema{
		Name:         MovesName,
		Collection:   "moves",
		SortKey:      "move_id",
		IDField:      "move_id",
		Locales:      DefaultLocales(),
		ArtifactPath: constants.DefaultDataFolder + "/moves.json",
		Label:        "Move",
	}
}

// Builtin returns the built-in schemas in pipeline order.
func Builtin() []*Schema {
	return []*Schema{Pokemon(), Moves()}
}

// Codes returns the locale codes in declared order.
func (s *Schema) Codes() []string {
	codes := make([]string, len(s.Locales))
	for i, l := range s.Locales {
		codes[i] = l.Code
	}
	return codes
}

// Validate checks that the schema is complete and its locale codes are
// well-formed BCP 47 tags.
func (s *Schema) Validate() error {
	if s == nil {
		return errors.NewValidationError("schema", nil, "schema is nil")
	}

	required := []struct {
		field string
		value string
	}{
		{"name", s.Name},
		{"collection", s.Collection},
		{"sort_key", s.SortKey},
		{"id_field", s.IDField},
		{"artifact_path", s.ArtifactPath},
		{"label", s.Label},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return errors.NewValidationError(r.field, r.value, fmt.Sprintf("dataset %q: %s is required", s.Name, r.field))
		}
	}

	if len(s.Locales) == 0 {
		return errors.NewValidationError("locales", nil, fmt.Sprintf("dataset %q declares no locales", s.Name))
	}

	seen := make(map[string]bool, len(s.Locales))
	for _, l := range s.Locales {
		if l.Code == "" || l.Field == "" {
			return errors.NewValidationError("locales", l, fmt.Sprintf("dataset %q: locale entries need both code and field", s.Name))
		}
		if _, err := language.Parse(l.Code); err != nil {
			return errors.NewValidationError("locales", l.Code, fmt.Sprintf("dataset %q: %q is not a valid language tag", s.Name, l.Code))
		}
		if seen[l.Code] {
			return errors.NewValidationError("locales", l.Code, fmt.Sprintf("dataset %q: duplicate locale %q", s.Name, l.Code))
		}
		seen[l.Code] = true
	}

	names := map[string]bool{"id": true, "names": true}
	for _, m := range s.Metadata {
		if m.Name == "" || m.Field == "" {
			return errors.NewValidationError("metadata", m, fmt.Sprintf("dataset %q: metadata entries need both name and field", s.Name))
		}
		if names[m.Name] {
			return errors.NewValidationError("metadata", m.Name, fmt.Sprintf("dataset %q: metadata name %q is reserved or duplicated", s.Name, m.Name))
		}
		names[m.Name] = true
	}

	return nil
}

// Lookup finds a schema by name.
func Lookup(schemas []*Schema, name string) (*Schema, error) {
	for _, s := range schemas {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, errors.NewNotFoundError("dataset", name)
}
