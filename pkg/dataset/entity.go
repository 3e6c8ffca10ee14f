// Package dataset defines the canonical form of a translated reference
// dataset and the schemas that map raw store and artifact records onto it.
//
// A canonical Entity carries a numeric id, an ordered list of single-key
// locale entries and optional pass-through metadata. Locale order is part
// of an entity's identity: two entities are only equal when their locale
// entries appear in the same order with the same values.
package dataset

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Record is a raw decoded JSON object from either the store or the artifact.
type Record map[string]any

// Locale is one single-key locale entry. A nil Name is serialized as null.
type Locale struct {
	Code string
	Name *string
}

// Locales is an ordered sequence of locale entries.
type Locales []Locale

// Field is a pass-through metadata value.
type Field struct {
	Name  string
	Value any
}

// Entity is the canonical, comparable representation of one record.
// Entities are treated as values; nothing in this module mutates one
// after Normalize returns it.
type Entity struct {
	ID       int64
	Locales  Locales
	Metadata []Field

	// Irregular describes published names entries that break the
	// one-code-per-entry shape: objects with other than one key, repeated
	// codes and codes the schema does not declare. Locales then holds only
	// the first value seen for each declared code. Never serialized.
	Irregular []string
}

// String returns code=name, with null for a nil name.
func (l Locale) String() string {
	if l.Name == nil {
		return l.Code + "=null"
	}
	return l.Code + "=" + *l.Name
}

// Get returns the name for a locale code and whether the code is present.
func (ls Locales) Get(code string) (*string, bool) {
	for _, l := range ls {
		if l.Code == code {
			return l.Name, true
		}
	}
	return nil, false
}

// MarshalJSON writes the locales as an array of single-key objects,
// e.g. [{"en":"Bulbasaur"},{"de":null}].
func (ls Locales) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := ls.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String returns the compact JSON form used in divergence reports.
func (ls Locales) String() string {
	b, err := ls.MarshalJSON()
	if err != nil {
		return "<invalid>"
	}
	return string(b)
}

func (ls Locales) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('[')
	for i, l := range ls {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		if err := writeValue(buf, l.Code); err != nil {
			return err
		}
		buf.WriteByte(':')
		if l.Name == nil {
			buf.WriteString("null")
		} else if err := writeValue(buf, *l.Name); err != nil {
			return err
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return nil
}

// Meta returns a metadata value by name.
func (e Entity) Meta(name string) (any, bool) {
	for _, f := range e.Metadata {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// MarshalJSON writes the artifact form of an entity with keys in the
// order id, metadata fields, names.
func (e Entity) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"id":`)
	buf.WriteString(strconv.FormatInt(e.ID, 10))
	for _, f := range e.Metadata {
		buf.WriteByte(',')
		if err := writeValue(&buf, f.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeValue(&buf, f.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`,"names":`)
	if err := e.Locales.writeJSON(&buf); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Marshal serializes a sequence of entities as a compact JSON array.
func Marshal(entities []Entity) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range entities {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := e.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// writeValue encodes v compactly without HTML escaping.
func writeValue(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
