// Package schema holds the client-side resource metadata model: field
// schemas as declared by the server, the UiResource descriptors that drive
// navigation, and the composer that merges the static UI fixture with the
// server's resource list.
//
// The registry is populated once per session after the server resource list
// is fetched and is consumed by the state store, the form-schema generator,
// and the list/detail views.
package schema

import "sort"

// DataType classifies a field's wire representation.
type DataType string

const (
	TypeString  DataType = "string"
	TypeInteger DataType = "integer"
	TypeFloat   DataType = "float"
	TypeBoolean DataType = "boolean"
	TypeURI     DataType = "uri"
	TypeList    DataType = "list"
)

// EditType selects the editor widget when it cannot be derived from the
// data type alone.
type EditType string

const (
	EditText        EditType = "text"
	EditSelect      EditType = "select"
	EditMultiselect EditType = "multiselect"
	EditRadio       EditType = "radio"
)

// Selector names the tag set a key filter inspects.
type Selector string

const (
	// SelectVisibility filters on view tags: list "l", detail "d", edit "e".
	SelectVisibility Selector = "visibility"
	// SelectEditability filters on mutation tags: create "c", update "u".
	SelectEditability Selector = "editability"
)

// Field is one field of a resource schema as declared by the server.
type Field struct {
	Key               string   `json:"key"`
	Title             string   `json:"title"`
	DataType          DataType `json:"data_type"`
	EditType          EditType `json:"edit_type,omitempty"`
	Visibility        []string `json:"visibility,omitempty"`
	Editability       []string `json:"editability,omitempty"`
	Ordinal           int      `json:"ordinal"`
	Choices           []string `json:"choices,omitempty"`
	VocabularyScope   string   `json:"vocabulary_scope_ref,omitempty"`
	Regex             string   `json:"regex,omitempty"`
	ValidationMessage string   `json:"validation_message,omitempty"`
	Min               *float64 `json:"min,omitempty"`
	Range             []float64 `json:"range,omitempty"`
	Required          bool     `json:"required,omitempty"`
	Description       string   `json:"description,omitempty"`
}

// tags returns the tag set addressed by the selector.
func (f *Field) tags(sel Selector) []string {
	if sel == SelectEditability {
		return f.Editability
	}
	return f.Visibility
}

// Schema is a resource's field set plus server-declared selector options.
type Schema struct {
	Fields               map[string]*Field `json:"fields"`
	ExtraSelectorOptions map[string]any    `json:"extraSelectorOptions,omitempty"`
}

// FilterKeys returns the field keys whose selector tag set contains tag,
// ordered by ascending ordinal. Ordinal order is the only valid display
// order; insertion and alphabetical order are never used.
func (s *Schema) FilterKeys(sel Selector, tag string) []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.Fields))
	for key := range s.Fields {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		fi, fj := s.Fields[keys[i]], s.Fields[keys[j]]
		if fi.Ordinal != fj.Ordinal {
			return fi.Ordinal < fj.Ordinal
		}
		return keys[i] < keys[j]
	})
	var out []string
	for _, key := range keys {
		for _, t := range s.Fields[key].tags(sel) {
			if t == tag {
				out = append(out, key)
				break
			}
		}
	}
	return out
}

// DetailKeys returns the keys shown in a detail view.
func (s *Schema) DetailKeys() []string {
	return s.FilterKeys(SelectVisibility, "d")
}

// EditVisibleKeys returns the keys shown in an edit view.
func (s *Schema) EditVisibleKeys() []string {
	return s.FilterKeys(SelectVisibility, "e")
}

// CreateKeys returns the keys settable on create.
func (s *Schema) CreateKeys() []string {
	return s.FilterKeys(SelectEditability, "c")
}

// UpdateKeys returns the keys settable on update.
func (s *Schema) UpdateKeys() []string {
	return s.FilterKeys(SelectEditability, "u")
}

// AllEditVisibleKeys is the union of edit-visible, create, and update keys,
// in ordinal order.
func (s *Schema) AllEditVisibleKeys() []string {
	seen := make(map[string]bool)
	for _, set := range [][]string{s.EditVisibleKeys(), s.CreateKeys(), s.UpdateKeys()} {
		for _, key := range set {
			seen[key] = true
		}
	}
	// Re-derive ordinal order over the union.
	var out []string
	for _, key := range s.sortedKeys() {
		if seen[key] {
			out = append(out, key)
		}
	}
	return out
}

func (s *Schema) sortedKeys() []string {
	keys := make([]string, 0, len(s.Fields))
	for key := range s.Fields {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		fi, fj := s.Fields[keys[i]], s.Fields[keys[j]]
		if fi.Ordinal != fj.Ordinal {
			return fi.Ordinal < fj.Ordinal
		}
		return keys[i] < keys[j]
	})
	return keys
}

// clone returns a shallow-copied schema with its own fields map. Field
// structs are shared; composition never mutates them.
func (s *Schema) clone() *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{
		Fields:               make(map[string]*Field, len(s.Fields)),
		ExtraSelectorOptions: s.ExtraSelectorOptions,
	}
	for key, f := range s.Fields {
		out.Fields[key] = f
	}
	return out
}
