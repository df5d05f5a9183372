// Package formschema builds editable-form field definitions from server
// field metadata. The generator maps data types to editor kinds through an
// extensible registry, attaches validators derived from the field's
// metadata, and always appends the enforced audit-comment field.
//
// Generation never fails hard: missing choices or a malformed regex produce
// configuration warnings through the report callback and the form renders
// with degraded validation.
package formschema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/openlims/limsclient/internal/schema"
	"github.com/openlims/limsclient/internal/vocab"
)

// EditorKind is a display-editor variant. The set is closed at the view
// layer; new kinds enter through Generator.Register.
type EditorKind string

const (
	Text       EditorKind = "Text"
	TextArea   EditorKind = "TextArea"
	Number     EditorKind = "Number"
	Checkbox   EditorKind = "Checkbox"
	Checkboxes EditorKind = "Checkboxes"
	Select     EditorKind = "Select"
	Radio      EditorKind = "Radio"
)

// CommentKey is the enforced audit-comment field appended to every form.
// Its value travels in the mutation request's comment header, not in the
// entity body.
const CommentKey = "comment"

// Validator checks one submitted value, returning an error message or ""
// when the value passes.
type Validator func(value any) string

// FieldDef is one editable-form field definition.
type FieldDef struct {
	Key        string
	Title      string
	Kind       EditorKind
	Options    []vocab.Option
	Validators []Validator
	Radio      bool
	Autofocus  bool
	MaxLength  int
}

// Form is an ordered editable-form definition.
type Form struct {
	Fields []FieldDef
}

// Field returns the definition for key, or nil.
func (f *Form) Field(key string) *FieldDef {
	for i := range f.Fields {
		if f.Fields[i].Key == key {
			return &f.Fields[i]
		}
	}
	return nil
}

// Validate runs every field's validators against the submitted values and
// returns the per-field failure messages. Validation errors are data for
// the caller to render; they are never raised as failures.
func (f *Form) Validate(values map[string]any) map[string]string {
	errs := make(map[string]string)
	for _, field := range f.Fields {
		value := values[field.Key]
		for _, v := range field.Validators {
			if msg := v(value); msg != "" {
				errs[field.Key] = msg
				break
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// defaultKinds maps data types to editor kinds. Types absent from the table
// fall back to a capitalized form of the type name.
var defaultKinds = map[schema.DataType]EditorKind{
	schema.TypeBoolean: Checkbox,
	schema.TypeString:  Text,
	schema.TypeURI:     Text,
	schema.TypeFloat:   Number,
	schema.TypeInteger: Number,
	schema.TypeList:    Checkboxes,
}

// Generator builds form definitions from resource schemas. Custom editor
// kinds may be registered per data type before building.
type Generator struct {
	kinds  map[schema.DataType]EditorKind
	report func(error)
}

// NewGenerator creates a generator with the default editor-kind table.
// report receives non-fatal configuration warnings; nil discards them.
func NewGenerator(report func(error)) *Generator {
	kinds := make(map[schema.DataType]EditorKind, len(defaultKinds))
	for dt, kind := range defaultKinds {
		kinds[dt] = kind
	}
	if report == nil {
		report = func(error) {}
	}
	return &Generator{kinds: kinds, report: report}
}

// Register maps a data type to an editor kind, overriding the default
// table.
func (g *Generator) Register(dt schema.DataType, kind EditorKind) {
	g.kinds[dt] = kind
}

// kindFor resolves the editor kind for a field from its data type, then
// applies the edit-type override.
func (g *Generator) kindFor(f *schema.Field) EditorKind {
	kind, ok := g.kinds[f.DataType]
	if !ok {
		name := strings.ToLower(string(f.DataType))
		if name == "" {
			name = "text"
		}
		kind = EditorKind(strings.ToUpper(name[:1]) + name[1:])
	}
	switch f.EditType {
	case schema.EditSelect:
		kind = Select
	case schema.EditMultiselect:
		kind = Checkboxes
	}
	return kind
}

// Build generates the form definition for the schema's edit-visible fields
// restricted to currentAttributeKeys, in ordinal order, followed by the
// enforced comment field.
func (g *Generator) Build(resource string, s *schema.Schema, currentAttributeKeys []string) *Form {
	current := make(map[string]bool, len(currentAttributeKeys))
	for _, key := range currentAttributeKeys {
		current[key] = true
	}

	form := &Form{}
	for _, key := range s.EditVisibleKeys() {
		if !current[key] {
			continue
		}
		f := s.Fields[key]
		def := FieldDef{
			Key:       key,
			Title:     f.Title,
			Kind:      g.kindFor(f),
			Radio:     f.EditType == schema.EditRadio,
			MaxLength: 50,
		}
		if def.Kind == Select || (def.Kind == Checkboxes && f.EditType == schema.EditMultiselect) {
			def.Options = choiceOptions(f.Choices)
			if len(f.Choices) == 0 {
				g.report(&schema.ConfigurationWarning{
					Resource: resource, Field: key,
					Reason: "no choices defined",
				})
			}
		}
		def.Validators = g.validators(resource, f)
		if len(form.Fields) == 0 {
			def.Autofocus = true
		}
		form.Fields = append(form.Fields, def)
	}

	form.Fields = append(form.Fields, FieldDef{
		Key:        CommentKey,
		Title:      "Comment",
		Kind:       TextArea,
		Validators: []Validator{Required()},
	})
	return form
}

func choiceOptions(choices []string) []vocab.Option {
	opts := make([]vocab.Option, len(choices))
	for i, c := range choices {
		opts[i] = vocab.Option{Val: c, Label: c}
	}
	return opts
}

// validators derives the validator chain from the field metadata.
func (g *Generator) validators(resource string, f *schema.Field) []Validator {
	var chain []Validator
	if f.Required {
		chain = append(chain, Required())
	}
	if kind := g.kindFor(f); kind == Number {
		if f.Min != nil {
			chain = append(chain, Min(*f.Min))
		}
		if len(f.Range) > 0 {
			chain = append(chain, Range(f.Range))
		}
	}
	if f.Regex != "" {
		re, err := regexp.Compile(f.Regex)
		if err != nil {
			// Degrade: the form still renders without the pattern check.
			g.report(&schema.ConfigurationWarning{
				Resource: resource, Field: f.Key,
				Reason: fmt.Sprintf("regex does not compile: %v", err),
			})
		} else {
			chain = append(chain, Pattern(re, f.ValidationMessage))
		}
	}
	return chain
}

// Required fails on nil, empty string, or empty list values.
func Required() Validator {
	return func(value any) string {
		switch v := value.(type) {
		case nil:
			return "required"
		case string:
			if strings.TrimSpace(v) == "" {
				return "required"
			}
		case []string:
			if len(v) == 0 {
				return "required"
			}
		case []any:
			if len(v) == 0 {
				return "required"
			}
		}
		return ""
	}
}

// Min fails numeric values at or below min. Non-numeric and absent values
// pass; Required covers presence.
func Min(min float64) Validator {
	return func(value any) string {
		num, ok := toFloat(value)
		if !ok {
			return ""
		}
		if num <= min {
			return fmt.Sprintf("must be >= %v", min)
		}
		return ""
	}
}

// Range validates against successive (lower, upper) bound pairs: a value
// passes if it falls strictly inside any pair, or strictly above a trailing
// unpaired lower bound.
func Range(bounds []float64) Validator {
	msg := rangeMessage(bounds)
	return func(value any) string {
		num, ok := toFloat(value)
		if !ok {
			return ""
		}
		for i := 0; i < len(bounds); i += 2 {
			lower := bounds[i]
			if i+1 < len(bounds) {
				if num > lower && num < bounds[i+1] {
					return ""
				}
			} else if num > lower {
				return ""
			}
		}
		return fmt.Sprintf("value not in range: %v range: %s", value, msg)
	}
}

func rangeMessage(bounds []float64) string {
	parts := make([]string, len(bounds))
	for i, b := range bounds {
		op := "> "
		if i%2 == 1 {
			op = "< "
		}
		parts[i] = op + strconv.FormatFloat(b, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}

// Pattern validates string values against a compiled regex, with an
// optional custom message.
func Pattern(re *regexp.Regexp, message string) Validator {
	return func(value any) string {
		str, ok := value.(string)
		if !ok || str == "" {
			return ""
		}
		if !re.MatchString(str) {
			if message != "" {
				return message
			}
			return fmt.Sprintf("must match %s", re.String())
		}
		return ""
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		if v == "" {
			return 0, false
		}
		num, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return num, true
	default:
		return 0, false
	}
}
