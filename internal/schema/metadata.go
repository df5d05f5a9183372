package schema

import (
	_ "embed"
	"fmt"
	"regexp"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed field_meta.cue
var fieldMetaCue string

// ConfigurationWarning reports malformed field metadata: a descriptor that
// fails the #Field constraints, a regex that does not compile, or a
// select-type field with no choices. Warnings are logged and surfaced as
// non-fatal messages; processing continues in a degraded mode.
type ConfigurationWarning struct {
	Resource string
	Field    string
	Reason   string
}

func (w *ConfigurationWarning) Error() string {
	if w.Resource != "" {
		return fmt.Sprintf("field metadata for %s.%s: %s", w.Resource, w.Field, w.Reason)
	}
	return fmt.Sprintf("field metadata for %s: %s", w.Field, w.Reason)
}

// FieldValidator checks server-declared field descriptors against the
// embedded CUE #Field schema. The constraint value is compiled once and is
// safe for concurrent use.
type FieldValidator struct {
	cctx *cue.Context
	def  cue.Value
}

// NewFieldValidator compiles the embedded constraints. A compile failure is
// a build defect, not a data problem, so it is returned as a hard error.
func NewFieldValidator() (*FieldValidator, error) {
	cctx := cuecontext.New()
	v := cctx.CompileString(fieldMetaCue)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling field metadata schema: %w", err)
	}
	def := v.LookupPath(cue.ParsePath("#Field"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("looking up #Field: %w", err)
	}
	return &FieldValidator{cctx: cctx, def: def}, nil
}

// Validate checks one field descriptor, returning a warning per violation.
// A nil or empty result means the descriptor is well formed. Violations are
// warnings by policy: the caller surfaces them and keeps the field.
func (fv *FieldValidator) Validate(resource string, f *Field) []*ConfigurationWarning {
	var warnings []*ConfigurationWarning

	val := fv.cctx.Encode(f)
	if err := val.Err(); err != nil {
		warnings = append(warnings, &ConfigurationWarning{
			Resource: resource, Field: f.Key,
			Reason: fmt.Sprintf("not encodable: %v", err),
		})
		return warnings
	}
	unified := fv.def.Unify(val)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		warnings = append(warnings, &ConfigurationWarning{
			Resource: resource, Field: f.Key,
			Reason: err.Error(),
		})
	}

	// Constraints CUE cannot express: regex compilability and the choices
	// requirement for select-type editors.
	if f.Regex != "" {
		if _, err := regexp.Compile(f.Regex); err != nil {
			warnings = append(warnings, &ConfigurationWarning{
				Resource: resource, Field: f.Key,
				Reason: fmt.Sprintf("regex does not compile: %v", err),
			})
		}
	}
	if (f.EditType == EditSelect || f.EditType == EditMultiselect) &&
		len(f.Choices) == 0 && f.VocabularyScope == "" {
		warnings = append(warnings, &ConfigurationWarning{
			Resource: resource, Field: f.Key,
			Reason: "select-type field declares no choices",
		})
	}
	return warnings
}

// ValidateSchema checks every field of a resource schema, reporting each
// warning through report. The schema is returned unmodified; malformed
// metadata is a logged degradation, never a load failure.
func (fv *FieldValidator) ValidateSchema(resource string, s *Schema, report func(error)) {
	if s == nil {
		return
	}
	for _, key := range s.sortedKeys() {
		for _, w := range fv.Validate(resource, s.Fields[key]) {
			if report != nil {
				report(w)
			}
		}
	}
}
