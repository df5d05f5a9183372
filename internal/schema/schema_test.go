package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	return &Schema{
		Fields: map[string]*Field{
			"comment": {
				Key: "comment", DataType: TypeString, Ordinal: 40,
				Visibility: []string{"d"},
			},
			"screen_id": {
				Key: "screen_id", DataType: TypeInteger, Ordinal: 0,
				Visibility: []string{"l", "d"},
			},
			"title": {
				Key: "title", DataType: TypeString, Ordinal: 10,
				Visibility:  []string{"l", "d", "e"},
				Editability: []string{"c", "u"},
			},
			"screen_type": {
				Key: "screen_type", DataType: TypeString, Ordinal: 20,
				EditType:    EditSelect,
				Choices:     []string{"small_molecule", "rnai"},
				Visibility:  []string{"d", "e"},
				Editability: []string{"c"},
			},
			"status": {
				Key: "status", DataType: TypeString, Ordinal: 30,
				Visibility:  []string{"d"},
				Editability: []string{"u"},
			},
		},
	}
}

func TestFilterKeys_OrdinalOrder(t *testing.T) {
	s := testSchema()
	assert.Equal(t,
		[]string{"screen_id", "title", "screen_type", "status", "comment"},
		s.DetailKeys())
}

func TestFilterKeys_TagMembership(t *testing.T) {
	s := testSchema()
	assert.Equal(t, []string{"title", "screen_type"}, s.EditVisibleKeys())
	assert.Equal(t, []string{"title", "screen_type"}, s.CreateKeys())
	assert.Equal(t, []string{"title", "status"}, s.UpdateKeys())
}

func TestAllEditVisibleKeys_UnionInOrdinalOrder(t *testing.T) {
	s := testSchema()
	// status is update-only and screen_type is create-only; the union is
	// still returned in ordinal order, not in union-construction order.
	assert.Equal(t, []string{"title", "screen_type", "status"}, s.AllEditVisibleKeys())
}

func TestFilterKeys_NilSchema(t *testing.T) {
	var s *Schema
	assert.Empty(t, s.FilterKeys(SelectVisibility, "d"))
}

func TestFieldValidator_WellFormed(t *testing.T) {
	fv, err := NewFieldValidator()
	require.NoError(t, err)

	for _, f := range testSchema().Fields {
		assert.Empty(t, fv.Validate("screen", f), "field %s", f.Key)
	}
}

func TestFieldValidator_BadDataType(t *testing.T) {
	fv, err := NewFieldValidator()
	require.NoError(t, err)

	warnings := fv.Validate("screen", &Field{
		Key: "bad", DataType: "datetimeoid", Ordinal: 1,
	})
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0].Error(), "screen.bad")
}

func TestFieldValidator_MalformedRegex(t *testing.T) {
	fv, err := NewFieldValidator()
	require.NoError(t, err)

	warnings := fv.Validate("library", &Field{
		Key: "short_name", DataType: TypeString, Ordinal: 1, Regex: "([a-z",
	})
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Reason, "regex")
}

func TestFieldValidator_SelectWithoutChoices(t *testing.T) {
	fv, err := NewFieldValidator()
	require.NoError(t, err)

	warnings := fv.Validate("screen", &Field{
		Key: "screen_type", DataType: TypeString, EditType: EditSelect, Ordinal: 1,
	})
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Reason, "choices")
}

func TestValidateSchema_ReportsAndContinues(t *testing.T) {
	fv, err := NewFieldValidator()
	require.NoError(t, err)

	s := testSchema()
	s.Fields["broken"] = &Field{Key: "broken", DataType: "nope", Ordinal: 99}

	var reported []error
	fv.ValidateSchema("screen", s, func(e error) { reported = append(reported, e) })
	require.Len(t, reported, 1)
	// The schema itself is untouched; degradation, not rejection.
	assert.Contains(t, s.Fields, "broken")
}
