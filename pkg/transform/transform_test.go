package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/snitinshk/notion-supabase-sync/pkg/notion"
	"github.com/snitinshk/notion-supabase-sync/pkg/schema"
)

func newTransformer() *Transformer {
	return New(zap.NewNop())
}

func strPtr(s string) *string   { return &s }
func numPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool      { return &b }

func TestTransformTitle(t *testing.T) {
	tr := newTransformer()

	v := tr.Transform("Name", notion.PropertyValue{
		Type: notion.TypeTitle,
		Title: []notion.RichText{
			{PlainText: "Hello "},
			{PlainText: "World"},
		},
	})
	assert.Equal(t, "Hello World", v)

	// Empty text-run list yields empty string, not nil
	v = tr.Transform("Name", notion.PropertyValue{Type: notion.TypeTitle})
	assert.Equal(t, "", v)
}

func TestTransformRichText(t *testing.T) {
	tr := newTransformer()

	v := tr.Transform("Notes", notion.PropertyValue{
		Type:     notion.TypeRichText,
		RichText: []notion.RichText{{PlainText: "one"}, {PlainText: " two"}},
	})
	assert.Equal(t, "one two", v)
}

func TestTransformSelectAndStatus(t *testing.T) {
	tr := newTransformer()

	v := tr.Transform("Priority", notion.PropertyValue{
		Type:   notion.TypeSelect,
		Select: &notion.SelectOption{Name: "High"},
	})
	assert.Equal(t, "High", v)

	assert.Nil(t, tr.Transform("Priority", notion.PropertyValue{Type: notion.TypeSelect}))

	v = tr.Transform("Status", notion.PropertyValue{
		Type:   notion.TypeStatus,
		Status: &notion.SelectOption{Name: "In Progress"},
	})
	assert.Equal(t, "In Progress", v)
}

func TestTransformMultiSelect(t *testing.T) {
	tr := newTransformer()

	v := tr.Transform("Tags", notion.PropertyValue{
		Type:        notion.TypeMultiSelect,
		MultiSelect: []notion.SelectOption{{Name: "a"}, {Name: "b"}},
	})
	assert.Equal(t, []string{"a", "b"}, v)

	// Empty list allowed, not nil
	v = tr.Transform("Tags", notion.PropertyValue{Type: notion.TypeMultiSelect})
	assert.Equal(t, []string{}, v)
}

func TestTransformDate(t *testing.T) {
	tr := newTransformer()

	v := tr.Transform("Due", notion.PropertyValue{
		Type: notion.TypeDate,
		Date: &notion.DateValue{Start: "2024-05-01T00:00:00Z"},
	})
	assert.Equal(t, "2024-05-01T00:00:00Z", v)

	assert.Nil(t, tr.Transform("Due", notion.PropertyValue{Type: notion.TypeDate}))
}

func TestTransformCheckbox(t *testing.T) {
	tr := newTransformer()

	v := tr.Transform("Done", notion.PropertyValue{Type: notion.TypeCheckbox, Checkbox: true})
	assert.Equal(t, true, v)

	// Absent treated as false
	v = tr.Transform("Done", notion.PropertyValue{Type: notion.TypeCheckbox})
	assert.Equal(t, false, v)
}

func TestTransformNumber(t *testing.T) {
	tr := newTransformer()

	v := tr.Transform("Count", notion.PropertyValue{Type: notion.TypeNumber, Number: numPtr(42.5)})
	assert.Equal(t, 42.5, v)

	assert.Nil(t, tr.Transform("Count", notion.PropertyValue{Type: notion.TypeNumber}))
}

func TestTransformRawStrings(t *testing.T) {
	tr := newTransformer()

	assert.Equal(t, "https://example.com",
		tr.Transform("Link", notion.PropertyValue{Type: notion.TypeURL, URL: strPtr("https://example.com")}))
	assert.Equal(t, "a@b.c",
		tr.Transform("Mail", notion.PropertyValue{Type: notion.TypeEmail, Email: strPtr("a@b.c")}))
	assert.Equal(t, "+1 555",
		tr.Transform("Phone", notion.PropertyValue{Type: notion.TypePhoneNumber, PhoneNumber: strPtr("+1 555")}))

	assert.Nil(t, tr.Transform("Link", notion.PropertyValue{Type: notion.TypeURL}))
}

func TestTransformFiles(t *testing.T) {
	tr := newTransformer()

	v := tr.Transform("Attachments", notion.PropertyValue{
		Type: notion.TypeFiles,
		Files: []notion.File{
			{Type: "external", External: &notion.ExternalFile{URL: "https://x/a.png"}},
			{Type: "file", File: &notion.HostedFile{URL: "https://n/b.pdf"}},
			{Type: "file"}, // unresolvable entry dropped
		},
	})
	assert.Equal(t, []string{"https://x/a.png", "https://n/b.pdf"}, v)
}

func TestTransformPeopleAndRelation(t *testing.T) {
	tr := newTransformer()

	v := tr.Transform("Owners", notion.PropertyValue{
		Type:   notion.TypePeople,
		People: []notion.User{{ID: "u1"}, {}, {ID: "u2"}},
	})
	assert.Equal(t, []string{"u1", "u2"}, v)

	v = tr.Transform("Related", notion.PropertyValue{
		Type:     notion.TypeRelation,
		Relation: []notion.Relation{{ID: "p1"}},
	})
	assert.Equal(t, []string{"p1"}, v)

	// Empty relation list stays an empty list
	v = tr.Transform("Related", notion.PropertyValue{Type: notion.TypeRelation})
	assert.Equal(t, []string{}, v)
}

func TestTransformFormula(t *testing.T) {
	tr := newTransformer()

	assert.Equal(t, "calc", tr.Transform("F", notion.PropertyValue{
		Type:    notion.TypeFormula,
		Formula: &notion.Formula{Type: "string", String: strPtr("calc")},
	}))
	// Numeric and boolean results render as text; formula columns are text
	assert.Equal(t, "7", tr.Transform("F", notion.PropertyValue{
		Type:    notion.TypeFormula,
		Formula: &notion.Formula{Type: "number", Number: numPtr(7)},
	}))
	assert.Equal(t, "42.5", tr.Transform("F", notion.PropertyValue{
		Type:    notion.TypeFormula,
		Formula: &notion.Formula{Type: "number", Number: numPtr(42.5)},
	}))
	assert.Equal(t, "true", tr.Transform("F", notion.PropertyValue{
		Type:    notion.TypeFormula,
		Formula: &notion.Formula{Type: "boolean", Boolean: boolPtr(true)},
	}))
	assert.Equal(t, "2024-01-01", tr.Transform("F", notion.PropertyValue{
		Type:    notion.TypeFormula,
		Formula: &notion.Formula{Type: "date", Date: &notion.DateValue{Start: "2024-01-01"}},
	}))

	// Unknown result types yield nil
	assert.Nil(t, tr.Transform("F", notion.PropertyValue{
		Type:    notion.TypeFormula,
		Formula: &notion.Formula{Type: "unsupported"},
	}))
	assert.Nil(t, tr.Transform("F", notion.PropertyValue{Type: notion.TypeFormula}))
}

func TestTransformRollup(t *testing.T) {
	tr := newTransformer()

	assert.Equal(t, "3", tr.Transform("R", notion.PropertyValue{
		Type:   notion.TypeRollup,
		Rollup: &notion.Rollup{Type: "number", Number: numPtr(3)},
	}))

	assert.Equal(t, "2024-02-02", tr.Transform("R", notion.PropertyValue{
		Type:   notion.TypeRollup,
		Rollup: &notion.Rollup{Type: "date", Date: &notion.DateValue{Start: "2024-02-02"}},
	}))

	// Array results map each element through its own per-element type and
	// land in the text column as one JSON document
	v := tr.Transform("R", notion.PropertyValue{
		Type: notion.TypeRollup,
		Rollup: &notion.Rollup{
			Type: "array",
			Array: []notion.PropertyValue{
				{Type: notion.TypeNumber, Number: numPtr(1)},
				{Type: notion.TypeSelect, Select: &notion.SelectOption{Name: "x"}},
				{Type: notion.TypeSelect}, // resolves to nil, dropped
			},
		},
	})
	assert.Equal(t, `[1,"x"]`, v)

	// An all-nil array still yields a JSON document, not nil
	v = tr.Transform("R", notion.PropertyValue{
		Type: notion.TypeRollup,
		Rollup: &notion.Rollup{
			Type:  "array",
			Array: []notion.PropertyValue{{Type: notion.TypeSelect}},
		},
	})
	assert.Equal(t, `[]`, v)

	assert.Nil(t, tr.Transform("R", notion.PropertyValue{
		Type:   notion.TypeRollup,
		Rollup: &notion.Rollup{Type: "incomplete"},
	}))
}

func TestTransformTimestampsAndActors(t *testing.T) {
	tr := newTransformer()

	assert.Equal(t, "2024-03-03T10:00:00Z", tr.Transform("Created", notion.PropertyValue{
		Type: notion.TypeCreatedTime, CreatedTime: "2024-03-03T10:00:00Z",
	}))
	assert.Equal(t, "2024-03-04T10:00:00Z", tr.Transform("Edited", notion.PropertyValue{
		Type: notion.TypeLastEditedTime, LastEditedTime: "2024-03-04T10:00:00Z",
	}))
	assert.Equal(t, "u9", tr.Transform("By", notion.PropertyValue{
		Type: notion.TypeCreatedBy, CreatedBy: &notion.User{ID: "u9"},
	}))
	assert.Nil(t, tr.Transform("By", notion.PropertyValue{Type: notion.TypeLastEditedBy}))
}

func TestTransformUnknownType(t *testing.T) {
	tr := newTransformer()
	assert.Nil(t, tr.Transform("X", notion.PropertyValue{Type: "verification"}))
	assert.Nil(t, tr.Transform("X", notion.PropertyValue{}))
}

// Every populated property value must come out as a Go type the mapped
// destination column can accept: string for text, []string for text[],
// bool for boolean, float64 for numeric, string for timestamptz.
func TestTransformValuesFitColumnTypes(t *testing.T) {
	tr := newTransformer()
	mapper := schema.NewMapper(zap.NewNop())

	samples := map[string]notion.PropertyValue{
		notion.TypeTitle:       {Type: notion.TypeTitle, Title: []notion.RichText{{PlainText: "t"}}},
		notion.TypeRichText:    {Type: notion.TypeRichText, RichText: []notion.RichText{{PlainText: "r"}}},
		notion.TypeSelect:      {Type: notion.TypeSelect, Select: &notion.SelectOption{Name: "s"}},
		notion.TypeStatus:      {Type: notion.TypeStatus, Status: &notion.SelectOption{Name: "s"}},
		notion.TypeMultiSelect: {Type: notion.TypeMultiSelect, MultiSelect: []notion.SelectOption{{Name: "m"}}},
		notion.TypeDate:        {Type: notion.TypeDate, Date: &notion.DateValue{Start: "2024-01-01"}},
		notion.TypeCheckbox:    {Type: notion.TypeCheckbox, Checkbox: true},
		notion.TypeNumber:      {Type: notion.TypeNumber, Number: numPtr(1.5)},
		notion.TypeURL:         {Type: notion.TypeURL, URL: strPtr("https://x")},
		notion.TypeEmail:       {Type: notion.TypeEmail, Email: strPtr("a@b.c")},
		notion.TypePhoneNumber: {Type: notion.TypePhoneNumber, PhoneNumber: strPtr("+1")},
		notion.TypeFiles: {Type: notion.TypeFiles,
			Files: []notion.File{{External: &notion.ExternalFile{URL: "https://x"}}}},
		notion.TypePeople:   {Type: notion.TypePeople, People: []notion.User{{ID: "u1"}}},
		notion.TypeRelation: {Type: notion.TypeRelation, Relation: []notion.Relation{{ID: "p1"}}},
		notion.TypeFormula: {Type: notion.TypeFormula,
			Formula: &notion.Formula{Type: "number", Number: numPtr(7)}},
		notion.TypeRollup: {Type: notion.TypeRollup,
			Rollup: &notion.Rollup{Type: "array", Array: []notion.PropertyValue{
				{Type: notion.TypeNumber, Number: numPtr(1)}}}},
		notion.TypeCreatedTime:    {Type: notion.TypeCreatedTime, CreatedTime: "2024-01-01T00:00:00Z"},
		notion.TypeLastEditedTime: {Type: notion.TypeLastEditedTime, LastEditedTime: "2024-01-01T00:00:00Z"},
		notion.TypeCreatedBy:      {Type: notion.TypeCreatedBy, CreatedBy: &notion.User{ID: "u1"}},
		notion.TypeLastEditedBy:   {Type: notion.TypeLastEditedBy, LastEditedBy: &notion.User{ID: "u1"}},
	}

	for typ, prop := range samples {
		v := tr.Transform("p", prop)
		require.NotNil(t, v, "type %s", typ)

		switch mapper.MapType(typ) {
		case schema.ColumnTypeText, schema.ColumnTypeTimestamp:
			assert.IsType(t, "", v, "type %s must land as a string", typ)
		case schema.ColumnTypeTextArray:
			assert.IsType(t, []string{}, v, "type %s must land as a string slice", typ)
		case schema.ColumnTypeBoolean:
			assert.IsType(t, false, v, "type %s must land as a bool", typ)
		case schema.ColumnTypeNumeric:
			assert.IsType(t, float64(0), v, "type %s must land as a float64", typ)
		}
	}
}

// Every known type with a zero value must transform without panicking.
func TestTransformTotality(t *testing.T) {
	tr := newTransformer()

	types := []string{
		notion.TypeTitle, notion.TypeRichText, notion.TypeSelect, notion.TypeStatus,
		notion.TypeMultiSelect, notion.TypeDate, notion.TypeCheckbox, notion.TypeNumber,
		notion.TypeURL, notion.TypeEmail, notion.TypePhoneNumber, notion.TypeFiles,
		notion.TypePeople, notion.TypeRelation, notion.TypeFormula, notion.TypeRollup,
		notion.TypeCreatedTime, notion.TypeCreatedBy, notion.TypeLastEditedTime,
		notion.TypeLastEditedBy, "unknown_future_type",
	}

	for _, typ := range types {
		assert.NotPanics(t, func() {
			tr.Transform("p", notion.PropertyValue{Type: typ})
		}, "type %s", typ)
	}
}
