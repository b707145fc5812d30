// Package transform maps typed Notion property values onto destination-native
// values. Transformation is pure and total over the closed property type set;
// unknown types yield nil with a warning, never an error.
package transform

import (
	"strconv"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/snitinshk/notion-supabase-sync/pkg/notion"
)

// Transformer converts property values. Its only side effect is warning
// logs for property types outside the known set.
type Transformer struct {
	logger *zap.Logger
}

// New creates a Transformer.
func New(logger *zap.Logger) *Transformer {
	return &Transformer{logger: logger.With(zap.String("component", "transformer"))}
}

// Transform converts one typed property value into a destination-compatible
// value, or nil when the property carries no value. A nil result means the
// property is omitted from the destination row.
func (t *Transformer) Transform(name string, prop notion.PropertyValue) interface{} {
	switch prop.Type {
	case notion.TypeTitle:
		return plainText(prop.Title)

	case notion.TypeRichText:
		return plainText(prop.RichText)

	case notion.TypeSelect:
		return optionName(prop.Select)

	case notion.TypeStatus:
		return optionName(prop.Status)

	case notion.TypeMultiSelect:
		labels := make([]string, 0, len(prop.MultiSelect))
		for _, opt := range prop.MultiSelect {
			labels = append(labels, opt.Name)
		}
		return labels

	case notion.TypeDate:
		return dateStart(prop.Date)

	case notion.TypeCheckbox:
		return prop.Checkbox

	case notion.TypeNumber:
		if prop.Number == nil {
			return nil
		}
		return *prop.Number

	case notion.TypeURL:
		return optionalString(prop.URL)

	case notion.TypeEmail:
		return optionalString(prop.Email)

	case notion.TypePhoneNumber:
		return optionalString(prop.PhoneNumber)

	case notion.TypeFiles:
		urls := make([]string, 0, len(prop.Files))
		for _, f := range prop.Files {
			if url := fileURL(f); url != "" {
				urls = append(urls, url)
			}
		}
		return urls

	case notion.TypePeople:
		ids := make([]string, 0, len(prop.People))
		for _, p := range prop.People {
			if p.ID != "" {
				ids = append(ids, p.ID)
			}
		}
		return ids

	case notion.TypeRelation:
		ids := make([]string, 0, len(prop.Relation))
		for _, r := range prop.Relation {
			ids = append(ids, r.ID)
		}
		return ids

	case notion.TypeFormula:
		return t.transformFormula(name, prop.Formula)

	case notion.TypeRollup:
		return t.transformRollup(name, prop.Rollup)

	case notion.TypeCreatedTime:
		return prop.CreatedTime

	case notion.TypeLastEditedTime:
		return prop.LastEditedTime

	case notion.TypeCreatedBy:
		return actorID(prop.CreatedBy)

	case notion.TypeLastEditedBy:
		return actorID(prop.LastEditedBy)

	default:
		t.logger.Warn("unknown property type, skipping",
			zap.String("property", name),
			zap.String("type", prop.Type))
		return nil
	}
}

// transformFormula dispatches on the formula's own result type. Formula
// columns are text, so number and boolean results render as strings.
func (t *Transformer) transformFormula(name string, f *notion.Formula) interface{} {
	if f == nil {
		return nil
	}

	switch f.Type {
	case "string":
		return optionalString(f.String)
	case "number":
		if f.Number == nil {
			return nil
		}
		return formatNumber(*f.Number)
	case "boolean":
		if f.Boolean == nil {
			return nil
		}
		return strconv.FormatBool(*f.Boolean)
	case "date":
		return dateStart(f.Date)
	default:
		t.logger.Warn("unknown formula result type",
			zap.String("property", name),
			zap.String("type", f.Type))
		return nil
	}
}

// transformRollup handles rollup results: array results map each element
// recursively through Transform with its own per-element type, dropping
// elements that resolve to nil. Rollup columns are text, so number results
// render as strings and arrays encode as JSON.
func (t *Transformer) transformRollup(name string, r *notion.Rollup) interface{} {
	if r == nil {
		return nil
	}

	switch r.Type {
	case "array":
		values := make([]interface{}, 0, len(r.Array))
		for _, elem := range r.Array {
			if v := t.Transform(name, elem); v != nil {
				values = append(values, v)
			}
		}
		encoded, err := json.Marshal(values)
		if err != nil {
			t.logger.Warn("failed to encode rollup array",
				zap.String("property", name),
				zap.Error(err))
			return nil
		}
		return string(encoded)
	case "number":
		if r.Number == nil {
			return nil
		}
		return formatNumber(*r.Number)
	case "date":
		return dateStart(r.Date)
	default:
		t.logger.Warn("unknown rollup result type",
			zap.String("property", name),
			zap.String("type", r.Type))
		return nil
	}
}

// plainText concatenates the plain-text fragments of a text-run list.
// An empty list yields an empty string, not nil.
func plainText(runs []notion.RichText) string {
	var out string
	for _, run := range runs {
		out += run.PlainText
	}
	return out
}

func optionName(opt *notion.SelectOption) interface{} {
	if opt == nil {
		return nil
	}
	return opt.Name
}

func dateStart(d *notion.DateValue) interface{} {
	if d == nil || d.Start == "" {
		return nil
	}
	return d.Start
}

// formatNumber renders a numeric result without a trailing exponent or
// spurious decimals, matching how the value reads in Notion.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func optionalString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// fileURL resolves whichever sub-variant of a files entry is present.
func fileURL(f notion.File) string {
	if f.External != nil {
		return f.External.URL
	}
	if f.File != nil {
		return f.File.URL
	}
	return ""
}

func actorID(u *notion.User) interface{} {
	if u == nil || u.ID == "" {
		return nil
	}
	return u.ID
}
