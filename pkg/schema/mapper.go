// Package schema derives destination column definitions from Notion
// property definitions and computes the diff against existing columns.
// Everything here is pure; existing-column lists are taken as input.
package schema

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/snitinshk/notion-supabase-sync/pkg/notion"
)

// ColumnType is the closed set of destination column types.
type ColumnType string

const (
	ColumnTypeText      ColumnType = "text"
	ColumnTypeTextArray ColumnType = "text[]"
	ColumnTypeTimestamp ColumnType = "timestamptz"
	ColumnTypeBoolean   ColumnType = "boolean"
	ColumnTypeNumeric   ColumnType = "numeric"
)

// ColumnDefinition describes one destination column derived from a source
// property definition.
type ColumnDefinition struct {
	Name       string
	Type       ColumnType
	SourceName string
	SourceType string
}

// typeTable maps Notion property types onto destination column types.
var typeTable = map[string]ColumnType{
	notion.TypeTitle:          ColumnTypeText,
	notion.TypeRichText:       ColumnTypeText,
	notion.TypeSelect:         ColumnTypeText,
	notion.TypeStatus:         ColumnTypeText,
	notion.TypeMultiSelect:    ColumnTypeTextArray,
	notion.TypeDate:           ColumnTypeTimestamp,
	notion.TypeCheckbox:       ColumnTypeBoolean,
	notion.TypeNumber:         ColumnTypeNumeric,
	notion.TypeURL:            ColumnTypeText,
	notion.TypeEmail:          ColumnTypeText,
	notion.TypePhoneNumber:    ColumnTypeText,
	notion.TypeFiles:          ColumnTypeTextArray,
	notion.TypePeople:         ColumnTypeTextArray,
	notion.TypeRelation:       ColumnTypeTextArray,
	notion.TypeFormula:        ColumnTypeText,
	notion.TypeRollup:         ColumnTypeText,
	notion.TypeCreatedTime:    ColumnTypeTimestamp,
	notion.TypeLastEditedTime: ColumnTypeTimestamp,
	notion.TypeCreatedBy:      ColumnTypeText,
	notion.TypeLastEditedBy:   ColumnTypeText,
}

// Mapper derives and diffs column definitions. Its only side effect is
// warning logs for unmapped types and name collisions.
type Mapper struct {
	logger *zap.Logger
}

// NewMapper creates a Mapper.
func NewMapper(logger *zap.Logger) *Mapper {
	return &Mapper{logger: logger.With(zap.String("component", "schema_mapper"))}
}

// MapType returns the destination type for a source property type.
// Unmapped types default to text with a warning.
func (m *Mapper) MapType(sourceType string) ColumnType {
	if t, ok := typeTable[sourceType]; ok {
		return t
	}
	m.logger.Warn("unmapped property type, defaulting to text",
		zap.String("type", sourceType))
	return ColumnTypeText
}

// NormalizeName lowercases a property name, collapses every maximal run
// of non-alphanumeric characters into a single underscore, and strips
// leading and trailing underscores. Idempotent.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	pendingSep := false
	for _, r := range strings.ToLower(name) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}

	return b.String()
}

// RequiredColumns derives the column set a database's properties require,
// ordered by normalized name for deterministic provisioning. Two property
// names that normalize to the same column collide; the first one (in sorted
// source-name order) wins and the collision is logged.
func (m *Mapper) RequiredColumns(db *notion.Database) []ColumnDefinition {
	names := make([]string, 0, len(db.Properties))
	for name := range db.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]string, len(names))
	columns := make([]ColumnDefinition, 0, len(names))

	for _, name := range names {
		def := db.Properties[name]
		normalized := NormalizeName(name)
		if normalized == "" {
			m.logger.Warn("property name normalizes to empty, skipping",
				zap.String("property", name))
			continue
		}

		if prior, ok := seen[normalized]; ok {
			m.logger.Warn("column name collision, keeping first property",
				zap.String("column", normalized),
				zap.String("kept", prior),
				zap.String("dropped", name))
			continue
		}
		seen[normalized] = name

		columns = append(columns, ColumnDefinition{
			Name:       normalized,
			Type:       m.MapType(def.Type),
			SourceName: name,
			SourceType: def.Type,
		})
	}

	return columns
}

// Diff returns the entries of required whose normalized name is absent
// from existing, preserving required's order. Duplicates after
// normalization are emitted once.
func Diff(required []ColumnDefinition, existing []string) []ColumnDefinition {
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[NormalizeName(name)] = true
	}

	var missing []ColumnDefinition
	for _, col := range required {
		name := NormalizeName(col.Name)
		if have[name] {
			continue
		}
		have[name] = true
		missing = append(missing, col)
	}

	return missing
}
