// Package dialect provides the SQL dialect helpers used to render
// parameterized predicates and aggregation queries for a specific store.
package dialect

import (
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/leapstack-labs/crossfilter/pkg/core"
)

// Dialect is a SQL dialect: static config plus the aggregate function spellings
// that differ between stores.
type Dialect struct {
	core.DialectConfig

	// quantile renders a continuous quantile aggregate over expr.
	quantile func(expr string, q float64) string
	// numericCast renders a lenient cast of expr to a floating point value.
	numericCast func(expr string) string
}

// Config returns the static dialect configuration.
func (d *Dialect) Config() *core.DialectConfig {
	return &d.DialectConfig
}

// GetName returns the dialect name.
func (d *Dialect) GetName() string {
	return d.Name
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
// Returns "?" for PlaceholderQuestion style, "$1", "$2" etc. for PlaceholderDollar style.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case core.PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// PlaceholderFormat returns the squirrel placeholder format matching the dialect.
func (d *Dialect) PlaceholderFormat() sq.PlaceholderFormat {
	if d.Placeholder == core.PlaceholderDollar {
		return sq.Dollar
	}
	return sq.Question
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	// Escape any existing quote end characters in the name (e.g., " -> "")
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// Qualify returns the quoted table.column reference.
func (d *Dialect) Qualify(table, column string) string {
	if table == "" {
		return d.QuoteIdentifier(column)
	}
	return d.QuoteIdentifier(table) + "." + d.QuoteIdentifier(column)
}

// CastText renders a cast of expr to the dialect's text type.
func (d *Dialect) CastText(expr string) string {
	return fmt.Sprintf("CAST(%s AS %s)", expr, d.TextType)
}

// CastNumeric renders a cast of expr to a floating point value.
func (d *Dialect) CastNumeric(expr string) string {
	if d.numericCast != nil {
		return d.numericCast(expr)
	}
	return fmt.Sprintf("CAST(%s AS %s)", expr, d.FloatType)
}

// Quantile renders a continuous quantile aggregate (q in [0, 1]).
func (d *Dialect) Quantile(expr string, q float64) string {
	if d.quantile != nil {
		return d.quantile(expr, q)
	}
	return fmt.Sprintf("PERCENTILE_CONT(%s) WITHIN GROUP (ORDER BY %s)", formatFloat(q), expr)
}

// Median renders the median aggregate.
func (d *Dialect) Median(expr string) string {
	return d.Quantile(expr, 0.5)
}

// Render converts a squirrel expression into SQL text with the dialect's placeholders.
func (d *Dialect) Render(s sq.Sqlizer) (string, []any, error) {
	query, args, err := s.ToSql()
	if err != nil {
		return "", nil, err
	}
	query, err = d.PlaceholderFormat().ReplacePlaceholders(query)
	if err != nil {
		return "", nil, err
	}
	return query, args, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ---------- Builder ----------

// Builder constructs a Dialect.
type Builder struct {
	d *Dialect
}

// NewDialect starts building a dialect with ANSI defaults.
func NewDialect(name string) *Builder {
	return &Builder{d: &Dialect{
		DialectConfig: core.DialectConfig{
			Name:        name,
			Identifiers: core.IdentifierConfig{Quote: `"`, QuoteEnd: `"`, Escape: `""`},
			Placeholder: core.PlaceholderQuestion,
			TextType:    "VARCHAR",
			FloatType:   "DOUBLE",
		},
	}}
}

// Identifiers sets the identifier quoting rules.
func (b *Builder) Identifiers(quote, quoteEnd, escape string) *Builder {
	b.d.Identifiers = core.IdentifierConfig{Quote: quote, QuoteEnd: quoteEnd, Escape: escape}
	return b
}

// DefaultSchema sets the default schema.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.d.DefaultSchema = schema
	return b
}

// PlaceholderStyle sets the parameter placeholder style.
func (b *Builder) PlaceholderStyle(style core.PlaceholderStyle) *Builder {
	b.d.Placeholder = style
	return b
}

// Types sets the cast targets for text and floating point values.
func (b *Builder) Types(text, float string) *Builder {
	b.d.TextType = text
	b.d.FloatType = float
	return b
}

// Quantile overrides the quantile aggregate spelling.
func (b *Builder) Quantile(fn func(expr string, q float64) string) *Builder {
	b.d.quantile = fn
	return b
}

// NumericCast overrides the numeric cast spelling.
func (b *Builder) NumericCast(fn func(expr string) string) *Builder {
	b.d.numericCast = fn
	return b
}

// Build returns the dialect.
func (b *Builder) Build() *Dialect {
	return b.d
}
