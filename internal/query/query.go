// Package query builds filtered, searched, and sorted list queries from URL
// parameters against a closed table of allowed fields. Nothing outside the
// table ever reaches SQL: column expressions come from the schema and every
// value is passed as a bound parameter.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finbook/internal/errors"
	"finbook/internal/pagination"
	"finbook/internal/uuid"
)

// Kind determines how a raw parameter value is parsed before binding.
type Kind int

const (
	KindString Kind = iota
	KindID
	KindNumber
	KindDecimal
	KindDate
	KindBool
)

// Comparator is the suffix after "__" in a filter parameter.
type Comparator string

const (
	Exact       Comparator = "exact"
	GTE         Comparator = "gte"
	GT          Comparator = "gt"
	LTE         Comparator = "lte"
	LT          Comparator = "lt"
	IContains   Comparator = "icontains"
	IStartsWith Comparator = "istartswith"
	IEndsWith   Comparator = "iendswith"
	IsNull      Comparator = "isnull"
	In          Comparator = "in"
)

var knownComparators = map[Comparator]bool{
	Exact: true, GTE: true, GT: true, LTE: true, LT: true,
	IContains: true, IStartsWith: true, IEndsWith: true, IsNull: true, In: true,
}

// Common comparator sets.
var (
	ComparatorsText     = []Comparator{Exact, IContains, IStartsWith, IEndsWith}
	ComparatorsRange    = []Comparator{Exact, GTE, GT, LTE, LT}
	ComparatorsID       = []Comparator{Exact, In}
	ComparatorsBool     = []Comparator{Exact}
	ComparatorsNullable = []Comparator{Exact, In, IsNull}
)

// Reserved parameter names that are never treated as filters.
const (
	ParamSearch   = "q"
	ParamOrdering = "ordering"
	ParamPage     = "page"
	ParamPageSize = "page_size"
)

// ExpandFunc rewrites the raw values of an exact/in filter before binding,
// e.g. a category id into the ids of its whole subtree.
type ExpandFunc func(values []string) ([]string, error)

// Field is one filterable entry in a schema.
type Field struct {
	// Column is a SQL expression taken verbatim from the schema.
	Column      string
	Kind        Kind
	Comparators []Comparator
	// Default is used when the parameter has no "__" suffix. Empty means Exact.
	Default Comparator
	Expand  ExpandFunc
}

func (f Field) allows(c Comparator) bool {
	for _, a := range f.Comparators {
		if a == c {
			return true
		}
	}
	return false
}

// Schema is the closed table of what a list endpoint accepts.
type Schema struct {
	Fields map[string]Field
	// Search holds text columns concatenated for the quick search "q".
	Search []string
	// Sortable maps ordering keys to column expressions.
	Sortable map[string]string
	// DefaultOrder uses ordering keys, "-" prefix for descending.
	DefaultOrder []string
	// TieBreaker is appended to every order so pagination is stable.
	TieBreaker string
	// Groups maps aggregation group keys to label expressions.
	Groups map[string]string
	// AggregateColumn is the value summed by aggregation.
	AggregateColumn string
}

// Condition is one compiled WHERE clause.
type Condition struct {
	Field      string
	Comparator Comparator
	SQL        string
	Args       []any
}

// SortKey is one compiled ORDER BY term.
type SortKey struct {
	Column string
	Desc   bool
}

func (k SortKey) String() string {
	if k.Desc {
		return k.Column + " DESC"
	}
	return k.Column
}

// Spec is the parsed, validated form of a list request.
type Spec struct {
	Conditions []Condition
	Search     string
	Sort       []SortKey
	// Page is nil when the caller did not ask for a page.
	Page *pagination.PageRequest
}

// Parse compiles values against schema. Unknown parameters and comparators
// not allowed for a field are ignored; unparsable values of allowed filters
// fail with INVALID_INPUT.
func Parse(schema *Schema, values url.Values) (Spec, error) {
	var spec Spec

	for key, raw := range values {
		name, cmp := splitKey(key)
		field, ok := schema.Fields[name]
		if !ok {
			continue
		}
		if cmp == "" {
			cmp = field.Default
			if cmp == "" {
				cmp = Exact
			}
		}
		if !field.allows(cmp) {
			continue
		}
		cond, err := compile(name, field, cmp, raw)
		if err != nil {
			return Spec{}, err
		}
		spec.Conditions = append(spec.Conditions, cond)
	}
	sortConditions(spec.Conditions)

	spec.Search = strings.TrimSpace(values.Get(ParamSearch))
	spec.Sort = parseOrdering(schema, values.Get(ParamOrdering))

	page, err := parsePage(values)
	if err != nil {
		return Spec{}, err
	}
	spec.Page = page

	return spec, nil
}

// splitKey separates "field__comparator". A suffix that is not a known
// comparator stays part of the field name.
func splitKey(key string) (string, Comparator) {
	i := strings.LastIndex(key, "__")
	if i < 0 {
		return key, ""
	}
	cmp := Comparator(key[i+2:])
	if !knownComparators[cmp] {
		return key, ""
	}
	return key[:i], cmp
}

func compile(name string, f Field, cmp Comparator, raw []string) (Condition, error) {
	cond := Condition{Field: name, Comparator: cmp}
	first := ""
	if len(raw) > 0 {
		first = raw[0]
	}

	switch cmp {
	case IsNull:
		isNull, err := parseBool(first)
		if err != nil {
			return cond, invalid(name, first)
		}
		if isNull {
			cond.SQL = fmt.Sprintf("%s IS NULL", f.Column)
		} else {
			cond.SQL = fmt.Sprintf("%s IS NOT NULL", f.Column)
		}
		return cond, nil

	case IContains, IStartsWith, IEndsWith:
		pattern := EscapeLike(strings.ToLower(first))
		switch cmp {
		case IContains:
			pattern = "%" + pattern + "%"
		case IStartsWith:
			pattern = pattern + "%"
		case IEndsWith:
			pattern = "%" + pattern
		}
		cond.SQL = fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, f.Column)
		cond.Args = []any{pattern}
		return cond, nil

	case In, Exact:
		var rawValues []string
		if cmp == In {
			rawValues = splitList(raw)
		} else {
			rawValues = []string{first}
		}
		if f.Kind == KindID {
			for _, rv := range rawValues {
				if !uuid.IsValid(strings.TrimSpace(rv)) {
					return cond, invalid(name, rv)
				}
			}
		}
		if f.Expand != nil {
			expanded, err := f.Expand(rawValues)
			if err != nil {
				return cond, err
			}
			if len(expanded) == 0 {
				cond.SQL = "1 = 0"
				return cond, nil
			}
			cmp, rawValues = In, expanded
		}
		if cmp == Exact {
			v, err := parseValue(f.Kind, first)
			if err != nil {
				return cond, invalid(name, first)
			}
			cond.SQL = fmt.Sprintf("%s = ?", f.Column)
			cond.Args = []any{v}
			return cond, nil
		}
		if len(rawValues) == 0 {
			cond.SQL = "1 = 0"
			return cond, nil
		}
		parsed := make([]any, 0, len(rawValues))
		for _, rv := range rawValues {
			v, err := parseValue(f.Kind, rv)
			if err != nil {
				return cond, invalid(name, rv)
			}
			parsed = append(parsed, v)
		}
		cond.SQL = fmt.Sprintf("%s IN ?", f.Column)
		cond.Args = []any{parsed}
		return cond, nil

	default:
		v, err := parseValue(f.Kind, first)
		if err != nil {
			return cond, invalid(name, first)
		}
		op := map[Comparator]string{GTE: ">=", GT: ">", LTE: "<=", LT: "<"}[cmp]
		cond.SQL = fmt.Sprintf("%s %s ?", f.Column, op)
		cond.Args = []any{v}
		return cond, nil
	}
}

func splitList(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// sortConditions orders conditions so the generated SQL does not depend on
// map iteration order.
func sortConditions(conds []Condition) {
	sort.Slice(conds, func(i, j int) bool {
		if conds[i].Field != conds[j].Field {
			return conds[i].Field < conds[j].Field
		}
		return conds[i].Comparator < conds[j].Comparator
	})
}

func parseValue(kind Kind, s string) (any, error) {
	s = strings.TrimSpace(s)
	switch kind {
	case KindNumber:
		return strconv.ParseFloat(s, 64)
	case KindDecimal:
		return decimal.NewFromString(s)
	case KindDate:
		return ParseDate(s)
	case KindBool:
		return parseBool(s)
	case KindID:
		// uuid columns reject anything else at comparison time
		if !uuid.IsValid(s) {
			return nil, fmt.Errorf("invalid id %q", s)
		}
		return s, nil
	default:
		return s, nil
	}
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

func invalid(name, value string) error {
	return apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("invalid value %q for %s", value, name))
}

// EscapeLike escapes LIKE wildcards so user input matches literally under
// ESCAPE '\'.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func parseOrdering(schema *Schema, raw string) []SortKey {
	var keys []SortKey
	seen := make(map[string]bool)
	add := func(term string) {
		term = strings.TrimSpace(term)
		desc := strings.HasPrefix(term, "-")
		name := strings.TrimPrefix(term, "-")
		col, ok := schema.Sortable[name]
		if !ok || seen[col] {
			return
		}
		seen[col] = true
		keys = append(keys, SortKey{Column: col, Desc: desc})
	}

	if raw != "" {
		for _, term := range strings.Split(raw, ",") {
			add(term)
		}
	}
	if len(keys) == 0 {
		for _, term := range schema.DefaultOrder {
			add(term)
		}
	}
	if schema.TieBreaker != "" && !seen[schema.TieBreaker] {
		keys = append(keys, SortKey{Column: schema.TieBreaker})
	}
	return keys
}

func parsePage(values url.Values) (*pagination.PageRequest, error) {
	rawPage := values.Get(ParamPage)
	if rawPage == "" {
		return nil, nil
	}
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 1 {
		return nil, invalid(ParamPage, rawPage)
	}
	req := &pagination.PageRequest{Page: page}
	if rawSize := values.Get(ParamPageSize); rawSize != "" {
		size, err := strconv.Atoi(rawSize)
		if err != nil || size < 1 {
			return nil, invalid(ParamPageSize, rawSize)
		}
		req.PageSize = size
	}
	req.Defaults()
	return req, nil
}

// Apply adds the spec's filters and search to db. Ordering and paging are
// left to the caller, since counting must happen without them.
func Apply(db *gorm.DB, schema *Schema, spec Spec) *gorm.DB {
	for _, c := range spec.Conditions {
		db = db.Where(c.SQL, c.Args...)
	}
	if spec.Search != "" && len(schema.Search) > 0 {
		parts := make([]string, len(schema.Search))
		for i, col := range schema.Search {
			parts[i] = fmt.Sprintf("COALESCE(%s, '')", col)
		}
		expr := fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, strings.Join(parts, " || "))
		db = db.Where(expr, "%"+EscapeLike(strings.ToLower(spec.Search))+"%")
	}
	return db
}

// Order applies the spec's sort keys to db.
func Order(db *gorm.DB, spec Spec) *gorm.DB {
	for _, k := range spec.Sort {
		db = db.Order(k.String())
	}
	return db
}
