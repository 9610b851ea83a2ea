package query

import (
	"fmt"
	"net/url"
	"sort"

	"gorm.io/gorm"

	apperrors "finbook/internal/errors"
)

// Aggregation parameters.
const (
	ParamGroup     = "group"
	ParamAggregate = "aggregate"

	FuncSum = "sum"
)

// Aggregate is a parsed group/aggregate request.
type Aggregate struct {
	Group string
	Func  string
	Label string
}

// Bucket is one aggregated group.
type Bucket struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ParseAggregate reads the group and aggregate parameters. Both are required
// and only sum is supported.
func ParseAggregate(schema *Schema, values url.Values) (Aggregate, error) {
	group := values.Get(ParamGroup)
	fn := values.Get(ParamAggregate)
	if group == "" {
		return Aggregate{}, apperrors.WithMessage(apperrors.ErrMissingParameter, "parameter 'group' is required")
	}
	if fn == "" {
		return Aggregate{}, apperrors.WithMessage(apperrors.ErrMissingParameter, "parameter 'aggregate' is required")
	}
	if fn != FuncSum {
		return Aggregate{}, apperrors.WithMessage(apperrors.ErrUnsupportedAggregation, fmt.Sprintf("aggregation %q is not supported", fn))
	}
	label, ok := schema.Groups[group]
	if !ok {
		return Aggregate{}, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("cannot group by %q", group))
	}
	return Aggregate{Group: group, Func: fn, Label: label}, nil
}

type bucketRow struct {
	Label *string
	Value float64
}

// Run executes the aggregation over db, which should already carry the
// pre-aggregation filters. Buckets come back unsorted.
func Run(db *gorm.DB, schema *Schema, agg Aggregate) ([]Bucket, error) {
	var rows []bucketRow
	err := db.
		Select(fmt.Sprintf("%s AS label, COALESCE(SUM(%s), 0) AS value", agg.Label, schema.AggregateColumn)).
		Group(agg.Label).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	buckets := make([]Bucket, 0, len(rows))
	for _, r := range rows {
		b := Bucket{Value: r.Value}
		if r.Label != nil {
			b.Label = *r.Label
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}

// SortBuckets orders buckets by value ascending, then label.
func SortBuckets(buckets []Bucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Value != buckets[j].Value {
			return buckets[i].Value < buckets[j].Value
		}
		return buckets[i].Label < buckets[j].Label
	})
}

// MonthExpr returns a "YYYY-MM" expression over a date column for the given
// gorm dialect name.
func MonthExpr(dialect, column string) string {
	if dialect == "postgres" {
		return fmt.Sprintf("to_char(%s, 'YYYY-MM')", column)
	}
	return fmt.Sprintf("strftime('%%Y-%%m', %s)", column)
}
