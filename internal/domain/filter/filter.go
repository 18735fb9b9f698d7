package filter

import "fmt"

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Expression is a structured filter with must/should/must_not boolean semantics.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	for name, group := range map[string][]Condition{"must": must, "should": should, "must_not": mustNot} {
		if len(group) > MaxConditionsPerGroup {
			return Expression{}, fmt.Errorf("too many %s conditions (max %d)", name, MaxConditionsPerGroup)
		}
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// Lookup resolves a numeric field of a document; ok is false when the field is absent.
type Lookup func(key string) (value float64, ok bool)

// Matches evaluates the expression against a single document.
// Every must condition has to hold, at least one should condition (if any),
// and no must_not condition.
func (e Expression) Matches(lookup Lookup) bool {
	for _, c := range e.must {
		if !c.Matches(lookup) {
			return false
		}
	}
	if len(e.should) > 0 {
		matched := false
		for _, c := range e.should {
			if c.Matches(lookup) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, c := range e.mustNot {
		if c.Matches(lookup) {
			return false
		}
	}
	return true
}

// Condition is a single filter clause: a numeric range or a missing-field test.
type Condition struct {
	key       string
	missing   bool
	rangeExpr *Range
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// NewMissing creates a condition that holds when the field is absent from the document.
func NewMissing(key string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, missing: true}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// IsMissing reports whether this is a missing-field condition.
func (c Condition) IsMissing() bool { return c.missing }

// Matches evaluates the condition against a single document.
// A range never matches an absent field.
func (c Condition) Matches(lookup Lookup) bool {
	v, ok := lookup(c.key)
	if c.missing {
		return !ok
	}
	if c.rangeExpr == nil || !ok {
		return false
	}
	return c.rangeExpr.Contains(v)
}

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// LessThan is a shorthand for an exclusive upper bound.
func LessThan(v float64) Range {
	return Range{lt: &v}
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }

// Contains reports whether v falls inside the range.
func (r Range) Contains(v float64) bool {
	if r.gt != nil && v <= *r.gt {
		return false
	}
	if r.gte != nil && v < *r.gte {
		return false
	}
	if r.lt != nil && v >= *r.lt {
		return false
	}
	if r.lte != nil && v > *r.lte {
		return false
	}
	return true
}
