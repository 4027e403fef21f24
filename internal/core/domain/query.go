package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Operator is a comparison applied by a Condition.
type Operator string

// Supported operators.
const (
	OpEq     Operator = "eq"
	OpNe     Operator = "ne"
	OpIn     Operator = "in"
	OpNin    Operator = "nin"
	OpExists Operator = "exists"
	OpLt     Operator = "lt"
	OpLte    Operator = "lte"
	OpGt     Operator = "gt"
	OpGte    Operator = "gte"
)

// Operators lists every supported operator.
var Operators = []Operator{OpEq, OpNe, OpIn, OpNin, OpExists, OpLt, OpLte, OpGt, OpGte}

// Valid reports whether the operator is supported.
func (o Operator) Valid() bool {
	for _, op := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// MatchesMissing reports whether the operator holds for an absent value.
func (o Operator) MatchesMissing(expected any) bool {
	switch o {
	case OpNe, OpNin:
		return true
	case OpExists:
		b, _ := expected.(bool)
		return !b
	default:
		return false
	}
}

// Condition is a single predicate on a document path.
type Condition struct {
	// Path is the attribute path, e.g. ["fields", "author", "fields", "name"].
	// Locale segments are not part of the path; they come from Locales.
	Path []string

	// Op is the comparison operator.
	Op Operator

	// Expected is the value compared against.
	Expected any

	// Locales is the fallback chain tried for every localized field on the path.
	Locales []string
}

// Field returns the dotted path.
func (c Condition) Field() string {
	return strings.Join(c.Path, ".")
}

// String returns a stable serialization used for cache keys and logging.
func (c Condition) String() string {
	expected, err := json.Marshal(c.Expected)
	if err != nil {
		expected = []byte(fmt.Sprintf("%v", c.Expected))
	}
	return fmt.Sprintf("%s[%s]=%s@%s", c.Field(), c.Op, expected, strings.Join(c.Locales, ","))
}

// LocaleAll requests every locale of a document.
const LocaleAll = "*"

// FindOptions controls how a Store reads documents.
type FindOptions struct {
	// Locale selects the locale. Empty means the store default, LocaleAll every locale.
	Locale string

	// Include is the link resolution depth. Zero leaves links unresolved.
	Include int
}

// FindOption configures FindOptions.
type FindOption func(*FindOptions)

// WithLocale sets the requested locale.
func WithLocale(locale string) FindOption {
	return func(o *FindOptions) {
		o.Locale = locale
	}
}

// WithInclude sets the link resolution depth.
func WithInclude(depth int) FindOption {
	return func(o *FindOptions) {
		if depth < 0 {
			depth = 0
		}
		o.Include = depth
	}
}

// NewFindOptions applies opts over the zero FindOptions.
func NewFindOptions(opts ...FindOption) FindOptions {
	var o FindOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Options converts FindOptions back to a FindOption list for forwarding.
func (o FindOptions) Options() []FindOption {
	return []FindOption{WithLocale(o.Locale), WithInclude(o.Include)}
}
