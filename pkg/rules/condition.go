package rules

// Operator is a comparison operator applied to a resolved field value.
type Operator string

const (
	// OperatorEqual compares by string representation (loose typing).
	OperatorEqual Operator = "eq"

	// OperatorNotEqual is the negation of OperatorEqual.
	OperatorNotEqual Operator = "ne"

	// OperatorGreaterThan compares numerically or chronologically per ValueType.
	OperatorGreaterThan Operator = "gt"

	// OperatorGreaterEqual compares numerically or chronologically per ValueType.
	OperatorGreaterEqual Operator = "gte"

	// OperatorLessThan compares numerically or chronologically per ValueType.
	OperatorLessThan Operator = "lt"

	// OperatorLessEqual compares numerically or chronologically per ValueType.
	OperatorLessEqual Operator = "lte"

	// OperatorContains is a case-insensitive substring match.
	OperatorContains Operator = "contains"

	// OperatorMatches compiles the expected value as a regular expression
	// and searches it against the stringified field value.
	OperatorMatches Operator = "matches"

	// OperatorExists is true iff the field path resolves to a value.
	// The expected value is ignored.
	OperatorExists Operator = "exists"
)

// ValueType selects the comparison semantics for ordering operators.
type ValueType string

const (
	// ValueTypeString compares values as strings.
	ValueTypeString ValueType = "string"

	// ValueTypeNumber coerces both sides to float64 before comparing.
	ValueTypeNumber ValueType = "number"

	// ValueTypeDate parses both sides as timestamps and compares
	// chronologically.
	ValueTypeDate ValueType = "date"
)

// ConditionKind discriminates leaf conditions from composite nodes.
type ConditionKind string

const (
	// KindSimple is a leaf condition: field, operator, expected value.
	KindSimple ConditionKind = "simple"

	// KindAll is satisfied when every child is satisfied. With no
	// children it is vacuously true.
	KindAll ConditionKind = "all"

	// KindAny is satisfied when at least one child is satisfied. With no
	// children it is false.
	KindAny ConditionKind = "any"

	// KindNot negates its first child. Additional children are ignored.
	KindNot ConditionKind = "not"
)

// Condition is one node of a condition tree. Leaf nodes (KindSimple) carry
// a field path, operator, and expected value; composite nodes carry
// children. Conditions are immutable once built and safe to evaluate
// concurrently.
type Condition struct {
	// Kind discriminates the node type. An empty Kind with a non-empty
	// Field is treated as KindSimple, which keeps hand-written YAML terse.
	Kind ConditionKind `yaml:"kind,omitempty"`

	// Field is the field path into the fact context (leaf nodes only).
	Field string `yaml:"field,omitempty"`

	// Operator is the comparison operator (leaf nodes only).
	Operator Operator `yaml:"operator,omitempty"`

	// Value is the expected value (ignored by OperatorExists).
	Value any `yaml:"value,omitempty"`

	// ValueType selects comparison semantics for ordering operators.
	// Defaults to ValueTypeString.
	ValueType ValueType `yaml:"value_type,omitempty"`

	// Children are the sub-conditions of a composite node.
	Children []*Condition `yaml:"children,omitempty"`
}

// kind returns the effective node kind, applying the leaf default.
func (c *Condition) kind() ConditionKind {
	if c.Kind != "" {
		return c.Kind
	}
	return KindSimple
}

// All builds a composite AND condition.
func All(children ...*Condition) *Condition {
	return &Condition{Kind: KindAll, Children: children}
}

// Any builds a composite OR condition.
func Any(children ...*Condition) *Condition {
	return &Condition{Kind: KindAny, Children: children}
}

// Not builds a negation of the given condition.
func Not(child *Condition) *Condition {
	return &Condition{Kind: KindNot, Children: []*Condition{child}}
}

// Field builds a leaf condition.
func Field(path string, op Operator, value any) *Condition {
	return &Condition{Field: path, Operator: op, Value: value}
}

// FieldTyped builds a leaf condition with explicit comparison semantics.
func FieldTyped(path string, op Operator, value any, vt ValueType) *Condition {
	return &Condition{Field: path, Operator: op, Value: value, ValueType: vt}
}

// Exists builds a leaf condition that is true iff the path resolves.
func Exists(path string) *Condition {
	return &Condition{Field: path, Operator: OperatorExists}
}
