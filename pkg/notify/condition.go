package notify

// Operator names the comparison a Condition applies to a document field.
type Operator string

const (
	OpEquals           Operator = "equals"
	OpNotEquals        Operator = "notEquals"
	OpLessThan         Operator = "lessThan"
	OpLessOrEqual      Operator = "lessOrEqual"
	OpGreaterThan      Operator = "greaterThan"
	OpGreaterOrEqual   Operator = "greaterOrEqual"
	OpArrayContains    Operator = "arrayContains"
	OpArrayContainsAny Operator = "arrayContainsAny"
	OpIn               Operator = "in"
	OpNotIn            Operator = "notIn"
	OpIsNull           Operator = "isNull"
	OpIsNotNull        Operator = "isNotNull"
)

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpLessThan, OpLessOrEqual, OpGreaterThan, OpGreaterOrEqual,
		OpArrayContains, OpArrayContainsAny, OpIn, OpNotIn, OpIsNull, OpIsNotNull:
		return true
	}
	return false
}

// NeedsValue is false only for the null checks.
func (op Operator) NeedsValue() bool {
	return op != OpIsNull && op != OpIsNotNull
}

// NeedsList reports whether the operator compares against a list of values.
func (op Operator) NeedsList() bool {
	return op == OpArrayContainsAny || op == OpIn || op == OpNotIn
}

// Condition is a single filter applied to a document. Key is a field path.
type Condition struct {
	Op    Operator `json:"op" validate:"required"`
	Key   string   `json:"key" validate:"required"`
	Value any      `json:"value,omitempty"`
}
