package scim

import (
	"fmt"
	"strings"
)

type FilterOperator string

const (
	FilterOperatorEqual      FilterOperator = "eq"
	FilterOperatorNotEqual   FilterOperator = "ne"
	FilterOperatorContains   FilterOperator = "co"
	FilterOperatorStartsWith FilterOperator = "sw"
	FilterOperatorEndsWith   FilterOperator = "ew"
)

// FilterExpression is an interface for filter expressions in SCIM.
// It can be a comparison or logical operation.
type FilterExpression interface {
	ToString() string
}

// NullFilterExpression is a placeholder for an empty/nil filter expression.
type NullFilterExpression struct{}

func (f NullFilterExpression) ToString() string {
	return ""
}

// FilterComparison represents a comparison filter expression.
//
// The value is embedded verbatim between double quotes. Embedded `"`
// characters are not escaped; a value containing quotes produces a malformed
// filter.
type FilterComparison struct {
	Attribute string
	Operator  FilterOperator
	Value     string
}

func (f FilterComparison) ToString() string {
	return fmt.Sprintf("%s %s \"%s\"", f.Attribute, f.Operator, f.Value)
}

// FilterLogicalGroupAnd represents a logical AND group of filter expressions.
type FilterLogicalGroupAnd struct {
	Expressions []FilterExpression
}

func (f FilterLogicalGroupAnd) ToString() string {
	return joinExpressions(f.Expressions, " and ")
}

// FilterLogicalGroupOr represents a logical OR group of filter expressions.
type FilterLogicalGroupOr struct {
	Expressions []FilterExpression
}

func (f FilterLogicalGroupOr) ToString() string {
	return joinExpressions(f.Expressions, " or ")
}

// FilterLogicalGroupNot represents a logical NOT operation on a filter expression.
type FilterLogicalGroupNot struct {
	Expression FilterExpression
}

func (f FilterLogicalGroupNot) ToString() string {
	return "not " + f.Expression.ToString()
}

func joinExpressions(expressions []FilterExpression, separator string) string {
	exprStrings := make([]string, len(expressions))
	for i, expr := range expressions {
		exprStrings[i] = expr.ToString()
	}

	return fmt.Sprintf("(%s)", strings.Join(exprStrings, separator))
}
