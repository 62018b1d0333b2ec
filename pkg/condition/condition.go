// Package condition provides safe evaluation of transition condition
// expressions against a flat variable context. Expressions are a single
// comparison of the form "variable op literal"; there is no arbitrary
// code execution.
package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chatforge/chatforge/pkg/models"
)

// ErrMalformedCondition indicates an expression that could not be parsed
// or evaluated. Callers in the simulator treat it as "condition false".
var ErrMalformedCondition = errors.New("malformed condition")

// Supported comparison operators, matched longest-first so ">=" is not
// split into ">" and "=".
var operators = []string{"==", "!=", ">=", "<=", ">", "<", "contains", "startsWith"}

// Evaluate parses and evaluates a condition expression. An empty
// expression is unconditionally true (fallback edge semantics).
func Evaluate(expression string, vars models.VariableContext) (bool, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return true, nil
	}

	expr, err := Parse(expression)
	if err != nil {
		return false, err
	}

	return expr.Evaluate(vars)
}

// Expr is a parsed condition: one variable reference, one operator, one
// literal operand.
type Expr struct {
	Variable string
	Operator string
	Literal  any
}

// Parse splits an expression into variable, operator and literal. Anything
// outside the supported grammar yields ErrMalformedCondition.
func Parse(expression string) (*Expr, error) {
	expression = strings.TrimSpace(expression)

	op, idx := findOperator(expression)
	if op == "" {
		return nil, fmt.Errorf("%w: no operator in %q", ErrMalformedCondition, expression)
	}

	lhs := strings.TrimSpace(expression[:idx])
	rhs := strings.TrimSpace(expression[idx+len(op):])

	if !isIdentifier(lhs) {
		return nil, fmt.Errorf("%w: left-hand side %q is not a variable name", ErrMalformedCondition, lhs)
	}

	literal, err := parseLiteral(rhs)
	if err != nil {
		return nil, err
	}

	return &Expr{Variable: lhs, Operator: op, Literal: literal}, nil
}

// Evaluate compares the variable's current value against the literal.
// A missing variable makes every comparison false except "!=".
func (e *Expr) Evaluate(vars models.VariableContext) (bool, error) {
	value, ok := vars[e.Variable]
	if !ok {
		return e.Operator == "!=", nil
	}

	switch e.Operator {
	case "==":
		return looselyEqual(value, e.Literal), nil
	case "!=":
		return !looselyEqual(value, e.Literal), nil
	case ">", "<", ">=", "<=":
		left, leftOK := toFloat(value)

		right, rightOK := toFloat(e.Literal)
		if !leftOK || !rightOK {
			return false, fmt.Errorf("%w: %q is not a numeric comparison", ErrMalformedCondition, e.Variable)
		}

		switch e.Operator {
		case ">":
			return left > right, nil
		case "<":
			return left < right, nil
		case ">=":
			return left >= right, nil
		default:
			return left <= right, nil
		}
	case "contains":
		return strings.Contains(toString(value), toString(e.Literal)), nil
	case "startsWith":
		return strings.HasPrefix(toString(value), toString(e.Literal)), nil
	default:
		return false, fmt.Errorf("%w: unsupported operator %q", ErrMalformedCondition, e.Operator)
	}
}

// findOperator locates the first supported operator outside of quotes.
func findOperator(expression string) (string, int) {
	inQuote := byte(0)

	for i := 0; i < len(expression); i++ {
		c := expression[i]

		if inQuote != 0 {
			if c == inQuote {
				inQuote = 0
			}

			continue
		}

		if c == '\'' || c == '"' {
			inQuote = c

			continue
		}

		for _, op := range operators {
			if strings.HasPrefix(expression[i:], op) {
				// Word operators must be standalone tokens.
				if op == "contains" || op == "startsWith" {
					if i == 0 || expression[i-1] != ' ' {
						continue
					}

					end := i + len(op)
					if end < len(expression) && expression[end] != ' ' {
						continue
					}
				}

				return op, i
			}
		}
	}

	return "", -1
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9', r == '.':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// parseLiteral accepts quoted strings, numbers and booleans.
func parseLiteral(raw string) (any, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: missing right-hand side", ErrMalformedCondition)
	}

	if len(raw) >= 2 {
		first, last := raw[0], raw[len(raw)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			return raw[1 : len(raw)-1], nil
		}
	}

	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n, nil
	}

	if b, err := strconv.ParseBool(raw); err == nil {
		return b, nil
	}

	return nil, fmt.Errorf("%w: right-hand side %q is not a literal", ErrMalformedCondition, raw)
}

// looselyEqual compares numerically when both sides are numbers, otherwise
// by string form. Question answers arrive as strings, so "18 == 18.0" and
// "status == 'active'" both behave as authors expect.
func looselyEqual(a, b any) bool {
	if left, ok := toFloat(a); ok {
		if right, rightOK := toFloat(b); rightOK {
			return left == right
		}
	}

	return toString(a) == toString(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)

		return f, err == nil
	case bool:
		if n {
			return 1, true
		}

		return 0, true
	default:
		return 0, false
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}
