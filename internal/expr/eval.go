package expr

import (
	"fmt"
	"math"
)

// Evaluate parses and evaluates an expression against a fixed variable
// set. Every identifier in the expression must resolve through vars; an
// unresolved identifier fails with an EvalError rather than defaulting,
// because expressions come from quiz authors who are not trusted to name
// anything outside the declared scores and the reserved "answer".
func Evaluate(expression string, vars map[string]Value) (Value, error) {
	node, err := Parse(expression)
	if err != nil {
		return Value{}, err
	}
	return evalNode(expression, node, vars)
}

// EvaluateBool evaluates a condition expression and requires a boolean
// result. A numeric result is a type mismatch, not truthiness.
func EvaluateBool(expression string, vars map[string]Value) (bool, error) {
	val, err := Evaluate(expression, vars)
	if err != nil {
		return false, err
	}
	if val.Kind != KindBool {
		return false, newEvalError(expression, ReasonTypeMismatch, "condition did not evaluate to a boolean")
	}
	return val.Bool, nil
}

// EvaluateNumber evaluates an expression and requires a numeric result.
// Score assignments go through here.
func EvaluateNumber(expression string, vars map[string]Value) (float64, error) {
	val, err := Evaluate(expression, vars)
	if err != nil {
		return 0, err
	}
	if val.Kind != KindNumber {
		return 0, newEvalError(expression, ReasonTypeMismatch, "expression did not evaluate to a number")
	}
	return val.Num, nil
}

// Check statically probes an expression: it must parse under the closed
// grammar and reference only identifiers from idents. Used by the quiz
// validator so every embedded expression is vetted before a quiz is ever
// played.
func Check(expression string, idents map[string]struct{}) error {
	node, err := Parse(expression)
	if err != nil {
		return err
	}
	return checkIdents(expression, node, idents)
}

func checkIdents(expression string, node Node, idents map[string]struct{}) error {
	switch n := node.(type) {
	case Literal:
		return nil
	case Ident:
		if _, ok := idents[n.Name]; !ok {
			return newEvalError(expression, ReasonUnauthorizedVariable, n.Name)
		}
		return nil
	case Binary:
		if err := checkIdents(expression, n.Left, idents); err != nil {
			return err
		}
		return checkIdents(expression, n.Right, idents)
	default:
		return newEvalError(expression, ReasonSyntax, "unknown node kind")
	}
}

// evalNode dispatches per node kind. An unknown kind is a hard error: the
// grammar is closed and nothing may slip through as a silent no-op.
func evalNode(expression string, node Node, vars map[string]Value) (Value, error) {
	switch n := node.(type) {
	case Literal:
		return n.Value, nil

	case Ident:
		val, ok := vars[n.Name]
		if !ok {
			return Value{}, newEvalError(expression, ReasonUnauthorizedVariable, n.Name)
		}
		return val, nil

	case Binary:
		left, err := evalNode(expression, n.Left, vars)
		if err != nil {
			return Value{}, err
		}
		right, err := evalNode(expression, n.Right, vars)
		if err != nil {
			return Value{}, err
		}
		return applyBinary(expression, n.Op, left, right)

	default:
		return Value{}, newEvalError(expression, ReasonSyntax, "unknown node kind")
	}
}

func applyBinary(expression string, op Op, left, right Value) (Value, error) {
	switch op {
	case OpEq:
		return Bool(left.Equal(right)), nil
	case OpNeq:
		return Bool(!left.Equal(right)), nil

	case OpLt, OpLte, OpGt, OpGte:
		if left.Kind != KindNumber || right.Kind != KindNumber {
			return Value{}, newEvalError(expression, ReasonTypeMismatch,
				fmt.Sprintf("operator %q requires numeric operands", op))
		}
		switch op {
		case OpLt:
			return Bool(left.Num < right.Num), nil
		case OpLte:
			return Bool(left.Num <= right.Num), nil
		case OpGt:
			return Bool(left.Num > right.Num), nil
		default:
			return Bool(left.Num >= right.Num), nil
		}

	case OpAdd, OpSub, OpMul, OpDiv, OpPow:
		if left.Kind != KindNumber || right.Kind != KindNumber {
			return Value{}, newEvalError(expression, ReasonTypeMismatch,
				fmt.Sprintf("operator %q requires numeric operands", op))
		}
		switch op {
		case OpAdd:
			return Number(left.Num + right.Num), nil
		case OpSub:
			return Number(left.Num - right.Num), nil
		case OpMul:
			return Number(left.Num * right.Num), nil
		case OpDiv:
			// IEEE 754 semantics: division by zero yields +-Inf, not an error.
			return Number(left.Num / right.Num), nil
		default:
			return Number(math.Pow(left.Num, right.Num)), nil
		}

	default:
		return Value{}, newEvalError(expression, ReasonDisallowedOperator, string(op))
	}
}
