package expr

import "strconv"

// Op identifies a binary operator in the expression language. The set is
// closed: the parser only ever produces operators listed here, and the
// evaluator rejects anything else, so quiz-author input can never reach
// host-language facilities.
type Op string

const (
	OpAdd Op = "+"
	OpSub Op = "-"
	OpMul Op = "*"
	OpDiv Op = "/"
	OpPow Op = "**"

	OpEq  Op = "=="
	OpNeq Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// IsComparison reports whether the operator is one of the comparison
// operators. At most one comparison may appear in a single expression.
func (o Op) IsComparison() bool {
	switch o {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// Node is a node of the parsed expression tree.
type Node interface {
	node()
}

// Literal is a numeric or boolean constant.
type Literal struct {
	Value Value
}

// Ident is a reference to a variable supplied by the caller.
type Ident struct {
	Name string
}

// Binary applies Op to the results of Left and Right.
type Binary struct {
	Op    Op
	Left  Node
	Right Node
}

func (Literal) node() {}
func (Ident) node()   {}
func (Binary) node()  {}

// ValueKind discriminates the runtime value union.
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindBool
	KindString
)

// Value is the result of evaluating an expression, and also the type of
// variables supplied to Evaluate. Strings never appear as literals in the
// language; the kind exists only so free-text answers can participate in
// equality checks.
type Value struct {
	Kind ValueKind
	Num  float64
	Bool bool
	Str  string
}

func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func Bool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func String(s string) Value  { return Value{Kind: KindString, Str: s} }

// Equal compares two values. Values of different kinds are never equal;
// this is how "answer == 1" behaves when a free-text answer arrives.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == other.Num
	case KindBool:
		return v.Bool == other.Bool
	default:
		return v.Str == other.Str
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// FromAny converts a decoded JSON value into a Value. Integers and floats
// both map to KindNumber, matching the numeric model of the language.
func FromAny(raw any) (Value, bool) {
	switch t := raw.(type) {
	case float64:
		return Number(t), true
	case float32:
		return Number(float64(t)), true
	case int:
		return Number(float64(t)), true
	case int64:
		return Number(float64(t)), true
	case bool:
		return Bool(t), true
	case string:
		return String(t), true
	}
	return Value{}, false
}
