package search

// Operator is a comparison operator in a query expression leaf.
type Operator int

const (
	// OpExists matches any attribute instance regardless of value.
	OpExists Operator = iota
	OpEqual              // =
	OpNotEqual           // !=
	OpContains           // *=*
	OpStartsWith         // =*
	OpEndsWith           // *=
	OpFuzzyEqual         // ~=
	OpFuzzyContains      // ~*
	OpRegex              // %=
	OpGreater            // >
	OpGreaterEqual       // >=
	OpLess               // <
	OpLessEqual          // <=
)

var operatorTokens = map[string]Operator{
	"=":   OpEqual,
	"!=":  OpNotEqual,
	"*=*": OpContains,
	"=*":  OpStartsWith,
	"*=":  OpEndsWith,
	"~=":  OpFuzzyEqual,
	"~*":  OpFuzzyContains,
	"%=":  OpRegex,
	">":   OpGreater,
	">=":  OpGreaterEqual,
	"<":   OpLess,
	"<=":  OpLessEqual,
}

func (op Operator) String() string {
	for tok, o := range operatorTokens {
		if o == op {
			return tok
		}
	}
	return "exists"
}

// isOrdering reports whether op compares magnitudes rather than strings.
func (op Operator) isOrdering() bool {
	switch op {
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		return true
	}
	return false
}

// NodeKind discriminates expression tree nodes. Rather than a type per
// operator, every node is this one tagged variant and the evaluator
// dispatches on Kind in a single switch.
type NodeKind int

const (
	// NodeTrue is the identity leaf: it passes its input set through.
	NodeTrue NodeKind = iota
	NodeAnd
	NodeOr
	NodeNot
	NodeFullText // bare token or quoted phrase
	NodeLabel    // #name [op value]
	NodeRelation // ~name [.property] [op value]
	NodeProperty // note.property op value
)

// Node is one node of the parsed expression tree. The tree is immutable
// once built; evaluation never mutates it.
type Node struct {
	Kind     NodeKind
	Children []*Node

	// Leaf payload.
	Name        string // attribute name or note property; "*" is a wildcard
	TargetProp  string // property of the relation target for dotted chains
	Op          Operator
	Value       string
	ValueIsDate bool // Value came from a resolved date keyword
}

// WildcardName matches any attribute name in label and relation terms.
const WildcardName = "*"
