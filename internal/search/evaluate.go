package search

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/trellis-notes/trellis/internal/graph"
	"github.com/trellis-notes/trellis/internal/logger"
	"github.com/trellis-notes/trellis/internal/models"
)

// Evaluator walks an expression tree against a working note set. For a
// well-formed tree evaluation never fails: every operator has a defined
// false/empty fallback for type-mismatched operands.
type Evaluator struct {
	store *graph.Store
	ctx   *Context
}

func NewEvaluator(store *graph.Store, ctx *Context) *Evaluator {
	return &Evaluator{store: store, ctx: ctx}
}

// Evaluate produces the subset of input matching node. A single switch on
// the node kind keeps operator dispatch exhaustive.
func (e *Evaluator) Evaluate(node *Node, input *NoteSet) *NoteSet {
	switch node.Kind {
	case NodeTrue:
		return input

	case NodeAnd:
		// Folding the set through the children is equivalent to
		// intersecting their evaluations and skips discarded notes early.
		current := input
		for _, child := range node.Children {
			current = e.Evaluate(child, current)
		}
		return current

	case NodeOr:
		result := NewNoteSet()
		for _, child := range node.Children {
			result = result.Union(e.Evaluate(child, input))
		}
		return result

	case NodeNot:
		return input.Subtract(e.Evaluate(node.Children[0], input))

	case NodeFullText:
		return e.evalFullText(node, input)

	case NodeLabel:
		return e.evalLabel(node, input)

	case NodeRelation:
		return e.evalRelation(node, input)

	case NodeProperty:
		return e.evalProperty(node, input)
	}

	return NewNoteSet()
}

// compileRegex compiles the pattern of a %= leaf once per evaluation. An
// invalid pattern degrades to "no match" instead of propagating an error.
func compileRegex(node *Node) (*regexp.Regexp, bool) {
	if node.Op != OpRegex {
		return nil, true
	}
	re, err := regexp.Compile("(?i)" + node.Value)
	if err != nil {
		logger.Debug("Invalid regex pattern %q degrades to no match: %v", node.Value, err)
		return nil, false
	}
	return re, true
}

func (e *Evaluator) evalFullText(node *Node, input *NoteSet) *NoteSet {
	needle := normalizeString(node.Value)
	result := NewNoteSet()
	if needle == "" {
		return result
	}

	fuzzy := e.ctx.EnableFuzzyMatching && len(needle) >= minFuzzyTokenLength

	for _, note := range input.SortedNotes() {
		if e.fullTextMatches(note, needle, fuzzy) {
			result.Add(note)
		}
	}
	return result
}

func (e *Evaluator) fullTextMatches(note *models.Note, needle string, fuzzy bool) bool {
	if textMatches(note.Title, needle, fuzzy) {
		return true
	}
	for _, attr := range e.store.Attributes(note.NoteID) {
		if textMatches(attr.Name, needle, fuzzy) {
			return true
		}
		if _, isLabel := attr.LabelValue(); isLabel && textMatches(attr.Value, needle, fuzzy) {
			return true
		}
	}
	if !e.ctx.FastSearch && textMatches(note.Content, needle, fuzzy) {
		return true
	}
	return false
}

func textMatches(haystack, needle string, fuzzy bool) bool {
	h := normalizeString(haystack)
	if strings.Contains(h, needle) {
		return true
	}
	if !fuzzy {
		return false
	}
	return fuzzyContains(h, needle)
}

func (e *Evaluator) evalLabel(node *Node, input *NoteSet) *NoteSet {
	result := NewNoteSet()
	re, ok := compileRegex(node)
	if !ok {
		return result
	}

	for _, note := range input.SortedNotes() {
		for _, attr := range e.store.Attributes(note.NoteID) {
			if attr.Type != models.AttributeLabel {
				continue
			}
			if node.Name != WildcardName && !strings.EqualFold(attr.Name, node.Name) {
				continue
			}
			if node.Op == OpExists || e.compare(node, re, attr.Value) {
				result.Add(note)
				break
			}
		}
	}
	return result
}

// evalRelation matches relation terms. A wildcard name matches both
// explicit relations and the implicit tree-derived edges (child branches)
// without a named-attribute lookup. A dotted chain compares a property of
// the relation's target note; a bare operator compares the target's title.
func (e *Evaluator) evalRelation(node *Node, input *NoteSet) *NoteSet {
	result := NewNoteSet()
	re, ok := compileRegex(node)
	if !ok {
		return result
	}

	for _, note := range input.SortedNotes() {
		if node.Name == WildcardName && node.Op == OpExists {
			if e.store.RelationCount(note.NoteID) > 0 || e.store.ChildrenCount(note.NoteID) > 0 {
				result.Add(note)
			}
			continue
		}

		for _, attr := range e.store.Attributes(note.NoteID) {
			if attr.Type != models.AttributeRelation {
				continue
			}
			if node.Name != WildcardName && !strings.EqualFold(attr.Name, node.Name) {
				continue
			}
			if node.Op == OpExists {
				result.Add(note)
				break
			}

			// Missing targets are tolerated as non-matches.
			target := e.store.GetNote(attr.Value)
			if target == nil {
				continue
			}

			var operand string
			if node.TargetProp != "" {
				val, ok := e.propertyValue(target, node.TargetProp)
				if !ok {
					continue
				}
				operand = val
			} else {
				operand = target.Title
			}

			if e.compare(node, re, operand) {
				result.Add(note)
				break
			}
		}
	}
	return result
}

func (e *Evaluator) evalProperty(node *Node, input *NoteSet) *NoteSet {
	result := NewNoteSet()
	re, ok := compileRegex(node)
	if !ok {
		return result
	}

	for _, note := range input.SortedNotes() {
		value, known := e.propertyValue(note, node.Name)
		if !known {
			continue
		}
		if e.compare(node, re, value) {
			result.Add(note)
		}
	}
	return result
}

// propertyValue reads the fixed vocabulary of note properties. Unknown
// property names make the leaf a non-match rather than an error.
func (e *Evaluator) propertyValue(note *models.Note, name string) (string, bool) {
	switch strings.ToLower(name) {
	case "noteid":
		return note.NoteID, true
	case "title":
		return note.Title, true
	case "type":
		return note.Type, true
	case "mime":
		return note.Mime, true
	case "isprotected":
		return strconv.FormatBool(note.IsProtected), true
	case "isarchived":
		return strconv.FormatBool(e.store.IsArchived(note.NoteID)), true
	case "datecreated":
		return note.DateCreated, true
	case "datemodified":
		return note.DateModified, true
	case "utcdatecreated":
		return note.UTCDateCreated, true
	case "utcdatemodified":
		return note.UTCDateModified, true
	case "content":
		if e.ctx.FastSearch {
			return "", false
		}
		return note.Content, true
	case "contentsize":
		return strconv.Itoa(len(note.Content)), true
	case "parentcount":
		return strconv.Itoa(e.store.ParentCount(note.NoteID)), true
	case "childrencount":
		return strconv.Itoa(e.store.ChildrenCount(note.NoteID)), true
	case "revisioncount":
		return strconv.Itoa(e.store.RevisionCount(note.NoteID)), true
	case "labelcount":
		return strconv.Itoa(e.store.LabelCount(note.NoteID)), true
	case "relationcount":
		return strconv.Itoa(e.store.RelationCount(note.NoteID)), true
	case "attributecount":
		return strconv.Itoa(e.store.AttributeCount(note.NoteID)), true
	case "targetrelationcount":
		return strconv.Itoa(e.store.TargetRelationCount(note.NoteID)), true
	}
	return "", false
}

// compare applies a leaf operator to one discovered value. All string
// operators are case-insensitive and diacritic-insensitive.
func (e *Evaluator) compare(node *Node, re *regexp.Regexp, actual string) bool {
	expected := normalizeString(node.Value)
	actualNorm := normalizeString(actual)

	switch node.Op {
	case OpExists:
		return true

	case OpEqual:
		if actualNorm == expected {
			return true
		}
		if e.ctx.FuzzyAttributeSearch && e.ctx.EnableFuzzyMatching &&
			len(expected) >= minFuzzyTokenLength {
			return fuzzyEqual(actualNorm, expected)
		}
		return false

	case OpNotEqual:
		return actualNorm != expected

	case OpContains:
		return strings.Contains(actualNorm, expected)

	case OpStartsWith:
		return strings.HasPrefix(actualNorm, expected)

	case OpEndsWith:
		return strings.HasSuffix(actualNorm, expected)

	case OpFuzzyEqual:
		if !e.ctx.EnableFuzzyMatching || len(expected) < minFuzzyTokenLength {
			return actualNorm == expected
		}
		return fuzzyEqual(actualNorm, expected)

	case OpFuzzyContains:
		if !e.ctx.EnableFuzzyMatching || len(expected) < minFuzzyTokenLength {
			return strings.Contains(actualNorm, expected)
		}
		return fuzzyContains(actualNorm, expected)

	case OpRegex:
		return re != nil && re.MatchString(actual)

	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		return compareOrdered(node.Op, actualNorm, expected, node.ValueIsDate)
	}

	return false
}

// compareOrdered handles the magnitude operators. A resolved date keyword
// forces date semantics; any other operand pair tries numeric coercion
// first, so a bare number like "1000" never gets year semantics. Date
// comparison only applies when both operands carry a date shape, and
// operands that are neither numeric nor dates make the comparison false.
func compareOrdered(op Operator, actual, expected string, expectedIsDate bool) bool {
	if expectedIsDate {
		if !dateShaped(actual) {
			return false
		}
		return orderedStrings(op, actual, expected)
	}

	a, errA := strconv.ParseFloat(actual, 64)
	b, errB := strconv.ParseFloat(expected, 64)
	if errA == nil && errB == nil {
		return orderedFloats(op, a, b)
	}

	if looksLikeDate(expected) && dateShaped(actual) {
		return orderedStrings(op, actual, expected)
	}
	return false
}

// dateShaped accepts a date literal or a "date time" timestamp.
func dateShaped(value string) bool {
	return looksLikeDate(value) || looksLikeDate(strings.SplitN(value, " ", 2)[0])
}

// orderedStrings compares resolved date literals, which sort
// lexicographically in chronological order.
func orderedStrings(op Operator, actual, expected string) bool {
	switch op {
	case OpGreater:
		return actual > expected
	case OpGreaterEqual:
		return actual >= expected
	case OpLess:
		return actual < expected
	case OpLessEqual:
		return actual <= expected
	}
	return false
}

func orderedFloats(op Operator, a, b float64) bool {
	switch op {
	case OpGreater:
		return a > b
	case OpGreaterEqual:
		return a >= b
	case OpLess:
		return a < b
	case OpLessEqual:
		return a <= b
	}
	return false
}
