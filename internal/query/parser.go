package query

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/notelog/internal/schema"
	"github.com/starford/notelog/internal/value"
)

// Literal shapes recognised at the current position. Each is then decoded
// through the value package so query values and note values agree.
var (
	numberLiteral    = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?`)
	dateLiteral      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	semverLiteral    = regexp.MustCompile(`^\d+(?:\.\d+(?:\.\d+)?)?(?:-[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*)?`)
	ffversionLiteral = regexp.MustCompile(`^\d+\.\d+\.\d+(?:-(?:\d+|SNAPSHOT))?`)
)

var (
	orderedOps = []Operator{OpLessEqual, OpGreaterEqual, OpNotEqual, OpLess, OpGreater, OpEqual}
	stringOps  = []Operator{OpFuzzy, OpNotEqual, OpContains, OpEqual}
	booleanOps = []Operator{OpNotEqual, OpEqual}
)

func opsFor(t schema.Type) []Operator {
	switch t {
	case schema.TypeString:
		return stringOps
	case schema.TypeBoolean:
		return booleanOps
	}
	return orderedOps
}

// Operators lists what may follow a field of type t: its comparison
// symbols, then the status keywords.
func Operators(t schema.Type) []string {
	ops := slices.Clone(opsFor(t))
	slices.Sort(ops)
	out := make([]string, 0, len(ops)+2)
	for _, op := range ops {
		out = append(out, op.String())
	}
	return append(out, Present.String(), Absent.String())
}

type fieldRule struct {
	field schema.Field
	// ops is ordered so a longer symbol is tried before its prefix.
	ops      []Operator
	expected []string
	enum     []string
}

// Parser parses queries over one schema. It is safe for concurrent use.
type Parser struct {
	rules      map[string]fieldRule
	fieldNames []string
}

// NewParser prepares the per-field operator and literal rules of s.
func NewParser(s *schema.Schema) *Parser {
	p := &Parser{rules: make(map[string]fieldRule)}
	for _, f := range s.All() {
		r := fieldRule{field: f, ops: opsFor(f.Type)}
		for _, op := range r.ops {
			r.expected = append(r.expected, quote(op.String()))
		}
		r.expected = append(r.expected, quote(Present.String()), quote(Absent.String()))
		if len(f.Enum) > 0 {
			r.enum = append([]string(nil), f.Enum...)
			sort.SliceStable(r.enum, func(i, j int) bool { return len(r.enum[i]) > len(r.enum[j]) })
		}
		p.rules[f.Name] = r
		p.fieldNames = append(p.fieldNames, quote(f.Name))
	}
	sort.Strings(p.fieldNames)
	return p
}

// Parse is shorthand for NewParser(s).Parse(q).
func Parse(s *schema.Schema, q string) (Expr, error) {
	return NewParser(s).Parse(q)
}

// Parse turns q into an expression. A blank query yields MatchAll. Failures
// are returned as *ParseError.
func (p *Parser) Parse(q string) (Expr, error) {
	st := &state{p: p, src: q, failAt: -1, expected: map[string]struct{}{}}
	pos := st.skipSpace(0)
	if pos == len(q) {
		return MatchAll{}, nil
	}
	e, end, ok := st.expression(pos)
	if ok {
		end = st.skipSpace(end)
		if end == len(q) {
			return e, nil
		}
		st.fail(end, "EOF")
	}
	return nil, st.err()
}

func quote(s string) string { return "'" + s + "'" }

func isBareRune(r rune) bool {
	return !unicode.IsSpace(r) && r != '(' && r != ')' && r != '"' && r != '\''
}

func isFieldByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_' || b == '.' || b == '-'
}

// state is one parse. It remembers the furthest position any alternative
// failed at together with everything that would have been accepted there.
type state struct {
	p        *Parser
	src      string
	failAt   int
	expected map[string]struct{}
}

func (s *state) fail(pos int, expected ...string) {
	if pos > s.failAt {
		s.failAt = pos
		clear(s.expected)
	}
	if pos == s.failAt {
		for _, e := range expected {
			s.expected[e] = struct{}{}
		}
	}
}

func (s *state) err() *ParseError {
	exp := make([]string, 0, len(s.expected))
	for e := range s.expected {
		exp = append(exp, e)
	}
	sort.Strings(exp)
	return &ParseError{Query: s.src, Index: indexOf(s.src, s.failAt), Expected: exp}
}

func (s *state) skipSpace(pos int) int {
	for pos < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[pos:])
		if !unicode.IsSpace(r) {
			break
		}
		pos += size
	}
	return pos
}

// boundary reports whether a word may end at pos.
func (s *state) boundary(pos int) bool {
	if pos >= len(s.src) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s.src[pos:])
	return unicode.IsSpace(r) || r == '(' || r == ')'
}

// word matches w at pos as a whole word.
func (s *state) word(pos int, w string) bool {
	return strings.HasPrefix(s.src[pos:], w) && s.boundary(pos+len(w))
}

// expression := term (('and' | 'or') expression)?
func (s *state) expression(pos int) (Expr, int, bool) {
	left, end, ok := s.term(pos)
	if !ok {
		return nil, 0, false
	}
	next := s.skipSpace(end)
	var conj Conj
	switch {
	case s.word(next, "and"):
		conj, next = And, next+len("and")
	case s.word(next, "or"):
		conj, next = Or, next+len("or")
	default:
		s.fail(next, "'and'", "'or'")
		return left, end, true
	}
	right, end, ok := s.expression(s.skipSpace(next))
	if !ok {
		return nil, 0, false
	}
	return Binary{Left: left, Conj: conj, Right: right}, end, true
}

// term := '(' expression ')' | single
func (s *state) term(pos int) (Expr, int, bool) {
	if pos < len(s.src) && s.src[pos] == '(' {
		inner, end, ok := s.expression(s.skipSpace(pos + 1))
		if !ok {
			return nil, 0, false
		}
		end = s.skipSpace(end)
		if end < len(s.src) && s.src[end] == ')' {
			return inner, end + 1, true
		}
		s.fail(end, "')'")
		return nil, 0, false
	}
	s.fail(pos, "'('")
	return s.single(pos)
}

// single := field (operator literal | 'present' | 'absent')
func (s *state) single(pos int) (Expr, int, bool) {
	end := pos
	for end < len(s.src) && isFieldByte(s.src[end]) {
		end++
	}
	rule, ok := s.p.rules[s.src[pos:end]]
	if !ok {
		s.fail(pos, s.p.fieldNames...)
		return nil, 0, false
	}
	name := rule.field.Name
	pos = s.skipSpace(end)

	for _, st := range []Status{Present, Absent} {
		if s.word(pos, st.String()) {
			return Single{Field: name, Op: OpStatus, Status: st}, pos + len(st.String()), true
		}
	}
	for _, op := range rule.ops {
		sym := op.String()
		if !strings.HasPrefix(s.src[pos:], sym) {
			continue
		}
		v, end, ok := s.literal(s.skipSpace(pos+len(sym)), rule)
		if !ok {
			return nil, 0, false
		}
		return Single{Field: name, Op: op, Value: v}, end, true
	}
	s.fail(pos, rule.expected...)
	return nil, 0, false
}

func (s *state) literal(pos int, rule fieldRule) (value.Value, int, bool) {
	f := rule.field
	rest := s.src[pos:]
	switch f.Type {
	case schema.TypeString:
		if len(rule.enum) > 0 {
			return s.enumLiteral(pos, rule)
		}
		text, end, ok := s.stringToken(pos)
		if !ok {
			s.fail(pos, "string")
			return nil, 0, false
		}
		return value.String(text), end, true

	case schema.TypeBoolean:
		for _, w := range []string{"true", "false"} {
			if s.word(pos, w) {
				return value.Boolean(w == "true"), pos + len(w), true
			}
		}
		s.fail(pos, "'false'", "'true'")
		return nil, 0, false

	case schema.TypeNumber:
		m := numberLiteral.FindString(rest)
		if m == "" {
			s.fail(pos, "number")
			return nil, 0, false
		}
		v, err := value.DecodeFromString(f, m)
		if err != nil {
			s.fail(pos, "finite number")
			return nil, 0, false
		}
		return v, pos + len(m), true

	case schema.TypeDate:
		m := dateLiteral.FindString(rest)
		if m == "" {
			s.fail(pos, "date(YYYY-MM-DD)")
			return nil, 0, false
		}
		d, err := value.ParseDate(m)
		if err != nil {
			// Well-formed but not on the calendar, reported past the literal.
			s.fail(pos+len(m), "valid calendar date")
			return nil, 0, false
		}
		return d, pos + len(m), true

	case schema.TypeSemver:
		m := semverLiteral.FindString(rest)
		if m == "" {
			s.fail(pos, "semver")
			return nil, 0, false
		}
		v, err := value.ParseSemverLoose(m)
		if err != nil {
			s.fail(pos, "semver")
			return nil, 0, false
		}
		return v, pos + len(m), true

	case schema.TypeFFVersion:
		m := ffversionLiteral.FindString(rest)
		if m == "" {
			s.fail(pos, "ffversion")
			return nil, 0, false
		}
		v, err := value.ParseFFVersion(m)
		if err != nil {
			s.fail(pos, "ffversion")
			return nil, 0, false
		}
		return v, pos + len(m), true
	}
	panic(fmt.Sprintf("query: unknown field type %d", int(f.Type)))
}

// stringToken reads a quoted string or a bare token.
func (s *state) stringToken(pos int) (string, int, bool) {
	if pos >= len(s.src) {
		return "", 0, false
	}
	if q := s.src[pos]; q == '"' || q == '\'' {
		i := strings.IndexByte(s.src[pos+1:], q)
		if i < 0 {
			return "", 0, false
		}
		return s.src[pos+1 : pos+1+i], pos + i + 2, true
	}
	end := pos
	for end < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[end:])
		if !isBareRune(r) {
			break
		}
		end += size
	}
	if end == pos {
		return "", 0, false
	}
	return s.src[pos:end], end, true
}

func (s *state) enumLiteral(pos int, rule fieldRule) (value.Value, int, bool) {
	rest := s.src[pos:]
	for _, e := range rule.enum {
		for _, q := range []string{`"`, `'`} {
			if strings.HasPrefix(rest, q+e+q) {
				return value.String(e), pos + len(e) + 2, true
			}
		}
		if s.word(pos, e) {
			return value.String(e), pos + len(e), true
		}
	}
	exp := make([]string, len(rule.enum))
	for i, e := range rule.enum {
		exp[i] = quote(e)
	}
	s.fail(pos, exp...)
	return nil, 0, false
}
