package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NotNullDev/nanomgmt/internal/domain"
)

// ErrInvalidPredicate is returned for filter or sort strings that do not
// follow the record filter grammar.
var ErrInvalidPredicate = errors.New("invalid predicate")

type Op string

const (
	OpEq  Op = "="
	OpNeq Op = "!="
	OpGte Op = ">="
	OpLte Op = "<="
	OpGt  Op = ">"
	OpLt  Op = "<"
	// OpAnyEq matches when any element of an array field equals the value.
	OpAnyEq Op = "?="
)

// ops is ordered so that two-character operators are tried first.
var ops = []Op{OpAnyEq, OpNeq, OpGte, OpLte, OpEq, OpGt, OpLt}

// Clause is one field comparison.
type Clause struct {
	Field string
	Op    Op
	Value string
}

func (c Clause) String() string {
	return c.Field + " " + string(c.Op) + " " + quote(c.Value)
}

// Predicate is a conjunction of clauses. The zero value matches everything.
type Predicate struct {
	Clauses []Clause
}

// Where starts a predicate from the given clauses.
func Where(clauses ...Clause) Predicate {
	return Predicate{Clauses: append([]Clause(nil), clauses...)}
}

// Eq is shorthand for an equality clause.
func Eq(field, value string) Clause {
	return Clause{Field: field, Op: OpEq, Value: value}
}

// And returns a new predicate with extra clauses appended.
func (p Predicate) And(clauses ...Clause) Predicate {
	out := make([]Clause, 0, len(p.Clauses)+len(clauses))
	out = append(out, p.Clauses...)
	out = append(out, clauses...)
	return Predicate{Clauses: out}
}

func (p Predicate) IsEmpty() bool { return len(p.Clauses) == 0 }

// Lookup returns the value of the first clause on field with op.
func (p Predicate) Lookup(field string, op Op) (string, bool) {
	for _, c := range p.Clauses {
		if c.Field == field && c.Op == op {
			return c.Value, true
		}
	}
	return "", false
}

func (p Predicate) String() string {
	parts := make([]string, len(p.Clauses))
	for i, c := range p.Clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, " && ")
}

func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// ParsePredicate reads the grammar produced by Predicate.String:
//
//	clause ("&&" clause)*
//	clause = field op 'value'
//
// Whitespace between tokens is optional. The empty string parses to the
// empty predicate.
func ParsePredicate(s string) (Predicate, error) {
	p := &parser{src: s}
	p.skipSpace()
	if p.done() {
		return Predicate{}, nil
	}
	var out Predicate
	for {
		c, err := p.clause()
		if err != nil {
			return Predicate{}, err
		}
		out.Clauses = append(out.Clauses, c)
		p.skipSpace()
		if p.done() {
			return out, nil
		}
		if !p.consume("&&") {
			return Predicate{}, p.errorf("expected && at offset %d", p.pos)
		}
	}
}

type parser struct {
	src string
	pos int
}

func (p *parser) done() bool { return p.pos >= len(p.src) }

func (p *parser) skipSpace() {
	for !p.done() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *parser) consume(tok string) bool {
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPredicate, fmt.Sprintf(format, args...))
}

func (p *parser) clause() (Clause, error) {
	p.skipSpace()
	field := p.field()
	if field == "" {
		return Clause{}, p.errorf("expected field name at offset %d", p.pos)
	}
	p.skipSpace()
	var op Op
	for _, candidate := range ops {
		if p.consume(string(candidate)) {
			op = candidate
			break
		}
	}
	if op == "" {
		return Clause{}, p.errorf("expected operator after %q", field)
	}
	p.skipSpace()
	value, err := p.value()
	if err != nil {
		return Clause{}, err
	}
	return Clause{Field: field, Op: op, Value: value}, nil
}

func (p *parser) field() string {
	start := p.pos
	for !p.done() {
		c := p.src[p.pos]
		if c == '.' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *parser) value() (string, error) {
	if !p.consume("'") {
		return "", p.errorf("expected quoted value at offset %d", p.pos)
	}
	var b strings.Builder
	for !p.done() {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case '\\':
			if p.done() {
				return "", p.errorf("dangling escape")
			}
			b.WriteByte(p.src[p.pos])
			p.pos++
		case '\'':
			return b.String(), nil
		default:
			b.WriteByte(c)
		}
	}
	return "", p.errorf("unterminated value")
}

// Sort is a single-field ordering directive. The zero value means the
// store's natural order.
type Sort struct {
	Field     string
	Direction domain.SortDirection
}

func (s Sort) IsZero() bool { return s.Field == "" || s.Direction == domain.SortNone }

// String renders +field or -field, or "" for the zero value.
func (s Sort) String() string {
	if s.IsZero() {
		return ""
	}
	if s.Direction == domain.SortDesc {
		return "-" + s.Field
	}
	return "+" + s.Field
}

// ParseSort reads +field, -field, or a bare field (ascending).
func ParseSort(s string) (Sort, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Sort{}, nil
	}
	dir := domain.SortAsc
	switch s[0] {
	case '-':
		dir = domain.SortDesc
		s = s[1:]
	case '+':
		s = s[1:]
	}
	p := &parser{src: s}
	if f := p.field(); f == "" || !p.done() {
		return Sort{}, fmt.Errorf("%w: bad sort field %q", ErrInvalidPredicate, s)
	}
	return Sort{Field: s, Direction: dir}, nil
}
