package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
)

var sqlOps = map[query.Op]string{
	query.OpEq:  "=",
	query.OpNeq: "<>",
	query.OpGte: ">=",
	query.OpLte: "<=",
	query.OpGt:  ">",
	query.OpLt:  "<",
}

// where translates a predicate into a WHERE clause with bind args.
// Array fields only support ?=, which matches through json_each.
func (s *tableSpec) where(p query.Predicate) (string, []any, error) {
	if p.IsEmpty() {
		return "", nil, nil
	}
	parts := make([]string, 0, len(p.Clauses))
	args := make([]any, 0, len(p.Clauses))
	for _, c := range p.Clauses {
		f, ok := s.fields[c.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s has no field %q", query.ErrInvalidPredicate, s.collection, c.Field)
		}
		arg, err := bindValue(f.kind, c.Value)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s: %v", query.ErrInvalidPredicate, c.Field, err)
		}
		switch {
		case f.kind == kindList && c.Op == query.OpAnyEq:
			parts = append(parts, "EXISTS (SELECT 1 FROM json_each("+f.expr+") WHERE json_each.value = ?)")
		case f.kind == kindList:
			return "", nil, fmt.Errorf("%w: %s only supports ?=", query.ErrInvalidPredicate, c.Field)
		case c.Op == query.OpAnyEq:
			parts = append(parts, f.expr+" = ?")
		default:
			op, ok := sqlOps[c.Op]
			if !ok {
				return "", nil, fmt.Errorf("%w: operator %q", query.ErrInvalidPredicate, c.Op)
			}
			parts = append(parts, f.expr+" "+op+" ?")
		}
		args = append(args, arg)
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (s *tableSpec) orderBy(sort query.Sort) (string, error) {
	if sort.IsZero() {
		return " ORDER BY " + s.defaultOrder, nil
	}
	f, ok := s.fields[sort.Field]
	if !ok || f.kind == kindList {
		return "", fmt.Errorf("%w: cannot sort %s by %q", query.ErrInvalidPredicate, s.collection, sort.Field)
	}
	dir := "ASC"
	if sort.Direction == domain.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, %s.id ASC", f.expr, dir, s.alias), nil
}

func bindValue(k kind, v string) (any, error) {
	switch k {
	case kindNumber:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	case kindTimestamp:
		t, err := domain.ParseTimestamp(v)
		if err != nil {
			return nil, err
		}
		return domain.FormatTimestamp(t), nil
	default:
		return v, nil
	}
}

func (s *tableSpec) selectList() string {
	cols := make([]string, 0, len(s.columns)+len(s.display))
	for _, c := range s.columns {
		cols = append(cols, s.alias+"."+c.name)
	}
	for _, d := range s.display {
		cols = append(cols, d.expr)
	}
	return strings.Join(cols, ", ")
}

func (s *tableSpec) from() string {
	return " FROM " + s.table + " " + s.alias + s.joins
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *tableSpec) scan(row scanner) (domain.Record, error) {
	dest := make([]any, 0, len(s.columns)+len(s.display))
	for _, c := range s.columns {
		if c.kind == kindNumber {
			dest = append(dest, new(sql.NullFloat64))
		} else {
			dest = append(dest, new(sql.NullString))
		}
	}
	for range s.display {
		dest = append(dest, new(sql.NullString))
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	rec := make(domain.Record, len(dest))
	for i, c := range s.columns {
		switch c.kind {
		case kindNumber:
			rec[c.key] = dest[i].(*sql.NullFloat64).Float64
		case kindList:
			list, err := decodeList(dest[i].(*sql.NullString).String)
			if err != nil {
				return nil, fmt.Errorf("decoding %s.%s: %w", s.table, c.name, err)
			}
			rec[c.key] = list
		default:
			rec[c.key] = dest[i].(*sql.NullString).String
		}
	}
	for i, d := range s.display {
		rec[d.key] = dest[len(s.columns)+i].(*sql.NullString).String
	}
	return rec, nil
}

// persisted keeps only the keys this table stores.
func (s *tableSpec) persisted(rec domain.Record) domain.Record {
	out := make(domain.Record, len(s.columns))
	for _, c := range s.columns {
		if v, ok := rec[c.key]; ok {
			out[c.key] = v
		}
	}
	return out
}

// values encodes rec in column order for INSERT and UPDATE.
func (s *tableSpec) values(rec domain.Record) ([]any, error) {
	out := make([]any, len(s.columns))
	for i, c := range s.columns {
		v := rec[c.key]
		switch c.kind {
		case kindList:
			enc, err := encodeList(v)
			if err != nil {
				return nil, fmt.Errorf("encoding %s: %w", c.key, err)
			}
			out[i] = enc
		case kindNumber:
			out[i] = v
		case kindTimestamp:
			str, _ := v.(string)
			t, err := domain.ParseTimestamp(str)
			if err != nil {
				return nil, fmt.Errorf("encoding %s: %w", c.key, err)
			}
			out[i] = domain.FormatTimestamp(t)
		default:
			str, _ := v.(string)
			out[i] = str
		}
	}
	return out, nil
}

func encodeList(v any) (string, error) {
	switch l := v.(type) {
	case nil:
		return "[]", nil
	case string:
		if l == "" {
			return "[]", nil
		}
		v = []string{l}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(s string) ([]any, error) {
	out := []any{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
