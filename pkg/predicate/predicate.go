// Package predicate builds composable filter trees and store-side update
// expressions, rendered to a single SQL clause plus bind args. Column and
// table names come from call sites, never from request input.
package predicate

import "strings"

// Expr is one node of a filter tree. The zero value matches everything.
type Expr struct {
	clause string
	args   []any
}

// SQL renders the expression as a WHERE-clause fragment and its bind args.
func (e Expr) SQL() (string, []any) {
	if e.clause == "" {
		return "1=1", nil
	}
	return e.clause, e.args
}

func Eq(col string, v any) Expr {
	return Expr{clause: col + " = ?", args: []any{v}}
}

func Gte(col string, v any) Expr {
	return Expr{clause: col + " >= ?", args: []any{v}}
}

func Lt(col string, v any) Expr {
	return Expr{clause: col + " < ?", args: []any{v}}
}

// Contains matches case-insensitively anywhere in the column.
func Contains(col, substr string) Expr {
	return Expr{
		clause: "LOWER(" + col + ") LIKE ?",
		args:   []any{"%" + strings.ToLower(substr) + "%"},
	}
}

func And(exprs ...Expr) Expr {
	return combine(" AND ", exprs)
}

func Or(exprs ...Expr) Expr {
	return combine(" OR ", exprs)
}

func Not(e Expr) Expr {
	clause, args := e.SQL()
	return Expr{clause: "NOT (" + clause + ")", args: args}
}

func combine(op string, exprs []Expr) Expr {
	if len(exprs) == 0 {
		return Expr{}
	}
	if len(exprs) == 1 {
		return exprs[0]
	}
	parts := make([]string, 0, len(exprs))
	var args []any
	for _, e := range exprs {
		clause, a := e.SQL()
		parts = append(parts, clause)
		args = append(args, a...)
	}
	return Expr{clause: "(" + strings.Join(parts, op) + ")", args: args}
}

// Relationship predicates over the items table. Each compiles to an EXISTS
// subquery so the whole tree stays a single store-evaluated statement.

// HasCategory matches items holding a category with the given name.
func HasCategory(name string) Expr {
	return Expr{
		clause: `EXISTS (
			SELECT 1 FROM item_categories ic
			JOIN categories c ON c.id = ic.category_id
			WHERE ic.item_id = items.item_id AND c.name = ?
		)`,
		args: []any{name},
	}
}

// HasRatingAtLeast matches items with at least one rating >= min.
func HasRatingAtLeast(min float64) Expr {
	return Expr{
		clause: `EXISTS (
			SELECT 1 FROM ratings r
			WHERE r.item_id = items.item_id AND r.score >= ?
		)`,
		args: []any{min},
	}
}

// HasTagLabel matches items tagged with the given label, case-insensitively.
func HasTagLabel(label string) Expr {
	return Expr{
		clause: `EXISTS (
			SELECT 1 FROM tags t
			WHERE t.item_id = items.item_id AND LOWER(t.label) = ?
		)`,
		args: []any{strings.ToLower(label)},
	}
}
