package predicate

import "strings"

// Assignment is one SET clause of an update. Add builds arithmetic evaluated
// inside the store, so concurrent writers never race through a read-then-write
// from the caller.
type Assignment struct {
	clause string
	args   []any
}

// Add sets col to its current stored value plus delta.
func Add(col string, delta any) Assignment {
	return Assignment{clause: col + " = " + col + " + ?", args: []any{delta}}
}

// Set overwrites col with a literal value.
func Set(col string, v any) Assignment {
	return Assignment{clause: col + " = ?", args: []any{v}}
}

// BuildUpdate renders a full UPDATE statement for the given table.
func BuildUpdate(table string, assigns []Assignment, where Expr) (string, []any) {
	sets := make([]string, 0, len(assigns))
	var args []any
	for _, a := range assigns {
		sets = append(sets, a.clause)
		args = append(args, a.args...)
	}
	clause, whereArgs := where.SQL()
	args = append(args, whereArgs...)
	return "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE " + clause, args
}
