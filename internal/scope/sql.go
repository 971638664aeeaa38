package scope

import (
	"fmt"
	"strings"
)

// Columns names the scoping columns of a table, optionally qualified by alias.
type Columns struct {
	Branch string
	Owner  string
}

// LeadColumns is the column pair for the leads table under alias "l".
var LeadColumns = Columns{Branch: "l.branch_id", Owner: "l.created_by"}

// SQL renders the scope as a parameterized predicate. next is the index of the
// first placeholder to use; the returned args continue from it. Values are
// never interpolated.
func (s Scope) SQL(cols Columns, next int) (string, []any, error) {
	if err := s.Validate(); err != nil {
		return "", nil, err
	}
	switch s.kind {
	case KindUnrestricted:
		return "TRUE", nil, nil
	case KindBranch:
		return fmt.Sprintf("%s = $%d", cols.Branch, next), []any{s.branch.String()}, nil
	default:
		return fmt.Sprintf("%s = $%d", cols.Owner, next), []any{s.owner.String()}, nil
	}
}

// Where accumulates AND-ed predicates with positional placeholders.
type Where struct {
	clauses []string
	args    []any
}

// NewWhere starts a predicate list seeded with the scope clause.
func NewWhere(s Scope, cols Columns) (*Where, error) {
	w := &Where{}
	clause, args, err := s.SQL(cols, 1)
	if err != nil {
		return nil, err
	}
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
	return w, nil
}

// Plain starts an unscoped predicate list for tables without scoping columns.
func Plain() *Where { return &Where{} }

// Next returns the next placeholder index.
func (w *Where) Next() int { return len(w.args) + 1 }

// Add appends a clause. Each "?" in clause is replaced by the next placeholder.
func (w *Where) Add(clause string, args ...any) *Where {
	var b strings.Builder
	i := 0
	for _, r := range clause {
		if r == '?' && i < len(args) {
			fmt.Fprintf(&b, "$%d", len(w.args)+1)
			w.args = append(w.args, args[i])
			i++
			continue
		}
		b.WriteRune(r)
	}
	w.clauses = append(w.clauses, b.String())
	return w
}

// Arg appends a bare argument and returns its placeholder, for clauses such as
// ANY($n) built by the caller.
func (w *Where) Arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

// Raw appends a pre-rendered clause without arguments.
func (w *Where) Raw(clause string) *Where {
	w.clauses = append(w.clauses, clause)
	return w
}

// String renders "c1 AND c2 ...".
func (w *Where) String() string {
	if len(w.clauses) == 0 {
		return "TRUE"
	}
	return strings.Join(w.clauses, " AND ")
}

// Args returns the positional arguments.
func (w *Where) Args() []any { return w.args }
