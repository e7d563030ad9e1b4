package localstore

import (
	"fmt"
	"sort"
	"strings"
)

// Where filters rows by column. Values are matched by equality unless they
// are one of the tagged operator types below. A key of the form
// "column.path" matches against a field inside a JSON-encoded column
// (json_extract), e.g. "name.en".
type Where map[string]any

// Like matches rows whose column contains Substr, case-insensitively. It is
// typically used against JSON-embedded bilingual name columns.
type Like struct {
	Substr string
}

// Between matches rows whose column value lies in [From, To], inclusive.
// Used for date-range queries against the text timestamp columns.
type Between struct {
	From any
	To   any
}

// Raw is the escape hatch for predicates the tagged operators cannot
// express. SQL must use ? placeholders; Args are bound, never interpolated.
type Raw struct {
	SQL  string
	Args []any
}

// OrderBy orders results by a column, or by a field inside a JSON-encoded
// column when JSONField is set (e.g. Column "name", JSONField "en").
type OrderBy struct {
	Column    string
	JSONField string
	Desc      bool
}

// Query combines filtering, ordering and offset/limit pagination.
type Query struct {
	Where Where
	Order []OrderBy
	// Take limits the number of rows returned; 0 means no limit.
	Take int
	// Skip is the row offset.
	Skip int
}

// likeEscaper neutralizes LIKE metacharacters in user-supplied search terms
// so "100%" matches the literal text rather than any "100" prefix. Escaped
// terms must be matched with an ESCAPE '\' clause.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// columnExpr validates a where/order key against the descriptor and returns
// the SQL expression for it. Keys never reach SQL text unvalidated.
func columnExpr(d EntityDescriptor, key string) (string, error) {
	col, path, hasPath := strings.Cut(key, ".")
	if !d.hasColumn(col) {
		return "", fmt.Errorf("unknown column %q on table %s", col, d.Table)
	}
	if hasPath {
		return fmt.Sprintf(`json_extract("%s", '$.%s')`, col, path), nil
	}
	return fmt.Sprintf(`"%s"`, col), nil
}

// buildWhere renders a Where map as a parameterized predicate. Keys are
// sorted so generated SQL is deterministic (and statement caching works).
func buildWhere(d EntityDescriptor, where Where) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	var args []any
	for _, key := range keys {
		value := where[key]
		if raw, ok := value.(Raw); ok {
			clauses = append(clauses, "("+raw.SQL+")")
			args = append(args, raw.Args...)
			continue
		}
		expr, err := columnExpr(d, key)
		if err != nil {
			return "", nil, err
		}
		switch v := value.(type) {
		case Like:
			clauses = append(clauses, fmt.Sprintf(`lower(%s) LIKE '%%' || lower(?) || '%%' ESCAPE '\'`, expr))
			args = append(args, escapeLike(v.Substr))
		case Between:
			clauses = append(clauses, fmt.Sprintf("%s BETWEEN ? AND ?", expr))
			args = append(args, v.From, v.To)
		case nil:
			clauses = append(clauses, fmt.Sprintf("%s IS NULL", expr))
		default:
			clauses = append(clauses, fmt.Sprintf("%s = ?", expr))
			args = append(args, v)
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// buildOrder renders the ORDER BY clause.
func buildOrder(d EntityDescriptor, order []OrderBy) (string, error) {
	if len(order) == 0 {
		return "", nil
	}
	var parts []string
	for _, o := range order {
		key := o.Column
		if o.JSONField != "" {
			key = o.Column + "." + o.JSONField
		}
		expr, err := columnExpr(d, key)
		if err != nil {
			return "", err
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, expr+" "+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// buildLimit renders LIMIT/OFFSET. SQLite requires a LIMIT when OFFSET is
// present, so a bare Skip gets LIMIT -1.
func buildLimit(q Query) string {
	if q.Take <= 0 && q.Skip <= 0 {
		return ""
	}
	take := q.Take
	if take <= 0 {
		take = -1
	}
	if q.Skip > 0 {
		return fmt.Sprintf(" LIMIT %d OFFSET %d", take, q.Skip)
	}
	return fmt.Sprintf(" LIMIT %d", take)
}
