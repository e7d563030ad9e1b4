package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Codec converts between the in-memory record shape and the flat Row shape.
// The round-trip law FromRow(ToRow(x)) == x holds for every declared field
// except store-recomputed timestamps.
type Codec[T any] struct {
	FromRow func(Row) (T, error)
	ToRow   func(T) Row
}

// Repository exposes typed CRUD and queries over exactly one table. One
// generic implementation specialized by an EntityDescriptor replaces the
// per-entity repository classes; callers never see raw SQL.
//
// Mutating methods write through to the store synchronously and never touch
// the oplog: outbox capture is decoupled via the change listener so every
// write path is captured uniformly.
type Repository[T any] struct {
	store *Store
	desc  EntityDescriptor
	codec Codec[T]
}

// NewRepository builds a repository over the given store and descriptor.
func NewRepository[T any](s *Store, d EntityDescriptor, c Codec[T]) *Repository[T] {
	return &Repository[T]{store: s, desc: d, codec: c}
}

// Descriptor returns the entity descriptor the repository was built from.
func (r *Repository[T]) Descriptor() EntityDescriptor { return r.desc }

// maxBindVars stays under SQLITE_MAX_VARIABLE_NUMBER's historical default of
// 999 to keep multi-row statements portable.
const maxBindVars = 900

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = `"` + c + `"`
	}
	return strings.Join(quoted, ", ")
}

// upsertSQL builds the INSERT ... ON CONFLICT(key) DO UPDATE statement for n
// rows. Every write is an idempotent upsert keyed by _id, so replays from
// sync are safe. createdAt survives a conflict; everything else is replaced.
func (r *Repository[T]) upsertSQL(n int) string {
	cols := r.desc.Columns
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	rows := make([]string, n)
	for i := range rows {
		rows[i] = placeholder
	}
	var sets []string
	for _, c := range cols {
		if c == r.desc.Key() || c == "createdAt" {
			continue
		}
		sets = append(sets, fmt.Sprintf(`"%s"=excluded."%s"`, c, c))
	}
	return fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES %s ON CONFLICT("%s") DO UPDATE SET %s`,
		r.desc.Table, quoteColumns(cols), strings.Join(rows, ", "), r.desc.Key(), strings.Join(sets, ", "))
}

// prepareRow fills in store-owned fields on a row about to be written.
func (r *Repository[T]) prepareRow(row Row, now string) {
	key := r.desc.Key()
	if !r.desc.AutoKey {
		if v, ok := row[key].(string); !ok || v == "" {
			row[key] = uuid.NewString()
		}
	}
	row["createdAt"] = now
	row["updatedAt"] = now
	if r.desc.hasColumn("source") {
		if v, ok := row["source"].(string); !ok || v == "" {
			row["source"] = SourceLocal
		}
	}
}

func (r *Repository[T]) bindArgs(row Row) []any {
	args := make([]any, len(r.desc.Columns))
	for i, c := range r.desc.Columns {
		args[i] = row[c]
	}
	return args
}

// Create upserts the record by its key, assigning an id, timestamps and the
// local source marker where absent, and returns the stored record with
// store-computed fields applied.
func (r *Repository[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	row := r.codec.ToRow(rec)
	r.prepareRow(row, r.store.NowString())

	if r.desc.AutoKey {
		// Auto-keyed tables take a store-assigned numeric key; a blind
		// insert is the only sensible write.
		cols := r.desc.Columns[1:] // skip the autoincrement key
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
		args := make([]any, len(cols))
		for i, c := range cols {
			args[i] = row[c]
		}
		res, err := r.store.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`,
			r.desc.Table, quoteColumns(cols), placeholders), args...)
		if err != nil {
			return zero, fmt.Errorf("failed to insert into %s: %w", r.desc.Table, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return zero, fmt.Errorf("failed to read assigned id for %s: %w", r.desc.Table, err)
		}
		return r.FindByID(ctx, id)
	}

	if _, err := r.store.db.ExecContext(ctx, r.upsertSQL(1), r.bindArgs(row)...); err != nil {
		return zero, fmt.Errorf("failed to upsert into %s: %w", r.desc.Table, err)
	}
	return r.FindByID(ctx, row[r.desc.Key()])
}

// CreateMany bulk-upserts records in fixed-size chunks sized to the
// statement parameter limit. Each chunk is one atomic multi-row upsert run
// through the transaction retry wrapper; a failing chunk does not abort the
// chunks after it. The returned error joins all per-chunk failures.
func (r *Repository[T]) CreateMany(ctx context.Context, recs []T) error {
	if len(recs) == 0 {
		return nil
	}
	now := r.store.NowString()
	rows := make([]Row, len(recs))
	for i, rec := range recs {
		rows[i] = r.codec.ToRow(rec)
		r.prepareRow(rows[i], now)
	}

	perChunk := maxBindVars / len(r.desc.Columns)
	if perChunk < 1 {
		perChunk = 1
	}

	var errs []error
	for start := 0; start < len(rows); start += perChunk {
		end := start + perChunk
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		stmt := r.upsertSQL(len(chunk))
		var args []any
		for _, row := range chunk {
			args = append(args, r.bindArgs(row)...)
		}
		err := r.store.WithImmediateTx(ctx, func(tx *sql.Tx) error {
			_, execErr := tx.ExecContext(ctx, stmt, args...)
			return execErr
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("chunk %d-%d of %s: %w", start, end-1, r.desc.Table, err))
		}
	}
	return errors.Join(errs...)
}

// Update rewrites every mutable column of the row matching id and bumps
// updatedAt. A missing row is reported as ErrNotFound rather than silently
// succeeding.
func (r *Repository[T]) Update(ctx context.Context, id any, rec T) error {
	row := r.codec.ToRow(rec)
	row["updatedAt"] = r.store.NowString()

	var sets []string
	var args []any
	for _, c := range r.desc.Columns {
		if c == r.desc.Key() || c == "createdAt" {
			continue
		}
		sets = append(sets, fmt.Sprintf(`"%s" = ?`, c))
		args = append(args, row[c])
	}
	args = append(args, id)

	res, err := r.store.db.ExecContext(ctx, fmt.Sprintf(`UPDATE "%s" SET %s WHERE "%s" = ?`,
		r.desc.Table, strings.Join(sets, ", "), r.desc.Key()), args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", r.desc.Table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for %s: %w", r.desc.Table, err)
	}
	if affected == 0 {
		return fmt.Errorf("update %s id=%v: %w", r.desc.Table, id, ErrNotFound)
	}
	return nil
}

// Delete removes the row matching id. Deleting an absent row is a no-op.
func (r *Repository[T]) Delete(ctx context.Context, id any) error {
	_, err := r.store.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM "%s" WHERE "%s" = ?`, r.desc.Table, r.desc.Key()), id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", r.desc.Table, err)
	}
	return nil
}

// FindByID returns the row matching id or ErrNotFound.
func (r *Repository[T]) FindByID(ctx context.Context, id any) (T, error) {
	var zero T
	row, found, err := queryOneRow(ctx, r.store.db, fmt.Sprintf(`SELECT %s FROM "%s" WHERE "%s" = ?`,
		quoteColumns(r.desc.Columns), r.desc.Table, r.desc.Key()), id)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, fmt.Errorf("%s id=%v: %w", r.desc.Table, id, ErrNotFound)
	}
	return r.codec.FromRow(row)
}

// FindAll returns every row. Full table scan, explicitly unbounded; local
// datasets are device-scoped and small.
func (r *Repository[T]) FindAll(ctx context.Context) ([]T, error) {
	return r.Find(ctx, Query{})
}

// Find returns the rows matching q.
func (r *Repository[T]) Find(ctx context.Context, q Query) ([]T, error) {
	recs, _, err := r.find(ctx, q, false)
	return recs, err
}

// FindAndCount returns one page of rows plus the total count over the same
// filtered query, so callers can compute whether more pages exist.
func (r *Repository[T]) FindAndCount(ctx context.Context, q Query) ([]T, int64, error) {
	return r.find(ctx, q, true)
}

func (r *Repository[T]) find(ctx context.Context, q Query, count bool) ([]T, int64, error) {
	whereSQL, args, err := buildWhere(r.desc, q.Where)
	if err != nil {
		return nil, 0, err
	}
	orderSQL, err := buildOrder(r.desc, q.Order)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if count {
		err := r.store.db.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT COUNT(*) FROM "%s"%s`, r.desc.Table, whereSQL), args...).Scan(&total)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to count %s: %w", r.desc.Table, err)
		}
	}

	rows, err := queryRows(ctx, r.store.db, fmt.Sprintf(`SELECT %s FROM "%s"%s%s%s`,
		quoteColumns(r.desc.Columns), r.desc.Table, whereSQL, orderSQL, buildLimit(q)), args...)
	if err != nil {
		return nil, 0, err
	}
	recs, err := r.decodeRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// FindOneBy returns the first row matching where, with a found flag instead
// of an error for the absent case. Discovery finders build on this.
func (r *Repository[T]) FindOneBy(ctx context.Context, where Where) (T, bool, error) {
	var zero T
	recs, err := r.Find(ctx, Query{Where: where, Take: 1})
	if err != nil {
		return zero, false, err
	}
	if len(recs) == 0 {
		return zero, false, nil
	}
	return recs[0], true, nil
}

// Search is a case-insensitive substring match of term across the given
// columns (which may address JSON-embedded fields, e.g. "name.en").
func (r *Repository[T]) Search(ctx context.Context, term string, columns ...string) ([]T, error) {
	var clauses []string
	var args []any
	for _, key := range columns {
		expr, err := columnExpr(r.desc, key)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, fmt.Sprintf(`lower(%s) LIKE '%%' || lower(?) || '%%' ESCAPE '\'`, expr))
		args = append(args, escapeLike(term))
	}
	if len(clauses) == 0 {
		return nil, fmt.Errorf("search on %s requires at least one column", r.desc.Table)
	}
	rows, err := queryRows(ctx, r.store.db, fmt.Sprintf(`SELECT %s FROM "%s" WHERE %s`,
		quoteColumns(r.desc.Columns), r.desc.Table, strings.Join(clauses, " OR ")), args...)
	if err != nil {
		return nil, err
	}
	return r.decodeRows(rows)
}

func (r *Repository[T]) decodeRows(rows []Row) ([]T, error) {
	recs := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := r.codec.FromRow(row)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
