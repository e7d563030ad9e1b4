package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Row source markers. Rows originated by this device carry SourceLocal;
// rows materialized from the server carry SourceServer and are never
// re-queued back to it.
const (
	SourceLocal  = "local"
	SourceServer = "server"
)

// Oplog actions.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// Oplog statuses. Pending entries are awaiting transmission; synced entries
// have been acknowledged by the remote endpoint.
const (
	StatusPending = "pending"
	StatusSynced  = "synced"
)

// OplogEntry is one pending change operation in the durable outbox.
type OplogEntry struct {
	ID        int64
	Data      string
	TableName string
	Action    string
	Status    string
	RequestID string
	Timestamp string
}

// insertEnvelope and updateEnvelope are the document-oriented payload shapes
// the remote server consumes.
type insertEnvelope struct {
	InsertOne struct {
		Document any `json:"document"`
	} `json:"insertOne"`
}

type updateEnvelope struct {
	UpdateOne struct {
		Filter struct {
			ID string `json:"_id"`
		} `json:"filter"`
		Update any `json:"update"`
	} `json:"updateOne"`
}

// Oplog appends durable, ordered records describing logical changes and
// exposes the pending queue to the sync side. It is the only component that
// writes the opLogs table; entries are consumed and marked synced by the
// push coordinator and never mutated by the repository layer.
type Oplog struct {
	store *Store
}

// NewOplog builds the outbox over a store.
func NewOplog(s *Store) *Oplog {
	return &Oplog{store: s}
}

func (o *Oplog) append(ctx context.Context, data []byte, table, action string) error {
	_, err := o.store.db.ExecContext(ctx,
		`INSERT INTO opLogs (data, tableName, action, status, timestamp) VALUES (?, ?, ?, ?, ?)`,
		string(data), table, action, StatusPending, o.store.NowString())
	if err != nil {
		return fmt.Errorf("failed to append oplog entry for %s: %w", table, err)
	}
	return nil
}

// AfterInsert records a newly created row as a pending insertOne operation.
// The document is built through the entity's codec so the payload shape
// matches what the remote server expects.
func (o *Oplog) AfterInsert(ctx context.Context, desc EntityDescriptor, row Row) error {
	doc, err := desc.Document(row)
	if err != nil {
		return fmt.Errorf("failed to build document for %s: %w", desc.Table, err)
	}
	var env insertEnvelope
	env.InsertOne.Document = doc
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal insert envelope for %s: %w", desc.Table, err)
	}
	return o.append(ctx, data, desc.Table, OpInsert)
}

// AfterUpdate records a modified row as a pending updateOne operation
// filtered by its _id.
func (o *Oplog) AfterUpdate(ctx context.Context, desc EntityDescriptor, row Row) error {
	doc, err := desc.Document(row)
	if err != nil {
		return fmt.Errorf("failed to build document for %s: %w", desc.Table, err)
	}
	id, _ := row[desc.Key()].(string)
	var env updateEnvelope
	env.UpdateOne.Filter.ID = id
	env.UpdateOne.Update = doc
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal update envelope for %s: %w", desc.Table, err)
	}
	return o.append(ctx, data, desc.Table, OpUpdate)
}

func scanEntries(rows []Row) []OplogEntry {
	entries := make([]OplogEntry, 0, len(rows))
	for _, row := range rows {
		e := OplogEntry{}
		if v, ok := row["id"].(int64); ok {
			e.ID = v
		}
		e.Data, _ = row["data"].(string)
		e.TableName, _ = row["tableName"].(string)
		e.Action, _ = row["action"].(string)
		e.Status, _ = row["status"].(string)
		e.RequestID, _ = row["requestId"].(string)
		e.Timestamp, _ = row["timestamp"].(string)
		entries = append(entries, e)
	}
	return entries
}

const oplogColumns = `id, data, tableName, action, status, requestId, timestamp`

// PendingCount returns the number of entries awaiting transmission.
func (o *Oplog) PendingCount(ctx context.Context) (int64, error) {
	var n int64
	err := o.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM opLogs WHERE status = ?`, StatusPending).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending oplog entries: %w", err)
	}
	return n, nil
}

// PendingByTable returns pending-entry counts keyed by table name.
func (o *Oplog) PendingByTable(ctx context.Context) (map[string]int64, error) {
	rows, err := o.store.db.QueryContext(ctx,
		`SELECT tableName, COUNT(*) FROM opLogs WHERE status = ? GROUP BY tableName`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending oplog entries by table: %w", err)
	}
	defer rows.Close()
	counts := make(map[string]int64)
	for rows.Next() {
		var table string
		var n int64
		if err := rows.Scan(&table, &n); err != nil {
			return nil, fmt.Errorf("failed to scan pending count: %w", err)
		}
		counts[table] = n
	}
	return counts, rows.Err()
}

// PendingByRequest returns the pending entries tagged with requestID, in
// append order.
func (o *Oplog) PendingByRequest(ctx context.Context, requestID string) ([]OplogEntry, error) {
	rows, err := queryRows(ctx, o.store.db,
		`SELECT `+oplogColumns+` FROM opLogs WHERE status = ? AND requestId = ? ORDER BY id`,
		StatusPending, requestID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows), nil
}

// ClaimBatch tags up to limit untagged pending entries for the given tables
// with requestID and reports how many it claimed. Claiming is what makes the
// push trigger idempotent: a retried trigger with the same request id finds
// the rows it already claimed.
func (o *Oplog) ClaimBatch(ctx context.Context, requestID string, tables []string, limit int) (int64, error) {
	if len(tables) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(tables))
	args := []any{requestID, StatusPending}
	inArgs := make([]any, 0, len(tables))
	for i, t := range tables {
		placeholders[i] = "?"
		inArgs = append(inArgs, t)
	}
	args = append(args, inArgs...)
	args = append(args, limit)

	res, err := o.store.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE opLogs SET requestId = ?
		 WHERE id IN (
			SELECT id FROM opLogs
			WHERE status = ? AND requestId IS NULL AND tableName IN (%s)
			ORDER BY id LIMIT ?
		 )`, strings.Join(placeholders, ", ")), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to claim oplog batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read claimed row count: %w", err)
	}
	return n, nil
}

// ReleaseBatch untags the pending entries claimed under requestID, returning
// them to the claimable pool. Called when a push is definitively refused, so
// a later push under a fresh request id can pick the rows up again.
func (o *Oplog) ReleaseBatch(ctx context.Context, requestID string) error {
	_, err := o.store.db.ExecContext(ctx,
		`UPDATE opLogs SET requestId = NULL WHERE requestId = ? AND status = ?`,
		requestID, StatusPending)
	if err != nil {
		return fmt.Errorf("failed to release oplog batch: %w", err)
	}
	return nil
}

// MarkSynced transitions every entry tagged with requestID to synced.
func (o *Oplog) MarkSynced(ctx context.Context, requestID string) error {
	_, err := o.store.db.ExecContext(ctx,
		`UPDATE opLogs SET status = ? WHERE requestId = ?`, StatusSynced, requestID)
	if err != nil {
		return fmt.Errorf("failed to mark oplog batch synced: %w", err)
	}
	return nil
}

// PruneSynced deletes synced entries older than the cutoff and returns the
// number removed. Pending entries are never pruned.
func (o *Oplog) PruneSynced(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := o.store.db.ExecContext(ctx,
		`DELETE FROM opLogs WHERE status = ? AND timestamp < ?`, StatusSynced, FormatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to prune synced oplog entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned row count: %w", err)
	}
	return n, nil
}
