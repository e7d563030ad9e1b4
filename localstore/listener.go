package localstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Listener observes every row-level change on registered tables and turns
// each qualifying one into exactly one oplog entry. It consumes the store's
// native change notifications, which are edge-triggered and payload-less:
// each event is resolved by re-fetching the row by its internal rowid.
//
// Events are processed on a single goroutine in delivery order. Whether a
// change is "new" or "updated" is derived by comparing the row's createdAt
// and updatedAt truncated to the minute; two writes landing inside the same
// clock minute are classified as one insert, a known limit of the heuristic.
type Listener struct {
	store    *Store
	registry *Registry
	oplog    *Oplog
	notifier *Notifier
	logger   *slog.Logger
	excluded map[string]bool

	events chan Change
	wg     sync.WaitGroup
}

// NewListener wires a listener over the store. The registry supplies both
// the watched-table whitelist and each table's document codec.
func NewListener(s *Store, reg *Registry, oplog *Oplog, notifier *Notifier) *Listener {
	return &Listener{
		store:    s,
		registry: reg,
		oplog:    oplog,
		notifier: notifier,
		logger:   s.Logger(),
		excluded: ExcludedTables(),
		// The hook fires inside statement execution, so enqueueing must
		// never block; a generous buffer absorbs bursts.
		events: make(chan Change, 1024),
	}
}

// Start subscribes to the store's change hook and begins processing. The
// listener stops when ctx is cancelled.
func (l *Listener) Start(ctx context.Context) {
	l.store.SetChangeHook(l.enqueue)
	l.wg.Add(1)
	go l.run(ctx)
}

// Stop detaches the hook and waits for in-flight events to finish. Pending
// buffered events are still processed before run returns only if ctx is not
// already cancelled; callers wanting a full drain should cancel after Wait.
func (l *Listener) Stop() {
	l.store.SetChangeHook(nil)
	close(l.events)
	l.wg.Wait()
}

// enqueue runs inside the driver callback; it must not touch the database
// and must not block, or it would deadlock the statement that triggered it.
func (l *Listener) enqueue(ch Change) {
	select {
	case l.events <- ch:
	default:
		l.logger.Warn("change event buffer full, dropping notification",
			"table", ch.Table, "rowid", ch.RowID)
	}
}

func (l *Listener) run(ctx context.Context) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-l.events:
			if !ok {
				return
			}
			// One failing change must not stop the subscription.
			if err := l.process(ctx, ch); err != nil {
				l.logger.Error("failed to process change event",
					"table", ch.Table, "rowid", ch.RowID, "error", err)
			}
		}
	}
}

// process classifies one change event and dispatches it to the outbox.
func (l *Listener) process(ctx context.Context, ch Change) error {
	if l.excluded[ch.Table] {
		return nil
	}
	desc, ok := l.registry.Lookup(ch.Table)
	if !ok {
		// Not a syncable table; nothing to capture.
		return nil
	}

	// The notification carries no payload: re-fetch the row's current
	// state by its internal rowid.
	row, found, err := queryOneRow(ctx, l.store.db,
		fmt.Sprintf(`SELECT %s FROM "%s" WHERE rowid = ?`, quoteColumns(desc.Columns), desc.Table),
		ch.RowID)
	if err != nil {
		return fmt.Errorf("failed to fetch changed row: %w", err)
	}
	if !found {
		// Already deleted; nothing meaningful to log.
		return nil
	}
	createdAt, _ := row["createdAt"].(string)
	if createdAt == "" {
		return nil
	}

	// Loop prevention: a change that originated from a server-applied
	// write must never be queued back to the server.
	if source, _ := row["source"].(string); source == SourceServer {
		return nil
	}

	isNew, err := classifyChange(row)
	if err != nil {
		return err
	}
	if isNew {
		if err := l.oplog.AfterInsert(ctx, desc, row); err != nil {
			return err
		}
	} else {
		if err := l.oplog.AfterUpdate(ctx, desc, row); err != nil {
			return err
		}
	}

	if desc.PushEntity != "" && l.notifier != nil {
		l.notifier.Notify(desc.PushEntity)
	}
	return nil
}

// classifyChange reports whether a row looks newly created: createdAt and
// updatedAt equal once truncated to the minute. A dedicated first-write flag
// would be sturdier; the heuristic is kept because the stored rows carry no
// such flag.
func classifyChange(row Row) (bool, error) {
	createdAt, _ := row["createdAt"].(string)
	updatedAt, _ := row["updatedAt"].(string)
	created, err := ParseTime(createdAt)
	if err != nil {
		return false, fmt.Errorf("failed to classify change: %w", err)
	}
	if updatedAt == "" {
		return true, nil
	}
	updated, err := ParseTime(updatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to classify change: %w", err)
	}
	return created.Truncate(time.Minute).Equal(updated.Truncate(time.Minute)), nil
}
