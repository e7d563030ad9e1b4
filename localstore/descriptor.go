package localstore

import "fmt"

// Row is the flat relational representation of an entity: column name to
// driver-level value (string, int64, float64, []byte or nil). Nested values
// are JSON-encoded text, booleans are 0/1 integers.
type Row map[string]any

// EntityDescriptor is the static per-entity configuration the store machinery
// is specialized by: one descriptor replaces one repository subclass.
type EntityDescriptor struct {
	// Table is the SQLite table name (e.g. "products").
	Table string

	// KeyColumn is the primary key column, "_id" for every entity except
	// the few that use a store-assigned numeric key.
	KeyColumn string

	// AutoKey marks tables whose key is a numeric autoincrement assigned
	// by the store. Auto-keyed tables insert plainly instead of upserting.
	AutoKey bool

	// Columns lists every column in statement order, key column first.
	Columns []string

	// CreateSQL is the CREATE TABLE IF NOT EXISTS statement for the table.
	CreateSQL string

	// PushEntity names the sync endpoint this table feeds ("product",
	// "order", ...). Empty means changes to this table are captured into
	// the oplog but never trigger a sync wake-up.
	PushEntity string

	// Document converts a raw row into the document shape the remote
	// server expects. It is the codec's FromRow with the type erased, used
	// by the outbox writer to build oplog payloads.
	Document func(Row) (any, error)
}

// Key returns the descriptor's key column, defaulting to "_id".
func (d EntityDescriptor) Key() string {
	if d.KeyColumn == "" {
		return "_id"
	}
	return d.KeyColumn
}

// hasColumn reports whether name is a declared column. Used to validate
// caller-supplied filter and order columns before they reach SQL text.
func (d EntityDescriptor) hasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Registry is the static table map consumed by the change listener and the
// push coordinator. A syncable entity must be registered here or its changes
// are silently never queued.
type Registry struct {
	byTable map[string]EntityDescriptor
}

// NewRegistry builds a registry from descriptors. Duplicate table names are
// a programming error and panic at startup.
func NewRegistry(descriptors ...EntityDescriptor) *Registry {
	r := &Registry{byTable: make(map[string]EntityDescriptor, len(descriptors))}
	for _, d := range descriptors {
		if _, dup := r.byTable[d.Table]; dup {
			panic(fmt.Sprintf("localstore: duplicate descriptor for table %q", d.Table))
		}
		r.byTable[d.Table] = d
	}
	return r
}

// Lookup returns the descriptor for a table.
func (r *Registry) Lookup(table string) (EntityDescriptor, bool) {
	d, ok := r.byTable[table]
	return d, ok
}

// Tables returns all registered table names.
func (r *Registry) Tables() []string {
	names := make([]string, 0, len(r.byTable))
	for name := range r.byTable {
		names = append(names, name)
	}
	return names
}

// TablesForEntity returns the tables mapped to a push entity name.
func (r *Registry) TablesForEntity(entity string) []string {
	var tables []string
	for name, d := range r.byTable {
		if d.PushEntity == entity {
			tables = append(tables, name)
		}
	}
	return tables
}
