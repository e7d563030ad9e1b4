package localstore

// Core bookkeeping tables. Entity tables come from the registry; these exist
// in every store and are excluded from change capture.
var coreSchema = []string{
	// Durable outbox of pending change operations. data holds the
	// document-oriented envelope (insertOne / updateOne) the remote server
	// consumes. requestId stays NULL until a push batch claims the row.
	`CREATE TABLE IF NOT EXISTS opLogs (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		data      TEXT NOT NULL,
		tableName TEXT NOT NULL,
		action    TEXT NOT NULL CHECK (action IN ('INSERT','UPDATE','DELETE')),
		status    TEXT NOT NULL DEFAULT 'pending',
		requestId TEXT,
		timestamp TEXT NOT NULL
	)`,

	// Device identity (one row). The generated id distinguishes this
	// device's writes on the server side.
	`CREATE TABLE IF NOT EXISTS _deviceInfo (
		deviceId  TEXT NOT NULL PRIMARY KEY,
		createdAt TEXT NOT NULL
	)`,

	// Applied migration names. Reserved for schema evolution; the table
	// itself must exist so it can be listed in the capture exclusion set.
	`CREATE TABLE IF NOT EXISTS _migrations (
		name      TEXT NOT NULL PRIMARY KEY,
		appliedAt TEXT NOT NULL
	)`,
}

// ExcludedTables is the default capture exclusion set: internal bookkeeping
// tables whose changes must never reach the oplog.
func ExcludedTables() map[string]bool {
	return map[string]bool{
		"opLogs":          true,
		"_deviceInfo":     true,
		"_migrations":     true,
		"sqlite_sequence": true,
	}
}
