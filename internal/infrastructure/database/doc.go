// Package database opens and migrates the Motive Core SQLite store.
//
// The store holds controller lifecycle history (state transitions and
// switch executions) written by internal/history. The connection is
// opened with WAL mode and a busy timeout so the single writer never
// trips "database is locked" under concurrent reads, and schema
// migrations are embedded into the binary by the migrations package.
package database
