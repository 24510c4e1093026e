// Package store provides persistent storage for the CRM.
//
// # Architecture
//
// Persistence is split into narrow interfaces so consumers can depend on
// only what they use:
//
//   - TeamStore: team members and the rotation roster query
//   - LeadStore: leads and the single-statement agent assignment
//   - CommunicationStore: inbound communication logs and properties
//   - SettingsStore: automation_settings key/value pairs
//
// SQLStore implements all of them over database/sql. NewSQLiteStore opens an
// embedded modernc.org/sqlite database and creates the schema;
// NewPostgresStore connects through lib/pq to an existing schema.
//
// # SQLite Configuration
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Timestamps are stored as RFC3339 text in UTC.
//
// # Settings
//
// Setting values are JSON text. The rotation cursor is a bare JSON integer.
// IncrementSettingModulo performs read-increment-wrap-write in one upsert
// statement with RETURNING, so two concurrent callers never receive the
// same value.
//
// # Error Handling
//
//   - ErrLeadNotFound, ErrTeamMemberNotFound: no row matched the id
//   - ErrSettingNotFound: the key is unset
//   - ErrDuplicate: primary key collision on insert
//
// # Testing
//
// Use NewMockStore() for unit tests:
//
//	s := store.NewMockStore()
//
// Use NewSQLiteStore(path) under t.TempDir() for integration tests.
package store
