// Package repositories implements SQLite persistence for profiles and auth storage.
//
// Key Implementations:
//   - [ProfileRepository] : credit balances keyed by auth service user id
//   - [SessionRepository] : key/value items backing the auth context's storage
//
// Balance changes run inside a transaction so concurrent add and set requests never lose an update.
// Schema lives in the embedded migrations applied by shared.RunMigrations.
package repositories
