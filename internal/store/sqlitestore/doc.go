// Package sqlitestore provides SQLite-backed durable storage for the todo list.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - _txlock=immediate: transactions take the write lock on BEGIN
//
// One connection is kept open and Atomic calls are serialized by a mutex, so
// the read-then-shift sequence of an order operation never interleaves with
// another one.
//
// Two drivers are supported: "sqlite3" (github.com/mattn/go-sqlite3, cgo) and
// "sqlite" (modernc.org/sqlite, pure Go).
package sqlitestore
