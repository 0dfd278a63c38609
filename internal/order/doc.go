// Package order keeps the todo list densely ordered.
//
// Every item carries an integer position. After any create, remove or move the
// positions are exactly 0..n-1 with no gaps or duplicates, and listing always
// follows them (ties, which density rules out, fall back to the item id).
//
// The Maintainer does not hold state of its own. Each operation is a single
// read/modify/write sequence run inside Store.Atomic, so the storage
// collaborator decides isolation: both bundled stores serialize Atomic calls
// and discard every write of a callback that returns an error.
package order
