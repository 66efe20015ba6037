// Package db defines the key-value database abstraction used by the payroll
// node storage layer. Implementations live in subpackages: pebbledb for the
// durable production backend and inmemory for tests.
package db

import "errors"

var (
	// ErrKeyNotFound is returned when the key is not found in the database.
	ErrKeyNotFound = errors.New("key not found")
	// ErrConflict is returned when a write transaction cannot commit due to
	// a conflicting concurrent write.
	ErrConflict = errors.New("transaction conflict")
)

// Options configures a database backend.
type Options struct {
	// Path is the filesystem directory for durable backends.
	Path string
}

// Database is a transactional key-value store.
type Database interface {
	// Get retrieves the value for the given key, or ErrKeyNotFound.
	Get(key []byte) ([]byte, error)
	// Iterate calls callback for each key-value pair under prefix, in key
	// order, until callback returns false or there are no more entries.
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
	// WriteTx opens a new write transaction.
	WriteTx() WriteTx
	// Close releases the database resources.
	Close() error
	// Compact triggers a storage compaction, if the backend supports it.
	Compact() error
}

// Tx is the read-only surface shared by databases and transactions.
type Tx interface {
	Get(key []byte) ([]byte, error)
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
}

// WriteTx is a read-write transaction over a Database. It must be finished
// with either Commit or Discard; Discard after Commit is a no-op.
type WriteTx interface {
	Tx
	// Set stores the value under key.
	Set(key, value []byte) error
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(key []byte) error
	// Commit atomically applies the pending writes.
	Commit() error
	// Discard drops the pending writes and releases the transaction.
	Discard()
}
