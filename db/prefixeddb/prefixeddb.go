// Package prefixeddb wraps a db.Database so that all operations are
// namespaced under a fixed key prefix. It is the mechanism the storage
// layer uses to keep independent data families inside one database.
package prefixeddb

import (
	"bytes"

	"github.com/veilpay/payroll-node/db"
)

// PrefixedDatabase is a db.Database view under a fixed prefix.
type PrefixedDatabase struct {
	db     db.Database
	prefix []byte
}

var _ db.Database = (*PrefixedDatabase)(nil)

// NewPrefixedDatabase returns a view of d where every key is transparently
// prefixed.
func NewPrefixedDatabase(d db.Database, prefix []byte) *PrefixedDatabase {
	return &PrefixedDatabase{db: d, prefix: bytes.Clone(prefix)}
}

// NewPrefixedReader returns a read-only view of d under prefix. It is the
// same object as NewPrefixedDatabase, named for intent at call sites.
func NewPrefixedReader(d db.Database, prefix []byte) db.Tx {
	return NewPrefixedDatabase(d, prefix)
}

func (p *PrefixedDatabase) prefixed(key []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(key))
	out = append(out, p.prefix...)
	return append(out, key...)
}

func (p *PrefixedDatabase) Get(key []byte) ([]byte, error) {
	return p.db.Get(p.prefixed(key))
}

func (p *PrefixedDatabase) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	full := p.prefixed(prefix)
	return p.db.Iterate(full, func(k, v []byte) bool {
		return callback(k[len(p.prefix):], v)
	})
}

func (p *PrefixedDatabase) WriteTx() db.WriteTx {
	return NewPrefixedWriteTx(p.db.WriteTx(), p.prefix)
}

// Close is a no-op: the underlying database owns its lifecycle.
func (p *PrefixedDatabase) Close() error { return nil }

// Compact delegates to the underlying database.
func (p *PrefixedDatabase) Compact() error { return p.db.Compact() }

// PrefixedWriteTx is a db.WriteTx view under a fixed prefix.
type PrefixedWriteTx struct {
	tx     db.WriteTx
	prefix []byte
}

var _ db.WriteTx = (*PrefixedWriteTx)(nil)

// NewPrefixedWriteTx wraps an existing write transaction under prefix.
func NewPrefixedWriteTx(tx db.WriteTx, prefix []byte) *PrefixedWriteTx {
	return &PrefixedWriteTx{tx: tx, prefix: bytes.Clone(prefix)}
}

func (t *PrefixedWriteTx) prefixed(key []byte) []byte {
	out := make([]byte, 0, len(t.prefix)+len(key))
	out = append(out, t.prefix...)
	return append(out, key...)
}

func (t *PrefixedWriteTx) Get(key []byte) ([]byte, error) {
	return t.tx.Get(t.prefixed(key))
}

func (t *PrefixedWriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	full := t.prefixed(prefix)
	return t.tx.Iterate(full, func(k, v []byte) bool {
		return callback(k[len(t.prefix):], v)
	})
}

func (t *PrefixedWriteTx) Set(key, value []byte) error {
	return t.tx.Set(t.prefixed(key), value)
}

func (t *PrefixedWriteTx) Delete(key []byte) error {
	return t.tx.Delete(t.prefixed(key))
}

func (t *PrefixedWriteTx) Commit() error { return t.tx.Commit() }

func (t *PrefixedWriteTx) Discard() { t.tx.Discard() }
