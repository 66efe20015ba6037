package db_test

import (
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/veilpay/payroll-node/db"
	"github.com/veilpay/payroll-node/db/inmemory"
	"github.com/veilpay/payroll-node/db/pebbledb"
	"github.com/veilpay/payroll-node/db/prefixeddb"
)

// backends returns a fresh instance of every db.Database implementation so
// the same behavioral checks run against all of them.
func backends(t *testing.T) map[string]db.Database {
	t.Helper()
	pdb, err := pebbledb.New(db.Options{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("pebbledb: %v", err)
	}
	mdb := inmemory.New()
	t.Cleanup(func() {
		_ = pdb.Close()
		_ = mdb.Close()
	})
	return map[string]db.Database{
		"pebbledb": pdb,
		"inmemory": mdb,
	}
}

func TestGetSetDelete(t *testing.T) {
	for name, d := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := qt.New(t)

			_, err := d.Get([]byte("missing"))
			c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

			tx := d.WriteTx()
			c.Assert(tx.Set([]byte("k1"), []byte("v1")), qt.IsNil)
			c.Assert(tx.Set([]byte("k2"), []byte("v2")), qt.IsNil)

			// uncommitted writes are visible inside the tx only
			v, err := tx.Get([]byte("k1"))
			c.Assert(err, qt.IsNil)
			c.Assert(string(v), qt.Equals, "v1")
			_, err = d.Get([]byte("k1"))
			c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

			c.Assert(tx.Commit(), qt.IsNil)
			tx.Discard()

			v, err = d.Get([]byte("k1"))
			c.Assert(err, qt.IsNil)
			c.Assert(string(v), qt.Equals, "v1")

			tx = d.WriteTx()
			c.Assert(tx.Delete([]byte("k1")), qt.IsNil)
			// deleting a missing key is not an error
			c.Assert(tx.Delete([]byte("nope")), qt.IsNil)
			c.Assert(tx.Commit(), qt.IsNil)

			_, err = d.Get([]byte("k1"))
			c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
			_, err = d.Get([]byte("k2"))
			c.Assert(err, qt.IsNil)
		})
	}
}

func TestDiscard(t *testing.T) {
	for name, d := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := qt.New(t)

			tx := d.WriteTx()
			c.Assert(tx.Set([]byte("gone"), []byte("x")), qt.IsNil)
			tx.Discard()

			_, err := d.Get([]byte("gone"))
			c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
		})
	}
}

func TestIteratePrefix(t *testing.T) {
	for name, d := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := qt.New(t)

			tx := d.WriteTx()
			for i := 0; i < 5; i++ {
				c.Assert(tx.Set(fmt.Appendf(nil, "a/%d", i), []byte{byte(i)}), qt.IsNil)
			}
			c.Assert(tx.Set([]byte("b/0"), []byte{0xff}), qt.IsNil)
			c.Assert(tx.Commit(), qt.IsNil)

			// in key order, prefix only
			var keys []string
			err := d.Iterate([]byte("a/"), func(k, v []byte) bool {
				keys = append(keys, string(k))
				return true
			})
			c.Assert(err, qt.IsNil)
			c.Assert(keys, qt.DeepEquals, []string{"a/0", "a/1", "a/2", "a/3", "a/4"})

			// early stop
			count := 0
			err = d.Iterate([]byte("a/"), func(k, v []byte) bool {
				count++
				return count < 2
			})
			c.Assert(err, qt.IsNil)
			c.Assert(count, qt.Equals, 2)
		})
	}
}

func TestPrefixedViews(t *testing.T) {
	for name, d := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := qt.New(t)

			foo := prefixeddb.NewPrefixedDatabase(d, []byte("foo/"))
			bar := prefixeddb.NewPrefixedDatabase(d, []byte("bar/"))

			tx := foo.WriteTx()
			c.Assert(tx.Set([]byte("k"), []byte("foo-value")), qt.IsNil)
			c.Assert(tx.Commit(), qt.IsNil)

			tx = bar.WriteTx()
			c.Assert(tx.Set([]byte("k"), []byte("bar-value")), qt.IsNil)
			c.Assert(tx.Commit(), qt.IsNil)

			// same short key, disjoint namespaces
			v, err := foo.Get([]byte("k"))
			c.Assert(err, qt.IsNil)
			c.Assert(string(v), qt.Equals, "foo-value")
			v, err = bar.Get([]byte("k"))
			c.Assert(err, qt.IsNil)
			c.Assert(string(v), qt.Equals, "bar-value")

			// iteration strips the prefix
			err = foo.Iterate(nil, func(k, v []byte) bool {
				c.Assert(string(k), qt.Equals, "k")
				return true
			})
			c.Assert(err, qt.IsNil)

			// the underlying database sees the full key
			v, err = d.Get([]byte("foo/k"))
			c.Assert(err, qt.IsNil)
			c.Assert(string(v), qt.Equals, "foo-value")
		})
	}
}

func TestWriteTxConflict(t *testing.T) {
	c := qt.New(t)
	d := inmemory.New()
	defer func() { _ = d.Close() }()

	tx := d.WriteTx()
	c.Assert(tx.Set([]byte("k"), []byte("v0")), qt.IsNil)
	c.Assert(tx.Commit(), qt.IsNil)

	tx1 := d.WriteTx()
	tx2 := d.WriteTx()
	_, err := tx1.Get([]byte("k"))
	c.Assert(err, qt.IsNil)
	c.Assert(tx1.Set([]byte("k"), []byte("v1")), qt.IsNil)
	c.Assert(tx2.Set([]byte("k"), []byte("v2")), qt.IsNil)

	c.Assert(tx2.Commit(), qt.IsNil)
	// tx1 read the key before tx2 committed
	c.Assert(tx1.Commit(), qt.ErrorIs, db.ErrConflict)

	v, err := d.Get([]byte("k"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "v2")
}
