package secrets

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/veilpay/payroll-node/db/inmemory"
	"github.com/veilpay/payroll-node/types"
)

func testEmployeeKey(b byte) types.EmployeeKey {
	return types.EmployeeKey{
		Company:  common.BytesToAddress([]byte{0x01, b}),
		Employee: common.BytesToAddress([]byte{0x02, b}),
	}
}

func TestStoreLifecycle(t *testing.T) {
	c := qt.New(t)
	store := NewDBStore(inmemory.New())
	defer func() { _ = store.Close() }()

	ek := testEmployeeKey(1)

	_, err := store.Get(ek)
	c.Assert(err, qt.ErrorIs, ErrSecretNotFound)

	secret, err := types.NewBlindingFactor()
	c.Assert(err, qt.IsNil)
	c.Assert(store.Set(ek, secret), qt.IsNil)

	got, err := store.Get(ek)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, secret)

	// rotation replaces the previous secret
	rotated, err := types.NewBlindingFactor()
	c.Assert(err, qt.IsNil)
	c.Assert(store.Set(ek, rotated), qt.IsNil)

	got, err = store.Get(ek)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, rotated)

	c.Assert(store.Delete(ek), qt.IsNil)
	_, err = store.Get(ek)
	c.Assert(err, qt.ErrorIs, ErrSecretNotFound)

	// deleting again is a no-op
	c.Assert(store.Delete(ek), qt.IsNil)
}

func TestStoreKeyedLocking(t *testing.T) {
	c := qt.New(t)
	store := NewDBStore(inmemory.New())
	defer func() { _ = store.Close() }()

	ek := testEmployeeKey(2)
	secret, err := types.NewBlindingFactor()
	c.Assert(err, qt.IsNil)
	c.Assert(store.Set(ek, secret), qt.IsNil)

	// concurrent rotate/read under the per-key lock never observes a
	// mismatched secret
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.Lock(ek)
				next, err := types.NewBlindingFactor()
				if err == nil {
					_ = store.Set(ek, next)
					got, err := store.Get(ek)
					if err != nil || got != next {
						t.Errorf("read secret does not match the one just written")
					}
				}
				store.Unlock(ek)
			}
		}()
	}
	wg.Wait()

	// released locks are evicted, the map does not accumulate entries
	store.mu.Lock()
	c.Assert(store.locks, qt.HasLen, 0)
	store.mu.Unlock()
}
