// Package secrets stores blinding factors keyed by company and employee.
//
// The blinding factor is the only secret material the node holds. Losing it
// makes the corresponding commitment unprovable, and leaking it breaks the
// hiding property, so the store keeps access per-key exclusive and erases
// secrets explicitly when they are rotated or the employee is deactivated.
package secrets

import (
	"errors"
	"fmt"
	"sync"

	"github.com/veilpay/payroll-node/db"
	"github.com/veilpay/payroll-node/db/prefixeddb"
	"github.com/veilpay/payroll-node/types"
)

// ErrSecretNotFound is returned when no blinding factor exists for an
// employee. It signals the commitment was not produced through this node's
// own lifecycle; callers must never fall back to a zero or derived secret.
var ErrSecretNotFound = errors.New("blinding factor not found")

var secretPrefix = []byte("bf/")

// Store is the durable, access-controlled keyed store for blinding factors.
// Lock and Unlock provide per-employee mutual exclusion so a payment proof is
// never built from a half-rotated secret.
type Store interface {
	// Lock acquires the per-employee lock. It must be held across any
	// read-modify sequence involving the employee's secret.
	Lock(ek types.EmployeeKey)
	// Unlock releases the per-employee lock.
	Unlock(ek types.EmployeeKey)
	// Get returns a copy of the employee's blinding factor, or
	// ErrSecretNotFound.
	Get(ek types.EmployeeKey) (types.BlindingFactor, error)
	// Set stores the employee's blinding factor, replacing any previous one.
	Set(ek types.EmployeeKey, secret types.BlindingFactor) error
	// Delete erases the employee's blinding factor. Deleting a missing
	// secret is a no-op.
	Delete(ek types.EmployeeKey) error
	// Close releases the store resources.
	Close() error
}

// DBStore implements Store on top of a key-value database.
type DBStore struct {
	db    db.Database
	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock is a reference-counted mutex. Entries are evicted from the lock map
// once no goroutine holds or waits on them, so the map does not grow with the
// number of employees ever seen.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

var _ Store = (*DBStore)(nil)

// NewDBStore creates a blinding factor store on the given database.
func NewDBStore(database db.Database) *DBStore {
	return &DBStore{
		db:    database,
		locks: make(map[string]*keyLock),
	}
}

func (s *DBStore) Lock(ek types.EmployeeKey) {
	s.mu.Lock()
	key := ek.String()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()
	l.mu.Lock()
}

func (s *DBStore) Unlock(ek types.EmployeeKey) {
	s.mu.Lock()
	key := ek.String()
	l, ok := s.locks[key]
	if !ok {
		s.mu.Unlock()
		panic(fmt.Sprintf("unlock of unheld secret lock for %s", key))
	}
	l.refs--
	if l.refs == 0 {
		delete(s.locks, key)
	}
	s.mu.Unlock()
	l.mu.Unlock()
}

func (s *DBStore) Get(ek types.EmployeeKey) (types.BlindingFactor, error) {
	var secret types.BlindingFactor
	data, err := prefixeddb.NewPrefixedReader(s.db, secretPrefix).Get(ek.Bytes())
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return secret, fmt.Errorf("%w: %s", ErrSecretNotFound, ek)
		}
		return secret, fmt.Errorf("get blinding factor: %w", err)
	}
	if len(data) != types.BlindingFactorSize {
		return secret, fmt.Errorf("stored blinding factor for %s has size %d", ek, len(data))
	}
	copy(secret[:], data)
	return secret, nil
}

func (s *DBStore) Set(ek types.EmployeeKey, secret types.BlindingFactor) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), secretPrefix)
	defer wTx.Discard()
	if err := wTx.Set(ek.Bytes(), secret.Bytes()); err != nil {
		return fmt.Errorf("store blinding factor: %w", err)
	}
	return wTx.Commit()
}

func (s *DBStore) Delete(ek types.EmployeeKey) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), secretPrefix)
	defer wTx.Discard()
	// overwrite before deleting so the previous value does not survive in
	// the backend's latest version
	zero := make([]byte, types.BlindingFactorSize)
	if err := wTx.Set(ek.Bytes(), zero); err != nil {
		return fmt.Errorf("erase blinding factor: %w", err)
	}
	if err := wTx.Delete(ek.Bytes()); err != nil {
		return fmt.Errorf("delete blinding factor: %w", err)
	}
	return wTx.Commit()
}

func (s *DBStore) Close() error {
	return s.db.Close()
}
