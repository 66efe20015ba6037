/*
Package storage provides the persistent storage layer for the payroll node.

# Storage Organization

The storage uses a key-value database with prefixed namespaces to organize
different types of data:

## Commitment Registry
  - cm/  : companyAddr + employeeAddr → active CommitmentRecord
  - cmh/ : companyAddr + employeeAddr + version → superseded CommitmentRecord

## Payment Tracking
  - pr/ : nullifier → PaymentRecord (append-only, one per accepted payment)
  - nf/ : nullifier → NullifierRecord (accepted nullifier set)
  - pp/ : commitment + period → nullifier (paid period index)
  - pn/ : nullifier → processing marker (prevents concurrent submission)

## Audit
  - vk/ : viewKeyID → encoded view key envelope
*/
package storage

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/veilpay/payroll-node/db"
	"github.com/veilpay/payroll-node/db/prefixeddb"
	"github.com/veilpay/payroll-node/log"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrKeyAlreadyExists    = errors.New("key already exists")
	ErrNullifierProcessing = errors.New("nullifier is being processed")

	// Prefixes
	commitmentPrefix          = []byte("cm/")
	commitmentHistoryPrefix   = []byte("cmh/")
	paymentRecordPrefix       = []byte("pr/")
	nullifierPrefix           = []byte("nf/")
	paidPeriodPrefix          = []byte("pp/")
	processingNullifierPrefix = []byte("pn/")
	viewKeyPrefix             = []byte("vk/")
)

// Storage manages the payroll node artifacts on top of a prefixed key-value
// database.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex              // Lock for global operations
	cache      *lru.Cache[string, any] // Cache for artifacts
}

// New creates a new Storage instance on top of the given database.
func New(database db.Database) *Storage {
	cache, err := lru.New[string, any](1000)
	if err != nil {
		log.Fatalf("failed to create LRU cache: %v", err)
	}
	s := &Storage{
		db:    database,
		cache: cache,
	}

	// clear processing markers left behind by a previous run
	if err := s.recover(); err != nil {
		log.Errorw(err, "failed to clear stale processing markers")
	}

	return s
}

// recover clears the processing nullifier markers. After a crash any markers
// left behind must be removed so the corresponding submissions can be retried.
func (s *Storage) recover() error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	var staleKeys [][]byte
	reader := prefixeddb.NewPrefixedReader(s.db, processingNullifierPrefix)
	if err := reader.Iterate(nil, func(k, _ []byte) bool {
		kcopy := make([]byte, len(k))
		copy(kcopy, k)
		staleKeys = append(staleKeys, kcopy)
		return true
	}); err != nil {
		return fmt.Errorf("iterate processing markers: %w", err)
	}
	if len(staleKeys) == 0 {
		return nil
	}

	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), processingNullifierPrefix)
	defer wTx.Discard()
	for _, sk := range staleKeys {
		if err := wTx.Delete(sk); err != nil {
			return fmt.Errorf("delete processing marker: %w", err)
		}
	}
	return wTx.Commit()
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Errorw(err, "failed to close storage")
	}
}

func (s *Storage) deleteArtifact(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedDatabase(s.db, prefix).WriteTx()
	defer wTx.Discard()
	if err := wTx.Delete(key); err != nil {
		return err
	}
	return wTx.Commit()
}

// setArtifact helper function stores any kind of artifact in the storage. It
// receives the prefix of the key, the key itself and the artifact to store.
func (s *Storage) setArtifact(prefix []byte, key []byte, artifact any) error {
	data, err := EncodeArtifact(artifact)
	if err != nil {
		return err
	}

	wTx := prefixeddb.NewPrefixedDatabase(s.db, prefix).WriteTx()
	defer wTx.Discard()
	if err := wTx.Set(key, data); err != nil {
		return err
	}
	return wTx.Commit()
}

// getArtifact helper function retrieves any kind of artifact from the storage.
// It receives the prefix of the key and a pointer to the artifact to decode
// into. Returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix []byte, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedReader(s.db, prefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := DecodeArtifact(data, out); err != nil {
		return fmt.Errorf("could not decode artifact: %w", err)
	}
	return nil
}

// listArtifacts retrieves all the keys for a given prefix.
func (s *Storage) listArtifacts(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	if err := prefixeddb.NewPrefixedReader(s.db, prefix).Iterate(nil, func(k, _ []byte) bool {
		kcopy := make([]byte, len(k))
		copy(kcopy, k)
		keys = append(keys, kcopy)
		return true
	}); err != nil {
		return nil, err
	}
	return keys, nil
}
