package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/veilpay/payroll-node/db"
	"github.com/veilpay/payroll-node/db/prefixeddb"
	"github.com/veilpay/payroll-node/types"
)

// LockNullifier marks a nullifier as being processed, so a concurrent
// submission for the same (commitment, period) cannot race it. Returns
// ErrNullifierProcessing if the nullifier is already locked.
func (s *Storage) LockNullifier(nullifier types.Nullifier) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	processing, err := s.isNullifierProcessing(nullifier)
	if err != nil {
		return err
	}
	if processing {
		return ErrNullifierProcessing
	}

	wtx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), processingNullifierPrefix)
	defer wtx.Discard()
	if err := wtx.Set(nullifier, []byte{1}); err != nil {
		return fmt.Errorf("failed to mark nullifier as processing: %w", err)
	}
	return wtx.Commit()
}

// ReleaseNullifier removes the processing marker for a nullifier.
func (s *Storage) ReleaseNullifier(nullifier types.Nullifier) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wtx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), processingNullifierPrefix)
	defer wtx.Discard()
	if err := wtx.Delete(nullifier); err != nil {
		return fmt.Errorf("failed to release nullifier: %w", err)
	}
	return wtx.Commit()
}

// IsNullifierProcessing reports whether a nullifier is currently locked for
// processing.
func (s *Storage) IsNullifierProcessing(nullifier types.Nullifier) (bool, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.isNullifierProcessing(nullifier)
}

func (s *Storage) isNullifierProcessing(nullifier types.Nullifier) (bool, error) {
	reader := prefixeddb.NewPrefixedReader(s.db, processingNullifierPrefix)
	if _, err := reader.Get(nullifier); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check nullifier processing status: %w", err)
	}
	return true, nil
}

// paidPeriodKey indexes an accepted payment by commitment and period.
func paidPeriodKey(commitment types.Commitment, period types.Period) []byte {
	key := make([]byte, 0, len(commitment)+4)
	key = append(key, commitment...)
	return binary.BigEndian.AppendUint32(key, uint32(period))
}

// MarkNullifierSpent records a nullifier in the accepted set and indexes the
// (commitment, period) pair it pays. Returns ErrKeyAlreadyExists if either the
// nullifier or the (commitment, period) pair was already accepted; the caller
// maps that to its replay handling.
func (s *Storage) MarkNullifierSpent(nullifier types.Nullifier, commitment types.Commitment, period types.Period) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	record := &NullifierRecord{
		Period:     period,
		Commitment: commitment,
		RecordedAt: time.Now().Unix(),
	}
	val, err := EncodeArtifact(record)
	if err != nil {
		return err
	}
	wTx := s.db.WriteTx()
	defer wTx.Discard()

	nfTx := prefixeddb.NewPrefixedWriteTx(wTx, nullifierPrefix)
	if _, err := nfTx.Get(nullifier); err == nil {
		return ErrKeyAlreadyExists
	}
	if err := nfTx.Set(nullifier, val); err != nil {
		return err
	}

	ppTx := prefixeddb.NewPrefixedWriteTx(wTx, paidPeriodPrefix)
	ppKey := paidPeriodKey(commitment, period)
	if _, err := ppTx.Get(ppKey); err == nil {
		return ErrKeyAlreadyExists
	}
	if err := ppTx.Set(ppKey, nullifier); err != nil {
		return err
	}
	return wTx.Commit()
}

// IsPeriodPaid reports whether an accepted payment exists for the commitment
// and period, and if so under which nullifier.
func (s *Storage) IsPeriodPaid(commitment types.Commitment, period types.Period) (bool, types.Nullifier, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	data, err := prefixeddb.NewPrefixedReader(s.db, paidPeriodPrefix).Get(paidPeriodKey(commitment, period))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil, nil
		}
		return false, nil, err
	}
	return true, types.Nullifier(data), nil
}

// IsNullifierSpent reports whether a nullifier is in the accepted set, and if
// so for which period.
func (s *Storage) IsNullifierSpent(nullifier types.Nullifier) (bool, *NullifierRecord, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	record := &NullifierRecord{}
	if err := s.getArtifact(nullifierPrefix, nullifier, record); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil, nil
		}
		return false, nil, err
	}
	return true, record, nil
}
