package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/veilpay/payroll-node/types"
)

// historyKey builds the commitment history key for an employee and version.
func historyKey(ek types.EmployeeKey, version uint32) []byte {
	key := ek.Bytes()
	return binary.BigEndian.AppendUint32(key, version)
}

// RegisterCommitment stores a new active commitment for an employee. If an
// active commitment already exists it is superseded: moved to the history
// namespace and replaced by the new one with a bumped version. The superseded
// commitment remains queryable for historical nullifier checks.
func (s *Storage) RegisterCommitment(ek types.EmployeeKey, commitment types.Commitment) (*CommitmentRecord, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	version := uint32(0)
	prev, err := s.commitmentUnsafe(ek)
	switch {
	case err == nil:
		if prev.Commitment.Equal(commitment) {
			return nil, fmt.Errorf("%w: commitment already registered for employee", ErrKeyAlreadyExists)
		}
		prev.Active = false
		if err := s.setArtifact(commitmentHistoryPrefix, historyKey(ek, prev.Version), prev); err != nil {
			return nil, fmt.Errorf("archive superseded commitment: %w", err)
		}
		version = prev.Version + 1
	case errors.Is(err, ErrNotFound):
		// first commitment for this employee
	default:
		return nil, err
	}

	record := &CommitmentRecord{
		Commitment: commitment,
		Company:    ek.Company,
		Employee:   ek.Employee,
		Version:    version,
		CreatedAt:  time.Now().Unix(),
		Active:     true,
	}
	if err := s.setArtifact(commitmentPrefix, ek.Bytes(), record); err != nil {
		return nil, fmt.Errorf("store commitment: %w", err)
	}
	s.cache.Remove(cacheKey(commitmentPrefix, ek.Bytes()))
	return record, nil
}

// Commitment returns the active commitment record for an employee. Returns
// ErrNotFound if the employee has no active commitment.
func (s *Storage) Commitment(ek types.EmployeeKey) (*CommitmentRecord, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.commitmentUnsafe(ek)
}

func (s *Storage) commitmentUnsafe(ek types.EmployeeKey) (*CommitmentRecord, error) {
	ck := cacheKey(commitmentPrefix, ek.Bytes())
	if cached, ok := s.cache.Get(ck); ok {
		if record, ok := cached.(*CommitmentRecord); ok {
			return record, nil
		}
	}
	record := &CommitmentRecord{}
	if err := s.getArtifact(commitmentPrefix, ek.Bytes(), record); err != nil {
		return nil, err
	}
	s.cache.Add(ck, record)
	return record, nil
}

// CommitmentHistory returns the superseded commitment records for an employee
// in version order. An employee with no superseded commitments yields an empty
// slice.
func (s *Storage) CommitmentHistory(ek types.EmployeeKey) ([]*CommitmentRecord, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	keys, err := s.listArtifacts(commitmentHistoryPrefix)
	if err != nil {
		return nil, err
	}
	ekBytes := ek.Bytes()
	var records []*CommitmentRecord
	for _, k := range keys {
		if len(k) != len(ekBytes)+4 || string(k[:len(ekBytes)]) != string(ekBytes) {
			continue
		}
		record := &CommitmentRecord{}
		if err := s.getArtifact(commitmentHistoryPrefix, k, record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// DeactivateCommitment archives the active commitment for an employee and
// removes it from the active namespace. Further payments for the employee are
// rejected until a new commitment is registered.
func (s *Storage) DeactivateCommitment(ek types.EmployeeKey) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	record, err := s.commitmentUnsafe(ek)
	if err != nil {
		return err
	}
	record.Active = false
	if err := s.setArtifact(commitmentHistoryPrefix, historyKey(ek, record.Version), record); err != nil {
		return fmt.Errorf("archive commitment: %w", err)
	}
	if err := s.deleteArtifact(commitmentPrefix, ek.Bytes()); err != nil {
		return fmt.Errorf("delete active commitment: %w", err)
	}
	s.cache.Remove(cacheKey(commitmentPrefix, ek.Bytes()))
	return nil
}

func cacheKey(prefix, key []byte) string {
	return string(prefix) + string(key)
}
