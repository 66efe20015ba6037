package storage

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/veilpay/payroll-node/db/prefixeddb"
	"github.com/veilpay/payroll-node/types"
)

// AddPaymentRecord appends an accepted payment record, keyed by its nullifier.
// Records are append-only; overwriting an existing nullifier fails with
// ErrKeyAlreadyExists.
func (s *Storage) AddPaymentRecord(nullifier types.Nullifier, record *types.PaymentRecord) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	val, err := EncodeArtifact(record)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), paymentRecordPrefix)
	defer wTx.Discard()
	if _, err := wTx.Get(nullifier); err == nil {
		return ErrKeyAlreadyExists
	}
	if err := wTx.Set(nullifier, val); err != nil {
		return err
	}
	return wTx.Commit()
}

// PaymentRecord returns the payment record stored for a nullifier. Returns
// ErrNotFound if no payment with that nullifier was accepted.
func (s *Storage) PaymentRecord(nullifier types.Nullifier) (*types.PaymentRecord, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	record := &types.PaymentRecord{}
	if err := s.getArtifact(paymentRecordPrefix, nullifier, record); err != nil {
		return nil, err
	}
	return record, nil
}

// PaymentRecords returns every payment record stored for a company. The
// iteration order follows the nullifier byte order, not insertion order.
func (s *Storage) PaymentRecords(company common.Address) ([]*types.PaymentRecord, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	var records []*types.PaymentRecord
	var iterErr error
	reader := prefixeddb.NewPrefixedReader(s.db, paymentRecordPrefix)
	if err := reader.Iterate(nil, func(_, value []byte) bool {
		record := &types.PaymentRecord{}
		if err := DecodeArtifact(value, record); err != nil {
			iterErr = err
			return false
		}
		if record.Company == company {
			records = append(records, record)
		}
		return true
	}); err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return records, nil
}
