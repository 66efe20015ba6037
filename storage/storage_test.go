package storage

import (
	"testing"
	"time"

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

func testCommitment(b byte) types.Commitment {
	cm := make(types.Commitment, types.CommitmentSize)
	cm[len(cm)-1] = b
	return cm
}

func TestCommitmentRegistry(t *testing.T) {
	c := qt.New(t)
	st := New(inmemory.New())
	defer st.Close()

	ek := testEmployeeKey(1)

	_, err := st.Commitment(ek)
	c.Assert(err, qt.Equals, ErrNotFound)

	first, err := st.RegisterCommitment(ek, testCommitment(1))
	c.Assert(err, qt.IsNil)
	c.Assert(first.Version, qt.Equals, uint32(0))
	c.Assert(first.Active, qt.Equals, true)

	got, err := st.Commitment(ek)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Commitment.Equal(testCommitment(1)), qt.Equals, true)

	// registering the same commitment again is rejected
	_, err = st.RegisterCommitment(ek, testCommitment(1))
	c.Assert(err, qt.ErrorIs, ErrKeyAlreadyExists)

	// rotation supersedes the old commitment
	second, err := st.RegisterCommitment(ek, testCommitment(2))
	c.Assert(err, qt.IsNil)
	c.Assert(second.Version, qt.Equals, uint32(1))

	got, err = st.Commitment(ek)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Commitment.Equal(testCommitment(2)), qt.Equals, true)

	history, err := st.CommitmentHistory(ek)
	c.Assert(err, qt.IsNil)
	c.Assert(history, qt.HasLen, 1)
	c.Assert(history[0].Commitment.Equal(testCommitment(1)), qt.Equals, true)
	c.Assert(history[0].Active, qt.Equals, false)

	// another employee's history stays separate
	other := testEmployeeKey(9)
	_, err = st.RegisterCommitment(other, testCommitment(9))
	c.Assert(err, qt.IsNil)
	history, err = st.CommitmentHistory(other)
	c.Assert(err, qt.IsNil)
	c.Assert(history, qt.HasLen, 0)
}

func TestDeactivateCommitment(t *testing.T) {
	c := qt.New(t)
	st := New(inmemory.New())
	defer st.Close()

	ek := testEmployeeKey(3)
	_, err := st.RegisterCommitment(ek, testCommitment(3))
	c.Assert(err, qt.IsNil)

	c.Assert(st.DeactivateCommitment(ek), qt.IsNil)

	_, err = st.Commitment(ek)
	c.Assert(err, qt.Equals, ErrNotFound)

	history, err := st.CommitmentHistory(ek)
	c.Assert(err, qt.IsNil)
	c.Assert(history, qt.HasLen, 1)
	c.Assert(history[0].Active, qt.Equals, false)

	c.Assert(st.DeactivateCommitment(ek), qt.Equals, ErrNotFound)
}

func TestPaymentRecords(t *testing.T) {
	c := qt.New(t)
	st := New(inmemory.New())
	defer st.Close()

	ek := testEmployeeKey(4)
	nullifier := types.Nullifier(testCommitment(40))
	record := &types.PaymentRecord{
		Company:   ek.Company,
		Employee:  ek.Employee,
		ProofHash: types.HexBytes{0xaa, 0xbb},
		Timestamp: time.Now().Truncate(time.Second),
		Period:    types.Period(202601),
	}

	c.Assert(st.AddPaymentRecord(nullifier, record), qt.IsNil)

	got, err := st.PaymentRecord(nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Period, qt.Equals, types.Period(202601))
	c.Assert(got.Company, qt.Equals, ek.Company)

	// append-only: same nullifier cannot be written twice
	c.Assert(st.AddPaymentRecord(nullifier, record), qt.Equals, ErrKeyAlreadyExists)

	other := &types.PaymentRecord{
		Company:   common.BytesToAddress([]byte{0xff}),
		Employee:  ek.Employee,
		Timestamp: time.Now(),
		Period:    types.Period(202601),
	}
	c.Assert(st.AddPaymentRecord(types.Nullifier(testCommitment(41)), other), qt.IsNil)

	records, err := st.PaymentRecords(ek.Company)
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.HasLen, 1)
	c.Assert(records[0].Employee, qt.Equals, ek.Employee)
}

func TestNullifiers(t *testing.T) {
	c := qt.New(t)
	st := New(inmemory.New())
	defer st.Close()

	nullifier := types.Nullifier(testCommitment(5))
	commitment := testCommitment(50)

	spent, _, err := st.IsNullifierSpent(nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(spent, qt.Equals, false)

	// processing lock excludes a second submission
	c.Assert(st.LockNullifier(nullifier), qt.IsNil)
	c.Assert(st.LockNullifier(nullifier), qt.Equals, ErrNullifierProcessing)

	processing, err := st.IsNullifierProcessing(nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(processing, qt.Equals, true)

	c.Assert(st.MarkNullifierSpent(nullifier, commitment, types.Period(202601)), qt.IsNil)
	c.Assert(st.ReleaseNullifier(nullifier), qt.IsNil)

	spent, rec, err := st.IsNullifierSpent(nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(spent, qt.Equals, true)
	c.Assert(rec.Period, qt.Equals, types.Period(202601))
	c.Assert(rec.Commitment.Equal(commitment), qt.Equals, true)

	// replay of the same nullifier is rejected
	c.Assert(st.MarkNullifierSpent(nullifier, commitment, types.Period(202601)), qt.Equals, ErrKeyAlreadyExists)

	// a different nullifier for the same (commitment, period) is also rejected
	c.Assert(st.MarkNullifierSpent(types.Nullifier(testCommitment(6)), commitment, types.Period(202601)), qt.Equals, ErrKeyAlreadyExists)

	paid, paidBy, err := st.IsPeriodPaid(commitment, types.Period(202601))
	c.Assert(err, qt.IsNil)
	c.Assert(paid, qt.Equals, true)
	c.Assert(paidBy.Equal(nullifier), qt.Equals, true)

	paid, _, err = st.IsPeriodPaid(commitment, types.Period(202602))
	c.Assert(err, qt.IsNil)
	c.Assert(paid, qt.Equals, false)
}

func TestViewKeyPersistence(t *testing.T) {
	c := qt.New(t)
	st := New(inmemory.New())
	defer st.Close()

	id := []byte("view-key-id")
	envelope := []byte{0x01, 0x02, 0x03}

	_, err := st.ViewKey(id)
	c.Assert(err, qt.Equals, ErrNotFound)

	c.Assert(st.SetViewKey(id, envelope), qt.IsNil)

	got, err := st.ViewKey(id)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, envelope)

	ids, err := st.ListViewKeys()
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.HasLen, 1)

	c.Assert(st.DeleteViewKey(id), qt.IsNil)
	_, err = st.ViewKey(id)
	c.Assert(err, qt.Equals, ErrNotFound)

	// deleting again is a no-op
	c.Assert(st.DeleteViewKey(id), qt.IsNil)
}
