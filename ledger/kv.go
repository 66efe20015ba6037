package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/veilpay/payroll-node/log"
	"github.com/veilpay/payroll-node/storage"
	"github.com/veilpay/payroll-node/types"
)

// KVRegistry implements Registry on the local storage layer.
type KVRegistry struct {
	stg *storage.Storage
}

var _ Registry = (*KVRegistry)(nil)

// NewKVRegistry creates a registry backed by the given storage.
func NewKVRegistry(stg *storage.Storage) *KVRegistry {
	return &KVRegistry{stg: stg}
}

func (r *KVRegistry) Register(ek types.EmployeeKey, commitment types.Commitment) error {
	record, err := r.stg.RegisterCommitment(ek, commitment)
	if err != nil {
		return err
	}
	log.Debugw("registered commitment",
		"employee", ek.String(),
		"version", record.Version)
	return nil
}

func (r *KVRegistry) ActiveCommitment(ek types.EmployeeKey) (types.Commitment, error) {
	record, err := r.stg.Commitment(ek)
	if err != nil {
		return nil, err
	}
	return record.Commitment, nil
}

func (r *KVRegistry) Deactivate(ek types.EmployeeKey) error {
	return r.stg.DeactivateCommitment(ek)
}

// KVExecutor implements Executor on the local storage layer, mirroring the
// accept/reject behavior the on-chain verifier contract must match.
type KVExecutor struct {
	stg      *storage.Storage
	verifier Verifier
}

var _ Executor = (*KVExecutor)(nil)

// NewKVExecutor creates an executor backed by the given storage and proof
// verifier.
func NewKVExecutor(stg *storage.Storage, verifier Verifier) *KVExecutor {
	return &KVExecutor{stg: stg, verifier: verifier}
}

// SubmitPayment verifies and records a payment. The nullifier set is the
// detection key for double payment: two submissions for the same
// (commitment, period) collide on the nullifier even when their proof bytes
// differ.
func (e *KVExecutor) SubmitPayment(ctx context.Context, sub *Submission) error {
	if sub == nil || len(sub.Proof) == 0 {
		return fmt.Errorf("empty submission")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !sub.Inputs.Period.Valid() {
		return fmt.Errorf("malformed period %d", sub.Inputs.Period)
	}

	// serialize concurrent submissions of the same nullifier
	if err := e.stg.LockNullifier(sub.Inputs.Nullifier); err != nil {
		return err
	}
	defer func() {
		if err := e.stg.ReleaseNullifier(sub.Inputs.Nullifier); err != nil {
			log.Warnw("failed to release nullifier processing lock",
				"nullifier", sub.Inputs.Nullifier.String(),
				"error", err)
		}
	}()

	// the submission must spend the employee's registered commitment
	ek := types.EmployeeKey{Company: sub.Record.Company, Employee: sub.Record.Employee}
	registered, err := e.stg.Commitment(ek)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: no active commitment for %s", ErrCommitmentMismatch, ek)
		}
		return fmt.Errorf("commitment lookup: %w", err)
	}
	if !registered.Commitment.Equal(sub.Inputs.Commitment) {
		return fmt.Errorf("%w: %s", ErrCommitmentMismatch, ek)
	}

	spent, _, err := e.stg.IsNullifierSpent(sub.Inputs.Nullifier)
	if err != nil {
		return fmt.Errorf("nullifier lookup: %w", err)
	}
	if spent {
		return fmt.Errorf("%w: %s", ErrNullifierReplay, sub.Inputs.Nullifier.String())
	}

	if !e.verifier.VerifyProof(sub.Proof, sub.Inputs) {
		return fmt.Errorf("%w: nullifier %s", ErrProofInvalid, sub.Inputs.Nullifier.String())
	}

	if err := e.stg.MarkNullifierSpent(sub.Inputs.Nullifier, sub.Inputs.Commitment, sub.Inputs.Period); err != nil {
		if errors.Is(err, storage.ErrKeyAlreadyExists) {
			// lost the race against a concurrent submission
			return fmt.Errorf("%w: %s", ErrNullifierReplay, sub.Inputs.Nullifier.String())
		}
		return fmt.Errorf("record nullifier: %w", err)
	}

	if err := e.stg.AddPaymentRecord(sub.Inputs.Nullifier, &sub.Record); err != nil {
		return fmt.Errorf("append payment record: %w", err)
	}
	log.Infow("payment accepted",
		"nullifier", sub.Inputs.Nullifier.String(),
		"period", sub.Inputs.Period.String(),
		"company", sub.Record.Company.Hex())
	return nil
}

func (e *KVExecutor) IsPeriodPaid(commitment types.Commitment, period types.Period) (bool, error) {
	paid, _, err := e.stg.IsPeriodPaid(commitment, period)
	return paid, err
}
