// Package ledger defines the collaborator interfaces of the payment
// protocol: the commitment registry and the payment executor. The node ships
// a kv-backed implementation of both; a production deployment replaces them
// with an on-chain registry and verifier contract that consume the same
// byte-exact encodings.
package ledger

import (
	"context"
	"errors"

	"github.com/veilpay/payroll-node/circuits/payment"
	"github.com/veilpay/payroll-node/types"
)

var (
	// ErrNullifierReplay is returned when a submission reuses an already
	// accepted nullifier or pays an already paid (commitment, period). The
	// caller must map it to an already-paid outcome, never retry it.
	ErrNullifierReplay = errors.New("nullifier already recorded")
	// ErrProofInvalid is returned when a submitted proof fails
	// verification against the public inputs.
	ErrProofInvalid = errors.New("proof verification failed")
	// ErrCommitmentMismatch is returned when a submission's commitment does
	// not match the registered active commitment of the employee.
	ErrCommitmentMismatch = errors.New("commitment does not match registry")
)

// Registry stores salary commitments by employee. Registering over an
// existing commitment supersedes it; the superseded commitment stays valid
// for nullifier checks against past periods.
type Registry interface {
	// Register stores a new active commitment for the employee,
	// superseding any previous one.
	Register(ek types.EmployeeKey, commitment types.Commitment) error
	// ActiveCommitment returns the employee's active commitment.
	ActiveCommitment(ek types.EmployeeKey) (types.Commitment, error)
	// Deactivate removes the employee's active commitment. Payments are
	// rejected until a new commitment is registered.
	Deactivate(ek types.EmployeeKey) error
}

// Submission carries one payment attempt: the encoded proof and the public
// inputs it attests to, plus the ledger identities the payment is for.
type Submission struct {
	Proof  []byte
	Inputs payment.PublicInputs
	Record types.PaymentRecord
}

// Executor accepts or rejects payment submissions. It is the single arbiter
// of double payment: a nullifier is accepted at most once, regardless of how
// many distinct proofs claim it.
type Executor interface {
	// SubmitPayment verifies the proof and records the payment. Rejects
	// with ErrNullifierReplay on a duplicate nullifier or paid period,
	// ErrProofInvalid on verification failure.
	SubmitPayment(ctx context.Context, sub *Submission) error
	// IsPeriodPaid reports whether a payment was accepted for the
	// commitment and period.
	IsPeriodPaid(commitment types.Commitment, period types.Period) (bool, error)
}

// Verifier checks an encoded proof against public inputs. Implemented by the
// prover service; injected so the executor does not depend on circuit
// artifacts directly.
type Verifier interface {
	VerifyProof(proof []byte, pub payment.PublicInputs) bool
}
