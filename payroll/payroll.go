// Package payroll orchestrates the employer-side payment flow: enrolling
// employees, generating payment proofs, submitting them to the ledger
// executor, rotating salaries and running whole payroll batches. It is the
// only package that handles plaintext salaries together with blinding
// factors; neither ever reaches the ledger or audit side.
package payroll

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/veilpay/payroll-node/crypto/commitment"
	"github.com/veilpay/payroll-node/crypto/nullifier"
	"github.com/veilpay/payroll-node/ledger"
	"github.com/veilpay/payroll-node/log"
	"github.com/veilpay/payroll-node/prover"
	"github.com/veilpay/payroll-node/secrets"
	"github.com/veilpay/payroll-node/types"
)

// Status is the outcome of a payment submission.
type Status int

const (
	// StatusAccepted means the ledger accepted the payment.
	StatusAccepted Status = iota
	// StatusAlreadyPaid means the (commitment, period) was already paid.
	// The submission is not retried: resubmitting would replay the same
	// nullifier.
	StatusAlreadyPaid
)

func (s Status) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusAlreadyPaid:
		return "already-paid"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result reports the outcome of one payment submission.
type Result struct {
	Employee  common.Address
	Status    Status
	Nullifier types.Nullifier
}

// Service drives the payment protocol end to end for one employer node.
type Service struct {
	registry ledger.Registry
	executor ledger.Executor
	secrets  secrets.Store
	prover   *prover.Service

	mu    sync.Mutex
	locks map[string]*paymentLock // keyed by (commitment, period)
}

// paymentLock is a reference-counted mutex; entries are evicted once no
// submission holds or waits on them, so the map does not grow with the number
// of periods ever paid.
type paymentLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a payroll service from its collaborators.
func New(registry ledger.Registry, executor ledger.Executor, store secrets.Store, prv *prover.Service) *Service {
	return &Service{
		registry: registry,
		executor: executor,
		secrets:  store,
		prover:   prv,
		locks:    make(map[string]*paymentLock),
	}
}

// lockPayment acquires the mutex serializing submissions for one
// (commitment, period) and returns its release function. Held across proof
// generation and submission so two concurrent calls cannot both produce
// accepted nullifiers.
func (s *Service) lockPayment(cm types.Commitment, period types.Period) func() {
	key := cm.Hex() + "/" + period.String()
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &paymentLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()
	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// Enroll creates a salary commitment for a new employee: generates a fresh
// blinding factor, stores it in the secret store and registers the commitment
// with the ledger registry.
func (s *Service) Enroll(ek types.EmployeeKey, salary *big.Int) (types.Commitment, error) {
	s.secrets.Lock(ek)
	defer s.secrets.Unlock(ek)

	blinding, err := commitment.GenerateBlindingFactor()
	if err != nil {
		return nil, fmt.Errorf("generate blinding factor: %w", err)
	}
	defer blinding.Scrub()

	cm, err := commitment.Commit(salary, blinding)
	if err != nil {
		return nil, fmt.Errorf("compute commitment: %w", err)
	}
	if err := s.secrets.Set(ek, blinding); err != nil {
		return nil, fmt.Errorf("store blinding factor: %w", err)
	}
	if err := s.registry.Register(ek, cm); err != nil {
		// roll the secret back so a later enroll starts clean
		if derr := s.secrets.Delete(ek); derr != nil {
			log.Warnw("failed to roll back blinding factor",
				"employee", ek.String(), "error", derr)
		}
		return nil, fmt.Errorf("register commitment: %w", err)
	}
	log.Infow("enrolled employee", "employee", ek.String())
	return cm, nil
}

// SubmitPayment proves and submits one salary payment for the given period.
// A replay rejection from the executor is mapped to StatusAlreadyPaid, never
// retried.
func (s *Service) SubmitPayment(ctx context.Context, ek types.EmployeeKey, salary *big.Int, period types.Period) (*Result, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("malformed period %d", period)
	}

	// the secret must not rotate under us while we build the proof
	s.secrets.Lock(ek)
	defer s.secrets.Unlock(ek)

	blinding, err := s.secrets.Get(ek)
	if err != nil {
		return nil, err
	}
	defer blinding.Scrub()

	cm, err := s.registry.ActiveCommitment(ek)
	if err != nil {
		return nil, fmt.Errorf("active commitment: %w", err)
	}

	unlock := s.lockPayment(cm, period)
	defer unlock()

	nf, err := nullifier.Derive(cm, period, blinding)
	if err != nil {
		return nil, err
	}

	// cheap idempotency check before spending seconds of CPU on a proof
	paid, err := s.executor.IsPeriodPaid(cm, period)
	if err != nil {
		return nil, fmt.Errorf("paid period lookup: %w", err)
	}
	if paid {
		return &Result{Employee: ek.Employee, Status: StatusAlreadyPaid, Nullifier: nf}, nil
	}

	start := time.Now()
	proof, err := s.prover.GeneratePaymentProof(ctx, salary, blinding, ek.Company, ek.Employee, cm, period)
	if err != nil {
		return nil, err
	}
	log.Debugw("payment proof generated",
		"employee", ek.String(),
		"period", period.String(),
		"took", log.Since(start))

	sub := &ledger.Submission{
		Proof:  proof.Proof,
		Inputs: proof.Inputs,
		Record: types.PaymentRecord{
			Company:   ek.Company,
			Employee:  ek.Employee,
			ProofHash: proof.Hash(),
			Timestamp: time.Now(),
			Period:    period,
		},
	}
	if err := s.executor.SubmitPayment(ctx, sub); err != nil {
		if errors.Is(err, ledger.ErrNullifierReplay) {
			// the ledger is the final arbiter; our proof lost a race
			return &Result{Employee: ek.Employee, Status: StatusAlreadyPaid, Nullifier: nf}, nil
		}
		return nil, err
	}
	return &Result{Employee: ek.Employee, Status: StatusAccepted, Nullifier: nf}, nil
}

// UpdateSalary rotates an employee's commitment: a new blinding factor and
// commitment supersede the old ones, and the old secret is erased. Past
// periods remain verifiable through the superseded commitment.
func (s *Service) UpdateSalary(ek types.EmployeeKey, newSalary *big.Int) (types.Commitment, error) {
	s.secrets.Lock(ek)
	defer s.secrets.Unlock(ek)

	old, err := s.secrets.Get(ek)
	if err != nil {
		return nil, err
	}
	defer old.Scrub()

	blinding, err := commitment.GenerateBlindingFactor()
	if err != nil {
		return nil, fmt.Errorf("generate blinding factor: %w", err)
	}
	defer blinding.Scrub()

	cm, err := commitment.Commit(newSalary, blinding)
	if err != nil {
		return nil, fmt.Errorf("compute commitment: %w", err)
	}
	// replacing the stored secret erases the old one; the registry update
	// comes second so a failure there can restore the old pair and keep the
	// stored secret opening the active commitment
	if err := s.secrets.Set(ek, blinding); err != nil {
		return nil, fmt.Errorf("store rotated blinding factor: %w", err)
	}
	if err := s.registry.Register(ek, cm); err != nil {
		if rerr := s.secrets.Set(ek, old); rerr != nil {
			log.Warnw("failed to restore blinding factor after rotation failure",
				"employee", ek.String(), "error", rerr)
		}
		return nil, fmt.Errorf("register rotated commitment: %w", err)
	}
	log.Infow("rotated salary commitment", "employee", ek.String())
	return cm, nil
}

// Deactivate removes an employee: the active commitment is retired and the
// blinding factor is erased. Historical payment records stay intact.
func (s *Service) Deactivate(ek types.EmployeeKey) error {
	s.secrets.Lock(ek)
	defer s.secrets.Unlock(ek)

	if err := s.registry.Deactivate(ek); err != nil {
		return fmt.Errorf("deactivate commitment: %w", err)
	}
	if err := s.secrets.Delete(ek); err != nil {
		return fmt.Errorf("erase blinding factor: %w", err)
	}
	log.Infow("deactivated employee", "employee", ek.String())
	return nil
}
