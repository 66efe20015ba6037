package prover

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/consensys/gnark/frontend"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/semaphore"

	"github.com/veilpay/payroll-node/circuits/payment"
	"github.com/veilpay/payroll-node/crypto/nullifier"
	"github.com/veilpay/payroll-node/log"
	"github.com/veilpay/payroll-node/types"
)

// ErrProofGeneration reports private inputs that do not satisfy the circuit
// or missing/corrupt circuit artifacts. It is not retryable without
// correcting the stored secret or salary.
var ErrProofGeneration = errors.New("proof generation failed")

// DefaultMaxConcurrentProofs bounds simultaneous proof computations. Each
// proof can take seconds of CPU and hundreds of MB of memory.
const DefaultMaxConcurrentProofs = 4

// PaymentProof is the encoded proof plus the public inputs it attests to.
// It is produced once per payment attempt and is immutable.
type PaymentProof struct {
	Proof  types.HexBytes       `json:"proof"` // 256 bytes, a||b||c
	Inputs payment.PublicInputs `json:"inputs"`
}

// Hash returns the proof-derived hash stored in payment records.
func (p *PaymentProof) Hash() types.HexBytes {
	h := sha256.Sum256(p.Proof)
	return h[:]
}

// Service generates and verifies payment proofs using injected circuit
// artifacts. Proof generation is CPU-bound and long-running; the service
// bounds concurrency with a weighted semaphore and supports cancellation
// through the caller's context.
type Service struct {
	artifacts *Artifacts
	sem       *semaphore.Weighted
}

// NewService creates a proof service around the given artifacts. If
// maxConcurrent is zero or negative, DefaultMaxConcurrentProofs is used.
func NewService(artifacts *Artifacts, maxConcurrent int64) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentProofs
	}
	return &Service{
		artifacts: artifacts,
		sem:       semaphore.NewWeighted(maxConcurrent),
	}
}

// GeneratePaymentProof builds the witness for a salary payment and produces
// the encoded Groth16 proof together with its public inputs. The salary and
// blinding factor never leave this function except inside the witness; local
// copies are scrubbed once proving finishes or is abandoned.
func (s *Service) GeneratePaymentProof(
	ctx context.Context,
	salary *big.Int,
	blinding types.BlindingFactor,
	company, employee common.Address,
	cm types.Commitment,
	period types.Period,
) (*PaymentProof, error) {
	nf, err := nullifier.Derive(cm, period, blinding)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	rh, err := payment.RecipientHash(company, employee)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	pub := payment.PublicInputs{
		Commitment:    cm,
		Nullifier:     nf,
		RecipientHash: rh,
		Period:        period,
	}

	// Fail fast before spending CPU: a mismatch here means the stored
	// blinding factor no longer opens the registered commitment.
	if err := payment.CheckAssignment(salary, blinding, pub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	assignment, err := payment.Assignment(salary, blinding, pub)
	if err != nil {
		s.sem.Release(1)
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}

	type result struct {
		proof types.HexBytes
		err   error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		defer s.sem.Release(1)
		// The witness secrets are scrubbed as soon as proving ends,
		// whether or not the caller is still waiting.
		defer scrubAssignment(assignment)
		proof, err := Prove(s.artifacts.CCS, s.artifacts.ProvingKey, assignment)
		if err != nil {
			done <- result{nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)}
			return
		}
		encoded, err := EncodeProof(proof)
		if err != nil {
			done <- result{nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)}
			return
		}
		done <- result{encoded, nil}
	}()

	select {
	case <-ctx.Done():
		// The in-flight computation cannot be interrupted, but it will
		// scrub its own secret material when it completes.
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		log.Debugw("payment proof generated",
			"period", period.String(),
			"took", log.Since(start))
		return &PaymentProof{Proof: res.proof, Inputs: pub}, nil
	}
}

// VerifyProof checks an encoded proof against its public inputs using the
// service verification key. It is a total function: any malformed proof or
// failed pairing check yields false, never an error.
func (s *Service) VerifyProof(proofBytes []byte, pub payment.PublicInputs) bool {
	proof, err := DecodeProof(proofBytes)
	if err != nil {
		return false
	}
	public, err := payment.PublicAssignment(pub)
	if err != nil {
		return false
	}
	return Verify(proof, s.artifacts.VerifyingKey, public) == nil
}

// ExportVerificationKey returns the canonical encoded verification key
// material used to initialize the ledger-side verifier.
func (s *Service) ExportVerificationKey() (*VerificationKeyMaterial, error) {
	return ExportVerificationKey(s.artifacts.VerifyingKey)
}

// scrubAssignment zeroes the private witness values of a payment assignment.
func scrubAssignment(c frontend.Circuit) {
	pc, ok := c.(*payment.Circuit)
	if !ok {
		return
	}
	for _, v := range []frontend.Variable{pc.Salary, pc.Blinding} {
		if b, ok := v.(*big.Int); ok {
			scrubBig(b)
		}
	}
}

// scrubBig overwrites the limbs of a big.Int and resets it to zero.
func scrubBig(v *big.Int) {
	if v == nil {
		return
	}
	words := v.Bits()
	for i := range words {
		words[i] = 0
	}
	v.SetInt64(0)
}
