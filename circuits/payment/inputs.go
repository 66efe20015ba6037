package payment

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/ethereum/go-ethereum/common"

	"github.com/veilpay/payroll-node/crypto/commitment"
	"github.com/veilpay/payroll-node/crypto/fieldcodec"
	"github.com/veilpay/payroll-node/crypto/hash/poseidon"
	"github.com/veilpay/payroll-node/crypto/nullifier"
	"github.com/veilpay/payroll-node/types"
)

// PublicInputs is the public part of a payment statement, in the same order
// as the circuit's public witness.
type PublicInputs struct {
	Commitment    types.Commitment `json:"commitment"`
	Nullifier     types.Nullifier  `json:"nullifier"`
	RecipientHash types.HexBytes   `json:"recipientHash"`
	Period        types.Period     `json:"period"`
}

// RecipientHash computes the binding hash of a payment recipient identity as
// Poseidon over the company and employee address scalars. It is recomputed
// by both prover and verifier; it carries no private data.
func RecipientHash(company, employee common.Address) (types.HexBytes, error) {
	h, err := poseidon.MultiPoseidon(
		new(big.Int).SetBytes(company.Bytes()),
		new(big.Int).SetBytes(employee.Bytes()),
	)
	if err != nil {
		return nil, fmt.Errorf("recipient hash: %w", err)
	}
	return fieldcodec.EncodeScalar(h)
}

// Assignment builds the full witness assignment for proving. The salary and
// blinding stay on the prover side only; the remaining fields must match the
// public inputs submitted with the proof.
func Assignment(salary *big.Int, blinding types.BlindingFactor, pub PublicInputs) (frontend.Circuit, error) {
	cm, err := fieldcodec.DecodeScalar(pub.Commitment)
	if err != nil {
		return nil, fmt.Errorf("commitment: %w", err)
	}
	nf, err := fieldcodec.DecodeScalar(pub.Nullifier)
	if err != nil {
		return nil, fmt.Errorf("nullifier: %w", err)
	}
	rh, err := fieldcodec.DecodeScalar(pub.RecipientHash)
	if err != nil {
		return nil, fmt.Errorf("recipient hash: %w", err)
	}
	return &Circuit{
		Commitment:    cm,
		Nullifier:     nf,
		RecipientHash: rh,
		Period:        new(big.Int).SetUint64(uint64(pub.Period)),
		Salary:        new(big.Int).Set(salary),
		Blinding:      commitment.BlindingScalar(blinding),
	}, nil
}

// PublicAssignment builds a public-only assignment, used to derive the
// public witness during verification.
func PublicAssignment(pub PublicInputs) (frontend.Circuit, error) {
	cm, err := fieldcodec.DecodeScalar(pub.Commitment)
	if err != nil {
		return nil, fmt.Errorf("commitment: %w", err)
	}
	nf, err := fieldcodec.DecodeScalar(pub.Nullifier)
	if err != nil {
		return nil, fmt.Errorf("nullifier: %w", err)
	}
	rh, err := fieldcodec.DecodeScalar(pub.RecipientHash)
	if err != nil {
		return nil, fmt.Errorf("recipient hash: %w", err)
	}
	return &Circuit{
		Commitment:    cm,
		Nullifier:     nf,
		RecipientHash: rh,
		Period:        new(big.Int).SetUint64(uint64(pub.Period)),
	}, nil
}

// CheckAssignment verifies natively that the private inputs satisfy the
// statement before spending CPU on proving. It mirrors the circuit
// constraints exactly.
func CheckAssignment(salary *big.Int, blinding types.BlindingFactor, pub PublicInputs) error {
	if salary == nil || salary.Sign() < 0 || salary.BitLen() > MaxSalaryBits {
		return fmt.Errorf("salary out of range")
	}
	if !commitment.Verify(pub.Commitment, salary, blinding) {
		return fmt.Errorf("private inputs do not open the commitment")
	}
	nf, err := nullifier.Derive(pub.Commitment, pub.Period, blinding)
	if err != nil {
		return err
	}
	if !nf.Equal(pub.Nullifier) {
		return fmt.Errorf("nullifier does not match (commitment, period, secret)")
	}
	return nil
}
