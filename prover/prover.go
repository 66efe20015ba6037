// Package prover orchestrates Groth16 proof generation and verification for
// the payment circuit. Constraint solving and proving are delegated to the
// compiled circuit artifacts; this package owns the witness construction,
// the byte-level proof encoding and the concurrency model around proving.
package prover

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
)

// Prove builds a witness from the assignment and generates a Groth16 proof
// over BN254. This is the standard CPU implementation used in production.
func Prove(
	ccs constraint.ConstraintSystem,
	pk groth16.ProvingKey,
	assignment frontend.Circuit,
	opts ...backend.ProverOption,
) (groth16.Proof, error) {
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("failed to create witness: %w", err)
	}
	return groth16.Prove(ccs, pk, witness, opts...)
}

// Verify checks a Groth16 proof against the public-only assignment. It
// returns nil on success and an error describing the failure otherwise.
func Verify(proof groth16.Proof, vk groth16.VerifyingKey, public frontend.Circuit) error {
	pubWitness, err := frontend.NewWitness(public, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("failed to create public witness: %w", err)
	}
	return groth16.Verify(proof, vk, pubWitness)
}
