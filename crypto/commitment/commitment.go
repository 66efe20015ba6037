// Package commitment implements the salary commitment scheme. A commitment
// is Poseidon(salary, blinding) over the BN254 scalar field, so the exact
// same function can be re-expressed inside the payment circuit. Commitments
// are hiding (the blinding factor is uniformly random) and binding
// (Poseidon is collision resistant over the field).
package commitment

import (
	"crypto/subtle"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/veilpay/payroll-node/crypto/fieldcodec"
	"github.com/veilpay/payroll-node/types"
)

// GenerateBlindingFactor returns 32 cryptographically secure random bytes.
// Production commitments must always use this; a seeded generator would make
// salaries recoverable by brute force over the blinding space.
func GenerateBlindingFactor() (types.BlindingFactor, error) {
	return types.NewBlindingFactor()
}

// BlindingScalar reduces the blinding factor bytes into the scalar field.
// The commitment, the nullifier and the circuit witness must all use this
// same reduction so that the in-circuit recomputation matches.
func BlindingScalar(blinding types.BlindingFactor) *big.Int {
	v := new(big.Int).SetBytes(blinding[:])
	return v.Mod(v, fr.Modulus())
}

// Commit computes the Poseidon commitment over (salary, blinding). It is
// deterministic: the same inputs always yield the same 32-byte commitment.
// The salary must be a non-negative integer inside the scalar field.
func Commit(salary *big.Int, blinding types.BlindingFactor) (types.Commitment, error) {
	if salary == nil || salary.Sign() < 0 {
		return nil, fmt.Errorf("salary must be a non-negative integer")
	}
	if salary.Cmp(fr.Modulus()) >= 0 {
		return nil, fmt.Errorf("salary exceeds the scalar field")
	}
	h, err := poseidon.Hash([]*big.Int{salary, BlindingScalar(blinding)})
	if err != nil {
		return nil, fmt.Errorf("poseidon hash failed: %w", err)
	}
	return fieldcodec.EncodeScalar(h)
}

// Verify reports whether commit(salary, blinding) equals the given
// commitment. It is pure and compares the output bytes in constant time to
// avoid leaking how much of a guessed salary matches.
func Verify(c types.Commitment, salary *big.Int, blinding types.BlindingFactor) bool {
	computed, err := Commit(salary, blinding)
	if err != nil {
		return false
	}
	if len(c) != types.CommitmentSize {
		return false
	}
	return subtle.ConstantTimeCompare(computed, c) == 1
}
