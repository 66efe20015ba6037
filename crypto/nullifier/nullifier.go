// Package nullifier derives the per-payment nullifier that prevents a salary
// commitment from being paid twice for the same period.
//
// The nullifier is a pure function of (commitment, period, secret). It must
// never take wall-clock time as an input: the ledger-side verifier has to be
// able to recompute the exact same value, and nullifiers for different
// periods under the same commitment must stay unlinkable without the secret.
package nullifier

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/veilpay/payroll-node/crypto/commitment"
	"github.com/veilpay/payroll-node/crypto/fieldcodec"
	"github.com/veilpay/payroll-node/types"
)

// Derive computes Poseidon(commitment, period, secret) and encodes it as a
// 32-byte big-endian scalar. Deterministic: the same triple always yields
// the same nullifier.
func Derive(c types.Commitment, period types.Period, secret types.BlindingFactor) (types.Nullifier, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("invalid billing period %d", uint32(period))
	}
	cs, err := fieldcodec.DecodeScalar(c)
	if err != nil {
		return nil, fmt.Errorf("invalid commitment: %w", err)
	}
	h, err := poseidon.Hash([]*big.Int{
		cs,
		new(big.Int).SetUint64(uint64(period)),
		commitment.BlindingScalar(secret),
	})
	if err != nil {
		return nil, fmt.Errorf("poseidon hash failed: %w", err)
	}
	return fieldcodec.EncodeScalar(h)
}
