package prover

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"

	"github.com/veilpay/payroll-node/crypto/fieldcodec"
	"github.com/veilpay/payroll-node/types"
)

// EncodeProof serializes a Groth16 proof into the canonical 256-byte wire
// format a(64) || b(128) || c(64), with each curve point encoded by the
// field codec. Proofs carrying gnark commitment points cannot be expressed
// in this format and are rejected.
func EncodeProof(proof groth16.Proof) (types.HexBytes, error) {
	p, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("unexpected proof type %T", proof)
	}
	if len(p.Commitments) != 0 {
		return nil, fmt.Errorf("proof carries %d commitment points, wire format supports none", len(p.Commitments))
	}
	a, err := fieldcodec.EncodeG1(&p.Ar)
	if err != nil {
		return nil, fmt.Errorf("proof point a: %w", err)
	}
	b, err := fieldcodec.EncodeG2(&p.Bs)
	if err != nil {
		return nil, fmt.Errorf("proof point b: %w", err)
	}
	c, err := fieldcodec.EncodeG1(&p.Krs)
	if err != nil {
		return nil, fmt.Errorf("proof point c: %w", err)
	}
	out := make(types.HexBytes, 0, types.ProofSize)
	out = append(out, a...)
	out = append(out, b...)
	return append(out, c...), nil
}

// DecodeProof parses the 256-byte wire format back into a Groth16 proof,
// validating every point.
func DecodeProof(data []byte) (groth16.Proof, error) {
	if len(data) != types.ProofSize {
		return nil, fmt.Errorf("%w: proof must be %d bytes, got %d",
			fieldcodec.ErrEncoding, types.ProofSize, len(data))
	}
	a, err := fieldcodec.DecodeG1(data[:fieldcodec.G1Size])
	if err != nil {
		return nil, fmt.Errorf("proof point a: %w", err)
	}
	b, err := fieldcodec.DecodeG2(data[fieldcodec.G1Size : fieldcodec.G1Size+fieldcodec.G2Size])
	if err != nil {
		return nil, fmt.Errorf("proof point b: %w", err)
	}
	c, err := fieldcodec.DecodeG1(data[fieldcodec.G1Size+fieldcodec.G2Size:])
	if err != nil {
		return nil, fmt.Errorf("proof point c: %w", err)
	}
	p, ok := groth16.NewProof(ecc.BN254).(*groth16_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("unexpected proof type for BN254")
	}
	p.Ar = *a
	p.Bs = *b
	p.Krs = *c
	return p, nil
}

// VerificationKeyMaterial is the deterministic transform of the
// trusted-setup verification key into the canonical point encodings. It is
// exported once at deployment time to initialize the ledger-side verifier.
type VerificationKeyMaterial struct {
	Alpha types.HexBytes   `json:"alpha"` // G1, 64 bytes
	Beta  types.HexBytes   `json:"beta"`  // G2, 128 bytes
	Gamma types.HexBytes   `json:"gamma"` // G2, 128 bytes
	Delta types.HexBytes   `json:"delta"` // G2, 128 bytes
	IC    []types.HexBytes `json:"ic"`    // G1, 64 bytes each, one per public input plus one
}

// ExportVerificationKey encodes the verification key points with the field
// codec. The transform is deterministic: the same key always yields the
// same material.
func ExportVerificationKey(vk groth16.VerifyingKey) (*VerificationKeyMaterial, error) {
	k, ok := vk.(*groth16_bn254.VerifyingKey)
	if !ok {
		return nil, fmt.Errorf("unexpected verification key type %T", vk)
	}
	alpha, err := fieldcodec.EncodeG1(&k.G1.Alpha)
	if err != nil {
		return nil, fmt.Errorf("alpha: %w", err)
	}
	beta, err := fieldcodec.EncodeG2(&k.G2.Beta)
	if err != nil {
		return nil, fmt.Errorf("beta: %w", err)
	}
	gamma, err := fieldcodec.EncodeG2(&k.G2.Gamma)
	if err != nil {
		return nil, fmt.Errorf("gamma: %w", err)
	}
	delta, err := fieldcodec.EncodeG2(&k.G2.Delta)
	if err != nil {
		return nil, fmt.Errorf("delta: %w", err)
	}
	ic := make([]types.HexBytes, len(k.G1.K))
	for i := range k.G1.K {
		enc, err := fieldcodec.EncodeG1(&k.G1.K[i])
		if err != nil {
			return nil, fmt.Errorf("ic[%d]: %w", i, err)
		}
		ic[i] = enc
	}
	return &VerificationKeyMaterial{
		Alpha: alpha,
		Beta:  beta,
		Gamma: gamma,
		Delta: delta,
		IC:    ic,
	}, nil
}
