package types

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// CommitmentSize is the canonical byte length of a salary commitment.
	CommitmentSize = 32
	// NullifierSize is the canonical byte length of a payment nullifier.
	NullifierSize = 32
	// BlindingFactorSize is the byte length of a commitment blinding factor.
	BlindingFactorSize = 32
	// ProofSize is the byte length of an encoded Groth16 proof
	// (G1 || G2 || G1 = 64 + 128 + 64).
	ProofSize = 256
)

// Commitment is the public, hiding-and-binding hash of a private salary and
// its blinding factor, encoded as a 32-byte big-endian scalar.
type Commitment = HexBytes

// Nullifier is the public per-period value that prevents a commitment from
// being paid twice for the same period, encoded as a 32-byte big-endian
// scalar.
type Nullifier = HexBytes

// BlindingFactor is the private random value bound into a salary commitment.
// It never leaves the prover side; Scrub must be called when the value is
// superseded or abandoned.
type BlindingFactor [BlindingFactorSize]byte

// NewBlindingFactor returns a fresh blinding factor from crypto/rand.
func NewBlindingFactor() (BlindingFactor, error) {
	var bf BlindingFactor
	if _, err := rand.Read(bf[:]); err != nil {
		return BlindingFactor{}, fmt.Errorf("cannot generate blinding factor: %w", err)
	}
	return bf, nil
}

// Bytes returns a copy of the blinding factor bytes.
func (bf *BlindingFactor) Bytes() []byte {
	out := make([]byte, BlindingFactorSize)
	copy(out, bf[:])
	return out
}

// Scrub overwrites the blinding factor in place with zeros.
func (bf *BlindingFactor) Scrub() {
	for i := range bf {
		bf[i] = 0
	}
}

// Period is the canonical billing period identifier agreed with the ledger
// registry, encoded as YYYYMM (e.g. 202601). It is never a timestamp.
type Period uint32

// Valid reports whether the period has a plausible YYYYMM shape.
func (p Period) Valid() bool {
	month := uint32(p) % 100
	year := uint32(p) / 100
	return month >= 1 && month <= 12 && year >= 1970 && year <= 9999
}

// String returns the period formatted as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", uint32(p)/100, uint32(p)%100)
}

// PeriodFromTime returns the billing period containing t (UTC).
func PeriodFromTime(t time.Time) Period {
	t = t.UTC()
	return Period(uint32(t.Year())*100 + uint32(t.Month()))
}

// PaymentRecord is the append-only record written once per accepted payment.
// It carries no salary information; only public proof-derived data.
type PaymentRecord struct {
	Company   common.Address `json:"company" cbor:"1,keyasint"`
	Employee  common.Address `json:"employee" cbor:"2,keyasint"`
	ProofHash HexBytes       `json:"proofHash" cbor:"3,keyasint"`
	Timestamp time.Time      `json:"timestamp" cbor:"4,keyasint"`
	Period    Period         `json:"period" cbor:"5,keyasint"`
}

// EmployeeKey identifies an employee inside a company. It is the composite
// key used by the commitment registry and the secret store.
type EmployeeKey struct {
	Company  common.Address
	Employee common.Address
}

// Bytes returns the concatenated company||employee address bytes.
func (k EmployeeKey) Bytes() []byte {
	out := make([]byte, 0, 2*common.AddressLength)
	out = append(out, k.Company.Bytes()...)
	return append(out, k.Employee.Bytes()...)
}

// String returns a printable company/employee representation.
func (k EmployeeKey) String() string {
	return fmt.Sprintf("%s/%s", k.Company.Hex(), k.Employee.Hex())
}
