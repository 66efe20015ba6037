package storage

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/veilpay/payroll-node/types"
)

// CommitmentRecord is the registry entry for an employee salary commitment.
// Only one record per employee is active at a time; superseded records are
// moved to the history namespace and remain valid for historical nullifier
// checks against past periods.
type CommitmentRecord struct {
	Commitment types.Commitment `cbor:"1,keyasint"`
	Company    common.Address   `cbor:"2,keyasint"`
	Employee   common.Address   `cbor:"3,keyasint"`
	Version    uint32           `cbor:"4,keyasint"`
	CreatedAt  int64            `cbor:"5,keyasint"` // unix seconds
	Active     bool             `cbor:"6,keyasint"`
}

// NullifierRecord marks a nullifier as accepted for a given period.
type NullifierRecord struct {
	Period     types.Period     `cbor:"1,keyasint"`
	Commitment types.Commitment `cbor:"2,keyasint"`
	RecordedAt int64            `cbor:"3,keyasint"` // unix seconds
}
