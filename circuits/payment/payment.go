// Package payment defines the salary payment circuit: it proves knowledge of
// a (salary, blinding) pair behind a public commitment and binds the payment
// to a period and a recipient without revealing the salary.
package payment

import (
	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/gnark-crypto-primitives/hash/native/bn254/poseidon"
)

// HashFn is the in-circuit hash. It must recompute exactly the values
// produced natively by the commitment and nullifier engines.
var HashFn = poseidon.MultiHash

// MaxSalaryBits bounds salary values (in cents). 64 bits is far beyond any
// real payroll amount while keeping the range check cheap.
const MaxSalaryBits = 64

// Circuit is the payment constraint system.
//
// Public inputs, in witness order: Commitment, Nullifier, RecipientHash,
// Period. Private inputs: Salary, Blinding.
type Circuit struct {
	// Commitment is the registered salary commitment Poseidon(salary, blinding).
	Commitment frontend.Variable `gnark:",public"`
	// Nullifier is Poseidon(commitment, period, blinding) for this payment.
	Nullifier frontend.Variable `gnark:",public"`
	// RecipientHash binds the proof to the paid company/employee identity.
	RecipientHash frontend.Variable `gnark:",public"`
	// Period is the canonical billing period identifier (YYYYMM).
	Period frontend.Variable `gnark:",public"`

	// Salary is the private salary amount in cents.
	Salary frontend.Variable
	// Blinding is the private blinding scalar of the commitment.
	Blinding frontend.Variable
}

// Define declares the circuit constraints.
func (c *Circuit) Define(api frontend.API) error {
	// salary is a bounded non-negative amount
	api.ToBinary(c.Salary, MaxSalaryBits)

	// the commitment opens to (salary, blinding)
	cm, err := HashFn(api, c.Salary, c.Blinding)
	if err != nil {
		return err
	}
	api.AssertIsEqual(c.Commitment, cm)

	// the nullifier is derived from this commitment, period and blinding,
	// so the same (commitment, period) can never yield two valid nullifiers
	nf, err := HashFn(api, c.Commitment, c.Period, c.Blinding)
	if err != nil {
		return err
	}
	api.AssertIsEqual(c.Nullifier, nf)

	// keep the recipient binding hash constrained in the statement
	api.AssertIsDifferent(c.RecipientHash, 0)
	return nil
}
