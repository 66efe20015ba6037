package payment

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/test"
	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/veilpay/payroll-node/crypto/commitment"
	"github.com/veilpay/payroll-node/crypto/fieldcodec"
	"github.com/veilpay/payroll-node/crypto/nullifier"
	"github.com/veilpay/payroll-node/types"
)

func testInputs(c *qt.C, salary *big.Int) (types.BlindingFactor, PublicInputs) {
	blinding, err := commitment.GenerateBlindingFactor()
	c.Assert(err, qt.IsNil)
	cm, err := commitment.Commit(salary, blinding)
	c.Assert(err, qt.IsNil)
	nf, err := nullifier.Derive(cm, types.Period(202601), blinding)
	c.Assert(err, qt.IsNil)
	rh, err := RecipientHash(common.BytesToAddress([]byte{0xc0}), common.BytesToAddress([]byte{0xe0}))
	c.Assert(err, qt.IsNil)
	return blinding, PublicInputs{
		Commitment:    cm,
		Nullifier:     nf,
		RecipientHash: rh,
		Period:        types.Period(202601),
	}
}

func TestRecipientHash(t *testing.T) {
	c := qt.New(t)

	company := common.BytesToAddress([]byte{0xc0})
	alice := common.BytesToAddress([]byte{0xa1})
	bob := common.BytesToAddress([]byte{0xb0})

	h1, err := RecipientHash(company, alice)
	c.Assert(err, qt.IsNil)
	c.Assert(h1, qt.HasLen, fieldcodec.ScalarSize)

	again, err := RecipientHash(company, alice)
	c.Assert(err, qt.IsNil)
	c.Assert(again.Equal(h1), qt.IsTrue)

	h2, err := RecipientHash(company, bob)
	c.Assert(err, qt.IsNil)
	c.Assert(h2.Equal(h1), qt.IsFalse)

	// swapping the roles changes the hash
	h3, err := RecipientHash(alice, company)
	c.Assert(err, qt.IsNil)
	c.Assert(h3.Equal(h1), qt.IsFalse)
}

// The in-circuit Poseidon must reproduce the native iden3 Poseidon exactly:
// a witness built from the native commitment and nullifier engines has to
// satisfy the circuit constraints as-is.
func TestCircuitMatchesNativeHashes(t *testing.T) {
	c := qt.New(t)

	salary := big.NewInt(500000)
	blinding, pub := testInputs(c, salary)

	witness, err := Assignment(salary, blinding, pub)
	c.Assert(err, qt.IsNil)

	assert := test.NewAssert(t)
	assert.SolvingSucceeded(&Circuit{}, witness,
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16))

	// a nullifier for another period does not satisfy the constraints
	tampered := pub
	tampered.Nullifier, err = nullifier.Derive(pub.Commitment, types.Period(202602), blinding)
	c.Assert(err, qt.IsNil)
	bad, err := Assignment(salary, blinding, tampered)
	c.Assert(err, qt.IsNil)
	assert.SolvingFailed(&Circuit{}, bad,
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16))
}

func TestCheckAssignment(t *testing.T) {
	c := qt.New(t)

	salary := big.NewInt(500000)
	blinding, pub := testInputs(c, salary)

	c.Assert(CheckAssignment(salary, blinding, pub), qt.IsNil)

	// wrong salary does not open the commitment
	c.Assert(CheckAssignment(big.NewInt(500001), blinding, pub), qt.IsNotNil)

	// wrong secret breaks both the opening and the nullifier
	other, err := commitment.GenerateBlindingFactor()
	c.Assert(err, qt.IsNil)
	c.Assert(CheckAssignment(salary, other, pub), qt.IsNotNil)

	// nullifier for a different period does not match the statement
	mismatched := pub
	mismatched.Period = types.Period(202602)
	c.Assert(CheckAssignment(salary, blinding, mismatched), qt.IsNotNil)

	// out-of-range salaries are rejected before hashing
	c.Assert(CheckAssignment(nil, blinding, pub), qt.IsNotNil)
	c.Assert(CheckAssignment(big.NewInt(-1), blinding, pub), qt.IsNotNil)
	huge := new(big.Int).Lsh(big.NewInt(1), MaxSalaryBits+1)
	c.Assert(CheckAssignment(huge, blinding, pub), qt.IsNotNil)
}

func TestAssignmentMatchesPublicInputs(t *testing.T) {
	c := qt.New(t)

	salary := big.NewInt(500000)
	blinding, pub := testInputs(c, salary)

	a, err := Assignment(salary, blinding, pub)
	c.Assert(err, qt.IsNil)
	circ, ok := a.(*Circuit)
	c.Assert(ok, qt.IsTrue)

	cm, err := fieldcodec.DecodeScalar(pub.Commitment)
	c.Assert(err, qt.IsNil)
	c.Assert(circ.Commitment.(*big.Int).Cmp(cm), qt.Equals, 0)
	c.Assert(circ.Salary.(*big.Int).Cmp(salary), qt.Equals, 0)

	// malformed public inputs never reach the witness
	bad := pub
	bad.Nullifier = bad.Nullifier[:16]
	_, err = Assignment(salary, blinding, bad)
	c.Assert(err, qt.IsNotNil)
	_, err = PublicAssignment(bad)
	c.Assert(err, qt.IsNotNil)
}
