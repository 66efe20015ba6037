package commitment

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	qt "github.com/frankban/quicktest"

	"github.com/veilpay/payroll-node/types"
)

func TestCommitDeterminism(t *testing.T) {
	c := qt.New(t)

	salary := big.NewInt(500000)
	blinding, err := GenerateBlindingFactor()
	c.Assert(err, qt.IsNil)

	cm1, err := Commit(salary, blinding)
	c.Assert(err, qt.IsNil)
	c.Assert(cm1, qt.HasLen, types.CommitmentSize)

	cm2, err := Commit(salary, blinding)
	c.Assert(err, qt.IsNil)
	c.Assert(cm2.Equal(cm1), qt.IsTrue)
}

func TestCommitHiding(t *testing.T) {
	c := qt.New(t)

	salary := big.NewInt(500000)
	b1, err := GenerateBlindingFactor()
	c.Assert(err, qt.IsNil)
	b2, err := GenerateBlindingFactor()
	c.Assert(err, qt.IsNil)

	cm1, err := Commit(salary, b1)
	c.Assert(err, qt.IsNil)
	cm2, err := Commit(salary, b2)
	c.Assert(err, qt.IsNil)

	// same salary, fresh blinding, unlinkable commitments
	c.Assert(cm1.Equal(cm2), qt.IsFalse)
}

func TestCommitRejectsOutOfRangeSalary(t *testing.T) {
	c := qt.New(t)

	blinding, err := GenerateBlindingFactor()
	c.Assert(err, qt.IsNil)

	_, err = Commit(nil, blinding)
	c.Assert(err, qt.IsNotNil)

	_, err = Commit(big.NewInt(-1), blinding)
	c.Assert(err, qt.IsNotNil)

	_, err = Commit(new(big.Int).Set(fr.Modulus()), blinding)
	c.Assert(err, qt.IsNotNil)
}

func TestVerify(t *testing.T) {
	c := qt.New(t)

	salary := big.NewInt(123456)
	blinding, err := GenerateBlindingFactor()
	c.Assert(err, qt.IsNil)

	cm, err := Commit(salary, blinding)
	c.Assert(err, qt.IsNil)

	c.Assert(Verify(cm, salary, blinding), qt.IsTrue)
	c.Assert(Verify(cm, big.NewInt(123457), blinding), qt.IsFalse)

	other, err := GenerateBlindingFactor()
	c.Assert(err, qt.IsNil)
	c.Assert(Verify(cm, salary, other), qt.IsFalse)

	// truncated commitment bytes never verify
	c.Assert(Verify(cm[:16], salary, blinding), qt.IsFalse)
}

func TestBlindingScalarInField(t *testing.T) {
	c := qt.New(t)

	// all-ones blinding exceeds the modulus and must be reduced
	var bf types.BlindingFactor
	for i := range bf {
		bf[i] = 0xff
	}
	s := BlindingScalar(bf)
	c.Assert(s.Cmp(fr.Modulus()) < 0, qt.IsTrue)
	c.Assert(s.Sign() >= 0, qt.IsTrue)
}
