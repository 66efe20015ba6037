package fieldcodec

import (
	"math/big"
	"testing"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	qt "github.com/frankban/quicktest"
)

func TestScalarRoundTrip(t *testing.T) {
	c := qt.New(t)

	for _, v := range []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(1 << 40),
		new(big.Int).Sub(fp.Modulus(), big.NewInt(1)),
	} {
		enc, err := EncodeScalar(v)
		c.Assert(err, qt.IsNil)
		c.Assert(enc, qt.HasLen, ScalarSize)
		dec, err := DecodeScalar(enc)
		c.Assert(err, qt.IsNil)
		c.Assert(dec.Cmp(v), qt.Equals, 0)
	}
}

func TestScalarErrors(t *testing.T) {
	c := qt.New(t)

	_, err := EncodeScalar(nil)
	c.Assert(err, qt.ErrorIs, ErrEncoding)

	_, err = EncodeScalar(big.NewInt(-1))
	c.Assert(err, qt.ErrorIs, ErrEncoding)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = EncodeScalar(tooBig)
	c.Assert(err, qt.ErrorIs, ErrEncoding)

	_, err = DecodeScalar(make([]byte, 31))
	c.Assert(err, qt.ErrorIs, ErrEncoding)
}

func TestG1RoundTrip(t *testing.T) {
	c := qt.New(t)

	_, _, g1, _ := bn254.Generators()
	enc, err := EncodeG1(&g1)
	c.Assert(err, qt.IsNil)
	c.Assert(enc, qt.HasLen, G1Size)

	dec, err := DecodeG1(enc)
	c.Assert(err, qt.IsNil)
	c.Assert(dec.Equal(&g1), qt.IsTrue)
}

func TestG2RoundTrip(t *testing.T) {
	c := qt.New(t)

	_, _, _, g2 := bn254.Generators()
	enc, err := EncodeG2(&g2)
	c.Assert(err, qt.IsNil)
	c.Assert(enc, qt.HasLen, G2Size)

	dec, err := DecodeG2(enc)
	c.Assert(err, qt.IsNil)
	c.Assert(dec.Equal(&g2), qt.IsTrue)
}

func TestDecodePointValidation(t *testing.T) {
	c := qt.New(t)

	_, err := DecodeG1(make([]byte, G1Size-1))
	c.Assert(err, qt.ErrorIs, ErrEncoding)

	// x=1, y=1 is not on the curve
	bogus := make([]byte, G1Size)
	bogus[ScalarSize-1] = 1
	bogus[G1Size-1] = 1
	_, err = DecodeG1(bogus)
	c.Assert(err, qt.ErrorIs, ErrInvalidPoint)

	// a coordinate at the field modulus is not canonical
	_, _, g1, _ := bn254.Generators()
	enc, err := EncodeG1(&g1)
	c.Assert(err, qt.IsNil)
	copy(enc[:ScalarSize], fp.Modulus().Bytes())
	_, err = DecodeG1(enc)
	c.Assert(err, qt.ErrorIs, ErrInvalidPoint)

	_, err = DecodeG2(make([]byte, G2Size+1))
	c.Assert(err, qt.ErrorIs, ErrEncoding)
}
