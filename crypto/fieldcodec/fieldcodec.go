// Package fieldcodec implements the canonical fixed-width byte encodings for
// scalars and BN254 curve points used across the payment protocol. Scalars
// are 32-byte big-endian; G1 points are 64 bytes (x||y) and G2 points are
// 128 bytes (x0||x1||y0||y1). Decoding validates curve and subgroup
// membership, not just byte length.
package fieldcodec

import (
	"errors"
	"fmt"
	"math/big"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"

	"github.com/veilpay/payroll-node/types"
)

const (
	// ScalarSize is the encoded size of a field element.
	ScalarSize = 32
	// G1Size is the encoded size of a G1 point (x||y).
	G1Size = 64
	// G2Size is the encoded size of a G2 point (x0||x1||y0||y1).
	G2Size = 128
)

var (
	// ErrEncoding reports a malformed byte length or an out-of-range value.
	ErrEncoding = errors.New("encoding error")
	// ErrInvalidPoint reports bytes that do not decode to a point on the
	// curve (or in the correct subgroup).
	ErrInvalidPoint = errors.New("invalid curve point")

	// maxScalar is 2^256 - 1, the largest value representable in 32 bytes.
	maxScalar = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// EncodeScalar encodes value as a 32-byte big-endian buffer, zero-padded.
// Fails with ErrEncoding if value is nil, negative or exceeds 2^256-1.
func EncodeScalar(value *big.Int) (types.HexBytes, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: nil scalar", ErrEncoding)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative scalar %s", ErrEncoding, value)
	}
	if value.Cmp(maxScalar) > 0 {
		return nil, fmt.Errorf("%w: scalar exceeds 32 bytes", ErrEncoding)
	}
	return types.HexBytes(value.Bytes()).LeftPad(ScalarSize), nil
}

// DecodeScalar decodes a 32-byte big-endian buffer into an integer. Fails
// with ErrEncoding if the buffer is not exactly 32 bytes.
func DecodeScalar(buf []byte) (*big.Int, error) {
	if len(buf) != ScalarSize {
		return nil, fmt.Errorf("%w: scalar must be %d bytes, got %d", ErrEncoding, ScalarSize, len(buf))
	}
	return new(big.Int).SetBytes(buf), nil
}

// EncodeG1 encodes a G1 point as x||y, each coordinate a 32-byte big-endian
// field element.
func EncodeG1(p *bn254.G1Affine) (types.HexBytes, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil G1 point", ErrEncoding)
	}
	out := make([]byte, 0, G1Size)
	x := p.X.Bytes()
	y := p.Y.Bytes()
	out = append(out, x[:]...)
	return append(out, y[:]...), nil
}

// DecodeG1 decodes a 64-byte x||y buffer into a G1 point. Fails with
// ErrEncoding on a wrong length and ErrInvalidPoint if the coordinates are
// not canonical field elements or the point is not on the curve or not in
// the correct subgroup.
func DecodeG1(buf []byte) (*bn254.G1Affine, error) {
	if len(buf) != G1Size {
		return nil, fmt.Errorf("%w: G1 point must be %d bytes, got %d", ErrEncoding, G1Size, len(buf))
	}
	var p bn254.G1Affine
	if err := decodeFp(&p.X, buf[:ScalarSize]); err != nil {
		return nil, err
	}
	if err := decodeFp(&p.Y, buf[ScalarSize:]); err != nil {
		return nil, err
	}
	if !p.IsOnCurve() {
		return nil, fmt.Errorf("%w: G1 point not on curve", ErrInvalidPoint)
	}
	if !p.IsInSubGroup() {
		return nil, fmt.Errorf("%w: G1 point not in subgroup", ErrInvalidPoint)
	}
	return &p, nil
}

// EncodeG2 encodes a G2 point as x0||x1||y0||y1, following the extension
// field representation (A0 before A1), each a 32-byte big-endian element.
func EncodeG2(p *bn254.G2Affine) (types.HexBytes, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil G2 point", ErrEncoding)
	}
	out := make([]byte, 0, G2Size)
	for _, coord := range []fp.Element{p.X.A0, p.X.A1, p.Y.A0, p.Y.A1} {
		b := coord.Bytes()
		out = append(out, b[:]...)
	}
	return out, nil
}

// DecodeG2 decodes a 128-byte x0||x1||y0||y1 buffer into a G2 point, with
// the same validation rules as DecodeG1.
func DecodeG2(buf []byte) (*bn254.G2Affine, error) {
	if len(buf) != G2Size {
		return nil, fmt.Errorf("%w: G2 point must be %d bytes, got %d", ErrEncoding, G2Size, len(buf))
	}
	var p bn254.G2Affine
	coords := []*fp.Element{&p.X.A0, &p.X.A1, &p.Y.A0, &p.Y.A1}
	for i, coord := range coords {
		if err := decodeFp(coord, buf[i*ScalarSize:(i+1)*ScalarSize]); err != nil {
			return nil, err
		}
	}
	if !p.IsOnCurve() {
		return nil, fmt.Errorf("%w: G2 point not on curve", ErrInvalidPoint)
	}
	if !p.IsInSubGroup() {
		return nil, fmt.Errorf("%w: G2 point not in subgroup", ErrInvalidPoint)
	}
	return &p, nil
}

// decodeFp decodes a 32-byte big-endian buffer into a canonical base field
// element. Values equal to or above the field modulus are rejected rather
// than reduced, so every point has a single byte representation.
func decodeFp(e *fp.Element, buf []byte) error {
	v := new(big.Int).SetBytes(buf)
	if v.Cmp(fp.Modulus()) >= 0 {
		return fmt.Errorf("%w: coordinate not a canonical field element", ErrInvalidPoint)
	}
	e.SetBigInt(v)
	return nil
}
