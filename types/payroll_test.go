package types

import (
	"encoding/json"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestPeriodValid(t *testing.T) {
	c := qt.New(t)

	for _, p := range []Period{202601, 197001, 999912, 202512} {
		c.Assert(p.Valid(), qt.IsTrue, qt.Commentf("period %d", p))
	}
	// month 0, month 13, year before the epoch, raw timestamps
	for _, p := range []Period{202600, 202613, 196912, 0, 999999, 1767225600} {
		c.Assert(p.Valid(), qt.IsFalse, qt.Commentf("period %d", p))
	}
}

func TestPeriodString(t *testing.T) {
	c := qt.New(t)
	c.Assert(Period(202601).String(), qt.Equals, "2026-01")
	c.Assert(Period(202612).String(), qt.Equals, "2026-12")
}

func TestPeriodFromTime(t *testing.T) {
	c := qt.New(t)
	ts := time.Date(2026, time.January, 31, 23, 59, 0, 0, time.UTC)
	c.Assert(PeriodFromTime(ts), qt.Equals, Period(202601))

	// the period is taken in UTC, not the local zone of the timestamp
	east := time.FixedZone("UTC+14", 14*3600)
	ts = time.Date(2026, time.February, 1, 10, 0, 0, 0, east)
	c.Assert(PeriodFromTime(ts), qt.Equals, Period(202601))
}

func TestBlindingFactorScrub(t *testing.T) {
	c := qt.New(t)

	bf, err := NewBlindingFactor()
	c.Assert(err, qt.IsNil)
	c.Assert(bf, qt.Not(qt.Equals), BlindingFactor{})

	bf.Scrub()
	c.Assert(bf, qt.Equals, BlindingFactor{})
}

func TestHexBytesJSON(t *testing.T) {
	c := qt.New(t)

	b := HexBytes{0xde, 0xad, 0xbe, 0xef}
	enc, err := json.Marshal(b)
	c.Assert(err, qt.IsNil)
	c.Assert(string(enc), qt.Equals, `"0xdeadbeef"`)

	var dec HexBytes
	c.Assert(json.Unmarshal(enc, &dec), qt.IsNil)
	c.Assert(dec.Equal(b), qt.IsTrue)

	// bare hex without the 0x prefix is accepted too
	c.Assert(json.Unmarshal([]byte(`"deadbeef"`), &dec), qt.IsNil)
	c.Assert(dec.Equal(b), qt.IsTrue)

	c.Assert(json.Unmarshal([]byte(`"0xzz"`), &dec), qt.IsNotNil)
}

func TestEmployeeKeyBytes(t *testing.T) {
	c := qt.New(t)

	k := EmployeeKey{}
	copy(k.Company[:], []byte{0x01})
	copy(k.Employee[:], []byte{0x02})

	b := k.Bytes()
	c.Assert(b, qt.HasLen, 40)
	c.Assert(b[0], qt.Equals, byte(0x01))
	c.Assert(b[20], qt.Equals, byte(0x02))
}
