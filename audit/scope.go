package audit

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"

	"github.com/veilpay/payroll-node/types"
)

// ErrInvalidScope is returned when a view key is issued with an invalid scope
// or duration.
var ErrInvalidScope = errors.New("invalid view key scope")

// Scope is the disclosure policy attached to a view key. It is a closed
// variant set; only the types in this package implement it.
type Scope interface {
	// Kind returns the scope discriminator used in the stored envelope.
	Kind() ScopeKind
	// validate checks the scope's own consistency at issue time.
	validate() error
	sealed()
}

// ScopeKind discriminates the scope variants in the stored envelope.
type ScopeKind uint8

const (
	ScopeKindFullCompany ScopeKind = iota + 1
	ScopeKindAggregateOnly
	ScopeKindTimeRange
	ScopeKindEmployeeList
)

// FullCompanyScope grants visibility into every payment record of the
// company.
type FullCompanyScope struct{}

func (FullCompanyScope) Kind() ScopeKind { return ScopeKindFullCompany }
func (FullCompanyScope) validate() error { return nil }
func (FullCompanyScope) sealed()         {}

// AggregateOnlyScope grants visibility into counts and totals only; no
// per-employee identity is ever surfaced.
type AggregateOnlyScope struct{}

func (AggregateOnlyScope) Kind() ScopeKind { return ScopeKindAggregateOnly }
func (AggregateOnlyScope) validate() error { return nil }
func (AggregateOnlyScope) sealed()         {}

// TimeRangeScope grants visibility into records whose period falls inside the
// inclusive [Start, End] range.
type TimeRangeScope struct {
	Start types.Period `cbor:"1,keyasint"`
	End   types.Period `cbor:"2,keyasint"`
}

func (TimeRangeScope) Kind() ScopeKind { return ScopeKindTimeRange }

func (s TimeRangeScope) validate() error {
	if !s.Start.Valid() || !s.End.Valid() {
		return fmt.Errorf("%w: malformed period in time range", ErrInvalidScope)
	}
	if s.Start > s.End {
		return fmt.Errorf("%w: time range start %s after end %s", ErrInvalidScope, s.Start, s.End)
	}
	return nil
}
func (TimeRangeScope) sealed() {}

// EmployeeListScope grants visibility into records of the named employees
// only.
type EmployeeListScope struct {
	Employees []common.Address `cbor:"1,keyasint"`
}

func (EmployeeListScope) Kind() ScopeKind { return ScopeKindEmployeeList }

func (s EmployeeListScope) validate() error {
	if len(s.Employees) == 0 {
		return fmt.Errorf("%w: empty employee list", ErrInvalidScope)
	}
	return nil
}
func (EmployeeListScope) sealed() {}

func (s EmployeeListScope) contains(employee common.Address) bool {
	for _, e := range s.Employees {
		if e == employee {
			return true
		}
	}
	return false
}

// encodeScope serializes a scope into its envelope discriminator and payload.
func encodeScope(s Scope) (ScopeKind, []byte, error) {
	data, err := cbor.Marshal(s)
	if err != nil {
		return 0, nil, fmt.Errorf("encode scope: %w", err)
	}
	return s.Kind(), data, nil
}

// decodeScope rebuilds a scope from its envelope discriminator and payload.
func decodeScope(kind ScopeKind, data []byte) (Scope, error) {
	switch kind {
	case ScopeKindFullCompany:
		return FullCompanyScope{}, nil
	case ScopeKindAggregateOnly:
		return AggregateOnlyScope{}, nil
	case ScopeKindTimeRange:
		var s TimeRangeScope
		if err := cbor.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode time range scope: %w", err)
		}
		return s, nil
	case ScopeKindEmployeeList:
		var s EmployeeListScope
		if err := cbor.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode employee list scope: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown scope kind %d", ErrInvalidScope, kind)
	}
}
