package audit

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/veilpay/payroll-node/types"
)

// Report is implemented by the scope-specific report shapes. Fields a scope
// does not grant are structurally absent from its report type, never just
// zeroed.
type Report interface {
	// ReportCompany returns the company the report covers.
	ReportCompany() common.Address
	// TotalPayments returns the number of payment records covered.
	TotalPayments() int
}

// AggregateReport is the report shape for AggregateOnly view keys. It carries
// counts only; there is no field that could hold an employee identity.
type AggregateReport struct {
	Company           common.Address         `json:"company"`
	PeriodStart       types.Period           `json:"periodStart,omitempty"`
	PeriodEnd         types.Period           `json:"periodEnd,omitempty"`
	Payments          int                    `json:"payments"`
	DistinctEmployees int                    `json:"distinctEmployees"`
	PaymentsPerPeriod map[types.Period]int   `json:"paymentsPerPeriod"`
	GeneratedAt       time.Time              `json:"generatedAt"`
}

func (r *AggregateReport) ReportCompany() common.Address { return r.Company }
func (r *AggregateReport) TotalPayments() int            { return r.Payments }

// DisclosedReport is the report shape for FullCompany, TimeRange and
// EmployeeList view keys: the scope-filtered records themselves.
type DisclosedReport struct {
	Company     common.Address         `json:"company"`
	PeriodStart types.Period           `json:"periodStart,omitempty"`
	PeriodEnd   types.Period           `json:"periodEnd,omitempty"`
	Records     []*types.PaymentRecord `json:"records"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

func (r *DisclosedReport) ReportCompany() common.Address { return r.Company }
func (r *DisclosedReport) TotalPayments() int            { return len(r.Records) }

// Aggregator generates audit reports from payment records under the policy of
// a view key. Reports are ephemeral; they are recomputed on every query and
// never persisted.
type Aggregator struct {
	keys *ViewKeyManager
}

// NewAggregator creates an aggregator that consults the manager for the
// current revocation state of the keys it is handed.
func NewAggregator(keys *ViewKeyManager) *Aggregator {
	return &Aggregator{keys: keys}
}

// GenerateReport filters records according to the view key's scope and the
// query window [periodStart, periodEnd] (zero meaning unbounded) and returns
// the scope's report shape. Fails with ErrExpiredViewKey if the key is
// revoked or past expiry at call time.
func (a *Aggregator) GenerateReport(vk *ViewKey, records []*types.PaymentRecord,
	periodStart, periodEnd types.Period,
) (Report, error) {
	if vk == nil || vk.Scope == nil {
		return nil, fmt.Errorf("%w: nil view key", ErrInvalidScope)
	}
	now := time.Now()
	valid := vk.Valid(now)
	if a.keys != nil {
		// the stored key is authoritative, a revocation may postdate the
		// caller's copy
		valid = a.keys.IsValid(vk.ID, now)
	}
	if !valid {
		return nil, fmt.Errorf("%w: %s", ErrExpiredViewKey, vk.ID)
	}

	filtered := filterRecords(vk, records, periodStart, periodEnd)

	switch vk.Scope.(type) {
	case AggregateOnlyScope:
		return aggregate(vk.Company, filtered, periodStart, periodEnd, now), nil
	case FullCompanyScope, TimeRangeScope, EmployeeListScope:
		return &DisclosedReport{
			Company:     vk.Company,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			Records:     filtered,
			GeneratedAt: now,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown scope %T", ErrInvalidScope, vk.Scope)
	}
}

func filterRecords(vk *ViewKey, records []*types.PaymentRecord,
	periodStart, periodEnd types.Period,
) []*types.PaymentRecord {
	inWindow := func(p types.Period) bool {
		if periodStart != 0 && p < periodStart {
			return false
		}
		if periodEnd != 0 && p > periodEnd {
			return false
		}
		return true
	}

	filtered := []*types.PaymentRecord{}
	for _, r := range records {
		if r.Company != vk.Company || !inWindow(r.Period) {
			continue
		}
		switch scope := vk.Scope.(type) {
		case TimeRangeScope:
			if r.Period < scope.Start || r.Period > scope.End {
				continue
			}
		case EmployeeListScope:
			if !scope.contains(r.Employee) {
				continue
			}
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func aggregate(company common.Address, records []*types.PaymentRecord,
	periodStart, periodEnd types.Period, now time.Time,
) *AggregateReport {
	perPeriod := make(map[types.Period]int)
	employees := make(map[common.Address]struct{})
	for _, r := range records {
		perPeriod[r.Period]++
		employees[r.Employee] = struct{}{}
	}
	return &AggregateReport{
		Company:           company,
		PeriodStart:       periodStart,
		PeriodEnd:         periodEnd,
		Payments:          len(records),
		DistinctEmployees: len(employees),
		PaymentsPerPeriod: perPeriod,
		GeneratedAt:       now,
	}
}
