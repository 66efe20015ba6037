package api

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/veilpay/payroll-node/audit"
	"github.com/veilpay/payroll-node/types"
)

// Scope type discriminators accepted in view key requests.
const (
	ScopeTypeFullCompany   = "fullCompany"
	ScopeTypeAggregateOnly = "aggregateOnly"
	ScopeTypeTimeRange     = "timeRange"
	ScopeTypeEmployeeList  = "employeeList"
)

// ScopeRequest is the JSON representation of a view key scope.
type ScopeRequest struct {
	Type      string           `json:"type"`
	Start     types.Period     `json:"start,omitempty"`
	End       types.Period     `json:"end,omitempty"`
	Employees []common.Address `json:"employees,omitempty"`
}

// ToScope converts the request into the audit package's closed scope set.
func (s *ScopeRequest) ToScope() (audit.Scope, error) {
	switch s.Type {
	case ScopeTypeFullCompany:
		return audit.FullCompanyScope{}, nil
	case ScopeTypeAggregateOnly:
		return audit.AggregateOnlyScope{}, nil
	case ScopeTypeTimeRange:
		return audit.TimeRangeScope{Start: s.Start, End: s.End}, nil
	case ScopeTypeEmployeeList:
		return audit.EmployeeListScope{Employees: s.Employees}, nil
	default:
		return nil, fmt.Errorf("unknown scope type %q", s.Type)
	}
}

// IssueViewKeyRequest is the body of the view key issuance endpoint.
type IssueViewKeyRequest struct {
	Company      common.Address `json:"company"`
	Grantor      string         `json:"grantor"`
	Auditor      string         `json:"auditor"`
	Scope        ScopeRequest   `json:"scope"`
	DurationDays int            `json:"durationDays"`
}

// ViewKeyResponse is the client-facing representation of a view key.
type ViewKeyResponse struct {
	ID        string         `json:"id"`
	Company   common.Address `json:"company"`
	Grantor   string         `json:"grantor"`
	Auditor   string         `json:"auditor"`
	Scope     ScopeRequest   `json:"scope"`
	CreatedAt time.Time      `json:"createdAt"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Revoked   bool           `json:"revoked"`
}

func viewKeyResponse(vk *audit.ViewKey) *ViewKeyResponse {
	resp := &ViewKeyResponse{
		ID:        vk.ID.String(),
		Company:   vk.Company,
		Grantor:   vk.Grantor,
		Auditor:   vk.Auditor,
		CreatedAt: vk.CreatedAt,
		ExpiresAt: vk.ExpiresAt,
		Revoked:   vk.Revoked,
	}
	switch scope := vk.Scope.(type) {
	case audit.FullCompanyScope:
		resp.Scope.Type = ScopeTypeFullCompany
	case audit.AggregateOnlyScope:
		resp.Scope.Type = ScopeTypeAggregateOnly
	case audit.TimeRangeScope:
		resp.Scope.Type = ScopeTypeTimeRange
		resp.Scope.Start = scope.Start
		resp.Scope.End = scope.End
	case audit.EmployeeListScope:
		resp.Scope.Type = ScopeTypeEmployeeList
		resp.Scope.Employees = scope.Employees
	}
	return resp
}
