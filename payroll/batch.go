package payroll

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/veilpay/payroll-node/log"
	"github.com/veilpay/payroll-node/types"
)

// Entry is one employee line in a payroll run.
type Entry struct {
	Employee common.Address
	Salary   *big.Int
}

// RunPayroll submits one payment per employee for the given period. Work is
// parallel across employees up to maxConcurrent, while per-employee
// serialization is preserved by the secret and (commitment, period) locks.
// An AlreadyPaid outcome is not an error, so a crashed run can be resubmitted
// whole. The first hard failure cancels the remaining work.
func (s *Service) RunPayroll(ctx context.Context, company common.Address, entries []Entry, period types.Period, maxConcurrent int) ([]*Result, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	results := make([]*Result, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, entry := range entries {
		g.Go(func() error {
			ek := types.EmployeeKey{Company: company, Employee: entry.Employee}
			res, err := s.SubmitPayment(ctx, ek, entry.Salary, period)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	accepted, skipped := 0, 0
	for _, r := range results {
		if r.Status == StatusAccepted {
			accepted++
		} else {
			skipped++
		}
	}
	log.Infow("payroll run finished",
		"company", company.Hex(),
		"period", period.String(),
		"accepted", accepted,
		"alreadyPaid", skipped)
	return results, nil
}
