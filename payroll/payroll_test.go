package payroll

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/veilpay/payroll-node/db/inmemory"
	"github.com/veilpay/payroll-node/ledger"
	"github.com/veilpay/payroll-node/prover"
	"github.com/veilpay/payroll-node/secrets"
	"github.com/veilpay/payroll-node/storage"
	"github.com/veilpay/payroll-node/types"
)

var (
	setupOnce     sync.Once
	testArtifacts *prover.Artifacts
	setupErr      error
)

// circuit compilation and trusted setup are expensive, share them across
// tests
func artifacts(t *testing.T) *prover.Artifacts {
	t.Helper()
	setupOnce.Do(func() {
		testArtifacts, setupErr = prover.Setup()
	})
	if setupErr != nil {
		t.Fatalf("circuit setup: %v", setupErr)
	}
	return testArtifacts
}

type testEnv struct {
	service  *Service
	storage  *storage.Storage
	executor ledger.Executor
	prover   *prover.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := storage.New(inmemory.New())
	t.Cleanup(st.Close)

	prv := prover.NewService(artifacts(t), 2)
	exec := ledger.NewKVExecutor(st, prv)
	store := secrets.NewDBStore(inmemory.New())
	t.Cleanup(func() { _ = store.Close() })

	return &testEnv{
		service:  New(ledger.NewKVRegistry(st), exec, store, prv),
		storage:  st,
		executor: exec,
		prover:   prv,
	}
}

func testKey(b byte) types.EmployeeKey {
	return types.EmployeeKey{
		Company:  common.BytesToAddress([]byte{0xc0}),
		Employee: common.BytesToAddress([]byte{0xe0, b}),
	}
}

func TestEndToEndPayment(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	ek := testKey(1)
	salary := big.NewInt(500000) // cents
	period := types.Period(202601)

	cm, err := env.service.Enroll(ek, salary)
	c.Assert(err, qt.IsNil)
	c.Assert(cm, qt.HasLen, types.CommitmentSize)

	res, err := env.service.SubmitPayment(ctx, ek, salary, period)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Status, qt.Equals, StatusAccepted)
	c.Assert(res.Nullifier, qt.HasLen, types.NullifierSize)

	paid, err := env.executor.IsPeriodPaid(cm, period)
	c.Assert(err, qt.IsNil)
	c.Assert(paid, qt.Equals, true)

	// the accepted payment left exactly one record, without salary data
	records, err := env.storage.PaymentRecords(ek.Company)
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.HasLen, 1)
	c.Assert(records[0].Employee, qt.Equals, ek.Employee)
	c.Assert(records[0].Period, qt.Equals, period)

	// submitting the same period again maps to already-paid
	res, err = env.service.SubmitPayment(ctx, ek, salary, period)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Status, qt.Equals, StatusAlreadyPaid)
}

func TestReplayWithFreshProof(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	ek := testKey(2)
	salary := big.NewInt(500000)
	period := types.Period(202601)

	cm, err := env.service.Enroll(ek, salary)
	c.Assert(err, qt.IsNil)

	res, err := env.service.SubmitPayment(ctx, ek, salary, period)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Status, qt.Equals, StatusAccepted)

	// generate a brand new proof for the same (commitment, period) and
	// push it straight at the executor: the proof bytes differ but the
	// nullifier collides, which is the detection key
	env.service.secrets.Lock(ek)
	blinding, err := env.service.secrets.Get(ek)
	env.service.secrets.Unlock(ek)
	c.Assert(err, qt.IsNil)

	fresh, err := env.prover.GeneratePaymentProof(ctx, salary, blinding, ek.Company, ek.Employee, cm, period)
	c.Assert(err, qt.IsNil)
	c.Assert(env.prover.VerifyProof(fresh.Proof, fresh.Inputs), qt.Equals, true)

	err = env.executor.SubmitPayment(ctx, &ledger.Submission{
		Proof:  fresh.Proof,
		Inputs: fresh.Inputs,
		Record: types.PaymentRecord{
			Company:  ek.Company,
			Employee: ek.Employee,
			Period:   period,
		},
	})
	c.Assert(err, qt.ErrorIs, ledger.ErrNullifierReplay)
}

func TestUpdateSalaryRotatesCommitment(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	ek := testKey(3)
	cm, err := env.service.Enroll(ek, big.NewInt(400000))
	c.Assert(err, qt.IsNil)

	rotated, err := env.service.UpdateSalary(ek, big.NewInt(450000))
	c.Assert(err, qt.IsNil)
	c.Assert(rotated.Equal(cm), qt.Equals, false)

	// payments after the rotation use the new commitment and secret
	res, err := env.service.SubmitPayment(ctx, ek, big.NewInt(450000), types.Period(202602))
	c.Assert(err, qt.IsNil)
	c.Assert(res.Status, qt.Equals, StatusAccepted)

	// the old salary no longer opens the active commitment
	_, err = env.service.SubmitPayment(ctx, ek, big.NewInt(400000), types.Period(202603))
	c.Assert(err, qt.ErrorIs, prover.ErrProofGeneration)
}

// failingRegistry rejects registrations but serves reads, simulating a
// registry outage in the middle of a salary rotation.
type failingRegistry struct {
	ledger.Registry
}

func (r *failingRegistry) Register(types.EmployeeKey, types.Commitment) error {
	return fmt.Errorf("registry unavailable")
}

func TestUpdateSalaryRegisterFailureKeepsOldSecret(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	ek := testKey(5)
	salary := big.NewInt(400000)
	cm, err := env.service.Enroll(ek, salary)
	c.Assert(err, qt.IsNil)

	// rotate against a registry that refuses the new commitment
	broken := New(&failingRegistry{}, env.executor, env.service.secrets, env.prover)
	_, err = broken.UpdateSalary(ek, big.NewInt(450000))
	c.Assert(err, qt.IsNotNil)

	// the stored secret still opens the active commitment, so the employee
	// stays provable with the old salary
	active, err := env.service.registry.ActiveCommitment(ek)
	c.Assert(err, qt.IsNil)
	c.Assert(active.Equal(cm), qt.IsTrue)

	res, err := env.service.SubmitPayment(ctx, ek, salary, types.Period(202601))
	c.Assert(err, qt.IsNil)
	c.Assert(res.Status, qt.Equals, StatusAccepted)
}

func TestDeactivateErasesSecret(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	ek := testKey(4)
	_, err := env.service.Enroll(ek, big.NewInt(300000))
	c.Assert(err, qt.IsNil)

	c.Assert(env.service.Deactivate(ek), qt.IsNil)

	_, err = env.service.SubmitPayment(ctx, ek, big.NewInt(300000), types.Period(202601))
	c.Assert(err, qt.ErrorIs, secrets.ErrSecretNotFound)

	// updating a deactivated employee fails the same way, never silently
	// reusing a secret
	_, err = env.service.UpdateSalary(ek, big.NewInt(310000))
	c.Assert(err, qt.ErrorIs, secrets.ErrSecretNotFound)
}

func TestPaymentLockEviction(t *testing.T) {
	c := qt.New(t)
	svc := New(nil, nil, nil, nil)
	cm := make(types.Commitment, types.CommitmentSize)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				unlock := svc.lockPayment(cm, types.Period(202601))
				unlock()
			}
		}()
	}
	wg.Wait()

	// released locks are evicted, the map does not accumulate entries
	svc.mu.Lock()
	c.Assert(svc.locks, qt.HasLen, 0)
	svc.mu.Unlock()
}

func TestRunPayroll(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	company := common.BytesToAddress([]byte{0xc0})
	period := types.Period(202601)
	entries := make([]Entry, 3)
	for i := range entries {
		ek := testKey(byte(10 + i))
		salary := big.NewInt(int64(100000 * (i + 1)))
		_, err := env.service.Enroll(ek, salary)
		c.Assert(err, qt.IsNil)
		entries[i] = Entry{Employee: ek.Employee, Salary: salary}
	}

	results, err := env.service.RunPayroll(ctx, company, entries, period, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(results, qt.HasLen, 3)
	for _, r := range results {
		c.Assert(r.Status, qt.Equals, StatusAccepted)
	}

	// rerunning the same period is idempotent
	results, err = env.service.RunPayroll(ctx, company, entries, period, 2)
	c.Assert(err, qt.IsNil)
	for _, r := range results {
		c.Assert(r.Status, qt.Equals, StatusAlreadyPaid)
	}
}
