package cashierclient

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Client for tests, grounded on the teacher's
// lightning.FakeBackend: withdrawals settle immediately unless the
// test has pre-armed a failure for that destination.
type Fake struct {
	mu          sync.Mutex
	submitted   map[string]fakeWithdrawal
	failDest    map[string]bool
	settleDelay map[string]bool // id -> leave PENDING until ForceSettle
}

type fakeWithdrawal struct {
	destination string
	amount      uint64
	status      WithdrawalStatus
	ref         string
}

func NewFake() *Fake {
	return &Fake{
		submitted:   make(map[string]fakeWithdrawal),
		failDest:    make(map[string]bool),
		settleDelay: make(map[string]bool),
	}
}

// FailDestination makes any future SubmitWithdrawal to dest return an error.
func (f *Fake) FailDestination(dest string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failDest[dest] = true
}

// HoldPending keeps withdrawal id in PENDING until ForceSettle is called.
func (f *Fake) HoldPending(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settleDelay[id] = true
}

func (f *Fake) ForceSettle(id, ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.submitted[id]
	if !ok {
		return
	}
	w.status = WithdrawalSettled
	w.ref = ref
	f.submitted[id] = w
}

func (f *Fake) ForceFail(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.submitted[id]
	if !ok {
		return
	}
	w.status = WithdrawalFailed
	f.submitted[id] = w
}

func (f *Fake) SubmitWithdrawal(ctx context.Context, id string, destination string, amount uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failDest[destination] {
		return fmt.Errorf("cashierclient: destination %s rejected", destination)
	}
	if _, exists := f.submitted[id]; exists {
		// idempotent resubmit: no-op, matches the "must not double-pay" contract
		return nil
	}

	status := WithdrawalSettled
	if f.settleDelay[id] {
		status = WithdrawalPending
	}
	f.submitted[id] = fakeWithdrawal{
		destination: destination,
		amount:      amount,
		status:      status,
		ref:         "fake-ref-" + id,
	}
	return nil
}

func (f *Fake) GetWithdrawalStatus(ctx context.Context, id string) (WithdrawalStatus, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.submitted[id]
	if !ok {
		return WithdrawalUnknown, "", fmt.Errorf("cashierclient: unknown withdrawal %s", id)
	}
	return w.status, w.ref, nil
}
