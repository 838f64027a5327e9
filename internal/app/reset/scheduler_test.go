package reset

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/healthrocket-labs/ignition/internal/domain"
)

// fakeStore counts ResetStreaks calls; the other ProgressStore methods are
// unused by the scheduler.
type fakeStore struct {
	resetCalls int
	resetErr   error
}

func (f *fakeStore) GetProgress(context.Context, string) (domain.PlayerProgress, error) {
	return domain.PlayerProgress{}, nil
}
func (f *fakeStore) AppendCompletion(context.Context, domain.ActionCompletion) error { return nil }
func (f *fakeStore) Completions(context.Context, string, domain.ActionKind, time.Time) ([]domain.ActionCompletion, error) {
	return nil, nil
}
func (f *fakeStore) CooldownWindows(context.Context) ([]domain.CooldownWindow, error) {
	return nil, nil
}
func (f *fakeStore) ResetStreaks(context.Context) (int64, error) {
	f.resetCalls++
	if f.resetErr != nil {
		return 0, f.resetErr
	}
	return 1, nil
}
func (f *fakeStore) RegistrationStatus(context.Context, string, string) (string, error) {
	return "", nil
}
func (f *fakeStore) RegisterContest(context.Context, string, string) error { return nil }

func TestNextFire_MidnightPlusMargin(t *testing.T) {
	loc := domain.ReferenceLocation()

	// Reference time 23:59:30 local: next fire is tomorrow 00:01:00 local.
	after := time.Date(2026, 1, 5, 23, 59, 30, 0, loc)
	next := NextFire(after, loc, Margin)

	local := next.In(loc)
	if local.Year() != 2026 || local.Month() != 1 || local.Day() != 6 {
		t.Fatalf("fire day = %v, want 2026-01-06", local)
	}
	if local.Hour() != 0 || local.Minute() != 1 || local.Second() != 0 {
		t.Errorf("fire time = %02d:%02d:%02d, want 00:01:00", local.Hour(), local.Minute(), local.Second())
	}
}

func TestNextFire_HostTimezoneIndependent(t *testing.T) {
	loc := domain.ReferenceLocation()

	// The same absolute instant expressed in UTC must schedule the same fire.
	after := time.Date(2026, 1, 5, 23, 59, 30, 0, loc)
	fromLocal := NextFire(after, loc, Margin)
	fromUTC := NextFire(after.UTC(), loc, Margin)

	if !fromLocal.Equal(fromUTC) {
		t.Errorf("NextFire differs by input zone: %v vs %v", fromLocal, fromUTC)
	}
}

func TestNextFire_SpringForward(t *testing.T) {
	loc := domain.ReferenceLocation()

	// US Eastern springs forward on 2026-03-08. The boundaries on either
	// side differ in UTC offset but both land at local 00:01:00.
	before := NextFire(time.Date(2026, 3, 7, 12, 0, 0, 0, loc), loc, Margin)
	after := NextFire(time.Date(2026, 3, 8, 12, 0, 0, 0, loc), loc, Margin)

	for _, fire := range []time.Time{before, after} {
		local := fire.In(loc)
		if local.Hour() != 0 || local.Minute() != 1 || local.Second() != 0 {
			t.Errorf("fire local time = %v, want 00:01:00", local)
		}
	}

	_, offBefore := before.In(loc).Zone()
	_, offAfter := after.In(loc).Zone()
	if offBefore == offAfter {
		t.Errorf("expected differing UTC offsets across spring-forward, both %d", offBefore)
	}

	// The interval between the two fires is 23h, not 24h.
	if d := after.Sub(before); d != 23*time.Hour {
		t.Errorf("interval across spring-forward = %v, want 23h", d)
	}
}

func TestNextFire_FallBack(t *testing.T) {
	loc := domain.ReferenceLocation()

	// US Eastern falls back on 2026-11-01: the day is 25 hours long.
	before := NextFire(time.Date(2026, 10, 31, 12, 0, 0, 0, loc), loc, Margin)
	after := NextFire(time.Date(2026, 11, 1, 12, 0, 0, 0, loc), loc, Margin)

	if d := after.Sub(before); d != 25*time.Hour {
		t.Errorf("interval across fall-back = %v, want 25h", d)
	}
}

func TestScheduler_FireInvokesStoreOnce(t *testing.T) {
	store := &fakeStore{}
	s := New(store)

	s.fire(context.Background())
	if store.resetCalls != 1 {
		t.Errorf("ResetStreaks calls = %d, want 1", store.resetCalls)
	}
}

func TestScheduler_FireFailureDoesNotRetry(t *testing.T) {
	store := &fakeStore{resetErr: errors.New("store unreachable")}
	s := New(store)

	// A failed side effect is logged and abandoned until the next boundary.
	s.fire(context.Background())
	if store.resetCalls != 1 {
		t.Errorf("ResetStreaks calls = %d, want 1 (no immediate retry)", store.resetCalls)
	}
}

func TestScheduler_RunCancellation(t *testing.T) {
	store := &fakeStore{}
	s := New(store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// Give Run a moment to arm its timer, then cancel.
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if store.resetCalls != 0 {
		t.Errorf("ResetStreaks fired %d times before the boundary", store.resetCalls)
	}
}

func TestScheduler_NextExposedAfterRunStarts(t *testing.T) {
	store := &fakeStore{}
	s := New(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for s.Next().IsZero() {
		if time.Now().After(deadline) {
			t.Fatal("Next never populated")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if !s.Next().After(time.Now()) {
		t.Errorf("Next = %v, want a future instant", s.Next())
	}
}
