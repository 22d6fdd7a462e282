package winid

import "testing"

// fakeResolver maps handles to window metadata for tests.
type fakeResolver struct {
	pids    map[Handle]int
	numbers map[Handle]uint32
	dead    map[Handle]bool
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		pids:    make(map[Handle]int),
		numbers: make(map[Handle]uint32),
		dead:    make(map[Handle]bool),
	}
}

func (f *fakeResolver) add(h Handle, pid int, number uint32) {
	f.pids[h] = pid
	if number != 0 {
		f.numbers[h] = number
	}
}

func (f *fakeResolver) PID(h Handle) (int, bool) {
	pid, ok := f.pids[h]
	return pid, ok
}

func (f *fakeResolver) WindowNumber(h Handle) (uint32, bool) {
	n, ok := f.numbers[h]
	return n, ok
}

func (f *fakeResolver) IsLive(h Handle) bool {
	_, known := f.pids[h]
	return known && !f.dead[h]
}

func TestGetOrRegister_DeduplicatesByConfirmedNumber(t *testing.T) {
	res := newFakeResolver()
	res.add(1, 100, 42)
	res.add(2, 100, 42)
	reg := NewRegistry(res, nil)

	first := reg.GetOrRegister(1)
	second := reg.GetOrRegister(2)

	if first == nil || second == nil {
		t.Fatalf("expected identities, got %v and %v", first, second)
	}
	if first != second {
		t.Fatalf("two handles for window 42 must resolve to the same identity")
	}
	if first.Key() != second.Key() {
		t.Fatalf("identifiers differ: %s vs %s", first.Key(), second.Key())
	}
	num, ok := second.Number()
	if !ok || num != 42 {
		t.Fatalf("expected confirmed number 42, got %d (confirmed=%v)", num, ok)
	}
}

func TestGetOrRegister_SameHandleReturnsSameIdentity(t *testing.T) {
	res := newFakeResolver()
	res.add(7, 100, 9)
	reg := NewRegistry(res, nil)

	if reg.GetOrRegister(7) != reg.GetOrRegister(7) {
		t.Fatalf("repeated lookups of one handle must return one identity")
	}
}

func TestGetOrRegister_UnresolvablePIDFailsSoft(t *testing.T) {
	reg := NewRegistry(newFakeResolver(), nil)
	if id := reg.GetOrRegister(99); id != nil {
		t.Fatalf("expected nil for unresolvable handle, got %v", id)
	}
}

func TestGetOrRegister_UpgradesEphemeralInPlace(t *testing.T) {
	res := newFakeResolver()
	res.add(1, 200, 0) // number not yet known
	reg := NewRegistry(res, nil)

	var upgrades int
	reg.AddObserver(func(ev Event) {
		if ev.Kind == EventUpgraded {
			upgrades++
		}
	})

	eph := reg.GetOrRegister(1)
	if eph == nil || eph.Permanent() {
		t.Fatalf("expected ephemeral identity, got %v", eph)
	}

	// Second observation of the same window, now with a confirmed number.
	res.add(2, 200, 77)
	upgraded := reg.GetOrRegister(2)

	if upgraded != eph {
		t.Fatalf("expected upgrade in place, got a distinct identity")
	}
	num, ok := upgraded.Number()
	if !ok || num != 77 {
		t.Fatalf("expected confirmed number 77, got %d (confirmed=%v)", num, ok)
	}
	if upgrades != 1 {
		t.Fatalf("expected exactly one upgrade notification, got %d", upgrades)
	}
}

func TestGetOrRegister_UpgradeHappensAtMostOnce(t *testing.T) {
	res := newFakeResolver()
	res.add(1, 200, 0)
	reg := NewRegistry(res, nil)
	id := reg.GetOrRegister(1)

	res.add(2, 200, 50)
	reg.GetOrRegister(2)
	if id.confirm(51) {
		t.Fatalf("second confirm must be refused")
	}
	num, _ := id.Number()
	if num != 50 {
		t.Fatalf("confirmed number must be immutable, got %d", num)
	}
}

func TestGetOrRegister_StaleEphemeralIsAbandoned(t *testing.T) {
	res := newFakeResolver()
	res.add(1, 300, 0)
	reg := NewRegistry(res, nil)

	eph := reg.GetOrRegister(1)
	res.dead[1] = true // ephemeral's cached handle dies

	res.add(2, 300, 88)
	fresh := reg.GetOrRegister(2)

	if fresh == eph {
		t.Fatalf("stale ephemeral must not be reused")
	}
	if eph.Valid() {
		t.Fatalf("abandoned ephemeral should be invalidated")
	}
	if num, ok := fresh.Number(); !ok || num != 88 {
		t.Fatalf("expected fresh permanent identity with number 88")
	}
}

func TestGetOrRegister_ReusesPendingEphemeralForPID(t *testing.T) {
	res := newFakeResolver()
	res.add(1, 400, 0)
	res.add(2, 400, 0)
	reg := NewRegistry(res, nil)

	if reg.GetOrRegister(1) != reg.GetOrRegister(2) {
		t.Fatalf("two unconfirmed observations of one pid must share the ephemeral")
	}
}

func TestUnregister_InvalidatesAndNotifies(t *testing.T) {
	res := newFakeResolver()
	res.add(1, 500, 13)
	reg := NewRegistry(res, nil)

	var invalidated *Identity
	reg.AddObserver(func(ev Event) {
		if ev.Kind == EventInvalidated {
			invalidated = ev.Identity
		}
	})

	id := reg.GetOrRegister(1)
	reg.Unregister(id)

	if id.Valid() {
		t.Fatalf("unregistered identity must be invalid")
	}
	if invalidated != id {
		t.Fatalf("expected invalidation notification for the identity")
	}
	if _, ok := reg.LookupNumber(13); ok {
		t.Fatalf("number mapping must be removed on unregister")
	}
	// Handle mappings are additive and survive until swept.
	if _, ok := reg.Lookup(1); !ok {
		t.Fatalf("handle mapping should remain until Sweep")
	}
}

func TestSweep_DropsInvalidHandleMappings(t *testing.T) {
	res := newFakeResolver()
	res.add(1, 600, 21)
	reg := NewRegistry(res, nil)

	id := reg.GetOrRegister(1)
	reg.Unregister(id)
	reg.Sweep()

	if _, ok := reg.Lookup(1); ok {
		t.Fatalf("sweep must drop handle mappings of invalidated identities")
	}
	if reg.Size() != 0 {
		t.Fatalf("expected empty registry after sweep, size=%d", reg.Size())
	}
}

func TestSweep_AbandonsDeadEphemerals(t *testing.T) {
	res := newFakeResolver()
	res.add(1, 700, 0)
	reg := NewRegistry(res, nil)

	eph := reg.GetOrRegister(1)
	res.dead[1] = true
	reg.Sweep()

	if eph.Valid() {
		t.Fatalf("sweep must invalidate ephemerals with dead handles")
	}
}

func TestUpdateHandle_RecordsNewMapping(t *testing.T) {
	res := newFakeResolver()
	res.add(1, 800, 31)
	reg := NewRegistry(res, nil)

	id := reg.GetOrRegister(1)
	reg.UpdateHandle(id, 5)

	got, ok := reg.Lookup(5)
	if !ok || got != id {
		t.Fatalf("expected handle 5 to map to the same identity")
	}
	if id.Handle() != 5 {
		t.Fatalf("identity should cache the latest handle, got %d", id.Handle())
	}
	// The old mapping stays: additive, never pruned on its own.
	if _, ok := reg.Lookup(1); !ok {
		t.Fatalf("old handle mapping must be kept")
	}
}
