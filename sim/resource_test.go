package sim

import "testing"

func newTestResource(capacity int) *Resource {
	return NewResource(ResourceSpec{ID: "r", Name: "r", Capacity: capacity, Discipline: DisciplineFIFO})
}

func TestResource_TrySeize_CapacityOne(t *testing.T) {
	// GIVEN an idle capacity-1 resource
	r := newTestResource(1)

	// WHEN two entities try to seize without a release in between
	first := r.TrySeize(1, 0)
	second := r.TrySeize(2, 0)
	// AND the loser tries again
	again := r.TrySeize(2, 0)

	// THEN the first succeeds and the second is queued exactly once
	if !first || second || again {
		t.Fatalf("TrySeize = %v, %v, %v; want true, false, false", first, second, again)
	}
	if r.QueueLength() != 1 {
		t.Errorf("QueueLength = %d, want 1", r.QueueLength())
	}
	if r.Load() != 1 {
		t.Errorf("Load = %d, want 1", r.Load())
	}
	if r.Stats.SeizeCount != 1 {
		t.Errorf("SeizeCount = %d, want 1", r.Stats.SeizeCount)
	}
}

func TestResource_Release_PopsHead(t *testing.T) {
	r := newTestResource(1)
	r.TrySeize(1, 0)
	r.TrySeize(2, 0)
	r.TrySeize(3, 0)

	woken, ok := r.Release()
	if !ok || woken != 2 {
		t.Fatalf("Release = (%d, %v), want (2, true)", woken, ok)
	}
	if r.Load() != 0 {
		t.Errorf("Load = %d, want 0", r.Load())
	}
	if r.Stats.MaxQueueLength != 2 {
		t.Errorf("MaxQueueLength = %d, want 2", r.Stats.MaxQueueLength)
	}
}

func TestResource_Release_EmptyQueue(t *testing.T) {
	r := newTestResource(2)
	r.TrySeize(1, 0)
	if _, ok := r.Release(); ok {
		t.Error("Release with empty queue reported a woken entity")
	}
}

func TestResource_Release_PanicsWhenIdle(t *testing.T) {
	r := newTestResource(1)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	r.Release()
}

func TestResource_QueueUnusedWhileSlotsFree(t *testing.T) {
	// GIVEN capacity 3
	r := newTestResource(3)

	// WHEN three entities seize
	for e := EntityID(0); e < 3; e++ {
		if !r.TrySeize(e, 0) {
			t.Fatalf("TrySeize(%d) = false with free capacity", e)
		}
	}

	// THEN nobody is queued and load never exceeds capacity
	if r.QueueLength() != 0 || r.Load() != 3 {
		t.Errorf("QueueLength = %d, Load = %d; want 0, 3", r.QueueLength(), r.Load())
	}
	if r.TrySeize(3, 0) {
		t.Error("TrySeize beyond capacity succeeded")
	}
}

func TestResource_TrySeizeAtFront_RequeuesAtHead(t *testing.T) {
	// GIVEN a busy resource with one waiter
	r := newTestResource(1)
	r.TrySeize(1, 0)
	r.TrySeize(2, 0)

	// WHEN a woken entity fails to seize
	if r.TrySeizeAtFront(3, 0) {
		t.Fatal("TrySeizeAtFront on a full resource succeeded")
	}

	// THEN it is at the head
	if head, _ := r.Queue().Peek(); head != 3 {
		t.Errorf("head = %d, want 3", head)
	}
}

func TestResource_Advance_IntegratesQueueLength(t *testing.T) {
	r := newTestResource(1)
	r.TrySeize(1, 0)
	r.advance(2)
	r.TrySeize(2, 0) // queue length 1 from t=2
	r.advance(6)

	if r.Stats.queueArea != 4 {
		t.Errorf("queueArea = %v, want 4", r.Stats.queueArea)
	}
}

func TestResource_Reset(t *testing.T) {
	r := newTestResource(1)
	r.TrySeize(1, 0)
	r.TrySeize(2, 0)
	r.AddBusyTime(5)
	r.Reset()
	if r.Load() != 0 || r.QueueLength() != 0 || r.Stats != (ResourceStats{}) {
		t.Errorf("Reset left state: load %d, queue %d, stats %+v", r.Load(), r.QueueLength(), r.Stats)
	}
}

func TestNewResource_PanicsOnZeroCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewResource(ResourceSpec{ID: "x", Capacity: 0})
}
