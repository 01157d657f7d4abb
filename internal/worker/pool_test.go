package worker

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// testJob blocks in Execute until released, so tests can hold a key in
// flight deterministically.
type testJob struct {
	id      string
	key     string
	block   chan struct{}
	done    chan struct{}
	ran     atomic.Bool
	execErr error
}

func newTestJob(id, key string) *testJob {
	return &testJob{id: id, key: key, done: make(chan struct{})}
}

func newBlockingJob(id, key string) *testJob {
	j := newTestJob(id, key)
	j.block = make(chan struct{})
	return j
}

func (j *testJob) Execute() error {
	if j.block != nil {
		<-j.block
	}
	j.ran.Store(true)
	close(j.done)
	return j.execErr
}

func (j *testJob) ID() string  { return j.id }
func (j *testJob) Key() string { return j.key }

func waitDone(t *testing.T, j *testJob) {
	t.Helper()
	select {
	case <-j.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("job %s did not finish in time", j.id)
	}
}

func TestSubmitRejectsBusyKey(t *testing.T) {
	d := NewDispatcher(2, 8)
	d.Run()
	defer d.Stop()

	first := newBlockingJob("job-1", "A1B2C3")
	if err := d.Submit(first); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	// Same key while the first is queued or running: rejected.
	if err := d.Submit(newTestJob("job-2", "A1B2C3")); !errors.Is(err, ErrKeyBusy) {
		t.Errorf("expected ErrKeyBusy, got %v", err)
	}

	// A different key proceeds independently.
	other := newTestJob("job-3", "D4E5F6")
	if err := d.Submit(other); err != nil {
		t.Errorf("submit for a different key failed: %v", err)
	}
	waitDone(t, other)

	close(first.block)
	waitDone(t, first)
}

func TestKeyIsReleasedAfterCompletion(t *testing.T) {
	d := NewDispatcher(1, 4)
	d.Run()
	defer d.Stop()

	first := newTestJob("job-1", "A1B2C3")
	if err := d.Submit(first); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	waitDone(t, first)

	// The key must free up; a fresh job for it may take a moment to be
	// accepted while release races the worker loop.
	deadline := time.After(2 * time.Second)
	for {
		second := newTestJob("job-2", "A1B2C3")
		err := d.Submit(second)
		if err == nil {
			waitDone(t, second)
			return
		}
		if !errors.Is(err, ErrKeyBusy) {
			t.Fatalf("unexpected submit error: %v", err)
		}
		select {
		case <-deadline:
			t.Fatal("key was never released after job completion")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestKeyIsReleasedAfterFailure(t *testing.T) {
	d := NewDispatcher(1, 4)
	d.Run()
	defer d.Stop()

	failing := newTestJob("job-1", "A1B2C3")
	failing.execErr = errors.New("stage failed")
	if err := d.Submit(failing); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	waitDone(t, failing)

	deadline := time.After(2 * time.Second)
	for {
		second := newTestJob("job-2", "A1B2C3")
		err := d.Submit(second)
		if err == nil {
			waitDone(t, second)
			return
		}
		if !errors.Is(err, ErrKeyBusy) {
			t.Fatalf("unexpected submit error: %v", err)
		}
		select {
		case <-deadline:
			t.Fatal("key was never released after a failing job")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	// No Run(): nothing drains the queue, so capacity is exactly the
	// buffer size.
	d := NewDispatcher(1, 1)

	if err := d.Submit(newTestJob("job-1", "A1B2C3")); err != nil {
		t.Fatalf("first submit should fill the queue, got %v", err)
	}
	err := d.Submit(newTestJob("job-2", "D4E5F6"))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	// The rejected job's key must not stay reserved.
	d.mu.Lock()
	_, reserved := d.inFlight["D4E5F6"]
	d.mu.Unlock()
	if reserved {
		t.Error("a job rejected for queue pressure must release its key")
	}
}

func TestJobsForDistinctKeysRunConcurrently(t *testing.T) {
	d := NewDispatcher(2, 8)
	d.Run()
	defer d.Stop()

	first := newBlockingJob("job-1", "A1B2C3")
	second := newTestJob("job-2", "D4E5F6")
	if err := d.Submit(first); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := d.Submit(second); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// The second job finishes while the first is still blocked.
	waitDone(t, second)
	if first.ran.Load() {
		t.Error("blocked job should not have finished yet")
	}
	close(first.block)
	waitDone(t, first)
}
