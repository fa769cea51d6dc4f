package timer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(filepath.Join(dir, "timers.json"))
}

func TestRunOnceFiresDueOnceTimerAndRemovesIt(t *testing.T) {
	store := newTestStore(t)
	task := Task{
		ID:          "t1",
		TriggerTime: time.Now().Add(-time.Minute),
		Reason:      "test",
		Repeat:      RepeatOnce,
		Enabled:     true,
	}
	if err := store.Add(task); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var mu sync.Mutex
	var fired []string
	sched := NewScheduler(store, func(_ context.Context, t Task) {
		mu.Lock()
		fired = append(fired, t.ID)
		mu.Unlock()
	})

	sched.RunOnce(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 || fired[0] != "t1" {
		t.Fatalf("expected t1 to fire once, got %v", fired)
	}
	if _, ok := store.Get("t1"); ok {
		t.Fatalf("expected once-timer to be removed after firing")
	}
}

func TestRunOnceAdvancesRepeatingTimer(t *testing.T) {
	store := newTestStore(t)
	trigger := time.Now().Add(-time.Minute)
	task := Task{
		ID:          "t2",
		TriggerTime: trigger,
		Repeat:      RepeatDaily,
		Enabled:     true,
	}
	if err := store.Add(task); err != nil {
		t.Fatalf("Add: %v", err)
	}

	sched := NewScheduler(store, func(context.Context, Task) {})
	sched.RunOnce(context.Background())

	got, ok := store.Get("t2")
	if !ok {
		t.Fatalf("expected daily timer to still exist")
	}
	want := trigger.Add(24 * time.Hour)
	if !got.TriggerTime.Equal(want) {
		t.Fatalf("expected advanced trigger time %v, got %v", want, got.TriggerTime)
	}
}

func TestRunOnceSkipsNotYetDueTimer(t *testing.T) {
	store := newTestStore(t)
	task := Task{
		ID:          "t3",
		TriggerTime: time.Now().Add(time.Hour),
		Repeat:      RepeatOnce,
		Enabled:     true,
	}
	if err := store.Add(task); err != nil {
		t.Fatalf("Add: %v", err)
	}

	fired := false
	sched := NewScheduler(store, func(context.Context, Task) { fired = true })
	sched.RunOnce(context.Background())

	if fired {
		t.Fatalf("expected future timer not to fire")
	}
	if _, ok := store.Get("t3"); !ok {
		t.Fatalf("expected future timer to remain stored")
	}
}

func TestRunOnceRecoversFromPanickingCallback(t *testing.T) {
	store := newTestStore(t)
	task := Task{
		ID:          "t4",
		TriggerTime: time.Now().Add(-time.Second),
		Repeat:      RepeatOnce,
		Enabled:     true,
	}
	if err := store.Add(task); err != nil {
		t.Fatalf("Add: %v", err)
	}

	sched := NewScheduler(store, func(context.Context, Task) { panic("boom") })

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("RunOnce should recover from callback panic, got %v", r)
		}
	}()
	sched.RunOnce(context.Background())
}

func TestStartStopRunsOnTick(t *testing.T) {
	store := newTestStore(t)
	task := Task{
		ID:          "t5",
		TriggerTime: time.Now().Add(-time.Second),
		Repeat:      RepeatOnce,
		Enabled:     true,
	}
	if err := store.Add(task); err != nil {
		t.Fatalf("Add: %v", err)
	}

	fired := make(chan struct{}, 1)
	sched := NewScheduler(store, func(context.Context, Task) {
		select {
		case fired <- struct{}{}:
		default:
		}
	}, WithTickInterval(10*time.Millisecond))

	sched.Start(context.Background())
	defer sched.Stop()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("expected scheduler to fire due timer within 1s")
	}
}

func TestDefaultStoragePathUnderHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir available")
	}
	got := DefaultStoragePath()
	want := filepath.Join(home, ".ye-linghua", "timers.json")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
