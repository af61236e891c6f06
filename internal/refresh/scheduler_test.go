package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, deadline time.Duration, check func() bool) {
	t.Helper()
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestNewRejectsBadSchedule(t *testing.T) {
	for _, spec := range []string{"", "  ", "every tuesday", "* * *"} {
		if _, err := New(Config{Schedule: spec}); err == nil {
			t.Fatalf("New(%q) expected error", spec)
		}
	}
}

func TestRunNowRunsEveryJobAndJoinsErrors(t *testing.T) {
	var tasks, habits atomic.Int32
	boom := errors.New("boom")
	s, err := New(Config{
		Schedule: "@every 1h",
		Jobs: []Job{
			{Name: "tasks", Run: func(context.Context) error { tasks.Add(1); return boom }},
			{Name: "habits", Run: func(context.Context) error { habits.Add(1); return nil }},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	err = s.RunNow(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("RunNow() error = %v, want boom", err)
	}
	if tasks.Load() != 1 || habits.Load() != 1 {
		t.Fatalf("jobs ran tasks=%d habits=%d", tasks.Load(), habits.Load())
	}
}

func TestSchedulerTicksUntilStopped(t *testing.T) {
	var calls atomic.Int32
	s, err := New(Config{
		Schedule: "@every 1s",
		Jobs:     []Job{{Name: "tasks", Run: func(context.Context) error { calls.Add(1); return nil }}},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.Start(context.Background())
	waitFor(t, 3*time.Second, func() bool { return s.Runs() >= 1 })
	s.Stop()

	after := calls.Load()
	time.Sleep(1200 * time.Millisecond)
	if calls.Load() != after {
		t.Fatalf("job ran after Stop(): %d -> %d", after, calls.Load())
	}
}

func TestStopCancelsInFlightJob(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	s, err := New(Config{
		Schedule: "@every 1s",
		Jobs: []Job{{Name: "slow", Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			cancelled.Store(true)
			return ctx.Err()
		}}},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.Start(context.Background())
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}
	s.Stop()
	if !cancelled.Load() {
		t.Fatal("expected in-flight job to observe cancellation before Stop() returned")
	}
}
