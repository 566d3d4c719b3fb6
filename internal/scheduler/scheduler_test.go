package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestEveryRejectsSubSecond(t *testing.T) {
	s := New(nil)
	if err := s.Every("fast", 10*time.Millisecond, func(context.Context) {}); err == nil {
		t.Fatalf("expected error for sub-second interval")
	}
	if s.Jobs() != 0 {
		t.Fatalf("no job should be registered")
	}
}

func TestStopWaitsForRunningJob(t *testing.T) {
	s := New(nil)
	var (
		started  atomic.Bool
		finished atomic.Bool
	)
	err := s.Every("sync", time.Second, func(ctx context.Context) {
		if !started.CompareAndSwap(false, true) {
			return
		}
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
	})
	if err != nil {
		t.Fatalf("Every: %v", err)
	}
	s.Start()

	deadline := time.Now().Add(3 * time.Second)
	for !started.Load() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !started.Load() {
		t.Fatalf("job never ran")
	}

	s.Stop()
	if !finished.Load() {
		t.Fatalf("Stop returned before the running job finished")
	}
}

func TestStopKeepsJobContextAliveUntilJobReturns(t *testing.T) {
	s := New(nil)
	var (
		started atomic.Bool
		errSeen = make(chan error, 1)
	)
	err := s.Every("sync", time.Second, func(ctx context.Context) {
		if !started.CompareAndSwap(false, true) {
			return
		}
		time.Sleep(200 * time.Millisecond)
		errSeen <- ctx.Err()
	})
	if err != nil {
		t.Fatalf("Every: %v", err)
	}
	s.Start()

	deadline := time.Now().Add(3 * time.Second)
	for !started.Load() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !started.Load() {
		t.Fatalf("job never ran")
	}

	s.Stop()
	select {
	case err := <-errSeen:
		if err != nil {
			t.Fatalf("job context cancelled while Stop waited: %v", err)
		}
	default:
		t.Fatalf("Stop returned before the running job finished")
	}
}
