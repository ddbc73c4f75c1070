package main

import (
	"testing"
	"time"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	loop := NewLoop()
	go loop.Run()
	defer loop.Stop()

	results := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		i := i
		loop.Post(func() { results <- i })
	}

	for want := 1; want <= 3; want++ {
		select {
		case got := <-results:
			if got != want {
				t.Fatalf("expected task %d, got %d", want, got)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for posted task")
		}
	}
}

func TestLoopEveryFiresRepeatedly(t *testing.T) {
	loop := NewLoop()
	go loop.Run()
	defer loop.Stop()

	fired := make(chan struct{}, 16)
	var timer *LoopTimer
	done := make(chan struct{})
	loop.Post(func() {
		timer = loop.Every(5*time.Millisecond, func() { fired <- struct{}{} })
		close(done)
	})
	<-done

	for i := 0; i < 3; i++ {
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatal("timer did not fire")
		}
	}

	stopped := make(chan struct{})
	loop.Post(func() {
		timer.Stop()
		timer.Stop() // second stop must be safe
		close(stopped)
	})
	<-stopped
}

func TestLoopStopTerminatesRun(t *testing.T) {
	loop := NewLoop()
	finished := make(chan struct{})
	go func() {
		loop.Run()
		close(finished)
	}()

	loop.Stop()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
