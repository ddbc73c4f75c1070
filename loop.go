package main

import "time"

const loopQueueSize = 1024

// Loop is the single event-processing loop. All room and engine state is
// mutated only by tasks running on this loop, so the core needs no locks;
// correctness depends on ordering. WebSocket readers and timers post
// closures onto the queue and each task runs to completion before the next.
type Loop struct {
	tasks chan func()
	stop  chan struct{}
}

// NewLoop creates a Loop
func NewLoop() *Loop {
	return &Loop{
		tasks: make(chan func(), loopQueueSize),
		stop:  make(chan struct{}),
	}
}

// Run drains the task queue until Stop is called
func (l *Loop) Run() {
	for {
		select {
		case task := <-l.tasks:
			task()
		case <-l.stop:
			return
		}
	}
}

// Stop terminates the loop
func (l *Loop) Stop() {
	close(l.stop)
}

// Post enqueues a task. If the queue is full the task is dropped rather
// than blocking the caller (a WS read pump or a timer goroutine).
func (l *Loop) Post(task func()) {
	select {
	case l.tasks <- task:
	default:
	}
}

// LoopTimer is a repeating callback posted onto the loop at a fixed
// interval. Stop must only be called from a loop task; it is idempotent
// so disconnect handling and win detection may both cancel the same timer.
type LoopTimer struct {
	stop    chan struct{}
	stopped bool
}

// Every schedules fn on the loop every interval until the timer is stopped
func (l *Loop) Every(interval time.Duration, fn func()) *LoopTimer {
	t := &LoopTimer{stop: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Post(fn)
			case <-t.stop:
				return
			}
		}
	}()
	return t
}

// Stop cancels the timer. Safe to call more than once.
func (t *LoopTimer) Stop() {
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.stop)
}
