// Package jobs provides the in-process one-shot job runner used to fire
// reminder dispatches at their trigger instants. Handles identify armed jobs
// and are only meaningful within the lifetime of one Runner; nothing here
// survives a restart.
package jobs

import (
	"container/heap"
	"errors"
	"sync"
	"time"
)

var (
	ErrInvalidRunAt  = errors.New("jobs: invalid run time")
	ErrUnknownHandle = errors.New("jobs: unknown handle")
	ErrRunnerStopped = errors.New("jobs: runner stopped")
)

// Job is delivered on the runner's channel when its run time arrives.
type Job struct {
	Handle     int64
	ReminderID int64
	EventID    int64
	RunAt      time.Time
}

type queueItem struct {
	job Job
}

type jobQueue []queueItem

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	return q[i].job.RunAt.Before(q[j].job.RunAt)
}

func (q jobQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *jobQueue) Push(x any) {
	*q = append(*q, x.(queueItem))
}

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[0 : n-1]
	return item
}

// Runner delivers each scheduled job exactly once on C, at or after its run
// time, unless the job is cancelled first. Cancellation marks the handle
// dead; the queued item is discarded lazily when it surfaces.
type Runner struct {
	mu         sync.Mutex
	queue      jobQueue
	live       map[int64]bool
	nextHandle int64
	out        chan Job
	wakeup     chan struct{}
	stopCh     chan struct{}
	doneCh     chan struct{}
	started    bool
	stopped    bool
}

func NewRunner(bufferSize int) *Runner {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Runner{
		queue:  make(jobQueue, 0),
		live:   make(map[int64]bool),
		out:    make(chan Job, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (r *Runner) C() <-chan Job {
	return r.out
}

func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	heap.Init(&r.queue)
	go r.loop()
}

func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.stopCh)
	r.mu.Unlock()
	<-r.doneCh
}

// Schedule arms a one-shot job and returns its handle. A run time in the
// past is accepted and fires immediately.
func (r *Runner) Schedule(runAt time.Time, reminderID, eventID int64) (int64, error) {
	if runAt.IsZero() {
		return 0, ErrInvalidRunAt
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return 0, ErrRunnerStopped
	}

	r.nextHandle++
	handle := r.nextHandle
	r.live[handle] = true
	heap.Push(&r.queue, queueItem{job: Job{Handle: handle, ReminderID: reminderID, EventID: eventID, RunAt: runAt}})
	r.signalWakeup()
	return handle, nil
}

// Cancel kills an armed job. Cancelling a handle that was never issued, was
// already delivered or was already cancelled returns ErrUnknownHandle.
func (r *Runner) Cancel(handle int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.live[handle] {
		return ErrUnknownHandle
	}
	delete(r.live, handle)
	return nil
}

// Pending reports the number of armed, uncancelled jobs.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

func (r *Runner) loop() {
	defer close(r.doneCh)
	defer close(r.out)

	var timer *time.Timer
	for {
		next, hasNext := r.peek()
		if !hasNext {
			select {
			case <-r.wakeup:
				continue
			case <-r.stopCh:
				return
			}
		}

		wait := time.Until(next.RunAt)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			for _, job := range r.popDue(time.Now().UTC()) {
				select {
				case r.out <- job:
				case <-r.stopCh:
					stopTimer(timer)
					return
				}
			}
		case <-r.wakeup:
			continue
		case <-r.stopCh:
			stopTimer(timer)
			return
		}
	}
}

func (r *Runner) signalWakeup() {
	select {
	case r.wakeup <- struct{}{}:
	default:
	}
}

// peek skips over cancelled items so the timer never waits on a dead job.
func (r *Runner) peek() (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.queue) > 0 {
		next := r.queue[0].job
		if r.live[next.Handle] {
			return next, true
		}
		heap.Pop(&r.queue)
	}
	return Job{}, false
}

func (r *Runner) popDue(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Job, 0)
	for len(r.queue) > 0 {
		next := r.queue[0].job
		if next.RunAt.After(now) {
			break
		}
		heap.Pop(&r.queue)
		if !r.live[next.Handle] {
			continue
		}
		delete(r.live, next.Handle)
		out = append(out, next)
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
