package jobs

import (
	"errors"
	"testing"
	"time"
)

func TestRunnerDeliversInRunOrder(t *testing.T) {
	runner := NewRunner(8)
	runner.Start()
	defer runner.Stop()

	now := time.Now().UTC()
	later, err := runner.Schedule(now.Add(80*time.Millisecond), 1, 10)
	if err != nil {
		t.Fatalf("schedule later: %v", err)
	}
	sooner, err := runner.Schedule(now.Add(20*time.Millisecond), 2, 10)
	if err != nil {
		t.Fatalf("schedule sooner: %v", err)
	}

	first := waitJob(t, runner.C(), time.Second)
	second := waitJob(t, runner.C(), time.Second)
	if first.Handle != sooner || second.Handle != later {
		t.Fatalf("unexpected order: first=%d second=%d", first.Handle, second.Handle)
	}
	if first.ReminderID != 2 || second.ReminderID != 1 {
		t.Fatalf("unexpected reminder ids: first=%d second=%d", first.ReminderID, second.ReminderID)
	}
}

func TestRunnerPastRunTimeFiresImmediately(t *testing.T) {
	runner := NewRunner(1)
	runner.Start()
	defer runner.Stop()

	if _, err := runner.Schedule(time.Now().UTC().Add(-time.Hour), 7, 3); err != nil {
		t.Fatalf("schedule overdue: %v", err)
	}

	job := waitJob(t, runner.C(), time.Second)
	if job.ReminderID != 7 {
		t.Fatalf("unexpected reminder id: %d", job.ReminderID)
	}
}

func TestRunnerCancelSuppressesDelivery(t *testing.T) {
	runner := NewRunner(8)
	runner.Start()
	defer runner.Stop()

	now := time.Now().UTC()
	doomed, err := runner.Schedule(now.Add(20*time.Millisecond), 1, 10)
	if err != nil {
		t.Fatalf("schedule doomed: %v", err)
	}
	kept, err := runner.Schedule(now.Add(40*time.Millisecond), 2, 10)
	if err != nil {
		t.Fatalf("schedule kept: %v", err)
	}

	if err := runner.Cancel(doomed); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	job := waitJob(t, runner.C(), time.Second)
	if job.Handle != kept {
		t.Fatalf("expected handle %d, got %d", kept, job.Handle)
	}
	if runner.Pending() != 0 {
		t.Fatalf("expected no pending jobs, got %d", runner.Pending())
	}
}

func TestRunnerCancelUnknownHandle(t *testing.T) {
	runner := NewRunner(1)
	runner.Start()
	defer runner.Stop()

	if err := runner.Cancel(99); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("expected ErrUnknownHandle, got %v", err)
	}

	handle, err := runner.Schedule(time.Now().UTC().Add(10*time.Millisecond), 1, 10)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	waitJob(t, runner.C(), time.Second)

	if err := runner.Cancel(handle); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("expected ErrUnknownHandle after delivery, got %v", err)
	}
}

func TestRunnerRejectsZeroRunTime(t *testing.T) {
	runner := NewRunner(1)
	if _, err := runner.Schedule(time.Time{}, 1, 10); !errors.Is(err, ErrInvalidRunAt) {
		t.Fatalf("expected ErrInvalidRunAt, got %v", err)
	}
}

func TestRunnerStopRejectsFurtherScheduling(t *testing.T) {
	runner := NewRunner(1)
	runner.Start()
	runner.Stop()

	if _, err := runner.Schedule(time.Now().UTC().Add(time.Hour), 1, 10); !errors.Is(err, ErrRunnerStopped) {
		t.Fatalf("expected ErrRunnerStopped, got %v", err)
	}
}

func waitJob(t *testing.T, ch <-chan Job, timeout time.Duration) Job {
	t.Helper()
	select {
	case job := <-ch:
		return job
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for job")
		return Job{}
	}
}
