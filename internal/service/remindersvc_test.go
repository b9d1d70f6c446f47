package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"planloom/internal/domain"
)

type fakeRunner struct {
	nextHandle int64
	scheduled  map[int64]int64
	cancelled  []int64
	cancelErr  error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{scheduled: make(map[int64]int64)}
}

func (r *fakeRunner) Schedule(_ time.Time, reminderID, _ int64) (int64, error) {
	r.nextHandle++
	r.scheduled[r.nextHandle] = reminderID
	return r.nextHandle, nil
}

func (r *fakeRunner) Cancel(handle int64) error {
	if r.cancelErr != nil {
		return r.cancelErr
	}
	if _, ok := r.scheduled[handle]; !ok {
		return errors.New("unknown handle")
	}
	delete(r.scheduled, handle)
	r.cancelled = append(r.cancelled, handle)
	return nil
}

type stubReminderJobStore struct {
	t *testing.T

	setJobHandleFunc    func(context.Context, int64, int64) error
	clearAllHandlesFunc func(context.Context) (int64, error)
	listUnarmedFunc     func(context.Context, int) ([]domain.Reminder, error)
}

func (s *stubReminderJobStore) SetJobHandle(ctx context.Context, id, handle int64) error {
	if s.setJobHandleFunc != nil {
		return s.setJobHandleFunc(ctx, id, handle)
	}
	s.t.Fatalf("SetJobHandle called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubReminderJobStore) ClearAllHandles(ctx context.Context) (int64, error) {
	if s.clearAllHandlesFunc != nil {
		return s.clearAllHandlesFunc(ctx)
	}
	s.t.Fatalf("ClearAllHandles called unexpectedly")
	return 0, errors.New("unexpected call")
}

func (s *stubReminderJobStore) ListUnarmed(ctx context.Context, limit int) ([]domain.Reminder, error) {
	if s.listUnarmedFunc != nil {
		return s.listUnarmedFunc(ctx, limit)
	}
	s.t.Fatalf("ListUnarmed called unexpectedly")
	return nil, errors.New("unexpected call")
}

func TestSchedulerArmRecordsHandle(t *testing.T) {
	runner := newFakeRunner()
	var gotID, gotHandle int64
	store := &stubReminderJobStore{
		t: t,
		setJobHandleFunc: func(_ context.Context, id, handle int64) error {
			gotID, gotHandle = id, handle
			return nil
		},
	}

	sched := &ReminderScheduler{Runner: runner, Reminders: store}
	r := domain.Reminder{ID: 11, EventID: 3, TriggerAt: time.Now().Add(time.Hour)}
	if err := sched.Arm(context.Background(), r); err != nil {
		t.Fatalf("Arm returned error: %v", err)
	}
	if gotID != 11 || gotHandle != 1 {
		t.Fatalf("unexpected handle record: id=%d handle=%d", gotID, gotHandle)
	}
	if len(runner.scheduled) != 1 {
		t.Fatalf("expected one scheduled job, got %d", len(runner.scheduled))
	}
}

func TestSchedulerArmCancelsJobWhenReminderGone(t *testing.T) {
	runner := newFakeRunner()
	store := &stubReminderJobStore{
		t: t,
		setJobHandleFunc: func(context.Context, int64, int64) error {
			return domain.ErrNotFound
		},
	}

	sched := &ReminderScheduler{Runner: runner, Reminders: store}
	r := domain.Reminder{ID: 11, TriggerAt: time.Now().Add(time.Hour)}
	if err := sched.Arm(context.Background(), r); err != nil {
		t.Fatalf("Arm returned error: %v", err)
	}
	if len(runner.scheduled) != 0 {
		t.Fatalf("expected fresh job cancelled, %d still scheduled", len(runner.scheduled))
	}
}

func TestSchedulerCancelHandleWrapsFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.cancelErr = errors.New("boom")

	sched := &ReminderScheduler{Runner: runner, Reminders: &stubReminderJobStore{t: t}}
	err := sched.CancelHandle(42)
	if !errors.Is(err, domain.ErrCancelFailed) {
		t.Fatalf("expected ErrCancelFailed, got %v", err)
	}
	var cfe *domain.CancelFailedError
	if !errors.As(err, &cfe) || cfe.Handle != 42 {
		t.Fatalf("expected CancelFailedError carrying handle 42, got %v", err)
	}
}

func TestSchedulerApplyWriteCancelsBeforeArming(t *testing.T) {
	runner := newFakeRunner()

	// Handle 1 belongs to a reminder whose trigger moved.
	oldHandle, err := runner.Schedule(time.Now().Add(time.Hour), 21, 3)
	if err != nil {
		t.Fatalf("seed schedule: %v", err)
	}
	// Handle 2 belongs to a deleted reminder.
	deletedHandle, err := runner.Schedule(time.Now().Add(time.Hour), 22, 3)
	if err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	var armed []int64
	store := &stubReminderJobStore{
		t: t,
		setJobHandleFunc: func(_ context.Context, id, _ int64) error {
			armed = append(armed, id)
			return nil
		},
	}

	keptHandle := int64(99)
	res := domain.EventWriteResult{
		Graph: domain.EventGraph{
			Reminders: []domain.Reminder{
				{ID: 21, TriggerAt: time.Now().Add(2 * time.Hour)},
				{ID: 23, TriggerAt: time.Now().Add(3 * time.Hour)},
				{ID: 24, TriggerAt: time.Now().Add(time.Hour), JobHandle: &keptHandle},
			},
		},
		CancelledHandles: []int64{deletedHandle},
		RescheduleOld:    map[int64]int64{21: oldHandle},
	}

	sched := &ReminderScheduler{Runner: runner, Reminders: store}
	if err := sched.ApplyWrite(context.Background(), res); err != nil {
		t.Fatalf("ApplyWrite returned error: %v", err)
	}

	if len(armed) != 2 || armed[0] != 21 || armed[1] != 23 {
		t.Fatalf("unexpected armed reminders: %v", armed)
	}
	for _, h := range []int64{oldHandle, deletedHandle} {
		for _, c := range runner.cancelled {
			if c == h {
				h = 0
			}
		}
		if h != 0 {
			t.Fatalf("handle %d not cancelled", h)
		}
	}
}

func TestSchedulerApplyWriteSkipsArmWhenCancelFails(t *testing.T) {
	runner := newFakeRunner()
	runner.cancelErr = errors.New("boom")

	store := &stubReminderJobStore{t: t}

	res := domain.EventWriteResult{
		Graph: domain.EventGraph{
			Reminders: []domain.Reminder{
				{ID: 21, TriggerAt: time.Now().Add(time.Hour)},
			},
		},
		RescheduleOld: map[int64]int64{21: 5},
	}

	sched := &ReminderScheduler{Runner: runner, Reminders: store}
	err := sched.ApplyWrite(context.Background(), res)
	if !errors.Is(err, domain.ErrCancelFailed) {
		t.Fatalf("expected ErrCancelFailed, got %v", err)
	}
	// SetJobHandle must never have been reached; the stub would have failed
	// the test otherwise.
}

func TestSchedulerResetClearsAndRearms(t *testing.T) {
	runner := newFakeRunner()

	cleared := false
	batches := [][]domain.Reminder{
		{{ID: 1, TriggerAt: time.Now().Add(time.Hour)}, {ID: 2, TriggerAt: time.Now().Add(2 * time.Hour)}},
		nil,
	}
	armedIDs := map[int64]bool{}
	store := &stubReminderJobStore{
		t: t,
		clearAllHandlesFunc: func(context.Context) (int64, error) {
			cleared = true
			return 2, nil
		},
		listUnarmedFunc: func(context.Context, int) ([]domain.Reminder, error) {
			batch := batches[0]
			batches = batches[1:]
			return batch, nil
		},
		setJobHandleFunc: func(_ context.Context, id, _ int64) error {
			armedIDs[id] = true
			return nil
		},
	}

	sched := &ReminderScheduler{Runner: runner, Reminders: store}
	if err := sched.Reset(context.Background()); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if !cleared {
		t.Fatalf("expected handles cleared")
	}
	if !armedIDs[1] || !armedIDs[2] {
		t.Fatalf("expected both reminders re-armed, got %v", armedIDs)
	}
}
