// Package sched runs the periodic maintenance jobs: purging expired sessions
// and re-arming reminders that lost their dispatch job, e.g. after a restart
// or a failed arm.
package sched

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Maintenance struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func NewMaintenance(logger *slog.Logger) *Maintenance {
	return &Maintenance{
		cron:   cron.New(),
		logger: logger,
	}
}

// Every registers a periodic job. Panics recovered inside the job are logged
// and the schedule keeps running.
func (m *Maintenance) Every(interval time.Duration, name string, job func()) error {
	if interval < time.Minute {
		return fmt.Errorf("interval %s below one minute", interval)
	}
	spec := fmt.Sprintf("@every %s", interval)
	_, err := m.cron.AddFunc(spec, func() {
		defer func() {
			if v := recover(); v != nil {
				m.logger.Error("maintenance job panicked", "job", name, "panic", v)
			}
		}()
		m.logger.Debug("maintenance job running", "job", name)
		job()
	})
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	return nil
}

func (m *Maintenance) Start() {
	m.cron.Start()
}

// Stop halts scheduling and waits for any running job to finish.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}
