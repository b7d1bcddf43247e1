// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic jobs such as publishing scheduled
// articles and pruning old analytics rows.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobTimeout bounds a single job run.
const JobTimeout = 5 * time.Minute

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

// parser accepts standard five-field expressions and descriptors like @daily.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether spec is a usable cron expression.
func ValidateSchedule(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

type job struct {
	source      string
	name        string
	description string
	schedule    string
	entryID     cron.EntryID
	fn          JobFunc
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Source      string    `json:"source"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Schedule    string    `json:"schedule"`
	LastRun     time.Time `json:"last_run"`
	NextRun     time.Time `json:"next_run"`
}

// Scheduler owns a cron instance and the jobs registered on it.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	mu     sync.RWMutex
	jobs   map[string]*job // key: "source:name"
}

// New creates a scheduler. Jobs run in UTC.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC)),
		logger: logger,
		jobs:   make(map[string]*job),
	}
}

func jobKey(source, name string) string { return source + ":" + name }

// Add registers fn under source/name with the given schedule.
func (s *Scheduler) Add(source, name, description, schedule string, fn JobFunc) error {
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := jobKey(source, name)
	if _, exists := s.jobs[key]; exists {
		return fmt.Errorf("job %s already registered", key)
	}

	j := &job{source: source, name: name, description: description, schedule: schedule, fn: fn}
	id, err := s.cron.AddFunc(schedule, func() { s.run(j) })
	if err != nil {
		return fmt.Errorf("adding job %s: %w", key, err)
	}
	j.entryID = id
	s.jobs[key] = j

	s.logger.Debug("registered scheduled job", "source", source, "name", name, "schedule", schedule)
	return nil
}

func (s *Scheduler) run(j *job) {
	ctx, cancel := context.WithTimeout(context.Background(), JobTimeout)
	defer cancel()

	start := time.Now()
	if err := j.fn(ctx); err != nil {
		s.logger.Error("scheduled job failed", "source", j.source, "name", j.name, "error", err)
		return
	}
	s.logger.Debug("scheduled job finished", "source", j.source, "name", j.name, "took", time.Since(start))
}

// TriggerNow runs a job immediately in the calling goroutine.
func (s *Scheduler) TriggerNow(ctx context.Context, source, name string) error {
	s.mu.RLock()
	j, ok := s.jobs[jobKey(source, name)]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job not found: %s", jobKey(source, name))
	}

	s.logger.Info("manually triggering job", "source", source, "name", name)
	return j.fn(ctx)
}

// Remove unregisters a job.
func (s *Scheduler) Remove(source, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := jobKey(source, name)
	if j, ok := s.jobs[key]; ok {
		s.cron.Remove(j.entryID)
		delete(s.jobs, key)
	}
}

// List returns all registered jobs sorted by source then name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		entry := s.cron.Entry(j.entryID)
		out = append(out, JobInfo{
			Source:      j.source,
			Name:        j.name,
			Description: j.description,
			Schedule:    j.schedule,
			LastRun:     entry.Prev,
			NextRun:     entry.Next,
		})
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Source != out[k].Source {
			return out[i].Source < out[k].Source
		}
		return out[i].Name < out[k].Name
	})
	return out
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
