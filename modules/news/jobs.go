// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package news

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/newsroom/internal/model"
)

// EventRetention is how long event log rows are kept.
const EventRetention = 30 * 24 * time.Hour

func (m *Module) registerJobs() error {
	if m.ctx.Scheduler == nil {
		return nil
	}
	cfg := m.ctx.Config

	if err := m.addJob(JobPublishScheduled, "Publish scheduled articles whose time has passed", cfg.PublishSchedule, m.publishScheduled); err != nil {
		return err
	}
	if err := m.addJob(JobPruneEvents, "Delete event log entries past retention", cfg.PruneSchedule, m.pruneEvents); err != nil {
		return err
	}
	if m.ctx.Analytics != nil {
		if err := m.addJob(JobPruneAnalytics, "Delete article views past retention", cfg.PruneSchedule, m.pruneAnalytics); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) addJob(name, description, schedule string, fn func(context.Context) error) error {
	if err := m.ctx.Scheduler.Add(Name, name, description, schedule, fn); err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}
	m.jobs = append(m.jobs, name)
	return nil
}

// publishScheduled flips due scheduled articles to published. The article
// service fires article.after_save for each, which invalidates the cache.
func (m *Module) publishScheduled(ctx context.Context) error {
	n, err := m.ctx.Articles.PublishDue(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		m.ctx.Logger.Info("published scheduled articles", "count", n, "category", model.EventCategoryScheduler)
	}
	return nil
}

func (m *Module) pruneAnalytics(ctx context.Context) error {
	before := time.Now().UTC().Add(-m.ctx.Config.AnalyticsRetention())
	n, err := m.ctx.Analytics.Prune(ctx, before)
	if err != nil {
		return fmt.Errorf("pruning article views: %w", err)
	}
	m.ctx.Logger.Debug("pruned article views", "deleted", n, "before", before)
	return nil
}

func (m *Module) pruneEvents(ctx context.Context) error {
	if m.ctx.Events == nil {
		return nil
	}
	n, err := m.ctx.Events.DeleteOldEvents(ctx, EventRetention)
	if err != nil {
		return fmt.Errorf("pruning events: %w", err)
	}
	m.ctx.Logger.Debug("pruned events", "deleted", n)
	return nil
}
