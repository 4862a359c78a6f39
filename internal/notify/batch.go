// internal/notify/batch.go
package notify

import (
	"context"
	"time"

	"signup-notifier/internal/common/config"
	apperrors "signup-notifier/internal/common/errors"
	"signup-notifier/internal/common/logger"
	"signup-notifier/internal/common/metrics"
	"signup-notifier/internal/common/observability"
	"signup-notifier/internal/models"
	"signup-notifier/internal/store"
)

const (
	PathwayReminder   = "reminder"
	PathwayReschedule = "reschedule"

	// batchLockTTL bounds how long a crashed run can keep its pathway
	// locked before the next scheduled run takes over.
	batchLockTTL = 15 * time.Minute

	runStatsKeyPrefix = "run_stats:"
)

// BatchRunner drives the two scheduled pathways: the reminder sweep over
// due signups and the drain of the reschedule retry queue. Each pathway
// runs under an advisory lock and its own rate limiter, so overlapping
// invocations and cross-pathway interference are both excluded.
type BatchRunner struct {
	cfg               config.Config
	records           RecordSource
	dispatcher        *Dispatcher
	reminderLimiter   *RateLimiter
	rescheduleLimiter *RateLimiter
	queue             *RetryQueue
	state             StateStore
	clock             Clock
	obs               *observability.Observability
	logger            logger.Logger
}

func NewBatchRunner(
	cfg config.Config,
	records RecordSource,
	dispatcher *Dispatcher,
	reminderLimiter, rescheduleLimiter *RateLimiter,
	queue *RetryQueue,
	state StateStore,
	clock Clock,
	obs *observability.Observability,
	log logger.Logger,
) *BatchRunner {
	return &BatchRunner{
		cfg:               cfg,
		records:           records,
		dispatcher:        dispatcher,
		reminderLimiter:   reminderLimiter,
		rescheduleLimiter: rescheduleLimiter,
		queue:             queue,
		state:             state,
		clock:             clock,
		obs:               obs,
		logger:            log.WithFields(map[string]interface{}{"component": "batch-runner"}),
	}
}

// RunReminderBatch sweeps signups due a first or second reminder and sends
// them, bounded by the reminder rate window. A run already in progress
// makes this a no-op. Returns the number of notifications sent.
func (b *BatchRunner) RunReminderBatch(ctx context.Context) (int, error) {
	var sent int
	err := b.state.WithLock(ctx, "batch:"+PathwayReminder, batchLockTTL, func() error {
		var err error
		sent, err = b.runReminders(ctx)
		return err
	})
	if apperrors.IsLockHeld(err) {
		b.logger.Info("reminder batch already running, skipping", nil)
		return 0, nil
	}
	return sent, err
}

func (b *BatchRunner) runReminders(ctx context.Context) (int, error) {
	start := b.clock.Now()
	if err := b.reminderLimiter.Begin(ctx); err != nil {
		return 0, err
	}

	passes := []struct {
		kind      store.ReminderKind
		cat       models.Category
		leadHours int
	}{
		{store.FirstReminder, models.CategoryReminder1, b.cfg.Reminders.Lead1Hours},
		{store.SecondReminder, models.CategoryReminder2, b.cfg.Reminders.Lead2Hours},
	}

	sent := 0
	for _, pass := range passes {
		cutoff := start.Add(time.Duration(pass.leadHours) * time.Hour)
		due, err := b.records.DueReminders(ctx, cutoff, pass.kind)
		if err != nil {
			return sent, err
		}

		for _, p := range due {
			if !b.reminderLimiter.TryReserve() {
				metrics.RateLimitClosed.WithLabelValues(PathwayReminder).Inc()
				b.logger.Info("reminder rate window closed, stopping batch", map[string]interface{}{
					"sent": sent,
				})
				return b.finishReminders(ctx, start, sent)
			}

			// One participant failing must not starve the rest of the
			// batch; log and move on.
			if b.sendReminder(ctx, pass.cat, pass.kind, p) {
				sent++
			}
		}
	}

	return b.finishReminders(ctx, start, sent)
}

// sendReminder dispatches one reminder and flips the sent flag on success.
func (b *BatchRunner) sendReminder(ctx context.Context, cat models.Category, kind store.ReminderKind, p models.Participant) bool {
	rc, err := b.reminderContext(ctx, p)
	if err != nil {
		b.logger.Error("loading reminder context failed", map[string]interface{}{
			"participantId": p.ID, "error": err.Error(),
		})
		return false
	}

	result, err := b.dispatcher.Send(ctx, cat, p, p.SheetID, p.TaskID, rc)
	if err != nil {
		b.logger.Error("reminder dispatch errored", map[string]interface{}{
			"participantId": p.ID, "category": cat.String(), "error": err.Error(),
		})
		return false
	}
	if result.State != StateTransmitted {
		b.logger.Info("reminder not transmitted", map[string]interface{}{
			"participantId": p.ID, "category": cat.String(),
			"state": result.State.String(), "detail": result.Detail,
		})
		return false
	}

	if err := b.records.MarkReminderSent(ctx, p.ID, kind); err != nil {
		// The message went out; an unmarked flag means a duplicate next
		// run, which at-least-once delivery tolerates.
		b.logger.Error("marking reminder sent failed", map[string]interface{}{
			"participantId": p.ID, "error": err.Error(),
		})
	}
	return true
}

func (b *BatchRunner) reminderContext(ctx context.Context, p models.Participant) (RenderContext, error) {
	rc := b.baseContext(p)

	task, found, err := b.records.Task(ctx, p.TaskID)
	if err != nil {
		return rc, err
	}
	if found {
		rc.TaskTitle = task.Title
		rc.TaskDate = task.Date
	}

	sheet, found, err := b.records.Sheet(ctx, p.SheetID)
	if err != nil {
		return rc, err
	}
	if found {
		rc.SheetTitle = sheet.Title
		rc.ChairName = sheet.ChairName
	}
	return rc, nil
}

func (b *BatchRunner) finishReminders(ctx context.Context, start time.Time, sent int) (int, error) {
	if err := b.reminderLimiter.Commit(ctx, sent); err != nil {
		return sent, err
	}
	b.recordRun(ctx, PathwayReminder, start, sent)
	b.dispatcher.SendOperatorSummary(ctx, PathwayReminder, sent)
	return sent, nil
}

// RunReschedulePass drains the reschedule retry queue up to the pathway's
// remaining rate capacity and sends each entry once. Entries whose
// transmission failed go back on the tail of the queue; entries suppressed
// by policy or with no resolvable template are dropped for good. Returns
// the number of notifications sent.
func (b *BatchRunner) RunReschedulePass(ctx context.Context) (int, error) {
	var sent int
	err := b.state.WithLock(ctx, "batch:"+PathwayReschedule, batchLockTTL, func() error {
		var err error
		sent, err = b.runReschedules(ctx)
		return err
	})
	if apperrors.IsLockHeld(err) {
		b.logger.Info("reschedule pass already running, skipping", nil)
		return 0, nil
	}
	return sent, err
}

func (b *BatchRunner) runReschedules(ctx context.Context) (int, error) {
	start := b.clock.Now()
	if err := b.rescheduleLimiter.Begin(ctx); err != nil {
		return 0, err
	}

	entries, err := b.queue.DrainUpTo(ctx, b.rescheduleLimiter.Remaining())
	if err != nil {
		return 0, err
	}

	var (
		sent    int
		dropped int
		failed  []models.RetryEntry
	)
	for i, entry := range entries {
		if !b.rescheduleLimiter.TryReserve() {
			// The drain was already bounded by Remaining; this only
			// trips when the window rolled over mid-drain.
			metrics.RateLimitClosed.WithLabelValues(PathwayReschedule).Inc()
			failed = append(failed, entries[i:]...)
			break
		}

		p := models.Participant{
			Name:  entry.ParticipantName,
			Email: entry.ParticipantEmail,
		}
		rc := b.baseContext(p)
		rc.TaskTitle = entry.TaskTitle
		rc.OldDate = entry.OldDate
		rc.NewDate = entry.NewDate

		result, err := b.dispatcher.Send(ctx, models.CategoryReschedule, p, entry.SheetID, entry.TaskID, rc)
		if err != nil {
			b.logger.Error("reschedule dispatch errored", map[string]interface{}{
				"email": entry.ParticipantEmail, "error": err.Error(),
			})
			failed = append(failed, entry)
			continue
		}

		switch result.State {
		case StateTransmitted:
			sent++
		case StateTransmitFailed:
			b.logger.Warn("reschedule transmit failed, will retry", map[string]interface{}{
				"email": entry.ParticipantEmail, "detail": result.Detail,
			})
			failed = append(failed, entry)
		default:
			// Suppressed or unsendable: retrying cannot change the
			// outcome, so the entry leaves the queue for good.
			dropped++
		}
	}

	if err := b.queue.Requeue(ctx, failed); err != nil {
		return sent, err
	}
	if err := b.rescheduleLimiter.Commit(ctx, sent); err != nil {
		return sent, err
	}

	b.logger.Info("reschedule pass complete", map[string]interface{}{
		"drained": len(entries), "sent": sent, "requeued": len(failed), "dropped": dropped,
	})
	b.recordRun(ctx, PathwayReschedule, start, sent)
	b.dispatcher.SendOperatorSummary(ctx, PathwayReschedule, sent)
	return sent, nil
}

// baseContext fills the participant and site fields every category shares.
func (b *BatchRunner) baseContext(p models.Participant) RenderContext {
	return RenderContext{
		Name:            p.Name,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		Email:           p.Email,
		SiteName:        b.cfg.Notifications.SiteName,
		SiteURL:         b.cfg.Notifications.SiteURL,
		ExpirationHours: b.cfg.Notifications.ExpirationHours,
	}
}

// recordRun persists per-pathway statistics and emits batch metrics.
func (b *BatchRunner) recordRun(ctx context.Context, pathway string, start time.Time, sent int) {
	now := b.clock.Now()
	elapsed := now.Sub(start)

	metrics.BatchSent.WithLabelValues(pathway).Add(float64(sent))
	metrics.BatchDuration.WithLabelValues(pathway).Observe(elapsed.Seconds())
	if b.obs != nil {
		b.obs.RecordBatchRun(ctx, pathway, sent, elapsed)
	}

	var stats models.RunStats
	if _, err := b.state.GetJSON(ctx, runStatsKeyPrefix+pathway, &stats); err != nil {
		b.logger.Warn("loading run stats failed", map[string]interface{}{
			"pathway": pathway, "error": err.Error(),
		})
	}
	stats.LastRun = now
	stats.SentLastBatch = sent
	if sent > 0 {
		stats.LastSent = now
	}
	if err := b.state.SetJSON(ctx, runStatsKeyPrefix+pathway, stats); err != nil {
		b.logger.Warn("saving run stats failed", map[string]interface{}{
			"pathway": pathway, "error": err.Error(),
		})
	}
}

// Stats returns the persisted statistics for one pathway.
func (b *BatchRunner) Stats(ctx context.Context, pathway string) (models.RunStats, error) {
	var stats models.RunStats
	_, err := b.state.GetJSON(ctx, runStatsKeyPrefix+pathway, &stats)
	return stats, err
}
