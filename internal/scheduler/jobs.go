package scheduler

import (
	"context"

	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
)

// abandonedMessage is stored on attempts closed by the sweep.
const abandonedMessage = "abandoned"

// CloseStaleAttemptsJob marks attempts that stayed pending past
// StaleAttemptAfter as errors. The invoice is left alone: a charge that did
// go through is still settled by its webhook.
func (s *Scheduler) CloseStaleAttemptsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	now := s.clock.Now().UTC()
	cutoff := now.Add(-s.cfg.StaleAttemptAfter)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := s.db.WithContext(ctx).Exec(
			`UPDATE payments
			SET status = ?, message = ?, updated_at = ?
			WHERE id IN (
				SELECT id FROM payments
				WHERE status = ? AND created_at < ?
				ORDER BY created_at ASC
				LIMIT ?
			)`,
			paymentdomain.AttemptError,
			abandonedMessage,
			now,
			paymentdomain.AttemptPending,
			cutoff,
			s.cfg.BatchSize,
		)
		if res.Error != nil {
			return res.Error
		}
		run.AddProcessed(int(res.RowsAffected))
		if res.RowsAffected < int64(s.cfg.BatchSize) {
			return nil
		}
	}
}

// PurgeSessionsJob deletes sessions that expired or were revoked more than
// SessionRetention ago.
func (s *Scheduler) PurgeSessionsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	cutoff := s.clock.Now().UTC().Add(-s.cfg.SessionRetention)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := s.db.WithContext(ctx).Exec(
			`DELETE FROM sessions
			WHERE id IN (
				SELECT id FROM sessions
				WHERE expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)
				LIMIT ?
			)`,
			cutoff,
			cutoff,
			s.cfg.BatchSize,
		)
		if res.Error != nil {
			return res.Error
		}
		run.AddProcessed(int(res.RowsAffected))
		if res.RowsAffected < int64(s.cfg.BatchSize) {
			return nil
		}
	}
}
