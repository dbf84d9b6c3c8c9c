// Package schedule owns the read/write contract for the schedule's
// three projections: the full entry list, the current entry, and the
// append-only archive of concluded entries.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/rosterhq/oncall-api/internal/clock"
	"github.com/rosterhq/oncall-api/internal/model"
	"github.com/rosterhq/oncall-api/internal/repository"
	"github.com/rosterhq/oncall-api/internal/service/audit"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
	"github.com/rosterhq/oncall-api/pkg/logger"
)

type Service struct {
	repo    repository.ScheduleRepository
	auditor *audit.Service
	clock   clock.Clock
	logger  *logger.Logger
}

func NewService(repo repository.ScheduleRepository, auditor *audit.Service, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		auditor: auditor,
		clock:   clk,
		logger:  log,
	}
}

// Save persists a schedule across all three projections. The write
// order is load-bearing: archive concluded entries first, then the
// full schedule, then the current projection. The store has no
// cross-key atomicity, so a reader racing a save observes either the
// old or the new schedule but never a torn archive.
func (s *Service) Save(ctx context.Context, schedule *model.Schedule, updatedBy string) (*model.Schedule, error) {
	return s.save(ctx, schedule, updatedBy, model.AuditActionScheduleSave)
}

func (s *Service) save(ctx context.Context, schedule *model.Schedule, updatedBy, auditAction string) (*model.Schedule, error) {
	loc := s.clock.Location()
	if schedule.Timezone == "" {
		schedule.Timezone = loc.String()
	}
	if err := ValidateEntries(schedule.Entries, loc); err != nil {
		return nil, err
	}

	now := s.clock.Now()

	// Step 1: write-once archival of every concluded entry.
	archived := 0
	for i := range schedule.Entries {
		entry := &schedule.Entries[i]
		if !entry.Concluded(now, loc) {
			continue
		}
		if _, err := s.repo.GetSnapshot(ctx, entry.ID); err == nil {
			continue // already archived, never overwrite
		} else if !apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		snapshot := &model.HistorySnapshot{
			Entry:      *entry,
			ArchivedAt: now,
			ArchivedBy: updatedBy,
		}
		if err := s.repo.PutSnapshot(ctx, entry.ID, snapshot); err != nil {
			return nil, err
		}
		archived++
	}

	// Step 2: stash the outgoing schedule for single-level revert,
	// then overwrite the source of truth.
	previous, err := s.repo.GetSchedule(ctx)
	switch {
	case err == nil:
		if err := s.repo.PutPrevious(ctx, previous); err != nil {
			return nil, err
		}
		schedule.Version = previous.Version + 1
	case apperrors.Is(err, apperrors.ErrNotFound):
		schedule.Version = 1
	default:
		return nil, err
	}

	schedule.UpdatedAt = now
	schedule.UpdatedBy = updatedBy
	if err := s.repo.PutSchedule(ctx, schedule); err != nil {
		return nil, err
	}

	// Step 3: recompute the current projection.
	if err := s.recomputeCurrent(ctx, schedule, now, loc); err != nil {
		return nil, err
	}

	actor := model.ActorAdmin
	if updatedBy == model.ActorSystem {
		actor = model.ActorSystem
	}
	payload := map[string]interface{}{
		"version":    schedule.Version,
		"entries":    len(schedule.Entries),
		"archived":   archived,
		"updated_by": updatedBy,
	}
	if err := s.auditor.Append(ctx, actor, auditAction, payload); err != nil {
		return nil, err
	}

	s.logger.Info("schedule saved",
		"version", schedule.Version,
		"entries", len(schedule.Entries),
		"archived", archived)
	return schedule, nil
}

func (s *Service) recomputeCurrent(ctx context.Context, schedule *model.Schedule, now time.Time, loc *time.Location) error {
	for i := range schedule.Entries {
		entry := &schedule.Entries[i]
		if entry.Contains(now, loc) {
			return s.repo.PutCurrent(ctx, &model.CurrentEntry{
				Entry:      *entry,
				ComputedAt: now,
			})
		}
	}
	// Nobody is on call right now; there must be no stale projection.
	return s.repo.DeleteCurrent(ctx)
}

// Revert restores the single retained prior version as the
// authoritative schedule. Exactly one level of undo exists; reverting
// twice toggles between the two most recent versions.
func (s *Service) Revert(ctx context.Context, updatedBy string) (*model.Schedule, error) {
	previous, err := s.repo.GetPrevious(ctx)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, previous, updatedBy, model.AuditActionScheduleRevert)
}

// RestoreFromHistory rebuilds the authoritative schedule from an
// archived snapshot's payload.
func (s *Service) RestoreFromHistory(ctx context.Context, entryID, updatedBy string) (*model.Schedule, error) {
	snapshot, err := s.repo.GetSnapshot(ctx, entryID)
	if err != nil {
		return nil, err
	}
	restored := &model.Schedule{
		Timezone: s.clock.Location().String(),
		Entries:  []model.ScheduleEntry{snapshot.Entry},
	}
	return s.save(ctx, restored, fmt.Sprintf("restore:%s", updatedBy), model.AuditActionScheduleRestore)
}

// Full returns the source-of-truth projection.
func (s *Service) Full(ctx context.Context) (*model.Schedule, error) {
	return s.repo.GetSchedule(ctx)
}

// Current returns the entry active at the last save, if any.
func (s *Service) Current(ctx context.Context) (*model.CurrentEntry, error) {
	return s.repo.GetCurrent(ctx)
}

// History returns every archived snapshot.
func (s *Service) History(ctx context.Context) ([]model.HistorySnapshot, error) {
	return s.repo.ListSnapshots(ctx)
}

// ValidateEntries checks that entries form a proper ordered sequence:
// parseable boundaries, start < end, strictly ordered, non-overlapping,
// unique non-empty ids.
func ValidateEntries(entries []model.ScheduleEntry, loc *time.Location) error {
	seen := make(map[string]struct{}, len(entries))
	var prevEnd time.Time

	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			return apperrors.Validation(fmt.Sprintf("entry %d has no id", i), nil)
		}
		if _, dup := seen[entry.ID]; dup {
			return apperrors.Validation(fmt.Sprintf("duplicate entry id %s", entry.ID), nil)
		}
		seen[entry.ID] = struct{}{}

		start, err := entry.Start(loc)
		if err != nil {
			return apperrors.Validation(fmt.Sprintf("entry %s has an invalid start", entry.ID), err)
		}
		end, err := entry.End(loc)
		if err != nil {
			return apperrors.Validation(fmt.Sprintf("entry %s has an invalid end", entry.ID), err)
		}
		if !start.Before(end) {
			return apperrors.Validation(fmt.Sprintf("entry %s must start before it ends", entry.ID), nil)
		}
		if i > 0 && start.Before(prevEnd) {
			return apperrors.Validation("entries must be ordered and non-overlapping", nil)
		}
		prevEnd = end
	}
	return nil
}
