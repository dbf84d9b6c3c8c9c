package audit

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rosterhq/oncall-api/internal/clock"
	"github.com/rosterhq/oncall-api/internal/model"
	"github.com/rosterhq/oncall-api/internal/repository"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
)

// Service owns the bounded, append-only audit log: newest record
// first, capped at model.MaxAuditRecords, oldest dropped on overflow.
type Service struct {
	repo  repository.AuditRepository
	clock clock.Clock
}

func NewService(repo repository.AuditRepository, clk clock.Clock) *Service {
	return &Service{repo: repo, clock: clk}
}

// Filter narrows a Read to an actor and/or an action prefix.
type Filter struct {
	Actor        string
	ActionPrefix string
}

// Append prepends a record to the log. The read-modify-write on a
// single key is not atomic; racing appenders can lose a record, which
// the store's guarantees do not let us close.
func (s *Service) Append(ctx context.Context, actor, action string, payload interface{}) error {
	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return apperrors.Validation("failed to encode audit payload", err)
		}
		raw = encoded
	}

	records, err := s.repo.GetLog(ctx)
	if err != nil {
		return err
	}

	record := model.AuditRecord{
		TS:      s.clock.Now(),
		Actor:   actor,
		Action:  action,
		Payload: raw,
	}

	records = append([]model.AuditRecord{record}, records...)
	if len(records) > model.MaxAuditRecords {
		records = records[:model.MaxAuditRecords]
	}

	return s.repo.PutLog(ctx, records)
}

// Read returns records newest first, optionally filtered.
func (s *Service) Read(ctx context.Context, filter Filter) ([]model.AuditRecord, error) {
	records, err := s.repo.GetLog(ctx)
	if err != nil {
		return nil, err
	}

	if filter.Actor == "" && filter.ActionPrefix == "" {
		return records, nil
	}

	filtered := make([]model.AuditRecord, 0, len(records))
	for _, record := range records {
		if filter.Actor != "" && record.Actor != filter.Actor {
			continue
		}
		if filter.ActionPrefix != "" && !strings.HasPrefix(record.Action, filter.ActionPrefix) {
			continue
		}
		filtered = append(filtered, record)
	}
	return filtered, nil
}

// LastSystemRun derives the cron health summary: the most recent
// record written by the system actor, or nil when none exists.
func (s *Service) LastSystemRun(ctx context.Context) (*model.AuditRecord, error) {
	records, err := s.repo.GetLog(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Actor == model.ActorSystem {
			return &records[i], nil
		}
	}
	return nil, nil
}
