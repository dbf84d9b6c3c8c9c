// Package dispatch decides, for a given trigger, exactly which
// entries and people get which message on which channel, exactly once
// per (entry, channel, type).
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rosterhq/oncall-api/internal/clock"
	"github.com/rosterhq/oncall-api/internal/model"
	"github.com/rosterhq/oncall-api/internal/notifier"
	"github.com/rosterhq/oncall-api/internal/repository"
	"github.com/rosterhq/oncall-api/internal/service/audit"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
	"github.com/rosterhq/oncall-api/pkg/logger"
	"github.com/rosterhq/oncall-api/pkg/metrics"
)

// upcomingLeadTime is the minimum gap between the trigger and an
// entry's start for the advance reminder to apply.
const upcomingLeadTime = 24 * time.Hour

// Trigger classifications.
const (
	TriggerMonday = "monday"
	TriggerFriday = "friday"
	TriggerManual = "manual"
	TriggerNone   = "none"
)

// Options controls one dispatch invocation.
type Options struct {
	// EntryID selects a single entry directly, bypassing the
	// day-of-week classification.
	EntryID string
	// Mode overrides the channel mode; empty means the trigger's
	// default.
	Mode model.NotifyMode
	// Force resends even when the idempotency ledger already has a
	// record.
	Force bool
	// DryRun computes the exact target set without sending or writing
	// any state.
	DryRun bool
	// Auto marks the invocation as timer-driven rather than operator
	// driven.
	Auto bool
}

// Target is one entry's computed recipient set.
type Target struct {
	EntryID    string           `json:"entry_id"`
	NotifyType model.NotifyType `json:"notify_type"`
	Emails     []string         `json:"emails"`
	Phones     []string         `json:"phones"`
}

// Failure records one recipient the channel could not reach.
type Failure struct {
	Recipient string              `json:"recipient"`
	Channel   model.NotifyChannel `json:"channel"`
	Error     string              `json:"error"`
}

// Result is the explicit partial-outcome report of a dispatch.
type Result struct {
	Trigger    string           `json:"trigger"`
	NotifyType model.NotifyType `json:"notify_type,omitempty"`
	Mode       model.NotifyMode `json:"mode,omitempty"`
	DryRun     bool             `json:"dry_run"`
	Sent       int              `json:"sent"`
	Skipped    int              `json:"skipped"`
	Failed     int              `json:"failed"`
	Targets    []Target         `json:"targets"`
	Failures   []Failure        `json:"failures,omitempty"`
}

type Service struct {
	schedules repository.ScheduleRepository
	states    repository.NotifyStateRepository
	channel   notifier.Channel
	auditor   *audit.Service
	clock     clock.Clock
	logger    *logger.Logger
	metrics   *metrics.Metrics

	adminCC   []string
	publicURL string
}

func NewService(
	schedules repository.ScheduleRepository,
	states repository.NotifyStateRepository,
	channel notifier.Channel,
	auditor *audit.Service,
	clk clock.Clock,
	log *logger.Logger,
	m *metrics.Metrics,
	adminCC []string,
	publicURL string,
) *Service {
	return &Service{
		schedules: schedules,
		states:    states,
		channel:   channel,
		auditor:   auditor,
		clock:     clk,
		logger:    log,
		metrics:   m,
		adminCC:   adminCC,
		publicURL: publicURL,
	}
}

// Dispatch runs one notification cycle. On non-anchor weekdays the
// automatic trigger is a no-op with an empty target set. Channel
// failures are recorded per recipient and never abort the rest of the
// batch.
func (s *Service) Dispatch(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()
	result, err := s.dispatch(ctx, opts)
	if err == nil && s.metrics != nil {
		s.metrics.DispatchRuns.WithLabelValues(result.Trigger).Inc()
		s.metrics.DispatchDuration.Observe(time.Since(started).Seconds())
	}
	return result, err
}

func (s *Service) dispatch(ctx context.Context, opts Options) (*Result, error) {
	now := s.clock.Now()
	loc := s.clock.Location()

	schedule, err := s.schedules.GetSchedule(ctx)
	if err != nil {
		return nil, err
	}

	var (
		trigger    string
		notifyType model.NotifyType
		candidates []*model.ScheduleEntry
	)

	if opts.EntryID != "" {
		trigger = TriggerManual
		entry := schedule.FindEntry(opts.EntryID)
		if entry == nil {
			return nil, apperrors.NotFound("schedule entry", nil)
		}
		if entry.Concluded(now, loc) {
			return nil, apperrors.Validation("cannot notify for a concluded entry", nil)
		}
		notifyType = s.classify(entry, now, loc)
		if notifyType == "" {
			return nil, apperrors.Validation("entry is not eligible for notification yet", nil)
		}
		candidates = []*model.ScheduleEntry{entry}
	} else {
		switch now.Weekday() {
		case time.Monday:
			trigger = TriggerMonday
			notifyType = model.NotifyUpcoming
			candidates = s.upcomingCandidates(schedule, now, loc)
		case time.Friday:
			trigger = TriggerFriday
			notifyType = model.NotifyStartToday
			candidates = s.activeCandidates(schedule, now, loc)
		default:
			return &Result{Trigger: TriggerNone, DryRun: opts.DryRun, Targets: []Target{}}, nil
		}
	}

	mode := opts.Mode
	if mode == "" {
		mode = defaultMode(notifyType)
	}
	if !mode.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("invalid mode %q", opts.Mode), nil)
	}

	result := &Result{
		Trigger:    trigger,
		NotifyType: notifyType,
		Mode:       mode,
		DryRun:     opts.DryRun,
		Targets:    []Target{},
	}

	recipients := 0
	for _, entry := range candidates {
		target := s.buildTarget(entry, notifyType, mode)
		result.Targets = append(result.Targets, target)
		recipients += len(target.Emails) + len(target.Phones)
	}

	if len(candidates) > 0 && recipients == 0 {
		return nil, apperrors.Validation("no recipients exist for the requested mode", nil)
	}

	if opts.DryRun {
		return result, nil
	}

	for i, entry := range candidates {
		if err := s.send(ctx, entry, result.Targets[i], result, now, opts); err != nil {
			return nil, err
		}
	}

	actor := model.ActorAdmin
	if opts.Auto {
		actor = model.ActorSystem
	}
	entryIDs := make([]string, 0, len(candidates))
	for _, entry := range candidates {
		entryIDs = append(entryIDs, entry.ID)
	}
	payload := map[string]interface{}{
		"trigger": trigger,
		"type":    notifyType,
		"mode":    mode,
		"sent":    result.Sent,
		"skipped": result.Skipped,
		"failed":  result.Failed,
		"force":   opts.Force,
		"entries": entryIDs,
	}
	if err := s.auditor.Append(ctx, actor, model.AuditActionNotifyDispatch, payload); err != nil {
		return nil, err
	}

	s.logger.Info("dispatch complete",
		"trigger", trigger,
		"type", string(notifyType),
		"sent", result.Sent,
		"skipped", result.Skipped,
		"failed", result.Failed)
	return result, nil
}

// classify maps an entry to its notify type at the given instant, or
// "" when the entry is excluded.
func (s *Service) classify(entry *model.ScheduleEntry, now time.Time, loc *time.Location) model.NotifyType {
	start, err := entry.Start(loc)
	if err != nil {
		return ""
	}
	end, err := entry.End(loc)
	if err != nil {
		return ""
	}
	if start.After(now) && start.Sub(now) >= upcomingLeadTime {
		return model.NotifyUpcoming
	}
	if !now.After(end) && (!now.Before(start) || sameDay(start, now)) {
		return model.NotifyStartToday
	}
	return ""
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// upcomingCandidates selects the entry starting on the upcoming
// anchor weekday, provided it is at least the lead time away. Exactly
// one entry is eligible per Monday trigger.
func (s *Service) upcomingCandidates(schedule *model.Schedule, now time.Time, loc *time.Location) []*model.ScheduleEntry {
	anchor := now
	for anchor.Weekday() != time.Friday {
		anchor = anchor.AddDate(0, 0, 1)
	}
	anchorDate := anchor.Format("2006-01-02")

	for i := range schedule.Entries {
		entry := &schedule.Entries[i]
		start, err := entry.Start(loc)
		if err != nil {
			continue
		}
		if start.Format("2006-01-02") != anchorDate {
			continue
		}
		if start.After(now) && start.Sub(now) >= upcomingLeadTime {
			return []*model.ScheduleEntry{entry}
		}
	}
	return nil
}

// activeCandidates selects entries already running plus entries
// starting later the same day. The daily tick fires in the morning,
// hours before the 16:00 handoff, so "starts today" must count.
func (s *Service) activeCandidates(schedule *model.Schedule, now time.Time, loc *time.Location) []*model.ScheduleEntry {
	var active []*model.ScheduleEntry
	for i := range schedule.Entries {
		entry := &schedule.Entries[i]
		start, err := entry.Start(loc)
		if err != nil {
			continue
		}
		end, err := entry.End(loc)
		if err != nil {
			continue
		}
		if !now.After(end) && (!now.Before(start) || sameDay(start, now)) {
			active = append(active, entry)
		}
	}
	return active
}

func defaultMode(typ model.NotifyType) model.NotifyMode {
	if typ == model.NotifyStartToday {
		return model.ModeBoth
	}
	return model.ModeEmail
}

// buildTarget computes an entry's recipient lists. Reminders are
// never sent by SMS; phones only apply to same-day start notices.
func (s *Service) buildTarget(entry *model.ScheduleEntry, typ model.NotifyType, mode model.NotifyMode) Target {
	target := Target{
		EntryID:    entry.ID,
		NotifyType: typ,
		Emails:     []string{},
		Phones:     []string{},
	}

	depts := make([]string, 0, len(entry.Departments))
	for dept := range entry.Departments {
		depts = append(depts, dept)
	}
	sort.Strings(depts)

	for _, dept := range depts {
		person := entry.Departments[dept]
		if mode.IncludesEmail() && person.Email != "" {
			target.Emails = append(target.Emails, person.Email)
		}
		if typ == model.NotifyStartToday && mode.IncludesSMS() && person.Phone != "" {
			target.Phones = append(target.Phones, person.Phone)
		}
	}
	return target
}

// send delivers one entry's notifications, consulting and updating
// the idempotency ledger per channel.
func (s *Service) send(ctx context.Context, entry *model.ScheduleEntry, target Target, result *Result, now time.Time, opts Options) error {
	if len(target.Emails) > 0 {
		if err := s.sendEmail(ctx, entry, target, result, now, opts); err != nil {
			return err
		}
	}

	if len(target.Phones) > 0 {
		if err := s.sendSMS(ctx, entry, target, result, now, opts); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) sendEmail(ctx context.Context, entry *model.ScheduleEntry, target Target, result *Result, now time.Time, opts Options) error {
	state, err := s.states.Get(ctx, entry.ID, model.ChannelEmail, target.NotifyType)
	if err != nil {
		return err
	}
	if state != nil && !opts.Force {
		result.Skipped++
		s.countSkipped(model.ChannelEmail, target.NotifyType)
		return nil
	}

	subject, body := s.buildEmailContent(entry, target.NotifyType)
	messageID, err := s.channel.SendEmail(ctx, target.Emails, s.adminCC, subject, body)
	if err != nil {
		result.Failed++
		result.Failures = append(result.Failures, Failure{
			Recipient: strings.Join(target.Emails, ", "),
			Channel:   model.ChannelEmail,
			Error:     err.Error(),
		})
		s.countFailed(model.ChannelEmail, target.NotifyType)
		s.logger.Error(err, "email send failed", "entry_id", entry.ID)
		return nil
	}

	result.Sent++
	s.countSent(model.ChannelEmail, target.NotifyType)
	return s.states.Put(ctx, entry.ID, model.ChannelEmail, target.NotifyType, &model.NotifyState{
		SentAt:    now,
		Force:     opts.Force,
		Auto:      opts.Auto,
		MessageID: messageID,
	})
}

func (s *Service) sendSMS(ctx context.Context, entry *model.ScheduleEntry, target Target, result *Result, now time.Time, opts Options) error {
	state, err := s.states.Get(ctx, entry.ID, model.ChannelSMS, target.NotifyType)
	if err != nil {
		return err
	}
	if state != nil && !opts.Force {
		result.Skipped++
		s.countSkipped(model.ChannelSMS, target.NotifyType)
		return nil
	}

	text := s.buildSMSContent(entry)
	var lastMessageID string
	delivered := 0
	for _, phone := range target.Phones {
		messageID, err := s.channel.SendSMS(ctx, phone, text)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, Failure{
				Recipient: phone,
				Channel:   model.ChannelSMS,
				Error:     err.Error(),
			})
			s.countFailed(model.ChannelSMS, target.NotifyType)
			s.logger.Error(err, "sms send failed", "entry_id", entry.ID, "phone", phone)
			continue
		}
		result.Sent++
		delivered++
		lastMessageID = messageID
		s.countSent(model.ChannelSMS, target.NotifyType)
	}

	if delivered == 0 {
		return nil
	}
	return s.states.Put(ctx, entry.ID, model.ChannelSMS, target.NotifyType, &model.NotifyState{
		SentAt:    now,
		Force:     opts.Force,
		Auto:      opts.Auto,
		MessageID: lastMessageID,
	})
}

func (s *Service) countSent(channel model.NotifyChannel, typ model.NotifyType) {
	if s.metrics != nil {
		s.metrics.NotificationsSent.WithLabelValues(string(channel), string(typ)).Inc()
	}
}

func (s *Service) countSkipped(channel model.NotifyChannel, typ model.NotifyType) {
	if s.metrics != nil {
		s.metrics.NotificationsSkipped.WithLabelValues(string(channel), string(typ)).Inc()
	}
}

func (s *Service) countFailed(channel model.NotifyChannel, typ model.NotifyType) {
	if s.metrics != nil {
		s.metrics.NotificationsFailed.WithLabelValues(string(channel), string(typ)).Inc()
	}
}
