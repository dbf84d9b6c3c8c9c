package dispatch

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterhq/oncall-api/internal/clock"
	"github.com/rosterhq/oncall-api/internal/model"
	"github.com/rosterhq/oncall-api/internal/repository/kv"
	"github.com/rosterhq/oncall-api/internal/repository/memory"
	auditService "github.com/rosterhq/oncall-api/internal/service/audit"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
	"github.com/rosterhq/oncall-api/pkg/logger"
)

type emailCall struct {
	To      []string
	CC      []string
	Subject string
}

type fakeChannel struct {
	emails    []emailCall
	smses     []string
	failEmail bool
	failPhone string
}

func (f *fakeChannel) SendEmail(_ context.Context, to, cc []string, subject, _ string) (string, error) {
	if f.failEmail {
		return "", apperrors.Channel("smtp refused", errors.New("connection reset"))
	}
	f.emails = append(f.emails, emailCall{To: to, CC: cc, Subject: subject})
	return "msg-email", nil
}

func (f *fakeChannel) SendSMS(_ context.Context, phone, _ string) (string, error) {
	if phone == f.failPhone {
		return "", apperrors.Channel("gateway rejected", nil)
	}
	f.smses = append(f.smses, phone)
	return "msg-sms", nil
}

type fixture struct {
	svc     *Service
	channel *fakeChannel
	states  *kv.NotifyStateRepository
	store   *memory.Store
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	store := memory.NewStore()
	clk := clock.Fixed{T: now}
	scheduleRepo := kv.NewScheduleRepository(store)
	notifyRepo := kv.NewNotifyStateRepository(store)
	auditor := auditService.NewService(kv.NewAuditRepository(store), clk)
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, TimeFormat: time.RFC3339, Output: io.Discard})
	channel := &fakeChannel{}

	svc := NewService(scheduleRepo, notifyRepo, channel, auditor, clk, log, nil,
		[]string{"oncall-admins@example.com"}, "https://oncall.example.com")

	require.NoError(t, scheduleRepo.PutSchedule(context.Background(), testSchedule()))
	return &fixture{svc: svc, channel: channel, states: notifyRepo, store: store}
}

func testSchedule() *model.Schedule {
	return &model.Schedule{
		Version:  1,
		Timezone: "UTC",
		Entries: []model.ScheduleEntry{
			{
				ID:       "e1",
				StartISO: "2024-01-05T16:00:00",
				EndISO:   "2024-01-12T07:00:00",
				Departments: map[string]model.Person{
					model.DeptPlatform: {Name: "Alice", Email: "alice@example.com", Phone: "+15550000001"},
				},
			},
			{
				ID:       "e2",
				StartISO: "2024-01-12T16:00:00",
				EndISO:   "2024-01-19T07:00:00",
				Departments: map[string]model.Person{
					model.DeptNetwork:  {Name: "Bob", Email: "bob@example.com", Phone: "+15550000002"},
					model.DeptPlatform: {Name: "Carol", Email: "carol@example.com", Phone: "+15550000003"},
				},
			},
		},
	}
}

var (
	monday    = time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	wednesday = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	friday    = time.Date(2024, 1, 12, 17, 0, 0, 0, time.UTC)
)

func TestMondayTriggerSendsEmailReminder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, monday)

	result, err := f.svc.Dispatch(ctx, Options{Auto: true})
	require.NoError(t, err)

	assert.Equal(t, TriggerMonday, result.Trigger)
	assert.Equal(t, model.NotifyUpcoming, result.NotifyType)
	assert.Equal(t, model.ModeEmail, result.Mode)
	assert.Equal(t, 1, result.Sent)
	assert.Zero(t, result.Skipped)
	assert.Zero(t, result.Failed)

	// Only the entry starting the coming Friday qualifies, and the
	// reminder never goes out by SMS.
	require.Len(t, result.Targets, 1)
	assert.Equal(t, "e2", result.Targets[0].EntryID)
	assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, result.Targets[0].Emails)
	assert.Empty(t, result.Targets[0].Phones)

	require.Len(t, f.channel.emails, 1)
	assert.Equal(t, []string{"oncall-admins@example.com"}, f.channel.emails[0].CC)
	assert.Empty(t, f.channel.smses)

	state, err := f.states.Get(ctx, "e2", model.ChannelEmail, model.NotifyUpcoming)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.True(t, state.Auto)
	assert.Equal(t, "msg-email", state.MessageID)
}

func TestFridayTriggerSendsBothChannels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, friday)

	result, err := f.svc.Dispatch(ctx, Options{Auto: true})
	require.NoError(t, err)

	assert.Equal(t, TriggerFriday, result.Trigger)
	assert.Equal(t, model.NotifyStartToday, result.NotifyType)
	assert.Equal(t, model.ModeBoth, result.Mode)

	// One batched email plus one SMS per phone.
	assert.Equal(t, 3, result.Sent)
	require.Len(t, f.channel.emails, 1)
	assert.ElementsMatch(t, []string{"+15550000002", "+15550000003"}, f.channel.smses)

	emailState, err := f.states.Get(ctx, "e2", model.ChannelEmail, model.NotifyStartToday)
	require.NoError(t, err)
	assert.NotNil(t, emailState)

	smsState, err := f.states.Get(ctx, "e2", model.ChannelSMS, model.NotifyStartToday)
	require.NoError(t, err)
	assert.NotNil(t, smsState)

	// The ledger is keyed per type; the reminder slot stays open.
	upcoming, err := f.states.Get(ctx, "e2", model.ChannelEmail, model.NotifyUpcoming)
	require.NoError(t, err)
	assert.Nil(t, upcoming)
}

func TestFridayMorningTickSelectsSameDayStart(t *testing.T) {
	ctx := context.Background()
	// The daily tick fires at 09:00, before the 16:00 handoff; the
	// entry starting later that Friday must still get its notice.
	f := newFixture(t, time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC))

	result, err := f.svc.Dispatch(ctx, Options{Auto: true})
	require.NoError(t, err)

	assert.Equal(t, TriggerFriday, result.Trigger)
	assert.Equal(t, model.NotifyStartToday, result.NotifyType)
	require.Len(t, result.Targets, 1)
	assert.Equal(t, "e2", result.Targets[0].EntryID)
	assert.Equal(t, 3, result.Sent)

	// e1 ended at 07:00 that morning and must not be re-notified.
	for _, target := range result.Targets {
		assert.NotEqual(t, "e1", target.EntryID)
	}
}

func TestDispatchIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, friday)

	first, err := f.svc.Dispatch(ctx, Options{Auto: true})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Sent)

	second, err := f.svc.Dispatch(ctx, Options{Auto: true})
	require.NoError(t, err)
	assert.Zero(t, second.Sent)
	assert.Equal(t, 2, second.Skipped)

	// Force overrides the ledger.
	forced, err := f.svc.Dispatch(ctx, Options{Auto: true, Force: true})
	require.NoError(t, err)
	assert.Equal(t, 3, forced.Sent)
}

func TestDryRunComputesTargetsWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, friday)

	before := f.store.Len()
	dry, err := f.svc.Dispatch(ctx, Options{Auto: true, DryRun: true})
	require.NoError(t, err)

	assert.True(t, dry.DryRun)
	assert.Zero(t, dry.Sent)
	assert.Empty(t, f.channel.emails)
	assert.Empty(t, f.channel.smses)
	assert.Equal(t, before, f.store.Len())

	live, err := f.svc.Dispatch(ctx, Options{Auto: true})
	require.NoError(t, err)
	assert.Equal(t, dry.Targets, live.Targets)
}

func TestNonAnchorDayIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wednesday)

	result, err := f.svc.Dispatch(ctx, Options{Auto: true})
	require.NoError(t, err)
	assert.Equal(t, TriggerNone, result.Trigger)
	assert.Empty(t, result.Targets)
	assert.Empty(t, f.channel.emails)
}

func TestManualDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("upcoming entry on any weekday", func(t *testing.T) {
		f := newFixture(t, wednesday)
		result, err := f.svc.Dispatch(ctx, Options{EntryID: "e2"})
		require.NoError(t, err)
		assert.Equal(t, TriggerManual, result.Trigger)
		assert.Equal(t, model.NotifyUpcoming, result.NotifyType)
		assert.Equal(t, 1, result.Sent)
	})

	t.Run("explicit mode override", func(t *testing.T) {
		f := newFixture(t, friday)
		result, err := f.svc.Dispatch(ctx, Options{EntryID: "e2", Mode: model.ModeSMS})
		require.NoError(t, err)
		assert.Equal(t, model.ModeSMS, result.Mode)
		assert.Empty(t, f.channel.emails)
		assert.Len(t, f.channel.smses, 2)
	})

	t.Run("unknown entry", func(t *testing.T) {
		f := newFixture(t, friday)
		_, err := f.svc.Dispatch(ctx, Options{EntryID: "missing"})
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("concluded entry", func(t *testing.T) {
		f := newFixture(t, friday)
		_, err := f.svc.Dispatch(ctx, Options{EntryID: "e1"})
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
		assert.Contains(t, err.Error(), "concluded")
	})

	t.Run("not yet eligible", func(t *testing.T) {
		// Thursday evening: less than a day before the start, but not
		// starting today either.
		f := newFixture(t, time.Date(2024, 1, 11, 20, 0, 0, 0, time.UTC))
		_, err := f.svc.Dispatch(ctx, Options{EntryID: "e2"})
		assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
	})

	t.Run("same-day start before the handoff", func(t *testing.T) {
		f := newFixture(t, time.Date(2024, 1, 12, 10, 0, 0, 0, time.UTC))
		result, err := f.svc.Dispatch(ctx, Options{EntryID: "e2"})
		require.NoError(t, err)
		assert.Equal(t, model.NotifyStartToday, result.NotifyType)
	})
}

func TestPartialSMSFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, friday)
	f.channel.failPhone = "+15550000002"

	result, err := f.svc.Dispatch(ctx, Options{Auto: true})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "+15550000002", result.Failures[0].Recipient)
	assert.Equal(t, model.ChannelSMS, result.Failures[0].Channel)

	// A partially delivered channel still writes its ledger record.
	state, err := f.states.Get(ctx, "e2", model.ChannelSMS, model.NotifyStartToday)
	require.NoError(t, err)
	assert.NotNil(t, state)
}

func TestEmailFailureDoesNotAbortSMS(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, friday)
	f.channel.failEmail = true

	result, err := f.svc.Dispatch(ctx, Options{Auto: true})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, f.channel.smses, 2)

	// No ledger record for the failed email; a retry can still send it.
	state, err := f.states.Get(ctx, "e2", model.ChannelEmail, model.NotifyStartToday)
	require.NoError(t, err)
	assert.Nil(t, state)

	require.Len(t, result.Failures, 1)
	assert.True(t, strings.Contains(result.Failures[0].Recipient, "bob@example.com"))
}

func TestNoRecipientsForMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, monday)

	schedule := testSchedule()
	for dept, person := range schedule.Entries[1].Departments {
		person.Email = ""
		schedule.Entries[1].Departments[dept] = person
	}
	require.NoError(t, kv.NewScheduleRepository(f.store).PutSchedule(ctx, schedule))

	_, err := f.svc.Dispatch(ctx, Options{Auto: true})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
	assert.Contains(t, err.Error(), "no recipients")
}

func TestDispatchWithoutSchedule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, friday)
	require.NoError(t, f.store.Delete(ctx, "oncall:schedule"))

	_, err := f.svc.Dispatch(ctx, Options{Auto: true})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
