package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterhq/oncall-api/internal/clock"
	"github.com/rosterhq/oncall-api/internal/model"
	"github.com/rosterhq/oncall-api/internal/repository/kv"
	"github.com/rosterhq/oncall-api/internal/repository/memory"
)

func newTestService() *Service {
	store := memory.NewStore()
	clk := clock.Fixed{T: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
	return NewService(kv.NewAuditRepository(store), clk)
}

func TestAppendNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	require.NoError(t, svc.Append(ctx, model.ActorAdmin, model.AuditActionScheduleSave, map[string]int{"seq": 1}))
	require.NoError(t, svc.Append(ctx, model.ActorAdmin, model.AuditActionScheduleSave, map[string]int{"seq": 2}))

	records, err := svc.Read(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"seq":2}`, string(records[0].Payload))
	assert.JSONEq(t, `{"seq":1}`, string(records[1].Payload))
}

func TestAppendCapsLog(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	for i := 0; i < model.MaxAuditRecords+5; i++ {
		require.NoError(t, svc.Append(ctx, model.ActorAdmin, model.AuditActionScheduleSave, map[string]int{"seq": i}))
	}

	records, err := svc.Read(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, records, model.MaxAuditRecords)

	// Newest survives, oldest five are gone.
	assert.JSONEq(t, fmt.Sprintf(`{"seq":%d}`, model.MaxAuditRecords+4), string(records[0].Payload))
	assert.JSONEq(t, `{"seq":5}`, string(records[len(records)-1].Payload))
}

func TestReadFilters(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	require.NoError(t, svc.Append(ctx, model.ActorAdmin, model.AuditActionScheduleSave, nil))
	require.NoError(t, svc.Append(ctx, model.ActorSystem, model.AuditActionNotifyDispatch, nil))
	require.NoError(t, svc.Append(ctx, model.ActorAdmin, model.AuditActionNotifyDispatch, nil))

	byActor, err := svc.Read(ctx, Filter{Actor: model.ActorSystem})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, model.AuditActionNotifyDispatch, byActor[0].Action)

	byAction, err := svc.Read(ctx, Filter{ActionPrefix: "notify"})
	require.NoError(t, err)
	assert.Len(t, byAction, 2)

	both, err := svc.Read(ctx, Filter{Actor: model.ActorAdmin, ActionPrefix: "schedule"})
	require.NoError(t, err)
	assert.Len(t, both, 1)
}

func TestLastSystemRun(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	run, err := svc.LastSystemRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, run)

	require.NoError(t, svc.Append(ctx, model.ActorSystem, model.AuditActionNotifyDispatch, map[string]int{"seq": 1}))
	require.NoError(t, svc.Append(ctx, model.ActorAdmin, model.AuditActionScheduleSave, nil))
	require.NoError(t, svc.Append(ctx, model.ActorSystem, model.AuditActionNotifyDispatch, map[string]int{"seq": 2}))

	run, err = svc.LastSystemRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.JSONEq(t, `{"seq":2}`, string(run.Payload))
}
