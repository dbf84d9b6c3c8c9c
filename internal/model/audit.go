package model

import (
	"encoding/json"
	"time"
)

// Audit actors
const (
	ActorSystem = "system"
	ActorAdmin  = "admin"
)

// Audit actions
const (
	AuditActionScheduleGenerate = "schedule_generate"
	AuditActionScheduleSave     = "schedule_save"
	AuditActionScheduleRevert   = "schedule_revert"
	AuditActionScheduleRestore  = "schedule_restore"
	AuditActionNotifyDispatch   = "notify_dispatch"
	AuditActionRosterUpdate     = "roster_update"
)

// AuditRecord is one entry in the bounded, append-only audit log.
type AuditRecord struct {
	TS      time.Time       `json:"ts"`
	Actor   string          `json:"actor"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MaxAuditRecords caps the audit log; oldest records are silently
// dropped on overflow.
const MaxAuditRecords = 500
