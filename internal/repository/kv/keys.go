// Package kv implements the repositories on top of any
// repository.KVStore. One canonical key per entity; the layout below
// is the complete key map of the service.
package kv

import (
	"fmt"

	"github.com/rosterhq/oncall-api/internal/model"
)

const (
	keySchedule     = "oncall:schedule"
	keySchedulePrev = "oncall:schedule:prev"
	keyCurrent      = "oncall:current"
	prefixHistory   = "oncall:history:"
	prefixRoster    = "oncall:roster:"
	prefixNotify    = "oncall:notify:"
	keyAudit        = "oncall:audit"
)

func historyKey(entryID string) string {
	return prefixHistory + entryID
}

func rosterKey(dept string) string {
	return prefixRoster + dept
}

func notifyKey(entryID string, channel model.NotifyChannel, typ model.NotifyType) string {
	return fmt.Sprintf("%s%s:%s:%s", prefixNotify, entryID, channel, typ)
}
