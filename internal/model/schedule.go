package model

import (
	"time"
)

// TimeLayout is the wire format for entry boundaries: a naive local
// timestamp interpreted in the schedule's timezone.
const TimeLayout = "2006-01-02T15:04:05"

// ScheduleEntry is one on-call window with a per-department
// assignment. Department values are snapshots taken at generation
// time, not live roster references.
type ScheduleEntry struct {
	ID          string            `json:"id"`
	StartISO    string            `json:"start"`
	EndISO      string            `json:"end"`
	Departments map[string]Person `json:"departments"`
}

// Start parses the entry start in the given location.
func (e *ScheduleEntry) Start(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, e.StartISO, loc)
}

// End parses the entry end in the given location.
func (e *ScheduleEntry) End(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, e.EndISO, loc)
}

// Contains reports whether now falls inside [start, end).
func (e *ScheduleEntry) Contains(now time.Time, loc *time.Location) bool {
	start, err := e.Start(loc)
	if err != nil {
		return false
	}
	end, err := e.End(loc)
	if err != nil {
		return false
	}
	return !now.Before(start) && now.Before(end)
}

// Concluded reports whether the entry's end is at or before now.
func (e *ScheduleEntry) Concluded(now time.Time, loc *time.Location) bool {
	end, err := e.End(loc)
	if err != nil {
		return false
	}
	return !end.After(now)
}

// Schedule is the full ordered list of rotation entries plus
// metadata. Exactly one schedule is authoritative at a time.
type Schedule struct {
	Version   int             `json:"version"`
	Timezone  string          `json:"timezone"`
	UpdatedAt time.Time       `json:"updated_at"`
	UpdatedBy string          `json:"updated_by"`
	Entries   []ScheduleEntry `json:"entries"`
}

// FindEntry returns the entry with the given id, or nil.
func (s *Schedule) FindEntry(id string) *ScheduleEntry {
	for i := range s.Entries {
		if s.Entries[i].ID == id {
			return &s.Entries[i]
		}
	}
	return nil
}

// CurrentEntry is the single entry, if any, whose interval contains
// the evaluation time.
type CurrentEntry struct {
	Entry      ScheduleEntry `json:"entry"`
	ComputedAt time.Time     `json:"computed_at"`
}

// HistorySnapshot is an archived entry. It is written exactly once,
// the first time the entry's end is observed in the past, and never
// updated afterward.
type HistorySnapshot struct {
	Entry      ScheduleEntry `json:"entry"`
	ArchivedAt time.Time     `json:"archived_at"`
	ArchivedBy string        `json:"archived_by"`
}
