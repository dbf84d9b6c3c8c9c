// Package rotation generates weekly on-call schedules from a roster.
// Generation is a pure function: it produces a Schedule and never
// persists anything itself.
package rotation

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rosterhq/oncall-api/internal/model"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
)

// Rotation windows are anchored on Friday: handoff at 16:00 local,
// and the window closes the following Friday at 07:00 so the outgoing
// engineer is off before the next rotation begins.
const (
	AnchorWeekday = time.Friday
	StartHour     = 16
	EndHour       = 7
)

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Generate builds the weekly entries covering [startDate, endDate].
// seedIndex offsets every department's rotation; each department's
// index then advances independently, wrapping modulo its roster
// length, so one roster's size never perturbs another's order.
func (s *Service) Generate(roster model.Roster, startDate, endDate time.Time, seedIndex int, loc *time.Location) (*model.Schedule, error) {
	if startDate.IsZero() || endDate.IsZero() {
		return nil, apperrors.Validation("start and end dates are required", nil)
	}
	if endDate.Before(startDate) {
		return nil, apperrors.Validation("end date must not be before start date", nil)
	}
	if len(roster) == 0 {
		return nil, apperrors.NotFound("roster", nil)
	}
	if seedIndex < 0 {
		return nil, apperrors.Validation("seed index must not be negative", nil)
	}

	depts := make([]string, 0, len(roster))
	for dept := range roster {
		depts = append(depts, dept)
	}
	sort.Strings(depts)

	cursor := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, loc)
	end := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 0, 0, 0, 0, loc)
	for cursor.Weekday() != AnchorWeekday {
		cursor = cursor.AddDate(0, 0, 1)
	}

	counters := make(map[string]int, len(roster))
	var entries []model.ScheduleEntry

	for !cursor.After(end) {
		start := time.Date(cursor.Year(), cursor.Month(), cursor.Day(), StartHour, 0, 0, 0, loc)
		next := cursor.AddDate(0, 0, 7)
		finish := time.Date(next.Year(), next.Month(), next.Day(), EndHour, 0, 0, 0, loc)

		departments := make(map[string]model.Person)
		for _, dept := range depts {
			people := roster[dept]
			if len(people) == 0 {
				continue
			}
			idx := (seedIndex + counters[dept]) % len(people)
			departments[dept] = people[idx]
			counters[dept]++
		}

		entries = append(entries, model.ScheduleEntry{
			ID:          uuid.New().String(),
			StartISO:    start.Format(model.TimeLayout),
			EndISO:      finish.Format(model.TimeLayout),
			Departments: departments,
		})

		cursor = next
	}

	return &model.Schedule{
		Timezone: loc.String(),
		Entries:  entries,
	}, nil
}
