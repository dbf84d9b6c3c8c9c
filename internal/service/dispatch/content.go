package dispatch

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/rosterhq/oncall-api/internal/model"
)

// displayTimeLayout renders boundaries in the schedule timezone on a
// 12-hour clock, the way they appear on the public schedule page.
const displayTimeLayout = "Mon, Jan 2 2006 at 3:04 PM"

func (s *Service) formatWindow(entry *model.ScheduleEntry) (string, string) {
	loc := s.clock.Location()
	start, err := entry.Start(loc)
	if err != nil {
		return entry.StartISO, entry.EndISO
	}
	end, err := entry.End(loc)
	if err != nil {
		return entry.StartISO, entry.EndISO
	}
	return start.Format(displayTimeLayout), end.Format(displayTimeLayout)
}

func (s *Service) buildEmailContent(entry *model.ScheduleEntry, typ model.NotifyType) (subject, body string) {
	startText, endText := s.formatWindow(entry)

	var intro string
	switch typ {
	case model.NotifyUpcoming:
		subject = "On-call reminder: your rotation starts this Friday"
		intro = "This is a reminder that your on-call rotation starts soon."
	default:
		subject = "On-call notice: you are currently on call"
		intro = "Your on-call rotation has started. You are currently on call."
	}

	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<p>%s</p>", intro)
	fmt.Fprintf(&b, "<p><strong>From:</strong> %s<br><strong>Until:</strong> %s</p>", startText, endText)

	depts := make([]string, 0, len(entry.Departments))
	for dept := range entry.Departments {
		depts = append(depts, dept)
	}
	sort.Strings(depts)

	b.WriteString("<ul>")
	for _, dept := range depts {
		person := entry.Departments[dept]
		fmt.Fprintf(&b, "<li><strong>%s:</strong> %s</li>",
			html.EscapeString(model.DepartmentLabel(dept)),
			html.EscapeString(person.Name))
	}
	b.WriteString("</ul>")

	if s.publicURL != "" {
		fmt.Fprintf(&b, `<p>Full schedule: <a href="%s">%s</a></p>`, s.publicURL, s.publicURL)
	}
	b.WriteString("</body></html>")

	return subject, b.String()
}

func (s *Service) buildSMSContent(entry *model.ScheduleEntry) string {
	startText, endText := s.formatWindow(entry)
	text := fmt.Sprintf("On-call notice: your rotation runs %s until %s.", startText, endText)
	if s.publicURL != "" {
		text += " Schedule: " + s.publicURL
	}
	return text
}
