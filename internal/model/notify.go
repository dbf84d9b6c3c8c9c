package model

import "time"

// NotifyType classifies what a notification is about.
type NotifyType string

const (
	// NotifyUpcoming is the advance reminder for an entry starting at
	// least 24 hours out.
	NotifyUpcoming NotifyType = "UPCOMING"
	// NotifyStartToday is the same-day notice for an entry whose
	// interval contains the trigger time.
	NotifyStartToday NotifyType = "START_TODAY"
)

// NotifyChannel is an outbound delivery channel.
type NotifyChannel string

const (
	ChannelEmail NotifyChannel = "email"
	ChannelSMS   NotifyChannel = "sms"
)

// NotifyMode selects which channels a dispatch uses.
type NotifyMode string

const (
	ModeEmail NotifyMode = "email"
	ModeSMS   NotifyMode = "sms"
	ModeBoth  NotifyMode = "both"
)

// IncludesEmail reports whether the mode sends email.
func (m NotifyMode) IncludesEmail() bool {
	return m == ModeEmail || m == ModeBoth
}

// IncludesSMS reports whether the mode sends SMS.
func (m NotifyMode) IncludesSMS() bool {
	return m == ModeSMS || m == ModeBoth
}

// Valid reports whether the mode is one of the known values.
func (m NotifyMode) Valid() bool {
	return m == ModeEmail || m == ModeSMS || m == ModeBoth
}

// NotifyState is the idempotency ledger record for one
// (entry, channel, type) triple. Its presence means the notification
// already went out.
type NotifyState struct {
	SentAt    time.Time `json:"sent_at"`
	Force     bool      `json:"force"`
	Auto      bool      `json:"auto"`
	MessageID string    `json:"message_id,omitempty"`
}
