// Package notifier is the outbound notification channel boundary.
// Providers return a message id on success; there are no delivery
// receipts.
package notifier

import "context"

// Channel sends notifications. Implementations must be safe for
// sequential reuse; the dispatch engine never fans out in parallel.
type Channel interface {
	SendEmail(ctx context.Context, to []string, cc []string, subject, html string) (messageID string, err error)
	SendSMS(ctx context.Context, phone, text string) (messageID string, err error)
}
