// Package domain contains core concepts of the relay.
// This file defines mailbox entries.
// Entries are immutable once appended.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MailboxEntry is one opaque MLS message queued for a recipient client.
// Seq orders entries: lower is older.
type MailboxEntry struct {
	Seq         uint64
	RecipientID uuid.UUID
	Payload     []byte
	ReceivedAt  time.Time
}
